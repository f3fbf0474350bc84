package payroll

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type scheduleFile struct {
	Name                    string            `yaml:"name"`
	EffectiveFrom           string            `yaml:"effectiveFrom"`
	BaseWage                *float64          `yaml:"baseWage"`
	RegionalMinimumWage     *float64          `yaml:"regionalMinimumWage"`
	EmployeeRates           *InsuranceRateSet `yaml:"employeeRates"`
	EmployerRates           *InsuranceRateSet `yaml:"employerRates"`
	SocialHealthCapMultiple *float64          `yaml:"socialHealthCapMultiple"`
	UnemploymentCapMultiple *float64          `yaml:"unemploymentCapMultiple"`
	LunchExemptCap          *float64          `yaml:"lunchExemptCap"`
	UniformAnnualExemptCap  *float64          `yaml:"uniformAnnualExemptCap"`
	RentalTaxableRatio      *float64          `yaml:"rentalTaxableRatio"`
	Brackets                []scheduleBracket `yaml:"brackets"`
	TradeUnionRate          *float64          `yaml:"tradeUnionRate"`
	PersonalDeduction       *float64          `yaml:"personalDeduction"`
	MinGrossSalary          *float64          `yaml:"minGrossSalary"`
	MinNetSalary            *float64          `yaml:"minNetSalary"`
	HealthBenefitMonths     *float64          `yaml:"healthBenefitMonths"`
}

type scheduleBracket struct {
	UpTo     *float64 `yaml:"upTo"`
	Rate     float64  `yaml:"rate"`
	Subtract float64  `yaml:"subtract"`
}

// LoadSchedule reads a YAML schedule from path. Keys the document leaves out
// keep their DefaultSchedule value.
func LoadSchedule(path string) (Schedule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("read schedule %s: %w", path, err)
	}
	return ParseSchedule(raw)
}

func ParseSchedule(raw []byte) (Schedule, error) {
	var doc scheduleFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Schedule{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	s := DefaultSchedule()
	if doc.Name != "" {
		s.Name = doc.Name
	}
	if doc.EffectiveFrom != "" {
		parsed, err := time.Parse("2006-01-02", doc.EffectiveFrom)
		if err != nil {
			return Schedule{}, fmt.Errorf("%w: effectiveFrom must be YYYY-MM-DD", ErrInvalidSchedule)
		}
		s.EffectiveFrom = parsed
	}
	if doc.EmployeeRates != nil {
		s.EmployeeRates = *doc.EmployeeRates
	}
	if doc.EmployerRates != nil {
		s.EmployerRates = *doc.EmployerRates
	}
	overrides := []struct {
		src *float64
		dst *float64
	}{
		{doc.BaseWage, &s.BaseWage},
		{doc.RegionalMinimumWage, &s.RegionalMinimumWage},
		{doc.SocialHealthCapMultiple, &s.SocialHealthCapMultiple},
		{doc.UnemploymentCapMultiple, &s.UnemploymentCapMultiple},
		{doc.LunchExemptCap, &s.LunchExemptCap},
		{doc.UniformAnnualExemptCap, &s.UniformAnnualExemptCap},
		{doc.RentalTaxableRatio, &s.RentalTaxableRatio},
		{doc.TradeUnionRate, &s.TradeUnionRate},
		{doc.PersonalDeduction, &s.PersonalDeduction},
		{doc.MinGrossSalary, &s.MinGrossSalary},
		{doc.MinNetSalary, &s.MinNetSalary},
		{doc.HealthBenefitMonths, &s.HealthBenefitMonths},
	}
	for _, o := range overrides {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
	if len(doc.Brackets) > 0 {
		s.Brackets = make([]TaxBracket, 0, len(doc.Brackets))
		for _, b := range doc.Brackets {
			upTo := math.Inf(1)
			if b.UpTo != nil {
				upTo = *b.UpTo
			}
			s.Brackets = append(s.Brackets, TaxBracket{UpTo: upTo, Rate: b.Rate, Subtract: b.Subtract})
		}
	}

	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// MarshalYAML writes s in the layout ParseSchedule reads.
func (s Schedule) MarshalYAML() (any, error) {
	doc := scheduleFile{
		Name:                    s.Name,
		EffectiveFrom:           s.EffectiveFrom.Format("2006-01-02"),
		BaseWage:                &s.BaseWage,
		RegionalMinimumWage:     &s.RegionalMinimumWage,
		EmployeeRates:           &s.EmployeeRates,
		EmployerRates:           &s.EmployerRates,
		SocialHealthCapMultiple: &s.SocialHealthCapMultiple,
		UnemploymentCapMultiple: &s.UnemploymentCapMultiple,
		LunchExemptCap:          &s.LunchExemptCap,
		UniformAnnualExemptCap:  &s.UniformAnnualExemptCap,
		RentalTaxableRatio:      &s.RentalTaxableRatio,
		TradeUnionRate:          &s.TradeUnionRate,
		PersonalDeduction:       &s.PersonalDeduction,
		MinGrossSalary:          &s.MinGrossSalary,
		MinNetSalary:            &s.MinNetSalary,
		HealthBenefitMonths:     &s.HealthBenefitMonths,
	}
	for _, b := range s.Brackets {
		entry := scheduleBracket{Rate: b.Rate, Subtract: b.Subtract}
		if !b.Unbounded() {
			upTo := b.UpTo
			entry.UpTo = &upTo
		}
		doc.Brackets = append(doc.Brackets, entry)
	}
	return doc, nil
}
