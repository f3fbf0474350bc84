package payroll

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// TaxBracket is one band of the progressive personal income tax table.
// Tax for an assessable amount inside the band is amount*Rate - Subtract.
type TaxBracket struct {
	UpTo     float64 `json:"upTo"`
	Rate     float64 `json:"rate"`
	Subtract float64 `json:"subtract"`
}

// MarshalJSON renders an unbounded threshold as null.
func (b TaxBracket) MarshalJSON() ([]byte, error) {
	var upTo *float64
	if !b.Unbounded() {
		upTo = &b.UpTo
	}
	return json.Marshal(struct {
		UpTo     *float64 `json:"upTo"`
		Rate     float64  `json:"rate"`
		Subtract float64  `json:"subtract"`
	}{upTo, b.Rate, b.Subtract})
}

// Unbounded reports whether the bracket has no upper threshold.
func (b TaxBracket) Unbounded() bool {
	return math.IsInf(b.UpTo, 1)
}

type InsuranceRateSet struct {
	Social       float64 `json:"social" yaml:"social"`
	Health       float64 `json:"health" yaml:"health"`
	Unemployment float64 `json:"unemployment" yaml:"unemployment"`
}

func (r InsuranceRateSet) Total() float64 {
	return r.Social + r.Health + r.Unemployment
}

// Schedule is the statutory table a calculation runs against. Values are
// monthly whole currency units unless the field name says otherwise.
type Schedule struct {
	Name          string    `json:"name"`
	EffectiveFrom time.Time `json:"effectiveFrom"`

	BaseWage            float64 `json:"baseWage"`
	RegionalMinimumWage float64 `json:"regionalMinimumWage"`

	EmployeeRates InsuranceRateSet `json:"employeeRates"`
	EmployerRates InsuranceRateSet `json:"employerRates"`

	SocialHealthCapMultiple float64 `json:"socialHealthCapMultiple"`
	UnemploymentCapMultiple float64 `json:"unemploymentCapMultiple"`

	LunchExemptCap         float64 `json:"lunchExemptCap"`
	UniformAnnualExemptCap float64 `json:"uniformAnnualExemptCap"`
	RentalTaxableRatio     float64 `json:"rentalTaxableRatio"`

	Brackets          []TaxBracket `json:"brackets"`
	TradeUnionRate    float64      `json:"tradeUnionRate"`
	PersonalDeduction float64      `json:"personalDeduction"`

	MinGrossSalary float64 `json:"minGrossSalary"`
	MinNetSalary   float64 `json:"minNetSalary"`

	// HealthBenefitMonths spreads the annual health-insurance benefit.
	HealthBenefitMonths float64 `json:"healthBenefitMonths"`
}

var defaultBrackets = []TaxBracket{
	{UpTo: 5_000_000, Rate: 0.05, Subtract: 0},
	{UpTo: 10_000_000, Rate: 0.10, Subtract: 250_000},
	{UpTo: 18_000_000, Rate: 0.15, Subtract: 750_000},
	{UpTo: 32_000_000, Rate: 0.20, Subtract: 1_650_000},
	{UpTo: 52_000_000, Rate: 0.25, Subtract: 3_250_000},
	{UpTo: 80_000_000, Rate: 0.30, Subtract: 5_850_000},
	{UpTo: math.Inf(1), Rate: 0.35, Subtract: 9_850_000},
}

// DefaultSchedule returns the region 1 table in force from July 2024.
// Every call returns an independent copy.
func DefaultSchedule() Schedule {
	return Schedule{
		Name:                    "VN-2024-R1",
		EffectiveFrom:           time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		BaseWage:                2_340_000,
		RegionalMinimumWage:     4_960_000,
		EmployeeRates:           InsuranceRateSet{Social: 0.08, Health: 0.015, Unemployment: 0.01},
		EmployerRates:           InsuranceRateSet{Social: 0.175, Health: 0.03, Unemployment: 0.01},
		SocialHealthCapMultiple: 20,
		UnemploymentCapMultiple: 20,
		LunchExemptCap:          730_000,
		UniformAnnualExemptCap:  5_000_000,
		RentalTaxableRatio:      0.15,
		Brackets:                append([]TaxBracket(nil), defaultBrackets...),
		TradeUnionRate:          0.02,
		PersonalDeduction:       11_000_000,
		MinGrossSalary:          5_000_000,
		MinNetSalary:            4_475_000,
		HealthBenefitMonths:     12,
	}
}

func (s Schedule) SocialHealthCap() float64 {
	return s.SocialHealthCapMultiple * s.BaseWage
}

func (s Schedule) UnemploymentCap() float64 {
	return s.UnemploymentCapMultiple * s.RegionalMinimumWage
}

func (s Schedule) UniformCap() float64 {
	return s.UniformAnnualExemptCap / 12
}

// IncomeTax applies the first bracket whose threshold is at or above the
// assessable amount. Non-positive amounts owe nothing.
func (s Schedule) IncomeTax(assessable float64) float64 {
	if assessable <= 0 {
		return 0
	}
	for _, b := range s.Brackets {
		if assessable <= b.UpTo {
			return assessable*b.Rate - b.Subtract
		}
	}
	return 0
}

// Clone returns a copy that shares no memory with s.
func (s Schedule) Clone() Schedule {
	out := s
	out.Brackets = append([]TaxBracket(nil), s.Brackets...)
	return out
}

func (s Schedule) Validate() error {
	if len(s.Brackets) == 0 {
		return fmt.Errorf("%w: no tax brackets", ErrInvalidSchedule)
	}
	checks := []struct {
		name  string
		value float64
	}{
		{"baseWage", s.BaseWage},
		{"regionalMinimumWage", s.RegionalMinimumWage},
		{"socialHealthCapMultiple", s.SocialHealthCapMultiple},
		{"unemploymentCapMultiple", s.UnemploymentCapMultiple},
		{"lunchExemptCap", s.LunchExemptCap},
		{"uniformAnnualExemptCap", s.UniformAnnualExemptCap},
		{"personalDeduction", s.PersonalDeduction},
		{"minGrossSalary", s.MinGrossSalary},
		{"minNetSalary", s.MinNetSalary},
	}
	for _, c := range checks {
		if c.value < 0 || math.IsNaN(c.value) {
			return fmt.Errorf("%w: %s must be non-negative", ErrInvalidSchedule, c.name)
		}
	}
	if s.HealthBenefitMonths < 1 || math.IsNaN(s.HealthBenefitMonths) {
		return fmt.Errorf("%w: healthBenefitMonths must be at least 1", ErrInvalidSchedule)
	}
	fractions := []struct {
		name  string
		value float64
	}{
		{"employeeRates.social", s.EmployeeRates.Social},
		{"employeeRates.health", s.EmployeeRates.Health},
		{"employeeRates.unemployment", s.EmployeeRates.Unemployment},
		{"employerRates.social", s.EmployerRates.Social},
		{"employerRates.health", s.EmployerRates.Health},
		{"employerRates.unemployment", s.EmployerRates.Unemployment},
		{"tradeUnionRate", s.TradeUnionRate},
		{"rentalTaxableRatio", s.RentalTaxableRatio},
	}
	for _, f := range fractions {
		if f.value < 0 || f.value > 1 || math.IsNaN(f.value) {
			return fmt.Errorf("%w: %s must be within [0, 1]", ErrInvalidSchedule, f.name)
		}
	}

	last := len(s.Brackets) - 1
	if !s.Brackets[last].Unbounded() {
		return fmt.Errorf("%w: last bracket must be unbounded", ErrInvalidSchedule)
	}
	for i, b := range s.Brackets {
		if b.Rate <= 0 || b.Rate >= 1 {
			return fmt.Errorf("%w: bracket %d rate must be within (0, 1)", ErrInvalidSchedule, i)
		}
		if i == 0 {
			if math.Abs(b.Subtract) > 1 {
				return fmt.Errorf("%w: first bracket must not subtract", ErrInvalidSchedule)
			}
			continue
		}
		prev := s.Brackets[i-1]
		if b.UpTo <= prev.UpTo {
			return fmt.Errorf("%w: bracket %d threshold not ascending", ErrInvalidSchedule, i)
		}
		if b.Rate <= prev.Rate {
			return fmt.Errorf("%w: bracket %d rate not increasing", ErrInvalidSchedule, i)
		}
		// both formulas must agree at the shared boundary
		below := prev.UpTo*prev.Rate - prev.Subtract
		above := prev.UpTo*b.Rate - b.Subtract
		if math.Abs(below-above) > 1 {
			return fmt.Errorf("%w: bracket %d discontinuous at %.0f", ErrInvalidSchedule, i, prev.UpTo)
		}
	}
	return nil
}
