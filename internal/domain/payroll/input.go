package payroll

import (
	"bytes"
	"math"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Money is a whole-currency amount as typed into a form. It decodes from JSON
// numbers and from strings such as "10,000,000"; anything unparseable,
// negative, blank or above MaxMoney decodes to zero.
type Money float64

// MaxMoney is the largest amount accepted; larger inputs decode to zero.
const MaxMoney = 1e15

var (
	maxMoney      = decimal.NewFromFloat(MaxMoney)
	moneyReplacer = strings.NewReplacer(",", "", " ", "", "_", "", "\u00a0", "")
)

func (m *Money) UnmarshalJSON(data []byte) error {
	*m = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = s
	}
	*m = ParseMoney(raw)
	return nil
}

// ParseMoney applies the same permissive rules as Money's JSON decoding.
func ParseMoney(raw string) Money {
	cleaned := moneyReplacer.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() || d.GreaterThan(maxMoney) {
		return 0
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return Money(f)
}

func (m Money) Float() float64 {
	return float64(m)
}

// Request is the parameter object the simulation form posts. Enabled flags
// are optional; a missing flag leaves its line item in force.
type Request struct {
	Method            string `json:"method"`
	TaxResidentStatus string `json:"taxResidentStatus"`
	Citizenship       string `json:"citizenship,omitempty"`

	GrossSalary Money `json:"grossSalary"`
	NetSalary   Money `json:"netSalary"`

	LunchAllowance   Money `json:"lunchAllowance"`
	FuelAllowance    Money `json:"fuelAllowance"`
	PhoneAllowance   Money `json:"phoneAllowance"`
	TravelAllowance  Money `json:"travelAllowance"`
	UniformAllowance Money `json:"uniformAllowance"`
	OtherAllowance   Money `json:"otherAllowance"`
	TotalBonus       Money `json:"totalBonus"`

	NetLunchAllowance   Money `json:"netLunchAllowance"`
	NetFuelAllowance    Money `json:"netFuelAllowance"`
	NetPhoneAllowance   Money `json:"netPhoneAllowance"`
	NetTravelAllowance  Money `json:"netTravelAllowance"`
	NetUniformAllowance Money `json:"netUniformAllowance"`
	NetOtherAllowance   Money `json:"netOtherAllowance"`
	NetTotalBonus       Money `json:"netTotalBonus"`

	ChildTuitionBenefit    Money `json:"childTuitionBenefit"`
	RentalBenefit          Money `json:"rentalBenefit"`
	HealthInsuranceBenefit Money `json:"healthInsuranceBenefit"`

	IsAllowanceEnabled    *bool `json:"isAllowanceEnabled,omitempty"`
	IsBonusEnabled        *bool `json:"isBonusEnabled,omitempty"`
	IsBenefitEnabled      *bool `json:"isBenefitEnabled,omitempty"`
	LunchEnabled          *bool `json:"lunchEnabled,omitempty"`
	FuelEnabled           *bool `json:"fuelEnabled,omitempty"`
	PhoneEnabled          *bool `json:"phoneEnabled,omitempty"`
	TravelEnabled         *bool `json:"travelEnabled,omitempty"`
	UniformEnabled        *bool `json:"uniformEnabled,omitempty"`
	OtherAllowanceEnabled *bool `json:"otherAllowanceEnabled,omitempty"`
}

// Allowances are the six monthly allowance categories.
type Allowances struct {
	Lunch   float64
	Fuel    float64
	Phone   float64
	Travel  float64
	Uniform float64
	Other   float64
}

func (a Allowances) Total() float64 {
	return lo.Sum([]float64{a.Lunch, a.Fuel, a.Phone, a.Travel, a.Uniform, a.Other})
}

// Scale multiplies every category by f.
func (a Allowances) Scale(f float64) Allowances {
	return Allowances{
		Lunch:   a.Lunch * f,
		Fuel:    a.Fuel * f,
		Phone:   a.Phone * f,
		Travel:  a.Travel * f,
		Uniform: a.Uniform * f,
		Other:   a.Other * f,
	}
}

// Input is a normalized calculation request. Salary, Allowances and Bonus are
// gross amounts for gross-to-net and net amounts for net-to-gross. HealthBenefit
// is already monthly.
type Input struct {
	Method     string
	Residency  string
	Salary     float64
	Allowances Allowances
	Bonus      float64

	ChildTuition  float64
	Rental        float64
	HealthBenefit float64
}

func (in Input) TotalBenefit() float64 {
	return in.ChildTuition + in.Rental + in.HealthBenefit
}

func enabled(flags ...*bool) bool {
	for _, f := range flags {
		if f != nil && !*f {
			return false
		}
	}
	return true
}

func gated(m Money, flags ...*bool) float64 {
	if !enabled(flags...) {
		return 0
	}
	return m.Float()
}

// preferNet picks the net-prefixed field when the client filled it in and
// falls back to the plain one, which some forms post for both directions.
func preferNet(net, plain Money) Money {
	if net > 0 {
		return net
	}
	return plain
}

// Normalize resolves enabled flags, direction-specific fields and residency.
// healthBenefitMonths spreads the annual health-insurance benefit; values
// below one leave it unchanged.
func (r Request) Normalize(healthBenefitMonths float64) Input {
	in := Input{
		Method:    strings.ToLower(strings.TrimSpace(r.Method)),
		Residency: normalizeResidency(lo.CoalesceOrEmpty(r.TaxResidentStatus, r.Citizenship)),
	}
	if in.Method == "" {
		in.Method = MethodGrossToNet
	}

	lunch, fuel, phone := r.LunchAllowance, r.FuelAllowance, r.PhoneAllowance
	travel, uniform, other := r.TravelAllowance, r.UniformAllowance, r.OtherAllowance
	bonus := r.TotalBonus
	in.Salary = r.GrossSalary.Float()
	if in.Method == MethodNetToGross {
		in.Salary = r.NetSalary.Float()
		lunch = preferNet(r.NetLunchAllowance, lunch)
		fuel = preferNet(r.NetFuelAllowance, fuel)
		phone = preferNet(r.NetPhoneAllowance, phone)
		travel = preferNet(r.NetTravelAllowance, travel)
		uniform = preferNet(r.NetUniformAllowance, uniform)
		other = preferNet(r.NetOtherAllowance, other)
		bonus = preferNet(r.NetTotalBonus, bonus)
	}

	group := r.IsAllowanceEnabled
	in.Allowances = Allowances{
		Lunch:   gated(lunch, group, r.LunchEnabled),
		Fuel:    gated(fuel, group, r.FuelEnabled),
		Phone:   gated(phone, group, r.PhoneEnabled),
		Travel:  gated(travel, group, r.TravelEnabled),
		Uniform: gated(uniform, group, r.UniformEnabled),
		Other:   gated(other, group, r.OtherAllowanceEnabled),
	}
	in.Bonus = gated(bonus, r.IsBonusEnabled)

	in.ChildTuition = gated(r.ChildTuitionBenefit, r.IsBenefitEnabled)
	in.Rental = gated(r.RentalBenefit, r.IsBenefitEnabled)
	in.HealthBenefit = gated(r.HealthInsuranceBenefit, r.IsBenefitEnabled)
	if healthBenefitMonths >= 1 {
		in.HealthBenefit /= healthBenefitMonths
	}
	return in
}

func normalizeResidency(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ResidencyLocal:
		return ResidencyLocal
	default:
		return ResidencyExpat
	}
}
