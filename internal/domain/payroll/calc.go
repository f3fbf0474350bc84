package payroll

import "math"

// GrossInput is one month of gross compensation. Bundle is every allowance and
// bonus paid on top of Base; the lunch, phone and uniform amounts are the parts
// of Bundle that carry an exemption.
type GrossInput struct {
	Base         float64
	Bundle       float64
	Lunch        float64
	Phone        float64
	Uniform      float64
	Rental       float64
	TotalBenefit float64
	Residency    string
}

// Breakdown holds unrounded amounts. Rounding is the caller's business.
type Breakdown struct {
	AdjustedGross float64

	SocialHealthBase float64
	UnemploymentBase float64

	EmployeeSocial       float64
	EmployeeHealth       float64
	EmployeeUnemployment float64
	EmployeeInsurance    float64

	EmployerSocial       float64
	EmployerHealth       float64
	EmployerUnemployment float64
	EmployerInsurance    float64

	TaxableIncome    float64
	RentalTaxable    float64
	AssessableIncome float64
	IncomeTax        float64
	NetSalary        float64

	TradeUnionFund    float64
	NonCashBenefit    float64
	TotalEmployerCost float64
}

// CalculateFromGross maps a gross package to net pay and statutory
// contributions. Inputs are assumed non-negative.
func CalculateFromGross(s Schedule, in GrossInput) Breakdown {
	var b Breakdown
	b.AdjustedGross = in.Base + in.Bundle

	// contributions are levied on the base salary only
	b.SocialHealthBase = math.Min(in.Base, s.SocialHealthCap())
	b.UnemploymentBase = math.Min(in.Base, s.UnemploymentCap())
	local := in.Residency == ResidencyLocal

	b.EmployeeSocial = b.SocialHealthBase * s.EmployeeRates.Social
	b.EmployeeHealth = b.SocialHealthBase * s.EmployeeRates.Health
	b.EmployerSocial = b.SocialHealthBase * s.EmployerRates.Social
	b.EmployerHealth = b.SocialHealthBase * s.EmployerRates.Health
	if local {
		b.EmployeeUnemployment = b.UnemploymentBase * s.EmployeeRates.Unemployment
		b.EmployerUnemployment = b.UnemploymentBase * s.EmployerRates.Unemployment
	}
	b.EmployeeInsurance = b.EmployeeSocial + b.EmployeeHealth + b.EmployeeUnemployment
	b.EmployerInsurance = b.EmployerSocial + b.EmployerHealth + b.EmployerUnemployment

	b.TaxableIncome = b.AdjustedGross -
		in.Phone -
		math.Min(in.Lunch, s.LunchExemptCap) -
		math.Min(in.Uniform, s.UniformCap())

	b.RentalTaxable = math.Min(b.TaxableIncome*s.RentalTaxableRatio, in.Rental)
	b.AssessableIncome = b.TaxableIncome + b.RentalTaxable - b.EmployeeInsurance - s.PersonalDeduction
	b.IncomeTax = s.IncomeTax(b.AssessableIncome)

	b.NetSalary = b.AdjustedGross - b.EmployeeInsurance - b.IncomeTax

	b.TradeUnionFund = b.SocialHealthBase * s.TradeUnionRate
	b.NonCashBenefit = in.TotalBenefit
	b.TotalEmployerCost = b.AdjustedGross + b.EmployerInsurance + b.TradeUnionFund + b.NonCashBenefit
	return b
}
