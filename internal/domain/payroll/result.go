package payroll

import "math"

// SolverInfo describes the net-to-gross search. Converged is false when the
// iteration budget ran out and the last midpoint was used.
type SolverInfo struct {
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Multiplier float64 `json:"multiplier"`
	Target     int64   `json:"target"`
}

// Result is the flat payslip record front ends render. Monetary fields are
// rounded to whole currency units; percentages are of adjusted gross.
type Result struct {
	Method            string `json:"method"`
	TaxResidentStatus string `json:"taxResidentStatus"`
	Citizenship       string `json:"citizenship"`
	Schedule          string `json:"schedule"`

	GrossSalary         int64 `json:"grossSalary"`
	BaseSalary          int64 `json:"baseSalary"`
	AdjustedGrossSalary int64 `json:"adjustedGrossSalary"`

	GrossLunchAllowance   int64 `json:"grossLunchAllowance"`
	GrossFuelAllowance    int64 `json:"grossFuelAllowance"`
	GrossPhoneAllowance   int64 `json:"grossPhoneAllowance"`
	GrossTravelAllowance  int64 `json:"grossTravelAllowance"`
	GrossUniformAllowance int64 `json:"grossUniformAllowance"`
	GrossOtherAllowance   int64 `json:"grossOtherAllowance"`
	GrossTotalAllowance   int64 `json:"grossTotalAllowance"`
	GrossTotalBonus       int64 `json:"grossTotalBonus"`

	NetLunchAllowance   int64 `json:"netLunchAllowance"`
	NetFuelAllowance    int64 `json:"netFuelAllowance"`
	NetPhoneAllowance   int64 `json:"netPhoneAllowance"`
	NetTravelAllowance  int64 `json:"netTravelAllowance"`
	NetUniformAllowance int64 `json:"netUniformAllowance"`
	NetOtherAllowance   int64 `json:"netOtherAllowance"`
	NetTotalAllowance   int64 `json:"netTotalAllowance"`
	NetTotalBonus       int64 `json:"netTotalBonus"`

	TotalBonusAndAllowance int64 `json:"totalBonusAndAllowance"`

	ChildTuitionBenefit    int64 `json:"childTuitionBenefit"`
	RentalBenefit          int64 `json:"rentalBenefit"`
	HealthInsuranceBenefit int64 `json:"healthInsuranceBenefit"`
	TotalBenefit           int64 `json:"totalBenefit"`

	SocialHealthInsuredSalary int64 `json:"socialHealthInsuredSalary"`
	UnemploymentInsuredSalary int64 `json:"unemploymentInsuredSalary"`

	EmployeeSocialInsurance       int64 `json:"employeeSocialInsurance"`
	EmployeeHealthInsurance       int64 `json:"employeeHealthInsurance"`
	EmployeeUnemploymentInsurance int64 `json:"employeeUnemploymentInsurance"`
	EmployeeInsurance             int64 `json:"employeeInsurance"`

	EmployerSocialInsurance       int64 `json:"employerSocialInsurance"`
	EmployerHealthInsurance       int64 `json:"employerHealthInsurance"`
	EmployerUnemploymentInsurance int64 `json:"employerUnemploymentInsurance"`
	EmployerInsurance             int64 `json:"employerInsurance"`

	EmployeeContribution int64 `json:"employeeContribution"`
	EmployerContribution int64 `json:"employerContribution"`

	TaxableIncome       int64 `json:"taxableIncome"`
	RentalTaxableAmount int64 `json:"rentalTaxableAmount"`
	AssessableIncome    int64 `json:"assessableIncome"`
	IncomeTax           int64 `json:"incomeTax"`
	NetSalary           int64 `json:"netSalary"`

	EmployerTradeUnionFund int64 `json:"employerTradeUnionFund"`
	EmployerUnionFee       int64 `json:"employerUnionFee"`
	TotalEmployerCost      int64 `json:"totalEmployerCost"`

	PercentGrossSalary       int64   `json:"percentGrossSalary"`
	PercentBonusAndAllowance int64   `json:"percentBonusAndAllowance"`
	EffectiveTaxRate         float64 `json:"effectiveTaxRate"`

	Solver *SolverInfo `json:"solver,omitempty"`
}

// round matches half-up rounding toward positive infinity.
func round(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

type resultParts struct {
	method     string
	schedule   string
	in         Input
	base       float64
	grossAllow Allowances
	grossBonus float64
	netAllow   Allowances
	netBonus   float64
	breakdown  Breakdown
	solver     *SolverInfo
}

func buildResult(p resultParts) Result {
	b := p.breakdown
	bundle := p.grossAllow.Total() + p.grossBonus
	return Result{
		Method:            p.method,
		TaxResidentStatus: p.in.Residency,
		Citizenship:       p.in.Residency,
		Schedule:          p.schedule,

		GrossSalary:         round(p.base),
		BaseSalary:          round(p.base),
		AdjustedGrossSalary: round(b.AdjustedGross),

		GrossLunchAllowance:   round(p.grossAllow.Lunch),
		GrossFuelAllowance:    round(p.grossAllow.Fuel),
		GrossPhoneAllowance:   round(p.grossAllow.Phone),
		GrossTravelAllowance:  round(p.grossAllow.Travel),
		GrossUniformAllowance: round(p.grossAllow.Uniform),
		GrossOtherAllowance:   round(p.grossAllow.Other),
		GrossTotalAllowance:   round(p.grossAllow.Total()),
		GrossTotalBonus:       round(p.grossBonus),

		NetLunchAllowance:   round(p.netAllow.Lunch),
		NetFuelAllowance:    round(p.netAllow.Fuel),
		NetPhoneAllowance:   round(p.netAllow.Phone),
		NetTravelAllowance:  round(p.netAllow.Travel),
		NetUniformAllowance: round(p.netAllow.Uniform),
		NetOtherAllowance:   round(p.netAllow.Other),
		NetTotalAllowance:   round(p.netAllow.Total()),
		NetTotalBonus:       round(p.netBonus),

		TotalBonusAndAllowance: round(bundle),

		ChildTuitionBenefit:    round(p.in.ChildTuition),
		RentalBenefit:          round(p.in.Rental),
		HealthInsuranceBenefit: round(p.in.HealthBenefit),
		TotalBenefit:           round(b.NonCashBenefit),

		SocialHealthInsuredSalary: round(b.SocialHealthBase),
		UnemploymentInsuredSalary: round(b.UnemploymentBase),

		EmployeeSocialInsurance:       round(b.EmployeeSocial),
		EmployeeHealthInsurance:       round(b.EmployeeHealth),
		EmployeeUnemploymentInsurance: round(b.EmployeeUnemployment),
		EmployeeInsurance:             round(b.EmployeeInsurance),

		EmployerSocialInsurance:       round(b.EmployerSocial),
		EmployerHealthInsurance:       round(b.EmployerHealth),
		EmployerUnemploymentInsurance: round(b.EmployerUnemployment),
		EmployerInsurance:             round(b.EmployerInsurance),

		EmployeeContribution: round(b.EmployeeInsurance + b.IncomeTax),
		EmployerContribution: round(b.EmployerInsurance + b.TradeUnionFund),

		TaxableIncome:       round(b.TaxableIncome),
		RentalTaxableAmount: round(b.RentalTaxable),
		AssessableIncome:    round(b.AssessableIncome),
		IncomeTax:           round(b.IncomeTax),
		NetSalary:           round(b.NetSalary),

		EmployerTradeUnionFund: round(b.TradeUnionFund),
		EmployerUnionFee:       round(b.TradeUnionFund),
		TotalEmployerCost:      round(b.TotalEmployerCost),

		PercentGrossSalary:       round(percentOf(p.base, b.AdjustedGross)),
		PercentBonusAndAllowance: round(percentOf(bundle, b.AdjustedGross)),
		EffectiveTaxRate:         math.Round(percentOf(b.AdjustedGross-b.NetSalary, b.AdjustedGross)*100) / 100,

		Solver: p.solver,
	}
}
