package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateFromGrossBelowPersonalDeduction(t *testing.T) {
	s := DefaultSchedule()
	b := CalculateFromGross(s, GrossInput{Base: 10_000_000, Residency: ResidencyLocal})

	assert.InDelta(t, 10_000_000, b.AdjustedGross, 1e-6)
	assert.InDelta(t, 800_000, b.EmployeeSocial, 1e-6)
	assert.InDelta(t, 150_000, b.EmployeeHealth, 1e-6)
	assert.InDelta(t, 100_000, b.EmployeeUnemployment, 1e-6)
	assert.InDelta(t, 1_050_000, b.EmployeeInsurance, 1e-6)
	assert.InDelta(t, 2_150_000, b.EmployerInsurance, 1e-6)
	assert.InDelta(t, 10_000_000, b.TaxableIncome, 1e-6)
	assert.InDelta(t, -2_050_000, b.AssessableIncome, 1e-6)
	assert.Zero(t, b.IncomeTax)
	assert.InDelta(t, 8_950_000, b.NetSalary, 1e-6)
	assert.InDelta(t, 200_000, b.TradeUnionFund, 1e-6)
	assert.InDelta(t, 12_350_000, b.TotalEmployerCost, 1e-6)
}

func TestCalculateFromGrossTaxed(t *testing.T) {
	b := CalculateFromGross(DefaultSchedule(), GrossInput{Base: 30_000_000, Residency: ResidencyLocal})

	assert.InDelta(t, 3_150_000, b.EmployeeInsurance, 1e-6)
	assert.InDelta(t, 15_850_000, b.AssessableIncome, 1e-6)
	assert.InDelta(t, 1_627_500, b.IncomeTax, 1e-6)
	assert.InDelta(t, 25_222_500, b.NetSalary, 1e-6)
}

func TestCalculateFromGrossNetIdentity(t *testing.T) {
	in := GrossInput{
		Base:         42_000_000,
		Bundle:       6_500_000,
		Lunch:        900_000,
		Phone:        400_000,
		Uniform:      700_000,
		Rental:       8_000_000,
		TotalBenefit: 9_000_000,
		Residency:    ResidencyLocal,
	}
	b := CalculateFromGross(DefaultSchedule(), in)

	assert.InDelta(t, b.AdjustedGross-b.EmployeeInsurance-b.IncomeTax, b.NetSalary, 1e-6)
	assert.InDelta(t, b.AdjustedGross+b.EmployerInsurance+b.TradeUnionFund+b.NonCashBenefit, b.TotalEmployerCost, 1e-6)
}

func TestCalculateFromGrossExemptAllowances(t *testing.T) {
	s := DefaultSchedule()
	b := CalculateFromGross(s, GrossInput{
		Base:      20_000_000,
		Bundle:    2_400_000,
		Lunch:     1_000_000,
		Phone:     500_000,
		Uniform:   600_000,
		Residency: ResidencyLocal,
	})

	// phone fully exempt, lunch and uniform capped, the rest taxable
	wantTaxable := 22_400_000 - 500_000 - 730_000 - 5_000_000.0/12
	assert.InDelta(t, wantTaxable, b.TaxableIncome, 1e-6)
	assert.InDelta(t, 2_100_000, b.EmployeeInsurance, 1e-6)
	assert.InDelta(t, 515_333.333333, b.IncomeTax, 1e-3)
	assert.Equal(t, int64(19_784_667), round(b.NetSalary))
}

func TestCalculateFromGrossRentalCap(t *testing.T) {
	b := CalculateFromGross(DefaultSchedule(), GrossInput{
		Base:         40_000_000,
		Rental:       10_000_000,
		TotalBenefit: 10_000_000,
		Residency:    ResidencyLocal,
	})

	assert.InDelta(t, 6_000_000, b.RentalTaxable, 1e-6)
	assert.InDelta(t, 30_800_000, b.AssessableIncome, 1e-6)
	assert.InDelta(t, 4_510_000, b.IncomeTax, 1e-6)
	assert.InDelta(t, 31_290_000, b.NetSalary, 1e-6)
	assert.InDelta(t, 59_400_000, b.TotalEmployerCost, 1e-6)

	small := CalculateFromGross(DefaultSchedule(), GrossInput{Base: 40_000_000, Rental: 1_000_000, Residency: ResidencyLocal})
	assert.InDelta(t, 1_000_000, small.RentalTaxable, 1e-6)
}

func TestCalculateFromGrossCapsInsurance(t *testing.T) {
	s := DefaultSchedule()
	high := CalculateFromGross(s, GrossInput{Base: 200_000_000, Residency: ResidencyLocal})
	higher := CalculateFromGross(s, GrossInput{Base: 350_000_000, Residency: ResidencyLocal})

	assert.InDelta(t, 46_800_000, high.SocialHealthBase, 1e-6)
	assert.InDelta(t, 99_200_000, high.UnemploymentBase, 1e-6)
	assert.InDelta(t, 3_744_000, high.EmployeeSocial, 1e-6)
	assert.InDelta(t, 702_000, high.EmployeeHealth, 1e-6)
	assert.InDelta(t, 992_000, high.EmployeeUnemployment, 1e-6)
	assert.InDelta(t, 8_190_000, high.EmployerSocial, 1e-6)
	assert.InDelta(t, 1_404_000, high.EmployerHealth, 1e-6)
	assert.InDelta(t, 992_000, high.EmployerUnemployment, 1e-6)
	assert.InDelta(t, 936_000, high.TradeUnionFund, 1e-6)

	assert.Equal(t, high.EmployeeInsurance, higher.EmployeeInsurance)
	assert.Equal(t, high.EmployerInsurance, higher.EmployerInsurance)
	assert.Equal(t, high.TradeUnionFund, higher.TradeUnionFund)
}

func TestCalculateFromGrossCapsUseBaseNotAdjustedGross(t *testing.T) {
	b := CalculateFromGross(DefaultSchedule(), GrossInput{Base: 10_000_000, Bundle: 80_000_000, Residency: ResidencyLocal})
	assert.InDelta(t, 10_000_000, b.SocialHealthBase, 1e-6)
	assert.InDelta(t, 1_050_000, b.EmployeeInsurance, 1e-6)
}

func TestCalculateFromGrossResidencyExemption(t *testing.T) {
	s := DefaultSchedule()
	local := CalculateFromGross(s, GrossInput{Base: 25_000_000, Residency: ResidencyLocal})
	expat := CalculateFromGross(s, GrossInput{Base: 25_000_000, Residency: ResidencyExpat})

	assert.Greater(t, local.EmployeeUnemployment, 0.0)
	assert.Greater(t, local.EmployerUnemployment, 0.0)
	assert.Zero(t, expat.EmployeeUnemployment)
	assert.Zero(t, expat.EmployerUnemployment)
	assert.Equal(t, local.EmployeeSocial, expat.EmployeeSocial)
	assert.Equal(t, local.EmployeeHealth, expat.EmployeeHealth)
}

func TestCalculateFromGrossMonotonicInBase(t *testing.T) {
	s := DefaultSchedule()
	for _, residency := range []string{ResidencyLocal, ResidencyExpat} {
		net := func(gross float64) float64 {
			return CalculateFromGross(s, GrossInput{Base: gross, Bundle: 1_500_000, Lunch: 900_000, Residency: residency}).NetSalary
		}
		prev := net(5_000_000)
		for gross := 5_250_000.0; gross <= 250_000_000; gross += 250_000 {
			cur := net(gross)
			require.Greater(t, cur, prev, "net must grow with gross at %.0f (%s)", gross, residency)
			prev = cur
		}
	}
}

func TestIncomeTaxContinuousAtBoundaries(t *testing.T) {
	s := DefaultSchedule()
	for i := 0; i < len(s.Brackets)-1; i++ {
		upper := s.Brackets[i].UpTo
		jump := s.IncomeTax(upper+1) - s.IncomeTax(upper)
		assert.InDelta(t, s.Brackets[i+1].Rate, jump, 1e-6, "boundary %.0f", upper)
	}
}

func TestIncomeTaxFirstMatchWins(t *testing.T) {
	s := DefaultSchedule()
	assert.InDelta(t, 250_000, s.IncomeTax(5_000_000), 1e-6)
	assert.InDelta(t, 18_150_000, s.IncomeTax(80_000_000), 1e-6)
	assert.InDelta(t, 25_150_000, s.IncomeTax(100_000_000), 1e-6)
	assert.Zero(t, s.IncomeTax(0))
	assert.Zero(t, s.IncomeTax(-1))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, int64(3), round(2.5))
	assert.Equal(t, int64(2), round(2.49))
	assert.Equal(t, int64(-2), round(-2.5))
	assert.Equal(t, int64(0), round(0))
}
