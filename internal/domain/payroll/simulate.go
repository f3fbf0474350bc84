package payroll

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

type Option func(*Simulator)

// WithMaxIterations bounds the net-to-gross search. Values below one are ignored.
func WithMaxIterations(n int) Option {
	return func(s *Simulator) {
		if n >= 1 {
			s.maxIterations = n
		}
	}
}

// WithTolerance sets how far the reproduced net may sit from the target.
func WithTolerance(t float64) Option {
	return func(s *Simulator) {
		if t > 0 {
			s.tolerance = t
		}
	}
}

// WithMultiplierBounds sets the gross/net ratio interval the search explores.
func WithMultiplierBounds(low, high float64) Option {
	return func(s *Simulator) {
		if low > 0 && high > low {
			s.low, s.high = low, high
		}
	}
}

// Simulator runs salary simulations against one schedule. It holds no
// mutable state and is safe for concurrent use.
type Simulator struct {
	schedule      Schedule
	maxIterations int
	tolerance     float64
	low, high     float64
}

func NewSimulator(schedule Schedule, opts ...Option) *Simulator {
	s := &Simulator{
		schedule:      schedule.Clone(),
		maxIterations: defaultMaxIterations,
		tolerance:     defaultTolerance,
		low:           defaultMultiplierLow,
		high:          defaultMultiplierHi,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Schedule() Schedule {
	return s.schedule.Clone()
}

// Simulate computes a payslip in the direction in.Method names. A returned
// error is always a *ValidationError and the Result is then empty.
func (s *Simulator) Simulate(in Input) (Result, error) {
	switch in.Method {
	case MethodGrossToNet:
		return s.grossToNet(in)
	case MethodNetToGross:
		return s.netToGross(in)
	default:
		return Result{}, unknownMethod(in.Method)
	}
}

// SimulateRequest normalizes a raw request against the active schedule and
// simulates it.
func (s *Simulator) SimulateRequest(r Request) (Result, error) {
	return s.Simulate(r.Normalize(s.schedule.HealthBenefitMonths))
}

func (s *Simulator) grossToNet(in Input) (Result, error) {
	if in.Salary < s.schedule.MinGrossSalary {
		return Result{}, belowMinimum(fmt.Sprintf(
			"Please enter a valid gross salary (minimum %s VND).", humanize.Commaf(s.schedule.MinGrossSalary)))
	}

	gross := in.Allowances
	b := CalculateFromGross(s.schedule, GrossInput{
		Base:         in.Salary,
		Bundle:       gross.Total() + in.Bonus,
		Lunch:        gross.Lunch,
		Phone:        gross.Phone,
		Uniform:      gross.Uniform,
		Rental:       in.Rental,
		TotalBenefit: in.TotalBenefit(),
		Residency:    in.Residency,
	})

	// Line items are net-ified with one blended rate. The totals above are
	// exact; only the per-category display figures are approximate.
	var rate float64
	if b.AdjustedGross != 0 {
		rate = (b.AdjustedGross - b.NetSalary) / b.AdjustedGross
	}
	keep := 1 - rate

	return buildResult(resultParts{
		method:     MethodGrossToNet,
		schedule:   s.schedule.Name,
		in:         in,
		base:       in.Salary,
		grossAllow: gross,
		grossBonus: in.Bonus,
		netAllow:   gross.Scale(keep),
		netBonus:   in.Bonus * keep,
		breakdown:  b,
	}), nil
}

// grossUp is a candidate gross package for one multiplier.
type grossUp struct {
	base       float64
	allowances Allowances
	bonus      float64
}

func (s *Simulator) netToGross(in Input) (Result, error) {
	if in.Salary < s.schedule.MinNetSalary {
		return Result{}, belowMinimum(fmt.Sprintf(
			"Please enter a valid net salary (minimum %s VND).", humanize.Commaf(s.schedule.MinNetSalary)))
	}

	net := in.Allowances
	lunchExempt := math.Min(net.Lunch, s.schedule.LunchExemptCap)
	uniformExempt := math.Min(net.Uniform, s.schedule.UniformCap())
	lunchExcess := net.Lunch - lunchExempt
	uniformExcess := net.Uniform - uniformExempt

	candidate := func(m float64) grossUp {
		return grossUp{
			base: in.Salary * m,
			allowances: Allowances{
				Lunch:   lunchExempt + lunchExcess*m,
				Fuel:    net.Fuel * m,
				Phone:   net.Phone,
				Travel:  net.Travel * m,
				Uniform: uniformExempt + uniformExcess*m,
				Other:   net.Other * m,
			},
			bonus: in.Bonus * m,
		}
	}
	evaluate := func(g grossUp) Breakdown {
		return CalculateFromGross(s.schedule, GrossInput{
			Base:         g.base,
			Bundle:       g.allowances.Total() + g.bonus,
			Lunch:        g.allowances.Lunch,
			Phone:        g.allowances.Phone,
			Uniform:      g.allowances.Uniform,
			Rental:       in.Rental,
			TotalBenefit: in.TotalBenefit(),
			Residency:    in.Residency,
		})
	}

	target := in.Salary + net.Total() + in.Bonus
	low, high := s.low, s.high
	info := SolverInfo{Target: round(target)}
	var m float64
	for i := 0; i < s.maxIterations; i++ {
		m = (low + high) / 2
		info.Iterations = i + 1
		diff := evaluate(candidate(m)).NetSalary - target
		if math.Abs(diff) <= s.tolerance {
			info.Converged = true
			break
		}
		if diff > 0 {
			high = m
		} else {
			low = m
		}
	}
	info.Multiplier = m

	g := candidate(m)
	return buildResult(resultParts{
		method:     MethodNetToGross,
		schedule:   s.schedule.Name,
		in:         in,
		base:       g.base,
		grossAllow: g.allowances,
		grossBonus: g.bonus,
		netAllow:   net,
		netBonus:   in.Bonus,
		breakdown:  evaluate(g),
		solver:     &info,
	}), nil
}
