package payroll

const (
	MethodGrossToNet = "gross-to-net"
	MethodNetToGross = "net-to-gross"

	ResidencyLocal = "local"
	ResidencyExpat = "expat"

	CodeBelowMinimum  = "below_minimum"
	CodeUnknownMethod = "unknown_method"
)

const (
	defaultMaxIterations = 50
	defaultTolerance     = 0.5
	defaultMultiplierLow = 1.0
	defaultMultiplierHi  = 2.5
)
