package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	grossToNet      uint64
	netToGross      uint64
	rejected        uint64
	unconverged     uint64
	solverIteration uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordSimulation counts one engine call. iterations is zero for
// gross-to-net runs.
func (c *Collector) RecordSimulation(method string, iterations int, converged bool) {
	switch method {
	case "gross-to-net":
		atomic.AddUint64(&c.grossToNet, 1)
	case "net-to-gross":
		atomic.AddUint64(&c.netToGross, 1)
		atomic.AddUint64(&c.solverIteration, uint64(iterations))
		if !converged {
			atomic.AddUint64(&c.unconverged, 1)
		}
	}
}

func (c *Collector) RecordRejected() {
	atomic.AddUint64(&c.rejected, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	ntg := atomic.LoadUint64(&c.netToGross)
	iterations := atomic.LoadUint64(&c.solverIteration)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	avgIterations := float64(0)
	if ntg > 0 {
		avgIterations = float64(iterations) / float64(ntg)
	}
	return map[string]any{
		"requestsTotal":          total,
		"errorsTotal":            errs,
		"rateLimitedTotal":       limited,
		"avgDurationMs":          avg,
		"totalDurationMs":        totalMs,
		"grossToNetTotal":        atomic.LoadUint64(&c.grossToNet),
		"netToGrossTotal":        ntg,
		"rejectedTotal":          atomic.LoadUint64(&c.rejected),
		"solverUnconvergedTotal": atomic.LoadUint64(&c.unconverged),
		"avgSolverIterations":    avgIterations,
	}
}
