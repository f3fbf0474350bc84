package simulationhandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"salarysim/internal/domain/payroll"
	"salarysim/internal/platform/metrics"
	"salarysim/internal/requestctx"
	"salarysim/internal/transport/http/api"
	"salarysim/internal/transport/http/middleware"
	"salarysim/internal/transport/http/shared"
)

const defaultMaxBatchSize = 50

var (
	methods    = []string{payroll.MethodGrossToNet, payroll.MethodNetToGross}
	residences = []string{payroll.ResidencyLocal, payroll.ResidencyExpat}
)

type Handler struct {
	Simulator    *payroll.Simulator
	Metrics      *metrics.Collector
	MaxBatchSize int
}

func NewHandler(sim *payroll.Simulator, collector *metrics.Collector, maxBatchSize int) *Handler {
	if maxBatchSize <= 0 {
		maxBatchSize = defaultMaxBatchSize
	}
	return &Handler{Simulator: sim, Metrics: collector, MaxBatchSize: maxBatchSize}
}

type batchPayload struct {
	Items []payroll.Request `json:"items"`
}

type BatchItem struct {
	Index  int             `json:"index"`
	Result *payroll.Result `json:"result,omitempty"`
	Error  *api.Error      `json:"error,omitempty"`
}

type BatchResponse struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/simulations", h.handleSimulate)
	r.Post("/simulations/batch", h.handleBatch)
	r.Get("/schedule", h.handleSchedule)
}

// HandleCompat serves the bare request/response contract: the flat result on
// success and {"error": message} with status 200 on validation failures.
func (h *Handler) HandleCompat(w http.ResponseWriter, r *http.Request) {
	var payload payroll.Request
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.WriteJSON(w, shared.DecodeStatus(err), api.ErrorRecord{Error: "Invalid request payload."})
		return
	}
	result, err := h.simulate(r.Context(), payload)
	if err != nil {
		var verr *payroll.ValidationError
		if errors.As(err, &verr) {
			api.WriteJSON(w, http.StatusOK, api.ErrorRecord{Error: verr.Message})
			return
		}
		api.WriteJSON(w, http.StatusInternalServerError, api.ErrorRecord{Error: "Calculation failed."})
		return
	}
	api.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload payroll.Request
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, shared.DecodeStatus(err), "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	validateRequest(v, "", payload)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.simulate(r.Context(), payload)
	if err != nil {
		status, apiErr := toAPIError(err)
		api.Fail(w, status, apiErr.Code, apiErr.Message, reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload batchPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, shared.DecodeStatus(err), "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	if len(payload.Items) == 0 {
		v.Add("items", "must contain at least one item")
	}
	v.MaxItems("items", len(payload.Items), h.MaxBatchSize)
	for i, item := range payload.Items {
		validateRequest(v, fmt.Sprintf("items[%d].", i), item)
	}
	if v.Reject(w, reqID) {
		return
	}

	items := make([]BatchItem, len(payload.Items))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(8)
	for i, item := range payload.Items {
		i, item := i, item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := h.simulate(ctx, item)
			if err != nil {
				_, apiErr := toAPIError(err)
				items[i] = BatchItem{Index: i, Error: &apiErr}
				return nil
			}
			items[i] = BatchItem{Index: i, Result: &result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "batch_cancelled", "batch cancelled before completion", reqID)
		return
	}

	failed := lo.CountBy(items, func(item BatchItem) bool { return item.Error != nil })
	api.Success(w, BatchResponse{Items: items, Succeeded: len(items) - failed, Failed: failed}, reqID)
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Simulator.Schedule(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) simulate(ctx context.Context, payload payroll.Request) (payroll.Result, error) {
	result, err := h.Simulator.SimulateRequest(payload)
	if err != nil {
		if h.Metrics != nil {
			h.Metrics.RecordRejected()
		}
		return result, err
	}
	iterations, converged := 0, true
	if result.Solver != nil {
		iterations, converged = result.Solver.Iterations, result.Solver.Converged
		if !converged {
			requestctx.Logger(ctx).Warn("net-to-gross search did not converge",
				"target", result.Solver.Target,
				"iterations", result.Solver.Iterations,
				"multiplier", result.Solver.Multiplier,
				"netSalary", result.NetSalary,
			)
		}
	}
	if h.Metrics != nil {
		h.Metrics.RecordSimulation(result.Method, iterations, converged)
	}
	return result, nil
}

func validateRequest(v *shared.Validator, prefix string, payload payroll.Request) {
	v.Enum(prefix+"method", payload.Method, methods, "must be gross-to-net or net-to-gross")
	v.Enum(prefix+"taxResidentStatus", payload.TaxResidentStatus, residences, "must be local or expat")
	v.Enum(prefix+"citizenship", payload.Citizenship, residences, "must be local or expat")
}

func toAPIError(err error) (int, api.Error) {
	var verr *payroll.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, api.Error{Code: verr.Code, Message: verr.Message}
	}
	return http.StatusInternalServerError, api.Error{Code: "simulation_failed", Message: "simulation failed"}
}
