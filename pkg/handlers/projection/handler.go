package projection

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/de-tools/epi-atlas/pkg/epidemic"
	"github.com/de-tools/epi-atlas/pkg/models/api"
	"github.com/de-tools/epi-atlas/pkg/services/projection"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc projection.Dispatcher
}

func NewHandler(svc projection.Dispatcher) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateProjection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req api.ProjectionRequest
	if err := decode(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		http.Error(w, "model is required", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Dispatch(ctx, req.Model, req.Params)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, result, logger, "failed to encode projection")
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req api.BatchRequest
	if err := decode(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.svc.Batch(ctx, req.Projections)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, api.BatchResponse{Results: results}, logger, "failed to encode batch")
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	writeJSON(w, api.Models{Models: h.svc.Models()}, logger, "failed to encode models")
}

func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	table, err := h.svc.Regions()
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to build region table")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, table, logger, "failed to encode regions")
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}, logger *zerolog.Logger, msg string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().
			Err(err).
			Msg(msg)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, epidemic.ErrConfiguration), errors.Is(err, projection.ErrUnknownModel):
		return http.StatusBadRequest
	case errors.Is(err, epidemic.ErrNumerical):
		return http.StatusUnprocessableEntity
	default:
		// Normalization failures land here too.
		return http.StatusInternalServerError
	}
}
