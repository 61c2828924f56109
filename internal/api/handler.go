package api

import (
	"errors"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/chart"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/models"
	"github.com/rs/zerolog"
)

type HealthResponse struct {
	Status  string `json:"status" description:"Service status"`
	Version string `json:"version" description:"API version"`
}

type Handler struct {
	adapter *chart.Adapter
	logger  *zerolog.Logger
}

func NewHandler(adapter *chart.Adapter, logger *zerolog.Logger) *Handler {
	return &Handler{
		adapter: adapter,
		logger:  logger,
	}
}

// POST /generate
// Body: GenerateRequest
// Returns: ChartResponse
func (h *Handler) Generate(req *restful.Request, resp *restful.Response) {
	var request models.GenerateRequest
	if err := req.ReadEntity(&request); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, middleware.ErrEmptyBody, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Int("prompt_length", len(request.Prompt)).
		Msg("Start chart generation")

	config, err := h.adapter.Generate(req.Request.Context(), request.Prompt)
	if err != nil {
		h.handleAdapterError(resp, "generate", err)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, models.ChartResponse{ChartJS: config})
}

// POST /update
// Body: UpdateRequest
// Returns: ChartResponse
func (h *Handler) Update(req *restful.Request, resp *restful.Response) {
	var request models.UpdateRequest
	if err := req.ReadEntity(&request); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, middleware.ErrEmptyBody, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Int("config_size", len(request.CurrentConfig)).
		Int("instruction_length", len(request.Instruction)).
		Msg("Start chart update")

	config, err := h.adapter.Update(req.Request.Context(), request.CurrentConfig, request.Instruction)
	if err != nil {
		h.handleAdapterError(resp, "update", err)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, models.ChartResponse{ChartJS: config})
}

// Health handler GET /health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	healthResponse := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}

	resp.WriteHeaderAndEntity(http.StatusOK, healthResponse)
}

func (h *Handler) handleAdapterError(resp *restful.Response, operation string, err error) {
	switch chart.KindOf(err) {
	case chart.KindInvalidInput:
		h.logger.Warn().Err(err).Str("operation", operation).Msg("Rejected invalid request")
		middleware.HandleError(resp, err, http.StatusBadRequest)

	case chart.KindUpstream:
		var upstream *chart.UpstreamError
		errors.As(err, &upstream)
		h.logger.Error().
			Err(err).
			Str("operation", operation).
			Int("upstream_status", upstream.StatusCode).
			Str("upstream_body", upstream.Body).
			Msg("Completion API request failed")
		middleware.HandleErrorWithDetails(resp, "Completion API request failed", err.Error(), http.StatusServiceUnavailable)

	case chart.KindMalformedResponse:
		var malformed *chart.MalformedResponseError
		errors.As(err, &malformed)
		h.logger.Error().
			Err(err).
			Str("operation", operation).
			Str("content", malformed.RawContent).
			Msg("Failed to parse completion response")
		middleware.HandleErrorWithDetails(resp, "Error parsing completion response", err.Error(), http.StatusInternalServerError)

	default:
		h.logger.Error().Err(err).Str("operation", operation).Msg("Unexpected server error")
		middleware.HandleErrorWithDetails(resp, "Unexpected error: "+err.Error(), "", http.StatusInternalServerError)
	}
}
