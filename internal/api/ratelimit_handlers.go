package api

import (
	"net/http"

	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
)

// getRateLimitsHandler returns the current rate limit settings and metrics
func (s *Server) getRateLimitsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"global_metrics":  s.rateLimiter.GetMetrics(),
		"endpoint_limits": s.endpointRateLimiter.GetAllLimits(),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response})
}

// setEndpointRateLimitHandler sets the limit of one endpoint, keyed as METHOD:/route/template
func (s *Server) setEndpointRateLimitHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint   string  `json:"endpoint"`
		MaxTokens  float64 `json:"max_tokens"`
		RefillRate float64 `json:"refill_rate"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	if req.Endpoint == "" {
		s.respondWithError(w, apperrors.NewInvalidInputError("Endpoint is required"))
		return
	}

	if req.MaxTokens <= 0 || req.RefillRate <= 0 {
		s.respondWithError(w, apperrors.NewInvalidInputError("MaxTokens and RefillRate must be greater than zero"))
		return
	}

	s.endpointRateLimiter.SetLimit(req.Endpoint, req.MaxTokens, req.RefillRate)

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]interface{}{
			"message":     "Rate limit updated successfully",
			"endpoint":    req.Endpoint,
			"max_tokens":  req.MaxTokens,
			"refill_rate": req.RefillRate,
		},
	})
}
