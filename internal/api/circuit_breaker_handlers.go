package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
)

// apiBreakerName is the breaker behind graceful degradation
const apiBreakerName = "api"

// getCircuitBreakerStatusHandler returns the state of every circuit breaker
func (s *Server) getCircuitBreakerStatusHandler(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		apiBreakerName: s.gracefulDegradation.GetMetrics(),
	}
	for name, breaker := range s.breakers {
		metrics[name] = breaker.GetMetrics()
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: metrics})
}

// resetCircuitBreakerHandler resets the named circuit breaker to closed state
func (s *Server) resetCircuitBreakerHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if name == apiBreakerName {
		s.gracefulDegradation.Reset()
	} else {
		breaker, ok := s.breakers[name]
		if !ok {
			s.respondWithError(w, apperrors.NewNotFoundError(fmt.Sprintf("circuit breaker %q not found", name)))
			return
		}
		breaker.Reset()
	}

	s.logger.Info("Circuit breaker reset", "name", name, "actorID", principal(r).UserID)

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]string{
			"message": "Circuit breaker reset successfully",
			"name":    name,
		},
	})
}
