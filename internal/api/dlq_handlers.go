package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
)

// getDeadLettersHandler returns a page of dead letter messages, optionally by status
func (s *Server) getDeadLettersHandler(w http.ResponseWriter, r *http.Request) {
	page, number := pageFromQuery(r)

	status := models.DeadLetterStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.DeadLetterStatusPending, models.DeadLetterStatusRetrying,
		models.DeadLetterStatusResolved, models.DeadLetterStatusDiscarded:
	default:
		s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("unknown dead letter status %q", status)))
		return
	}

	messages, total, err := s.dlqStore.List(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		s.logger.Error("Failed to fetch dead letter messages", "error", err)
		s.respondWithError(w, apperrors.NewInternalError("failed to fetch dead letter messages").WithCause(err))
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: PaginationResponse{
			Items:      messages,
			Count:      len(messages),
			TotalCount: &total,
			Page:       number,
			PageSize:   page.Limit,
			Status:     string(status),
		},
	})
}

func messageID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, apperrors.NewInvalidInputError("Invalid message ID")
	}
	return id, nil
}

// retryDeadLetterHandler replays a dead letter message immediately
func (s *Server) retryDeadLetterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	message, err := s.deadLetters.RetryMessage(r.Context(), id)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: message})
}

// discardDeadLetterHandler discards a dead letter message
func (s *Server) discardDeadLetterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	var req reasonRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.respondWithError(w, err)
		return
	}

	message, err := s.deadLetters.DiscardMessage(r.Context(), id, req.Reason)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: message})
}

// outboxStatusHandler returns outbox message counts by status
func (s *Server) outboxStatusHandler(w http.ResponseWriter, r *http.Request) {
	counts, err := s.outbox.CountByStatus(r.Context())
	if err != nil {
		s.respondWithError(w, apperrors.NewInternalError("failed to count outbox messages").WithCause(err))
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: counts})
}
