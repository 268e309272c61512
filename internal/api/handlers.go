package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vaidashi/garment-order-tracker/internal/auth"
	"github.com/vaidashi/garment-order-tracker/internal/service"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// keeps (page-1)*pageSize inside int32 range
	maxPage = math.MaxInt32 / maxPageSize
)

type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ApiError   `json:"error,omitempty"`
}

// ApiError is the error part of a failed response. Code is stable per error kind.
type ApiError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PaginationResponse wraps a page of items. Count is the size of this page;
// TotalCount is only set by listings that know the size of the whole result.
type PaginationResponse struct {
	Items      interface{} `json:"items"`
	Count      int         `json:"count"`
	TotalCount *int        `json:"total_count,omitempty"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	Status     string      `json:"status,omitempty"`
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	health := Health{
		Status:    "ok",
		Version:   "1.0.0",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    health,
	})
}

// authed rejects requests without a valid bearer token and stores the
// caller's principal in the request context
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.respondWithError(w, apperrors.NewUnauthenticatedError("missing bearer token"))
			return
		}

		user, err := s.users.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			s.respondWithError(w, err)
			return
		}

		ctx := auth.WithPrincipal(r.Context(), auth.PrincipalOf(user))
		next(w, r.WithContext(ctx))
	}
}

// adminOnly is authed plus an admin role check
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request) {
		if !principal(r).IsAdmin() {
			s.respondWithError(w, apperrors.NewUnauthorizedError("admin access required"))
			return
		}
		next(w, r)
	})
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// decodeJSON reads the request body into dst. An empty body is accepted
// when optional is set.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.NewInvalidInputError("Invalid request payload").WithCause(err)
}

// pageFromQuery reads page (1-based) and pageSize
func pageFromQuery(r *http.Request) (service.Page, int) {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	pageSize, err := strconv.Atoi(q.Get("pageSize"))
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	return service.Page{Limit: pageSize, Offset: (page - 1) * pageSize}, page
}

func (s *Server) respondWithPage(w http.ResponseWriter, items interface{}, count int, r *http.Request) {
	page, number := pageFromQuery(r)
	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: PaginationResponse{
			Items:    items,
			Count:    count,
			Page:     number,
			PageSize: page.Limit,
		},
	})
}

// respondWithError renders err in the response envelope. Internal details
// are logged, never returned.
func (s *Server) respondWithError(w http.ResponseWriter, err error) {
	appErr := apperrors.FromError(err)

	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := appErr.Error()
	details := appErr.Context
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err, "code", appErr.Code())
		if errors.Is(appErr, apperrors.ErrInternal) {
			message = "internal server error"
			details = nil
		}
	}
	if len(details) == 0 {
		details = nil
	}

	if errors.Is(appErr, apperrors.ErrRateLimited) || errors.Is(appErr, apperrors.ErrServiceUnavailable) {
		w.Header().Set("Retry-After", "30")
	}

	s.respondWithJSON(w, status, ApiResponse{
		Success: false,
		Error: &ApiError{
			Code:    appErr.Code(),
			Message: message,
			Details: details,
		},
	})
}

func (s *Server) respondWithCode(w http.ResponseWriter, status int, code, message string) {
	s.respondWithJSON(w, status, ApiResponse{
		Success: false,
		Error:   &ApiError{Code: code, Message: message},
	})
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
