package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/service"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	PhotoURL string `json:"photoUrl"`
	Address  string `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	PhotoURL *string `json:"photoUrl"`
	Address  *string `json:"address"`
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	var role models.Role
	if req.Role != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok {
			s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("unknown role %q", req.Role)))
			return
		}
		role = parsed
	}

	user, err := s.users.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		Phone:    req.Phone,
		PhotoURL: req.PhotoURL,
		Address:  req.Address,
	})
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: user})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	result, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result})
}

func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetProfile(r.Context(), principal(r))
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: user})
}

func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), principal(r), service.ProfileUpdate{
		Name:     req.Name,
		Phone:    req.Phone,
		PhotoURL: req.PhotoURL,
		Address:  req.Address,
	})
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: user})
}

func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.UserQuery{}

	if raw := q.Get("role"); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("unknown role %q", raw)))
			return
		}
		query.Role = role
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := models.ParseAccountStatus(raw)
		if !ok {
			s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("unknown account status %q", raw)))
			return
		}
		query.Status = status
	}
	query.Page, _ = pageFromQuery(r)

	users, err := s.users.ListUsers(r.Context(), principal(r), query)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithPage(w, users, len(users), r)
}

func (s *Server) setUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	status, ok := models.ParseAccountStatus(req.Status)
	if !ok {
		s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("unknown account status %q", req.Status)))
		return
	}

	user, err := s.users.SetStatus(r.Context(), principal(r), mux.Vars(r)["id"], status, req.Reason)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: user})
}

func (s *Server) setUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("unknown role %q", req.Role)))
		return
	}

	user, err := s.users.SetRole(r.Context(), principal(r), mux.Vars(r)["id"], role)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: user})
}
