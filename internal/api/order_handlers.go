package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/service"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
)

type createOrderRequest struct {
	ProductID     string              `json:"productId"`
	Quantity      int                 `json:"quantity"`
	PaymentMethod string              `json:"paymentMethod"`
	PaymentToken  string              `json:"paymentToken"`
	Shipping      models.ShippingInfo `json:"shipping"`
}

type statusRequest struct {
	Status   string `json:"status"`
	Note     string `json:"note"`
	Location string `json:"location"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type stageRequest struct {
	Stage    string `json:"stage"`
	Note     string `json:"note"`
	Location string `json:"location"`
}

type checkoutRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("unknown payment method %q", req.PaymentMethod)))
		return
	}

	order, err := s.orders.CreateOrder(r.Context(), principal(r), service.CreateOrderInput{
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		Shipping:      req.Shipping,
		PaymentMethod: method,
		PaymentToken:  req.PaymentToken,
	})
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: order})
}

func (s *Server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetOrder(r.Context(), principal(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

func (s *Server) approveOrderHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.orders.Approve(r.Context(), principal(r), mux.Vars(r)["id"])
	s.respondWithTransition(w, result, err)
}

func (s *Server) rejectOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.respondWithError(w, err)
		return
	}

	result, err := s.orders.Reject(r.Context(), principal(r), mux.Vars(r)["id"], req.Reason)
	s.respondWithTransition(w, result, err)
}

// updateOrderStatusHandler accepts any target status; the transition table decides
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	status, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("unknown order status %q", req.Status)))
		return
	}

	result, err := s.orders.Advance(r.Context(), principal(r), mux.Vars(r)["id"], service.AdvanceInput{
		Status:   status,
		Note:     req.Note,
		Location: req.Location,
	})
	s.respondWithTransition(w, result, err)
}

func (s *Server) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.respondWithError(w, err)
		return
	}

	result, err := s.orders.Cancel(r.Context(), principal(r), mux.Vars(r)["id"], req.Reason)
	s.respondWithTransition(w, result, err)
}

func (s *Server) respondWithTransition(w http.ResponseWriter, result *service.TransitionResult, err error) {
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result})
}

func (s *Server) myOrdersHandler(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	page, _ := pageFromQuery(r)

	orders, err := s.orders.ListForBuyer(r.Context(), p, p.UserID, page)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithPage(w, orders, len(orders), r)
}

// managerScope is the caller, or for admins the managerId query parameter
func managerScope(r *http.Request) string {
	p := principal(r)
	if id := r.URL.Query().Get("managerId"); id != "" && p.IsAdmin() {
		return id
	}
	return p.UserID
}

func (s *Server) pendingOrdersHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := pageFromQuery(r)

	orders, err := s.orders.ListPendingForManager(r.Context(), principal(r), managerScope(r), page)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithPage(w, orders, len(orders), r)
}

func (s *Server) approvedOrdersHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := pageFromQuery(r)

	orders, err := s.orders.ListApprovedForManager(r.Context(), principal(r), managerScope(r), page)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithPage(w, orders, len(orders), r)
}

func (s *Server) adminOrdersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.AdminOrderQuery{
		BuyerID:   q.Get("buyerId"),
		ManagerID: q.Get("managerId"),
		ProductID: q.Get("productId"),
	}

	if raw := q.Get("status"); raw != "" {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("unknown order status %q", raw)))
			return
		}
		query.Status = status
	}
	query.Page, _ = pageFromQuery(r)

	orders, err := s.orders.ListAllForAdmin(r.Context(), principal(r), query)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithPage(w, orders, len(orders), r)
}

func (s *Server) getTrackingHandler(w http.ResponseWriter, r *http.Request) {
	events, err := s.orders.ListTracking(r.Context(), principal(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: events})
}

func (s *Server) recordStageHandler(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	stage, ok := models.ParseProductionStage(req.Stage)
	if !ok {
		s.respondWithError(w, apperrors.NewInvalidInputError(fmt.Sprintf("%q is not a production stage", req.Stage)))
		return
	}

	event, err := s.orders.RecordProductionStage(r.Context(), principal(r), mux.Vars(r)["id"], service.ProductionStageInput{
		Stage:    stage,
		Note:     req.Note,
		Location: req.Location,
	})
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: event})
}

func (s *Server) createCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	result, err := s.orders.StartCheckout(r.Context(), principal(r), service.CheckoutInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result})
}
