package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaidashi/garment-order-tracker/internal/auth"
	"github.com/vaidashi/garment-order-tracker/internal/clients"
	"github.com/vaidashi/garment-order-tracker/internal/inventory"
	"github.com/vaidashi/garment-order-tracker/internal/lifecycle"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	"github.com/vaidashi/garment-order-tracker/internal/tracking"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// voidTimeout bounds the best-effort release of an authorization whose order was not stored
const voidTimeout = 10 * time.Second

// PaymentGateway is the external payment provider
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, request clients.CheckoutRequest) (*clients.CheckoutSession, error)
	Authorize(ctx context.Context, request clients.AuthorizationRequest) (*clients.Authorization, error)
	Void(ctx context.Context, authorizationID string) error
}

// OrderService handles order-related operations
type OrderService struct {
	store    repository.Store
	ledger   *inventory.Ledger
	tracking *tracking.Log
	payments PaymentGateway
	currency string
	logger   logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	store repository.Store,
	ledger *inventory.Ledger,
	trackingLog *tracking.Log,
	payments PaymentGateway,
	currency string,
	logger logger.Logger,
) *OrderService {
	return &OrderService{
		store:    store,
		ledger:   ledger,
		tracking: trackingLog,
		payments: payments,
		currency: currency,
		logger:   logger,
	}
}

// CreateOrderInput is what a buyer submits to place an order
type CreateOrderInput struct {
	ProductID     string
	Quantity      int
	Shipping      models.ShippingInfo
	PaymentMethod models.PaymentMethod
	// PaymentToken is the provider token for card payments
	PaymentToken string
}

func (in CreateOrderInput) validate() error {
	var problems []string

	if strings.TrimSpace(in.ProductID) == "" {
		problems = append(problems, "product id is required")
	}
	if in.Quantity <= 0 {
		problems = append(problems, "quantity must be positive")
	}
	if !in.PaymentMethod.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown payment method %q", in.PaymentMethod))
	}

	addr := in.Shipping.Address
	if strings.TrimSpace(addr.Street) == "" || strings.TrimSpace(addr.City) == "" || strings.TrimSpace(addr.Country) == "" {
		problems = append(problems, "delivery street, city and country are required")
	}
	contact := in.Shipping.Contact
	if strings.TrimSpace(contact.Name) == "" || strings.TrimSpace(contact.Phone) == "" {
		problems = append(problems, "contact name and phone are required")
	}

	if len(problems) > 0 {
		return apperrors.NewInvalidInputError(strings.Join(problems, "; ")).WithContext("problems", problems)
	}
	return nil
}

// TransitionResult is the outcome of a successful status change
type TransitionResult struct {
	Order *models.Order         `json:"order"`
	Event *models.TrackingEvent `json:"event"`
	From  models.OrderStatus    `json:"from"`
}

// CreateOrder places a pending order for an approved buyer. Card payments
// are authorized before stock is reserved, and the authorization is voided
// if the order cannot be stored afterwards.
func (s *OrderService) CreateOrder(ctx context.Context, p auth.Principal, in CreateOrderInput) (*models.Order, error) {
	if p.Role != models.RoleBuyer {
		return nil, apperrors.NewUnauthorizedError("only buyers can place orders")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	buyer, err := s.approvedBuyer(ctx, p)
	if err != nil {
		return nil, err
	}

	// Fail fast on the obvious stock problems before talking to the
	// payment provider. The authoritative check happens under the lock.
	product, err := s.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, translate(err, "product")
	}
	if err := checkQuantity(product, in.Quantity); err != nil {
		return nil, err
	}

	orderID := models.GenerateID("ord")
	quoted := models.OrderTotal(product.Price, in.Quantity)

	var authorization *clients.Authorization
	if in.PaymentMethod.RequiresAuthorization() {
		authorization, err = s.payments.Authorize(ctx, clients.AuthorizationRequest{
			Reference: orderID,
			Amount:    quoted,
			Currency:  s.currency,
			Token:     in.PaymentToken,
		})
		if err != nil {
			s.logger.Warn("Payment authorization failed",
				"orderID", orderID,
				"buyerID", buyer.ID,
				"error", err)
			return nil, translatePayment(err)
		}
	}

	var order *models.Order
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		locked, err := s.ledger.Reserve(ctx, tx, in.ProductID, in.Quantity)
		if err != nil {
			return err
		}

		order = models.NewOrder(buyer.ID, locked, in.Quantity, in.Shipping, in.PaymentMethod)
		order.ID = orderID

		if authorization != nil {
			if !order.TotalAmount.Equal(quoted) {
				return apperrors.NewConflictError("the product price changed while paying, please try again").
					WithContext("quoted", quoted.String()).
					WithContext("current", order.TotalAmount.String())
			}
			order.PaymentReference = &authorization.ID
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		if _, err := s.tracking.Append(ctx, tx, order.ID, models.StageOrderPlaced, "", ""); err != nil {
			return err
		}

		return s.writeEvent(ctx, tx, func() (*models.OutboxMessage, error) {
			return models.NewOrderCreatedEvent(order)
		})
	})

	if err != nil {
		if authorization != nil {
			s.voidAuthorization(ctx, authorization.ID, orderID)
		}
		return nil, translate(err, "order")
	}

	s.logger.Info("Order created",
		"orderID", order.ID,
		"buyerID", order.BuyerID,
		"productID", order.ProductID,
		"quantity", order.Quantity,
		"total", order.TotalAmount.String())

	return order, nil
}

// voidAuthorization releases a hold at the provider. It runs detached from
// the caller so a cancelled request still cleans up.
func (s *OrderService) voidAuthorization(ctx context.Context, authorizationID, orderID string) {
	voidCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), voidTimeout)
	defer cancel()

	if err := s.payments.Void(voidCtx, authorizationID); err != nil {
		s.logger.Error("Failed to void authorization of unsaved order",
			"authorizationID", authorizationID,
			"orderID", orderID,
			"error", err)
		return
	}

	s.logger.Info("Authorization voided for unsaved order",
		"authorizationID", authorizationID,
		"orderID", orderID)
}

// CheckoutInput asks for a hosted payment page for one product
type CheckoutInput struct {
	ProductID string
	Quantity  int
}

// CheckoutResult is returned to the buyer to redirect to the provider
type CheckoutResult struct {
	SessionID string          `json:"sessionId"`
	URL       string          `json:"url"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// StartCheckout validates the buyer and stock without reserving it and asks
// the payment provider for a checkout session
func (s *OrderService) StartCheckout(ctx context.Context, p auth.Principal, in CheckoutInput) (*CheckoutResult, error) {
	if p.Role != models.RoleBuyer {
		return nil, apperrors.NewUnauthorizedError("only buyers can check out")
	}
	if strings.TrimSpace(in.ProductID) == "" || in.Quantity <= 0 {
		return nil, apperrors.NewInvalidInputError("product id and a positive quantity are required")
	}

	if _, err := s.approvedBuyer(ctx, p); err != nil {
		return nil, err
	}

	product, err := s.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, translate(err, "product")
	}
	if err := checkQuantity(product, in.Quantity); err != nil {
		return nil, err
	}

	amount := models.OrderTotal(product.Price, in.Quantity)
	session, err := s.payments.CreateCheckoutSession(ctx, clients.CheckoutRequest{
		Reference:   models.GenerateID("chk"),
		Description: product.Name,
		Quantity:    in.Quantity,
		Amount:      amount,
		Currency:    s.currency,
	})
	if err != nil {
		return nil, translatePayment(err)
	}

	s.logger.Info("Checkout session created",
		"buyerID", p.UserID,
		"productID", product.ID,
		"sessionID", session.ID)

	return &CheckoutResult{
		SessionID: session.ID,
		URL:       session.URL,
		Amount:    amount,
		Currency:  s.currency,
	}, nil
}

// Approve moves a pending order to approved
func (s *OrderService) Approve(ctx context.Context, p auth.Principal, orderID string) (*TransitionResult, error) {
	return s.transition(ctx, p, orderID, models.OrderStatusApproved, "", "")
}

// Reject moves a pending order to rejected and restores its stock
func (s *OrderService) Reject(ctx context.Context, p auth.Principal, orderID, reason string) (*TransitionResult, error) {
	return s.transition(ctx, p, orderID, models.OrderStatusRejected, reason, "")
}

// AdvanceInput is a requested status change with optional tracking details
type AdvanceInput struct {
	Status   models.OrderStatus
	Note     string
	Location string
}

// Advance moves an order to any status the transition table allows
func (s *OrderService) Advance(ctx context.Context, p auth.Principal, orderID string, in AdvanceInput) (*TransitionResult, error) {
	if !in.Status.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown order status %q", in.Status))
	}
	return s.transition(ctx, p, orderID, in.Status, in.Note, in.Location)
}

// Cancel moves an order to cancelled and restores its stock
func (s *OrderService) Cancel(ctx context.Context, p auth.Principal, orderID, reason string) (*TransitionResult, error) {
	return s.transition(ctx, p, orderID, models.OrderStatusCancelled, reason, "")
}

// transition is the one mutation path for order status. Checks run in a
// fixed order: existence, terminal state, transition table, authorization.
func (s *OrderService) transition(ctx context.Context, p auth.Principal, orderID string, to models.OrderStatus, note, location string) (*TransitionResult, error) {
	result := &TransitionResult{}

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("order", orderID)
			}
			return err
		}

		from := order.Status
		if from.IsTerminal() {
			return apperrors.NewOrderAlreadyFinalError(order.ID, string(from))
		}

		rule, ok := lifecycle.Lookup(from, to)
		if !ok {
			return apperrors.NewInvalidTransitionError(string(from), string(to)).WithContext("order_id", order.ID)
		}

		if !lifecycle.CanTransition(p.Role, from, to, lifecycle.IsOwner(p.UserID, p.Role, order)) {
			return apperrors.NewUnauthorizedError(fmt.Sprintf("you may not move this order to %s", to)).
				WithContext("order_id", order.ID).
				WithContext("role", string(p.Role))
		}

		if rule.RestoresStock {
			if err := s.ledger.Restore(ctx, tx, order.ProductID, order.Quantity); err != nil {
				return err
			}
		}

		now := models.GetCurrentTime()
		if order.ApprovedAt == nil && to != models.OrderStatusRejected && to != models.OrderStatusCancelled {
			order.ApprovedAt = &now
		}
		order.Status = to
		order.UpdatedAt = now

		if err := tx.UpdateOrderStatus(ctx, order); err != nil {
			return err
		}

		event, err := s.tracking.Append(ctx, tx, order.ID, models.StageForStatus(to), note, location)
		if err != nil {
			return err
		}

		if err := s.writeEvent(ctx, tx, func() (*models.OutboxMessage, error) {
			return models.NewOrderStatusChangedEvent(models.OrderStatusChange{
				OrderID:   order.ID,
				BuyerID:   order.BuyerID,
				ManagerID: order.ManagerID,
				OldStatus: from,
				NewStatus: to,
				ActorID:   p.UserID,
				ActorRole: p.Role,
			})
		}); err != nil {
			return err
		}

		result.Order = order
		result.Event = event
		result.From = from
		return nil
	})

	if err != nil {
		return nil, translate(err, "order")
	}

	s.logger.Info("Order status updated",
		"orderID", orderID,
		"oldStatus", result.From,
		"newStatus", to,
		"actorID", p.UserID,
		"actorRole", p.Role)

	return result, nil
}

// productionStageStatuses are the order statuses during which floor stages are recorded
var productionStageStatuses = map[models.OrderStatus]bool{
	models.OrderStatusApproved:     true,
	models.OrderStatusProcessing:   true,
	models.OrderStatusInProduction: true,
}

// ProductionStageInput is a floor-level stage report
type ProductionStageInput struct {
	Stage    models.TrackingStage
	Note     string
	Location string
}

// RecordProductionStage appends a fine-grained stage to the tracking log
// without changing the order status
func (s *OrderService) RecordProductionStage(ctx context.Context, p auth.Principal, orderID string, in ProductionStageInput) (*models.TrackingEvent, error) {
	if !in.Stage.IsProductionStage() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("%q is not a production stage", in.Stage))
	}

	var event *models.TrackingEvent

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("order", orderID)
			}
			return err
		}

		if order.Status.IsTerminal() {
			return apperrors.NewOrderAlreadyFinalError(order.ID, string(order.Status))
		}
		if !productionStageStatuses[order.Status] {
			return apperrors.NewInvalidTransitionError(string(order.Status), string(in.Stage)).
				WithContext("order_id", order.ID)
		}

		allowed := p.Role == models.RoleAdmin ||
			(p.Role == models.RoleManager && lifecycle.IsOwner(p.UserID, p.Role, order))
		if !allowed {
			return apperrors.NewUnauthorizedError("only the product manager or an admin may record production stages").
				WithContext("order_id", order.ID)
		}

		event, err = s.tracking.Append(ctx, tx, order.ID, in.Stage, in.Note, in.Location)
		if err != nil {
			return err
		}

		return s.writeEvent(ctx, tx, func() (*models.OutboxMessage, error) {
			return models.NewTrackingEventRecordedEvent(event, order.BuyerID)
		})
	})

	if err != nil {
		return nil, translate(err, "order")
	}

	s.logger.Info("Production stage recorded",
		"orderID", orderID,
		"stage", in.Stage,
		"actorID", p.UserID)

	return event, nil
}

// GetOrder returns an order visible to the caller
func (s *OrderService) GetOrder(ctx context.Context, p auth.Principal, orderID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("order", orderID)
		}
		return nil, translate(err, "order")
	}

	if !lifecycle.CanView(p.UserID, p.Role, order) {
		return nil, apperrors.NewUnauthorizedError("you may not view this order").WithContext("order_id", orderID)
	}
	return order, nil
}

// ListTracking returns the tracking log of an order visible to the caller
func (s *OrderService) ListTracking(ctx context.Context, p auth.Principal, orderID string) ([]*models.TrackingEvent, error) {
	if _, err := s.GetOrder(ctx, p, orderID); err != nil {
		return nil, err
	}

	events, err := s.tracking.List(ctx, orderID)
	if err != nil {
		return nil, translate(err, "tracking events")
	}
	return events, nil
}

// ListForBuyer returns a buyer's orders, newest first
func (s *OrderService) ListForBuyer(ctx context.Context, p auth.Principal, buyerID string, page Page) ([]*models.Order, error) {
	if !p.IsAdmin() && !(p.Role == models.RoleBuyer && p.UserID == buyerID) {
		return nil, apperrors.NewUnauthorizedError("you may only list your own orders")
	}
	return s.list(ctx, repository.OrderFilter{BuyerID: buyerID, Limit: page.Limit, Offset: page.Offset})
}

// ListPendingForManager returns pending orders against a manager's products
func (s *OrderService) ListPendingForManager(ctx context.Context, p auth.Principal, managerID string, page Page) ([]*models.Order, error) {
	if err := s.requireManagerScope(p, managerID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.OrderFilter{
		ManagerID: managerID,
		Statuses:  []models.OrderStatus{models.OrderStatusPending},
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
}

// ListApprovedForManager returns orders a manager has approved that were not
// cancelled afterwards, delivered ones included
func (s *OrderService) ListApprovedForManager(ctx context.Context, p auth.Principal, managerID string, page Page) ([]*models.Order, error) {
	if err := s.requireManagerScope(p, managerID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.OrderFilter{
		ManagerID:       managerID,
		ApprovedOnly:    true,
		ExcludeStatuses: []models.OrderStatus{models.OrderStatusCancelled},
		Limit:           page.Limit,
		Offset:          page.Offset,
	})
}

// AdminOrderQuery narrows the admin listing
type AdminOrderQuery struct {
	Status    models.OrderStatus
	BuyerID   string
	ManagerID string
	ProductID string
	Page      Page
}

// ListAllForAdmin returns every order matching the query
func (s *OrderService) ListAllForAdmin(ctx context.Context, p auth.Principal, q AdminOrderQuery) ([]*models.Order, error) {
	if !p.IsAdmin() {
		return nil, apperrors.NewUnauthorizedError("admin access required")
	}

	filter := repository.OrderFilter{
		BuyerID:   q.BuyerID,
		ManagerID: q.ManagerID,
		ProductID: q.ProductID,
		Limit:     q.Page.Limit,
		Offset:    q.Page.Offset,
	}
	if q.Status != "" {
		filter.Statuses = []models.OrderStatus{q.Status}
	}
	return s.list(ctx, filter)
}

func (s *OrderService) requireManagerScope(p auth.Principal, managerID string) error {
	if p.IsAdmin() || (p.Role == models.RoleManager && p.UserID == managerID) {
		return nil
	}
	return apperrors.NewUnauthorizedError("you may only list orders for your own products")
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter) ([]*models.Order, error) {
	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, translate(err, "orders")
	}
	return orders, nil
}

// approvedBuyer reloads the caller and requires an approved account
func (s *OrderService) approvedBuyer(ctx context.Context, p auth.Principal) (*models.User, error) {
	buyer, err := s.store.GetUser(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticatedError("account no longer exists")
		}
		return nil, translate(err, "user")
	}

	if !buyer.CanPlaceOrders() {
		return nil, apperrors.NewAccountNotApprovedError(buyer.ID).WithContext("status", string(buyer.Status))
	}
	return buyer, nil
}

func (s *OrderService) writeEvent(ctx context.Context, tx repository.Tx, build func() (*models.OutboxMessage, error)) error {
	msg, err := build()
	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return tx.CreateOutboxMessage(ctx, msg)
}

func checkQuantity(product *models.Product, qty int) error {
	if qty < product.MinimumOrderQuantity {
		return apperrors.NewBelowMinimumOrderError(product.ID, qty, product.MinimumOrderQuantity)
	}
	if qty > product.AvailableQuantity {
		return apperrors.NewInsufficientStockError(product.ID, qty, product.AvailableQuantity)
	}
	return nil
}

// translatePayment keeps provider AppErrors and treats anything else as a
// failed authorization
func translatePayment(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.NewPaymentAuthorizationFailedError("payment could not be authorized").WithCause(err)
}
