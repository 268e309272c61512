package lifecycle

import (
	"github.com/vaidashi/garment-order-tracker/internal/models"
)

// CanTransition is the single authorization decision for status changes.
// Admins act on any order; buyers and managers only on orders they own.
func CanTransition(role models.Role, from, to models.OrderStatus, isOwner bool) bool {
	rule, ok := Lookup(from, to)
	if !ok || !rule.Allows(role) {
		return false
	}
	return role == models.RoleAdmin || isOwner
}

// IsOwner reports whether the user is the buyer or the product-owning manager of the order
func IsOwner(userID string, role models.Role, order *models.Order) bool {
	switch role {
	case models.RoleBuyer:
		return order.BuyerID == userID
	case models.RoleManager:
		return order.ManagerID == userID
	default:
		return false
	}
}

// CanView reports whether the user may read the order and its tracking log
func CanView(userID string, role models.Role, order *models.Order) bool {
	return role == models.RoleAdmin || IsOwner(userID, role, order)
}

// AllowedTargets lists the statuses this user may move the order to right now
func AllowedTargets(userID string, role models.Role, order *models.Order) []models.OrderStatus {
	owner := IsOwner(userID, role, order)

	var out []models.OrderStatus
	for _, to := range Targets(order.Status) {
		if CanTransition(role, order.Status, to, owner) {
			out = append(out, to)
		}
	}
	return out
}
