// Package lifecycle holds the order state machine: which status changes exist,
// who may trigger them and which of them hand stock back to the product.
package lifecycle

import (
	"github.com/vaidashi/garment-order-tracker/internal/models"
)

// Rule is one legal (from, to) status change
type Rule struct {
	From          models.OrderStatus
	To            models.OrderStatus
	Roles         []models.Role
	RestoresStock bool
}

// Allows reports whether role appears in the rule
func (r Rule) Allows(role models.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// ProductionChain is the forward-only order of post-approval statuses
var ProductionChain = []models.OrderStatus{
	models.OrderStatusApproved,
	models.OrderStatusProcessing,
	models.OrderStatusInProduction,
	models.OrderStatusPacked,
	models.OrderStatusShipped,
	models.OrderStatusOutForDelivery,
}

type edge struct {
	from, to models.OrderStatus
}

var table = buildTable()

func buildTable() map[edge]Rule {
	manager := []models.Role{models.RoleManager}
	rules := []Rule{
		{From: models.OrderStatusPending, To: models.OrderStatusApproved, Roles: manager},
		{From: models.OrderStatusPending, To: models.OrderStatusRejected, Roles: manager, RestoresStock: true},
		{From: models.OrderStatusPending, To: models.OrderStatusCancelled, Roles: []models.Role{models.RoleBuyer, models.RoleAdmin}, RestoresStock: true},
		{From: models.OrderStatusPending, To: models.OrderStatusDelivered, Roles: manager},
	}

	for i, from := range ProductionChain {
		for _, to := range ProductionChain[i+1:] {
			rules = append(rules, Rule{From: from, To: to, Roles: manager})
		}
		rules = append(rules,
			Rule{From: from, To: models.OrderStatusDelivered, Roles: manager},
			Rule{From: from, To: models.OrderStatusCancelled, Roles: []models.Role{models.RoleAdmin}, RestoresStock: true},
		)
	}

	t := make(map[edge]Rule, len(rules))
	for _, r := range rules {
		t[edge{r.From, r.To}] = r
	}
	return t
}

// Lookup returns the rule for moving from one status to another
func Lookup(from, to models.OrderStatus) (Rule, bool) {
	r, ok := table[edge{from, to}]
	return r, ok
}

// Targets lists every status reachable from the given one, in OrderStatuses order
func Targets(from models.OrderStatus) []models.OrderStatus {
	var out []models.OrderStatus
	for _, to := range models.OrderStatuses {
		if _, ok := table[edge{from, to}]; ok {
			out = append(out, to)
		}
	}
	return out
}
