// Package lifecycle encodes the legal order status transitions.
package lifecycle

import (
	"strings"

	"barsync/internal/model"
)

// transitions maps each status to the statuses it may move to.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusPending:    {model.StatusInProgress, model.StatusDeleted},
	model.StatusInProgress: {model.StatusServed, model.StatusDeleted},
	model.StatusServed:     {model.StatusDeleted, model.StatusPending},
	model.StatusDeleted:    {model.StatusPending},
}

// CanTransition reports whether an order in current may move to target.
func CanTransition(current, target model.OrderStatus) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Allowed returns the statuses reachable from current in one step.
func Allowed(current model.OrderStatus) []model.OrderStatus {
	next := transitions[current]
	out := make([]model.OrderStatus, len(next))
	copy(out, next)
	return out
}

// Initial is the status every new order starts in.
func Initial() model.OrderStatus {
	return model.StatusPending
}

// ParseStatus converts caller input to an OrderStatus. The space-separated
// "in progress" spelling is accepted for older clients.
func ParseStatus(s string) (model.OrderStatus, error) {
	normalised := strings.ToLower(strings.TrimSpace(s))
	if normalised == "in progress" {
		normalised = string(model.StatusInProgress)
	}

	status := model.OrderStatus(normalised)
	if _, ok := transitions[status]; !ok {
		return "", model.NewValidationError("status", "must be one of pending, in_progress, served, deleted")
	}
	return status, nil
}
