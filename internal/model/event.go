package model

import "time"

// EventType names the mutation a ChangeEvent reports.
type EventType string

const (
	EventItemCreated  EventType = "item_created"
	EventItemUpdated  EventType = "item_updated"
	EventItemDeleted  EventType = "item_deleted"
	EventOrderCreated EventType = "order_created"
	EventOrderUpdated EventType = "order_updated"
)

// ChangeEvent is the ephemeral notification pushed to connected viewers after
// a successful mutation. Viewers treat it as a hint to re-read.
type ChangeEvent struct {
	Type       EventType `json:"type"`
	ID         string    `json:"id"`
	Item       *MenuItem `json:"cocktail,omitempty"`
	Order      *Order    `json:"order,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
