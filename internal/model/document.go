package model

import (
	"encoding/json"
	"time"
)

// Collection names a document collection in the store.
type Collection string

const (
	CollectionCocktails Collection = "cocktails"
	CollectionOrders    Collection = "orders"
)

// Type discriminants stored alongside every document.
const (
	TypeCocktail = "cocktail"
	TypeOrder    = "order"
)

// Document is the envelope the store persists. Body holds the JSON of the
// typed document without its id and rev, which live on the envelope.
type Document struct {
	Collection Collection      `json:"collection"`
	ID         string          `json:"id"`
	Rev        string          `json:"rev"`
	Type       string          `json:"type"`
	Body       json.RawMessage `json:"body"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}
