package model

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusInProgress OrderStatus = "in_progress"
	StatusServed     OrderStatus = "served"
	StatusDeleted    OrderStatus = "deleted"
)

// Order represents a customer order for one menu item.
type Order struct {
	ID             string      `json:"id"`
	Rev            string      `json:"rev"`
	Type           string      `json:"type"`
	CocktailID     string      `json:"cocktailId"`
	Customizations string      `json:"customizations"`
	Status         OrderStatus `json:"status"`
	Quantity       int         `json:"quantity"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// OrderInput represents the request payload for placing an order.
// ID is an optional caller-suggested identifier.
type OrderInput struct {
	ID             string `json:"id,omitempty"`
	CocktailID     string `json:"cocktailId"`
	Customizations string `json:"customizations"`
	Quantity       int    `json:"quantity,omitempty"`
}

// StatusRequest represents the request payload for an order status change.
type StatusRequest struct {
	Status string `json:"status"`
}

// OrderFilter narrows ListOrders. An empty Status matches every order.
type OrderFilter struct {
	Status OrderStatus
}
