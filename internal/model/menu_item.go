package model

import "time"

// MenuItem represents a cocktail on the menu.
type MenuItem struct {
	ID          string    `json:"id"`
	Rev         string    `json:"rev"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Ingredients string    `json:"ingredients"`
	Recipe      string    `json:"recipe"`
	Image       string    `json:"image"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MenuItemInput carries the staff-supplied fields for create and update.
type MenuItemInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
	Recipe      string `json:"recipe"`
	Image       string `json:"image,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

// MenuItemFilter narrows ListItems. A nil Active matches every item.
type MenuItemFilter struct {
	Active *bool
}
