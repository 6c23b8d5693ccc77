package service

import (
	"encoding/json"
	"fmt"

	"barsync/internal/lifecycle"
	"barsync/internal/model"
)

// itemBody is the stored form of a menu item. Identity, revision and
// timestamps live on the document envelope.
type itemBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
	Recipe      string `json:"recipe"`
	Image       string `json:"image"`
	Active      bool   `json:"active"`
}

type orderBody struct {
	CocktailID     string            `json:"cocktailId"`
	Customizations string            `json:"customizations"`
	Status         model.OrderStatus `json:"status"`
	Quantity       int               `json:"quantity"`
}

func encodeItem(item *model.MenuItem) (json.RawMessage, error) {
	body, err := json.Marshal(itemBody{
		Title:       item.Title,
		Description: item.Description,
		Ingredients: item.Ingredients,
		Recipe:      item.Recipe,
		Image:       item.Image,
		Active:      item.Active,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode menu item: %w", err)
	}
	return body, nil
}

func decodeItem(doc model.Document) (*model.MenuItem, error) {
	var b itemBody
	if err := json.Unmarshal(doc.Body, &b); err != nil {
		return nil, fmt.Errorf("failed to decode menu item %s: %w", doc.ID, err)
	}
	return &model.MenuItem{
		ID:          doc.ID,
		Rev:         doc.Rev,
		Type:        doc.Type,
		Title:       b.Title,
		Description: b.Description,
		Ingredients: b.Ingredients,
		Recipe:      b.Recipe,
		Image:       b.Image,
		Active:      b.Active,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

func encodeOrder(order *model.Order) (json.RawMessage, error) {
	body, err := json.Marshal(orderBody{
		CocktailID:     order.CocktailID,
		Customizations: order.Customizations,
		Status:         order.Status,
		Quantity:       order.Quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}
	return body, nil
}

// decodeOrder also canonicalizes legacy status spellings found in stored
// documents.
func decodeOrder(doc model.Document) (*model.Order, error) {
	var b orderBody
	if err := json.Unmarshal(doc.Body, &b); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", doc.ID, err)
	}
	if status, err := lifecycle.ParseStatus(string(b.Status)); err == nil {
		b.Status = status
	}
	return &model.Order{
		ID:             doc.ID,
		Rev:            doc.Rev,
		Type:           doc.Type,
		CocktailID:     b.CocktailID,
		Customizations: b.Customizations,
		Status:         b.Status,
		Quantity:       b.Quantity,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}, nil
}
