package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"barsync/internal/lifecycle"
	"barsync/internal/model"
	"barsync/internal/repository"
)

// PlaceOrder creates a pending order. Without a suggested ID a fresh one is
// generated, and regenerated if it happens to collide.
func (s *syncController) PlaceOrder(ctx context.Context, input model.OrderInput) (*model.Order, error) {
	if err := s.validateOrderInput(input); err != nil {
		return nil, err
	}

	order := &model.Order{
		Type:           model.TypeOrder,
		CocktailID:     input.CocktailID,
		Customizations: input.Customizations,
		Status:         lifecycle.Initial(),
		Quantity:       input.Quantity,
	}
	if order.Quantity == 0 {
		order.Quantity = 1
	}
	body, err := encodeOrder(order)
	if err != nil {
		return nil, err
	}

	suggested := strings.TrimSpace(input.ID)
	attempts := s.maxAttempts
	if suggested != "" {
		attempts = 1
	}

	var doc model.Document
	for attempt := 1; attempt <= attempts; attempt++ {
		id := suggested
		if id == "" {
			id = repository.NewID()
		}

		doc, err = s.store.Create(ctx, model.Document{
			Collection: model.CollectionOrders,
			ID:         id,
			Type:       model.TypeOrder,
			Body:       body,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, model.ErrConflict) || suggested != "" {
			s.logger.Warn().Err(err).Str("order_id", id).Msg("failed to place order")
			return nil, err
		}
		s.logger.Debug().Int("attempt", attempt).Str("order_id", id).Msg("generated order id collided, retrying")
	}
	if err != nil {
		return nil, err
	}

	placed, err := decodeOrder(doc)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", placed.ID).
		Str("cocktail_id", placed.CocktailID).
		Int("quantity", placed.Quantity).
		Msg("order placed")

	s.publish(model.ChangeEvent{Type: model.EventOrderCreated, ID: placed.ID, Order: placed})
	return placed, nil
}

// GetOrder retrieves an order by ID.
func (s *syncController) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.NewValidationError("id", "is required")
	}

	doc, err := s.store.Get(ctx, model.CollectionOrders, id)
	if err != nil {
		return nil, err
	}
	return decodeOrder(doc)
}

// ListOrders returns the orders matching filter.
func (s *syncController) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	orders := []model.Order{}
	for doc, err := range s.store.List(ctx, model.CollectionOrders, repository.OfType(model.TypeOrder)) {
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to list orders")
			return nil, err
		}

		order, err := decodeOrder(doc)
		if err != nil {
			s.logger.Warn().Err(err).Str("order_id", doc.ID).Msg("skipping undecodable order")
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		orders = append(orders, *order)
	}

	slices.SortFunc(orders, func(a, b model.Order) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return orders, nil
}

// TransitionOrder moves an order to target. The read, the lifecycle check
// and the compare-and-swap are retried together when another writer gets in
// between, so the check always applies to the revision being replaced.
func (s *syncController) TransitionOrder(ctx context.Context, id, target string) (*model.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.NewValidationError("id", "is required")
	}
	if strings.TrimSpace(target) == "" {
		return nil, model.NewValidationError("status", "is required")
	}
	status, err := lifecycle.ParseStatus(target)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		doc, err := s.store.Get(ctx, model.CollectionOrders, id)
		if err != nil {
			return nil, err
		}
		order, err := decodeOrder(doc)
		if err != nil {
			return nil, err
		}

		if !lifecycle.CanTransition(order.Status, status) {
			s.logger.Debug().
				Str("order_id", id).
				Str("from", string(order.Status)).
				Str("to", string(status)).
				Msg("order transition rejected")
			return nil, fmt.Errorf("%s to %s: %w", order.Status, status, model.ErrInvalidTransition)
		}

		from := order.Status
		order.Status = status
		body, err := encodeOrder(order)
		if err != nil {
			return nil, err
		}

		updated, err := s.store.Update(ctx, model.CollectionOrders, id, doc.Rev, body)
		if errors.Is(err, model.ErrConflict) && attempt < s.maxAttempts {
			s.logger.Debug().Int("attempt", attempt).Str("order_id", id).Msg("order changed concurrently, retrying transition")
			continue
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("order_id", id).Int("attempt", attempt).Msg("failed to transition order")
			return nil, err
		}

		result, err := decodeOrder(updated)
		if err != nil {
			return nil, err
		}

		s.logger.Info().
			Str("order_id", id).
			Str("from", string(from)).
			Str("to", string(result.Status)).
			Str("rev", result.Rev).
			Msg("order status changed")

		s.publish(model.ChangeEvent{Type: model.EventOrderUpdated, ID: id, Order: result})
		return result, nil
	}

	// Unreachable with maxAttempts >= 1.
	return nil, fmt.Errorf("order %s: %w", id, model.ErrConflict)
}

func (s *syncController) validateOrderInput(input model.OrderInput) error {
	if strings.TrimSpace(input.CocktailID) == "" {
		return model.NewValidationError("cocktailId", "is required")
	}
	if input.Quantity < 0 {
		s.logger.Debug().Int("quantity", input.Quantity).Msg("invalid quantity")
		return model.NewValidationError("quantity", "must be at least 1")
	}
	return nil
}
