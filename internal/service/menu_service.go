package service

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"barsync/internal/model"
	"barsync/internal/repository"
)

// CreateItem adds a menu item.
func (s *syncController) CreateItem(ctx context.Context, input model.MenuItemInput) (*model.MenuItem, error) {
	if err := ValidateItemInput(input); err != nil {
		s.logger.Debug().Err(err).Msg("menu item rejected")
		return nil, err
	}

	item := &model.MenuItem{
		Type:        model.TypeCocktail,
		Title:       input.Title,
		Description: input.Description,
		Ingredients: input.Ingredients,
		Recipe:      input.Recipe,
		Image:       input.Image,
		Active:      true,
	}
	body, err := encodeItem(item)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Create(ctx, model.Document{
		Collection: model.CollectionCocktails,
		Type:       model.TypeCocktail,
		Body:       body,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to create menu item")
		return nil, err
	}

	created, err := decodeItem(doc)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("item_id", created.ID).
		Str("rev", created.Rev).
		Str("title", created.Title).
		Msg("menu item created")

	s.publish(model.ChangeEvent{Type: model.EventItemCreated, ID: created.ID, Item: created})
	return created, nil
}

// GetItem retrieves a menu item by ID.
func (s *syncController) GetItem(ctx context.Context, id string) (*model.MenuItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.NewValidationError("id", "is required")
	}

	doc, err := s.store.Get(ctx, model.CollectionCocktails, id)
	if err != nil {
		return nil, err
	}
	return decodeItem(doc)
}

// ListItems returns the menu items matching filter.
func (s *syncController) ListItems(ctx context.Context, filter model.MenuItemFilter) ([]model.MenuItem, error) {
	items := []model.MenuItem{}
	for doc, err := range s.store.List(ctx, model.CollectionCocktails, repository.OfType(model.TypeCocktail)) {
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to list menu items")
			return nil, err
		}

		item, err := decodeItem(doc)
		if err != nil {
			s.logger.Warn().Err(err).Str("item_id", doc.ID).Msg("skipping undecodable menu item")
			continue
		}
		if filter.Active != nil && item.Active != *filter.Active {
			continue
		}
		items = append(items, *item)
	}

	slices.SortFunc(items, func(a, b model.MenuItem) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return items, nil
}

// UpdateItem replaces the fields of the item at revision rev.
func (s *syncController) UpdateItem(ctx context.Context, id, rev string, input model.MenuItemInput) (*model.MenuItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.NewValidationError("id", "is required")
	}
	if strings.TrimSpace(rev) == "" {
		return nil, model.NewValidationError("rev", "is required")
	}
	if err := ValidateItemInput(input); err != nil {
		s.logger.Debug().Err(err).Str("item_id", id).Msg("menu item update rejected")
		return nil, err
	}

	current, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Title = input.Title
	next.Description = input.Description
	next.Ingredients = input.Ingredients
	next.Recipe = input.Recipe
	if input.Image != "" {
		next.Image = input.Image
	}
	if input.Active != nil {
		next.Active = *input.Active
	}

	body, err := encodeItem(&next)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Update(ctx, model.CollectionCocktails, id, rev, body)
	if err != nil {
		s.logger.Warn().Err(err).Str("item_id", id).Str("rev", rev).Msg("failed to update menu item")
		return nil, err
	}

	updated, err := decodeItem(doc)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("item_id", updated.ID).
		Str("rev", updated.Rev).
		Msg("menu item updated")

	s.publish(model.ChangeEvent{Type: model.EventItemUpdated, ID: updated.ID, Item: updated})
	return updated, nil
}

// DeleteItem removes the item at revision rev.
func (s *syncController) DeleteItem(ctx context.Context, id, rev string) error {
	if strings.TrimSpace(id) == "" {
		return model.NewValidationError("id", "is required")
	}
	if strings.TrimSpace(rev) == "" {
		return model.NewValidationError("rev", "is required")
	}

	if err := s.store.Delete(ctx, model.CollectionCocktails, id, rev); err != nil {
		s.logger.Warn().Err(err).Str("item_id", id).Str("rev", rev).Msg("failed to delete menu item")
		return err
	}

	s.logger.Info().Str("item_id", id).Msg("menu item deleted")

	s.publish(model.ChangeEvent{Type: model.EventItemDeleted, ID: id})
	return nil
}

// ValidateItemInput checks the fields every menu item write requires.
func ValidateItemInput(input model.MenuItemInput) error {
	required := []struct {
		field string
		value string
	}{
		{"title", input.Title},
		{"description", input.Description},
		{"ingredients", input.Ingredients},
		{"recipe", input.Recipe},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return model.NewValidationError(r.field, "is required")
		}
	}
	return nil
}
