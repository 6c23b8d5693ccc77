package service

import (
	"context"
	"time"

	"barsync/internal/model"
	"barsync/internal/repository"

	"github.com/rs/zerolog"
)

// DefaultMaxAttempts bounds the compare-and-swap retries of TransitionOrder
// and of PlaceOrder with a generated ID.
const DefaultMaxAttempts = 3

// Publisher receives one change event per successful mutation.
type Publisher interface {
	Publish(ev model.ChangeEvent)
}

// SyncController is the single entry point for document mutations. Every
// successful mutation is followed by exactly one published change event.
type SyncController interface {
	// CreateItem adds a menu item. New items are always active.
	CreateItem(ctx context.Context, input model.MenuItemInput) (*model.MenuItem, error)

	// GetItem retrieves a menu item by ID.
	GetItem(ctx context.Context, id string) (*model.MenuItem, error)

	// ListItems returns the menu items matching filter, oldest first.
	ListItems(ctx context.Context, filter model.MenuItemFilter) ([]model.MenuItem, error)

	// UpdateItem replaces the fields of the item at revision rev. An empty
	// input image keeps the current image.
	UpdateItem(ctx context.Context, id, rev string, input model.MenuItemInput) (*model.MenuItem, error)

	// DeleteItem removes the item at revision rev.
	DeleteItem(ctx context.Context, id, rev string) error

	// PlaceOrder creates a pending order.
	PlaceOrder(ctx context.Context, input model.OrderInput) (*model.Order, error)

	// GetOrder retrieves an order by ID.
	GetOrder(ctx context.Context, id string) (*model.Order, error)

	// ListOrders returns the orders matching filter, oldest first.
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// TransitionOrder moves an order to the target status if the lifecycle
	// allows it from the order's current status.
	TransitionOrder(ctx context.Context, id, target string) (*model.Order, error)
}

// syncController implements SyncController.
type syncController struct {
	store       repository.DocumentStore
	publisher   Publisher
	maxAttempts int
	logger      zerolog.Logger
}

// NewSyncController creates a controller over store that reports changes to
// publisher. A maxAttempts below 1 uses DefaultMaxAttempts.
func NewSyncController(
	store repository.DocumentStore,
	publisher Publisher,
	maxAttempts int,
	logger zerolog.Logger,
) SyncController {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &syncController{
		store:       store,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		logger:      logger.With().Str("service", "sync").Logger(),
	}
}

func (s *syncController) publish(ev model.ChangeEvent) {
	ev.OccurredAt = time.Now().UTC()
	s.publisher.Publish(ev)
}
