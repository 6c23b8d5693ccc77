// seed loads sample cocktails and the classic dummy orders into a persistent
// document store. Documents that already exist are left alone, so running
// it twice is harmless.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"barsync/internal/config"
	"barsync/internal/database"
	"barsync/internal/model"
	"barsync/internal/repository"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var skipCocktails, skipOrders bool
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Store.Backend, "backend", cfg.Store.Backend, "document store backend (postgres or pebble)")
	flagSet.StringVar(&cfg.Store.PebbleDir, "pebble-dir", cfg.Store.PebbleDir, "pebble data directory")
	flagSet.StringVar(&cfg.Logger.Level, "log-level", cfg.Logger.Level, "log level")
	flagSet.BoolVar(&skipCocktails, "skip-cocktails", false, "do not seed cocktails")
	flagSet.BoolVar(&skipOrders, "skip-orders", false, "do not seed orders")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	ctx := context.Background()

	var store repository.DocumentStore
	switch cfg.Store.Backend {
	case config.StorePostgres:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		store = repository.NewPostgresStore(pool, logger)

	case config.StorePebble:
		pebbleStore, err := repository.OpenPebbleStore(cfg.Store.PebbleDir, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize pebble store: %w", err)
		}
		defer pebbleStore.Close()
		store = pebbleStore

	default:
		return fmt.Errorf("backend %q does not persist, nothing to seed", cfg.Store.Backend)
	}

	var docs []model.Document
	if !skipCocktails {
		docs = append(docs, sampleCocktails()...)
	}
	if !skipOrders {
		docs = append(docs, dummyOrders()...)
	}

	created, skipped, err := seed(ctx, store, docs, logger)
	if err != nil {
		return err
	}

	logger.Info().Int("created", created).Int("skipped", skipped).Msg("seeding complete")
	return nil
}

// seed creates every document, skipping IDs that are already taken.
func seed(ctx context.Context, store repository.DocumentStore, docs []model.Document, logger zerolog.Logger) (created, skipped int, err error) {
	for _, doc := range docs {
		_, err := store.Create(ctx, doc)
		switch {
		case err == nil:
			created++
			logger.Info().Str("collection", string(doc.Collection)).Str("id", doc.ID).Msg("document seeded")
		case errors.Is(err, model.ErrConflict):
			skipped++
			logger.Info().Str("collection", string(doc.Collection)).Str("id", doc.ID).Msg("document already exists")
		default:
			return created, skipped, fmt.Errorf("failed to seed %s/%s: %w", doc.Collection, doc.ID, err)
		}
	}
	return created, skipped, nil
}

func sampleCocktails() []model.Document {
	return []model.Document{
		cocktail("1", `{"title":"Mojito","description":"Fresh and minty","ingredients":"white rum,mint,lime,sugar,soda","recipe":"Muddle mint with lime and sugar, add rum and ice, top with soda","image":"","active":true}`),
		cocktail("2", `{"title":"Margarita","description":"Salt-rimmed classic","ingredients":"tequila,triple sec,lime,salt","recipe":"Shake with ice and strain into a salt-rimmed glass","image":"","active":true}`),
		cocktail("3", `{"title":"Daiquiri","description":"Tart and simple","ingredients":"white rum,lime,sugar syrup","recipe":"Shake hard with ice and double strain","image":"","active":true}`),
	}
}

// dummyOrders are stored verbatim, including the legacy "in progress"
// spelling.
func dummyOrders() []model.Document {
	return []model.Document{
		order("order1", `{"cocktailId":"1","customizations":"No mint","status":"pending","quantity":1}`),
		order("order2", `{"cocktailId":"2","customizations":"Extra salt","status":"in progress","quantity":1}`),
		order("order3", `{"cocktailId":"3","customizations":"Less sugar","status":"served","quantity":1}`),
	}
}

func cocktail(id, body string) model.Document {
	return model.Document{Collection: model.CollectionCocktails, ID: id, Type: model.TypeCocktail, Body: []byte(body)}
}

func order(id, body string) model.Document {
	return model.Document{Collection: model.CollectionOrders, ID: id, Type: model.TypeOrder, Body: []byte(body)}
}
