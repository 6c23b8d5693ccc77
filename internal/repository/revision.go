package repository

import (
	"fmt"
	"strconv"
	"strings"

	"barsync/internal/model"

	"github.com/google/uuid"
)

// NewID returns a collision-resistant document identifier.
func NewID() string {
	return uuid.NewString()
}

// nextRevision derives the revision that follows prev. Revisions have the
// form "<generation>-<32 hex>"; an empty prev yields generation 1.
func nextRevision(prev string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s", Generation(prev)+1, suffix)
}

// Generation returns the generation counter of a revision token, or 0 if the
// token is empty or malformed.
func Generation(rev string) int {
	prefix, _, ok := strings.Cut(rev, "-")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func notFound(collection model.Collection, id string) error {
	return fmt.Errorf("%s/%s: %w", collection, id, model.ErrNotFound)
}

func conflict(collection model.Collection, id string) error {
	return fmt.Errorf("%s/%s: %w", collection, id, model.ErrConflict)
}

func cloneBody(body []byte) []byte {
	if body == nil {
		return nil
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out
}
