// Package upload stores menu item images and hands back opaque references.
package upload

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store saves an uploaded file and returns a reference to it.
type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
}

// objectName names a stored upload after the upload time, keeping the
// original extension.
func objectName(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	return strconv.FormatInt(now.UnixMilli(), 10) + ext
}
