// Package source loads product snapshots from disk or an upstream scraping service.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"merchant-verdict/internal/product"
)

// ErrNotFound is returned when no snapshot exists for the requested item.
var ErrNotFound = errors.New("source: snapshot not found")

// Source fetches the current snapshot of one listing.
type Source interface {
	Fetch(ctx context.Context, marketplace, asin string) (*product.Snapshot, error)
}

// Decode reads either a single snapshot object or an array of them. Every
// snapshot is validated; the first invalid one fails the whole document.
func Decode(r io.Reader) ([]*product.Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot document: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("decode snapshot: empty document")
	}

	var snapshots []*product.Snapshot
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &snapshots); err != nil {
			return nil, fmt.Errorf("decode snapshot list: %w", err)
		}
		if len(snapshots) == 0 {
			return nil, errors.New("decode snapshot: empty list")
		}
	} else {
		var s product.Snapshot
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}

	for i, s := range snapshots {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", i, err)
		}
	}
	return snapshots, nil
}
