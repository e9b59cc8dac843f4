package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"merchant-verdict/internal/product"
)

const latestFile = "latest.json"

// FileSource reads snapshots laid out as {dir}/{marketplace}/{ASIN}/latest.json.
type FileSource struct {
	dir                string
	defaultMarketplace string
	logger             zerolog.Logger
}

// NewFileSource constructs a file-backed source rooted at dir.
func NewFileSource(dir, defaultMarketplace string, logger zerolog.Logger) *FileSource {
	return &FileSource{
		dir:                dir,
		defaultMarketplace: product.NormalizeMarketplace(defaultMarketplace),
		logger:             logger.With().Str("component", "file_source").Logger(),
	}
}

// Fetch loads the latest snapshot for one marketplace.
func (f *FileSource) Fetch(ctx context.Context, marketplace, asin string) (*product.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	market := product.NormalizeMarketplace(marketplace)
	if market == "" {
		market = f.defaultMarketplace
	}
	path := filepath.Join(f.dir, market, strings.ToUpper(asin), latestFile)

	snapshots, err := f.load(path, market)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, market, asin)
	}
	if err != nil {
		return nil, err
	}
	return snapshots[0], nil
}

// Marketplaces lists the marketplaces holding a latest snapshot for asin, sorted.
func (f *FileSource) Marketplaces(asin string) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", f.dir, err)
	}
	var markets []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(f.dir, e.Name(), strings.ToUpper(asin), latestFile)); err == nil {
			markets = append(markets, e.Name())
		}
	}
	sort.Strings(markets)
	return markets, nil
}

// FetchAll loads asin from every marketplace that has it.
func (f *FileSource) FetchAll(ctx context.Context, asin string) ([]*product.Snapshot, error) {
	markets, err := f.Marketplaces(asin)
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("%w: %s in any marketplace", ErrNotFound, asin)
	}
	snapshots := make([]*product.Snapshot, 0, len(markets))
	for _, m := range markets {
		s, err := f.Fetch(ctx, m, asin)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

// LoadFile decodes one JSON file, which may hold one snapshot or a list. Snapshots
// without a marketplace get the source default.
func (f *FileSource) LoadFile(path string) ([]*product.Snapshot, error) {
	return f.load(path, f.defaultMarketplace)
}

func (f *FileSource) load(path, fallbackMarket string) ([]*product.Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	snapshots, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, s := range snapshots {
		if s.Marketplace == "" {
			s.Marketplace = fallbackMarket
		}
	}
	return snapshots, nil
}

// LoadDir walks dir for *.json files in lexical order. Unreadable files are
// logged and reported in the returned error list; they do not stop the walk.
func (f *FileSource) LoadDir(ctx context.Context, dir string) ([]*product.Snapshot, []error) {
	var (
		snapshots []*product.Snapshot
		failures  []error
	)
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		loaded, loadErr := f.LoadFile(path)
		if loadErr != nil {
			f.logger.Warn().Err(loadErr).Str("path", path).Msg("skipping unreadable snapshot file")
			failures = append(failures, loadErr)
			return nil
		}
		snapshots = append(snapshots, loaded...)
		return nil
	})
	if walkErr != nil {
		failures = append(failures, fmt.Errorf("walk %s: %w", dir, walkErr))
	}
	return snapshots, failures
}

var _ Source = (*FileSource)(nil)
