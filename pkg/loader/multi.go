package loader

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/canopy/pkg/model"
)

// maxConcurrentLoads limits how many sources are fetched at once.
const maxConcurrentLoads = 4

// MultiSource concatenates the records of several sources. Sources are
// fetched concurrently but their records keep the configured order, so
// sibling order stays deterministic.
type MultiSource struct {
	Sources []Source
}

// NewMultiSource combines sources. A single source is returned unwrapped.
func NewMultiSource(sources ...Source) Source {
	if len(sources) == 1 {
		return sources[0]
	}
	return &MultiSource{Sources: sources}
}

// Name joins the names of the combined sources.
func (m *MultiSource) Name() string {
	names := make([]string, len(m.Sources))
	for i, s := range m.Sources {
		names[i] = s.Name()
	}
	return strings.Join(names, ", ")
}

// Load fetches every source and concatenates the results. The first failure
// cancels the remaining fetches.
func (m *MultiSource) Load(ctx context.Context) ([]model.Record, error) {
	results := make([][]model.Record, len(m.Sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, src := range m.Sources {
		g.Go(func() error {
			records, err := src.Load(ctx)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]model.Record, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}
