package analysis

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kamilpajak/redline/pkg/models"
)

// BatchItem is the outcome of one contract in a batch. Exactly one of Result
// and Err is set.
type BatchItem struct {
	Path   string
	Result *models.AnalysisResult
	Err    error
}

// RunBatch analyzes contracts concurrently with at most workers pipelines in
// flight. Items are returned in input order; the error joins every per-item
// failure. One failing contract never stops the others.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string, workers int, opts RunOptions) ([]BatchItem, error) {
	if workers < 1 {
		workers = 1
	}
	opts.Name = ""

	items := make([]BatchItem, len(paths))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		items[i].Path = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = p.Run(ctx, path, opts)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, it := range items {
		if it.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", it.Path, it.Err))
		}
	}
	return items, errors.Join(errs...)
}
