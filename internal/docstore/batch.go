package docstore

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Input is one document of a batch.
type Input struct {
	// Name labels the input in results, typically its file name.
	Name string
	Raw  string
}

// Result is the outcome of storing one Input.
type Result struct {
	Name string
	ID   RecordID
	Err  error
}

// StoreAll stores every input independently using up to the configured
// number of concurrent workers. Results are in input order; one failing
// input does not stop the others.
func (a *Adapter) StoreAll(ctx context.Context, inputs []Input) []Result {
	results := make([]Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, in := range inputs {
		g.Go(func() error {
			id, err := a.Store(gctx, in.Raw)
			results[i] = Result{Name: in.Name, ID: id, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	stored := 0
	for _, r := range results {
		if r.Err == nil {
			stored++
		}
	}
	a.logger.Info("Batch stored", "inputs", len(inputs), "stored", stored, "failed", len(inputs)-stored)

	return results
}
