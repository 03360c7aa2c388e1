package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// Task produces the value for one position of an ordered run
type Task[T any] func(ctx context.Context) (T, error)

// RunOrdered runs tasks concurrently and hands their values to consume
// strictly in task order, one call at a time. At most maxInflight tasks are
// started but not yet consumed; the launcher blocks until the consumer frees
// a slot.
//
// The first task or consumer error cancels the run. All goroutines have
// exited when RunOrdered returns.
func RunOrdered[T any](ctx context.Context, tasks []Task[T], consume func(seq int, v T) error, maxInflight int) error {
	if maxInflight < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "max in-flight tasks must be at least 1, got %d", maxInflight)
	}
	if len(tasks) == 0 {
		return ctx.Err()
	}

	// One single-use slot per task, indexed by sequence number
	slots := make([]chan T, len(tasks))
	for i := range slots {
		slots[i] = make(chan T, 1)
	}
	tokens := make(chan struct{}, maxInflight)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for seq, slot := range slots {
			var v T
			select {
			case v = <-slot:
			case <-gctx.Done():
				return gctx.Err()
			}
			if err := consume(seq, v); err != nil {
				return err
			}
			<-tokens
		}
		return nil
	})

launch:
	for seq, task := range tasks {
		select {
		case tokens <- struct{}{}:
		case <-gctx.Done():
			break launch
		}
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			v, err := task(gctx)
			if err != nil {
				return err
			}
			slots[seq] <- v
			return nil
		})
	}

	return g.Wait()
}
