package database

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pinger is anything the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingAll pings every dependency concurrently and returns each one's result by
// name. Nil entries are skipped so optional dependencies can stay unconfigured.
func PingAll(ctx context.Context, timeout time.Duration, deps map[string]Pinger) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names := make([]string, 0, len(deps))
	for name, p := range deps {
		if p != nil {
			names = append(names, name)
		}
	}

	errs := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		p := deps[name]
		g.Go(func() error {
			errs[i] = p.Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]error, len(names))
	for i, name := range names {
		results[name] = errs[i]
	}
	return results
}
