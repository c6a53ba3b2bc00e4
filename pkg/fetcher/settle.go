package fetcher

import (
	"context"
	"errors"
	"time"

	"replharvest/pkg/logger"
	"replharvest/pkg/remote"
	"replharvest/pkg/storage"
)

// Wait blocks until the triggered download is considered settled
type Wait func(ctx context.Context, r remote.Remote) error

// Settler decides how long to wait after the export click.
// Arm runs before the click so it can capture the state to compare against.
type Settler interface {
	Arm() (Wait, error)
}

// SleepSettler waits a fixed delay
type SleepSettler struct {
	Delay time.Duration
}

func (s SleepSettler) Arm() (Wait, error) {
	return func(ctx context.Context, r remote.Remote) error {
		return r.Sleep(ctx, s.Delay)
	}, nil
}

// WatchSettler returns as soon as a new finished file lands in the store's
// directory, or after Timeout. A timeout still counts as settled.
type WatchSettler struct {
	Store   *storage.Store
	Timeout time.Duration
	Log     logger.Logger
}

func (w WatchSettler) Arm() (Wait, error) {
	before, err := w.Store.Snapshot()
	if err != nil {
		return nil, err
	}
	log := w.Log
	if log == nil {
		log = logger.NewNopLogger()
	}

	return func(ctx context.Context, r remote.Remote) error {
		name, err := storage.WaitForArtifact(ctx, w.Store.Dir(), before, w.Timeout)
		switch {
		case err == nil:
			log.WithField("file", name).Debug("Artifact landed")
			return nil
		case errors.Is(err, storage.ErrNoArtifact):
			log.WithField("timeout", w.Timeout).Warn("No new file seen before timeout; counting the export as attempted")
			return nil
		default:
			return err
		}
	}, nil
}
