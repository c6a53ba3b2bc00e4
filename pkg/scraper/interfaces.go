package scraper

import (
	"context"

	"replharvest/pkg/models"
	"replharvest/pkg/remote"
	"replharvest/pkg/session"
)

// ResumeChecker tells whether an item's artifact already exists
type ResumeChecker interface {
	AlreadyFetched(item models.Item) (bool, error)
}

// ItemFetcher makes one export attempt and never returns an error
type ItemFetcher interface {
	Fetch(ctx context.Context, s *session.Session, item models.Item) models.FetchAttempt
}

// ManifestRecorder receives every successful item
type ManifestRecorder interface {
	RecordCompleted(item models.Item) error
}

// Progress is notified around each item
type Progress interface {
	ItemStarted(index, total int, item models.Item)
	ItemFinished(index, total int, attempt models.FetchAttempt)
}

// Authenticator logs a session in
type Authenticator interface {
	Authenticate(ctx context.Context, s *session.Session, creds session.Credentials) error
}

// InventoryLister discovers the items behind the listing
type InventoryLister interface {
	List(ctx context.Context, s *session.Session) (*models.Inventory, error)
}

// RemoteFactory opens the remote view for a run
type RemoteFactory func(ctx context.Context) (remote.Remote, error)
