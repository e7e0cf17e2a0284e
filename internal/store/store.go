// Package store provides relational access to enrollment, completion, and
// attempt data consumed by the recommendation and tutor flows.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/brightpath/studycoach/internal/config"
	"github.com/brightpath/studycoach/internal/model"
)

// ErrQuery indicates a relational read failed. Handlers surface it as a
// 5xx-class response rather than letting the request die silently.
var ErrQuery = eris.New("relational query failed")

// Store defines the read surface of the learning platform's relational data.
// All entities behind it are owned by the main platform; this service only
// reads them.
type Store interface {
	// ClassIDsForUser returns every class the user is enrolled in.
	ClassIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// PeersInClasses returns the distinct users enrolled in any of the given
	// classes, excluding the user the peer set is being built for.
	PeersInClasses(ctx context.Context, classIDs []uuid.UUID, exclude uuid.UUID) ([]uuid.UUID, error)

	// CompletedTrackIDs returns the distinct tracks in which the user has
	// completed at least one lesson.
	CompletedTrackIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// TopTracksByCompletions ranks tracks by lesson completions among the
	// given users, skipping excluded tracks. Ties break on track id
	// ascending so repeated calls over identical data agree.
	TopTracksByCompletions(ctx context.Context, userIDs []uuid.UUID, excludeTracks []uuid.UUID, limit int) ([]model.TrackRecommendation, error)

	// WeaknessRecords returns the user's recorded weaknesses in attempt
	// order, oldest first.
	WeaknessRecords(ctx context.Context, userID uuid.UUID) ([]model.WeaknessRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store from config, selecting the backend by driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres", "":
		return NewPostgres(ctx, cfg)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
