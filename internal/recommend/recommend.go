// Package recommend ranks learning tracks for a user based on what their
// classmates complete.
package recommend

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brightpath/studycoach/internal/model"
	"github.com/brightpath/studycoach/internal/resilience"
	"github.com/brightpath/studycoach/internal/store"
)

// Limit is the number of track recommendations returned per user.
const Limit = 5

// Engine computes peer-based track recommendations: the user's classes
// define a peer group, and the tracks those peers complete most often are
// recommended, minus tracks the user already has completions in.
type Engine struct {
	store store.Store
	retry resilience.RetryConfig
}

// New creates a recommendation engine.
func New(st store.Store) *Engine {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("recommend", "store read")
	return &Engine{store: st, retry: retry}
}

// Recommend returns up to Limit tracks for the user, most-completed first.
// Ties on completion count break on track id ascending, so the same data
// always produces the same list. A user with no classes or no peers gets
// an empty slice, never nil.
func (e *Engine) Recommend(ctx context.Context, userID uuid.UUID) ([]model.TrackRecommendation, error) {
	classIDs, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) ([]uuid.UUID, error) {
		return e.store.ClassIDsForUser(ctx, userID)
	})
	if err != nil {
		return nil, eris.Wrap(err, "recommend: load classes")
	}
	if len(classIDs) == 0 {
		return []model.TrackRecommendation{}, nil
	}

	// The peer set and the user's own completions are independent reads.
	var peers, completed []uuid.UUID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		peers, err = resilience.DoVal(gctx, e.retry, func(ctx context.Context) ([]uuid.UUID, error) {
			return e.store.PeersInClasses(ctx, classIDs, userID)
		})
		if err != nil {
			return eris.Wrap(err, "recommend: load peers")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		completed, err = resilience.DoVal(gctx, e.retry, func(ctx context.Context) ([]uuid.UUID, error) {
			return e.store.CompletedTrackIDs(ctx, userID)
		})
		if err != nil {
			return eris.Wrap(err, "recommend: load completed tracks")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(peers) == 0 {
		return []model.TrackRecommendation{}, nil
	}

	tracks, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) ([]model.TrackRecommendation, error) {
		return e.store.TopTracksByCompletions(ctx, peers, completed, Limit)
	})
	if err != nil {
		return nil, eris.Wrap(err, "recommend: rank tracks")
	}
	if tracks == nil {
		tracks = []model.TrackRecommendation{}
	}

	zap.L().Debug("recommend: computed recommendations",
		zap.String("user_id", userID.String()),
		zap.Int("classes", len(classIDs)),
		zap.Int("peers", len(peers)),
		zap.Int("tracks", len(tracks)),
	)
	return tracks, nil
}
