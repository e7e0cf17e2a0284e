package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/brightpath/studycoach/internal/config"
	"github.com/brightpath/studycoach/internal/db"
	"github.com/brightpath/studycoach/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS classes (
	id    UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS class_enrollments (
	user_id  UUID NOT NULL,
	class_id UUID NOT NULL REFERENCES classes(id),
	PRIMARY KEY (user_id, class_id)
);

CREATE TABLE IF NOT EXISTS tracks (
	id    UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lessons (
	id       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title    TEXT NOT NULL,
	track_id UUID NOT NULL REFERENCES tracks(id)
);

CREATE TABLE IF NOT EXISTS lesson_completions (
	user_id      UUID NOT NULL,
	lesson_id    UUID NOT NULL REFERENCES lessons(id),
	completed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, lesson_id)
);

CREATE TABLE IF NOT EXISTS lesson_attempts (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id    UUID NOT NULL,
	lesson_id  UUID NOT NULL REFERENCES lessons(id),
	weaknesses JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_enrollments_user ON class_enrollments(user_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_class ON class_enrollments(class_id);
CREATE INDEX IF NOT EXISTS idx_completions_user ON lesson_completions(user_id);
CREATE INDEX IF NOT EXISTS idx_lessons_track ON lessons(track_id);
CREATE INDEX IF NOT EXISTS idx_attempts_user ON lesson_attempts(user_id);
`

// Migrate bootstraps the schema. In production these tables belong to the
// main platform; this exists for local development and integration tests.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return eris.Wrapf(ErrQuery, "ping: %v", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ClassIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT class_id FROM class_enrollments WHERE user_id = $1`,
		userID)
	if err != nil {
		return nil, eris.Wrapf(ErrQuery, "class ids for user: %v", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrapf(ErrQuery, "scan class id: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrQuery, "class ids rows: %v", err)
	}
	return ids, nil
}

func (s *PostgresStore) PeersInClasses(ctx context.Context, classIDs []uuid.UUID, exclude uuid.UUID) ([]uuid.UUID, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM class_enrollments
		 WHERE class_id = ANY($1::uuid[]) AND user_id <> $2`,
		uuidStrings(classIDs), exclude)
	if err != nil {
		return nil, eris.Wrapf(ErrQuery, "peers in classes: %v", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrapf(ErrQuery, "scan peer id: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrQuery, "peers rows: %v", err)
	}
	return ids, nil
}

func (s *PostgresStore) CompletedTrackIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT l.track_id
		 FROM lesson_completions lc
		 JOIN lessons l ON l.id = lc.lesson_id
		 WHERE lc.user_id = $1`,
		userID)
	if err != nil {
		return nil, eris.Wrapf(ErrQuery, "completed tracks: %v", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrapf(ErrQuery, "scan track id: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrQuery, "completed tracks rows: %v", err)
	}
	return ids, nil
}

func (s *PostgresStore) TopTracksByCompletions(ctx context.Context, userIDs []uuid.UUID, excludeTracks []uuid.UUID, limit int) ([]model.TrackRecommendation, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	// ANY over an empty array matches nothing, so an empty exclusion list
	// needs no special casing.
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.title, COUNT(*) AS completions
		 FROM lesson_completions lc
		 JOIN lessons l ON l.id = lc.lesson_id
		 JOIN tracks t ON t.id = l.track_id
		 WHERE lc.user_id = ANY($1::uuid[])
		   AND NOT (t.id = ANY($2::uuid[]))
		 GROUP BY t.id, t.title
		 ORDER BY completions DESC, t.id ASC
		 LIMIT $3`,
		uuidStrings(userIDs), uuidStrings(excludeTracks), limit)
	if err != nil {
		return nil, eris.Wrapf(ErrQuery, "top tracks: %v", err)
	}
	defer rows.Close()

	var recs []model.TrackRecommendation
	for rows.Next() {
		var rec model.TrackRecommendation
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Completions); err != nil {
			return nil, eris.Wrapf(ErrQuery, "scan track row: %v", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrQuery, "top tracks rows: %v", err)
	}
	return recs, nil
}

func (s *PostgresStore) WeaknessRecords(ctx context.Context, userID uuid.UUID) ([]model.WeaknessRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT weaknesses FROM lesson_attempts
		 WHERE user_id = $1
		 ORDER BY created_at ASC, id ASC`,
		userID)
	if err != nil {
		return nil, eris.Wrapf(ErrQuery, "weakness records: %v", err)
	}
	defer rows.Close()

	var records []model.WeaknessRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrapf(ErrQuery, "scan weaknesses: %v", err)
		}
		value, err := model.ParseWeaknessValue(raw)
		if err != nil {
			return nil, eris.Wrapf(ErrQuery, "decode weaknesses: %v", err)
		}
		records = append(records, model.WeaknessRecord{Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrQuery, "weakness rows: %v", err)
	}
	return records, nil
}
