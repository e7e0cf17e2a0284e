package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/brightpath/studycoach/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It exists for
// local development and tests; production runs against Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS classes (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS class_enrollments (
	user_id  TEXT NOT NULL,
	class_id TEXT NOT NULL REFERENCES classes(id),
	PRIMARY KEY (user_id, class_id)
);

CREATE TABLE IF NOT EXISTS tracks (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lessons (
	id       TEXT PRIMARY KEY,
	title    TEXT NOT NULL,
	track_id TEXT NOT NULL REFERENCES tracks(id)
);

CREATE TABLE IF NOT EXISTS lesson_completions (
	user_id      TEXT NOT NULL,
	lesson_id    TEXT NOT NULL REFERENCES lessons(id),
	completed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (user_id, lesson_id)
);

CREATE TABLE IF NOT EXISTS lesson_attempts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	lesson_id  TEXT NOT NULL REFERENCES lessons(id),
	weaknesses TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_enrollments_user ON class_enrollments(user_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_class ON class_enrollments(class_id);
CREATE INDEX IF NOT EXISTS idx_completions_user ON lesson_completions(user_id);
CREATE INDEX IF NOT EXISTS idx_lessons_track ON lessons(track_id);
CREATE INDEX IF NOT EXISTS idx_attempts_user ON lesson_attempts(user_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return eris.Wrapf(ErrQuery, "sqlite ping: %v", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// placeholders builds a "?, ?, ?" list for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ids []uuid.UUID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return args
}

func (s *SQLiteStore) queryUUIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(ErrQuery, "sqlite query: %v", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrapf(ErrQuery, "sqlite scan: %v", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, eris.Wrapf(ErrQuery, "sqlite parse id: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrQuery, "sqlite rows: %v", err)
	}
	return ids, nil
}

func (s *SQLiteStore) ClassIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.queryUUIDs(ctx,
		`SELECT class_id FROM class_enrollments WHERE user_id = ?`,
		userID.String())
}

func (s *SQLiteStore) PeersInClasses(ctx context.Context, classIDs []uuid.UUID, exclude uuid.UUID) ([]uuid.UUID, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}

	query := `SELECT DISTINCT user_id FROM class_enrollments
		WHERE class_id IN (` + placeholders(len(classIDs)) + `) AND user_id <> ?`
	args := append(toArgs(classIDs), exclude.String())
	return s.queryUUIDs(ctx, query, args...)
}

func (s *SQLiteStore) CompletedTrackIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.queryUUIDs(ctx,
		`SELECT DISTINCT l.track_id
		 FROM lesson_completions lc
		 JOIN lessons l ON l.id = lc.lesson_id
		 WHERE lc.user_id = ?`,
		userID.String())
}

func (s *SQLiteStore) TopTracksByCompletions(ctx context.Context, userIDs []uuid.UUID, excludeTracks []uuid.UUID, limit int) ([]model.TrackRecommendation, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`SELECT t.id, t.title, COUNT(*) AS completions
		FROM lesson_completions lc
		JOIN lessons l ON l.id = lc.lesson_id
		JOIN tracks t ON t.id = l.track_id
		WHERE lc.user_id IN (` + placeholders(len(userIDs)) + `)`)
	args := toArgs(userIDs)

	if len(excludeTracks) > 0 {
		sb.WriteString(` AND t.id NOT IN (` + placeholders(len(excludeTracks)) + `)`)
		args = append(args, toArgs(excludeTracks)...)
	}

	sb.WriteString(` GROUP BY t.id, t.title ORDER BY completions DESC, t.id ASC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, eris.Wrapf(ErrQuery, "sqlite top tracks: %v", err)
	}
	defer rows.Close()

	var recs []model.TrackRecommendation
	for rows.Next() {
		var rawID string
		var rec model.TrackRecommendation
		if err := rows.Scan(&rawID, &rec.Title, &rec.Completions); err != nil {
			return nil, eris.Wrapf(ErrQuery, "sqlite scan track: %v", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, eris.Wrapf(ErrQuery, "sqlite parse track id: %v", err)
		}
		rec.ID = id
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrQuery, "sqlite track rows: %v", err)
	}
	return recs, nil
}

func (s *SQLiteStore) WeaknessRecords(ctx context.Context, userID uuid.UUID) ([]model.WeaknessRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT weaknesses FROM lesson_attempts
		 WHERE user_id = ?
		 ORDER BY created_at ASC, id ASC`,
		userID.String())
	if err != nil {
		return nil, eris.Wrapf(ErrQuery, "sqlite weaknesses: %v", err)
	}
	defer rows.Close()

	var records []model.WeaknessRecord
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrapf(ErrQuery, "sqlite scan weaknesses: %v", err)
		}
		var data []byte
		if raw.Valid {
			data = []byte(raw.String)
		}
		value, err := model.ParseWeaknessValue(data)
		if err != nil {
			return nil, eris.Wrapf(ErrQuery, "sqlite decode weaknesses: %v", err)
		}
		records = append(records, model.WeaknessRecord{Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrQuery, "sqlite weakness rows: %v", err)
	}
	return records, nil
}
