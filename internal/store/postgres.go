package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/darescore/dare/pkg/notify"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

// Postgres is a Store backed by Postgres.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects to dsn, verifies the connection and optionally
// applies migrations.
func OpenPostgres(ctx context.Context, dsn string, migrate bool) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if migrate {
		if err := AutoMigrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return NewPostgres(db), nil
}

// DB exposes the underlying handle.
func (s *Postgres) DB() *sql.DB { return s.db }

func (s *Postgres) Close() error { return s.db.Close() }

func notFound(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *Postgres) CreateCandidate(ctx context.Context, name, email string) (*Candidate, error) {
	if name == "" {
		return nil, fmt.Errorf("create candidate: %w: name is required", ErrInvalid)
	}
	c := &Candidate{}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO candidates (name, email)
		 VALUES ($1, $2)
		 RETURNING id, name, email, created_at`,
		name, email,
	).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create candidate: %w", err)
	}
	return c, nil
}

func (s *Postgres) GetCandidate(ctx context.Context, id string) (*Candidate, error) {
	c := &Candidate{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM candidates WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "get candidate %s", id)
	}
	return c, nil
}

func (s *Postgres) ListCandidates(ctx context.Context) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, created_at FROM candidates ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCandidate removes the candidate; foreign keys cascade to the rest.
func (s *Postgres) DeleteCandidate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete candidate %s: %w", id, err)
	}
	return requireRow(res, "delete candidate "+id)
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func (s *Postgres) UpsertConnection(ctx context.Context, c Connection) (*Connection, error) {
	if !c.Platform.Valid() || c.Username == "" {
		return nil, fmt.Errorf("upsert connection: %w: platform and username are required", ErrInvalid)
	}
	if _, err := s.GetCandidate(ctx, c.CandidateID); err != nil {
		return nil, fmt.Errorf("upsert connection: %w", err)
	}
	out := &Connection{}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO connections (candidate_id, platform, username)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (candidate_id, platform) DO UPDATE
		   SET username = EXCLUDED.username,
		       connected_at = now()
		 RETURNING candidate_id, platform, username, connected_at`,
		c.CandidateID, string(c.Platform), c.Username,
	).Scan(&out.CandidateID, &out.Platform, &out.Username, &out.ConnectedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert connection %s: %w", c.Platform, err)
	}
	return out, nil
}

func (s *Postgres) ListConnections(ctx context.Context, candidateID string) ([]Connection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_id, platform, username, connected_at
		 FROM connections WHERE candidate_id = $1`,
		candidateID,
	)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var out []Connection
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.CandidateID, &c.Platform, &c.Username, &c.ConnectedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	sortConnections(out)
	return out, nil
}

func (s *Postgres) DeleteConnection(ctx context.Context, candidateID string, p platform.Platform) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM connections WHERE candidate_id = $1 AND platform = $2`,
		candidateID, string(p),
	)
	if err != nil {
		return fmt.Errorf("delete connection %s: %w", p, err)
	}
	if err := requireRow(res, fmt.Sprintf("delete connection %s/%s", candidateID, p)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM platform_metrics WHERE candidate_id = $1 AND platform = $2`,
		candidateID, string(p),
	); err != nil {
		return fmt.Errorf("delete cached metrics %s: %w", p, err)
	}
	return tx.Commit()
}

func (s *Postgres) GetCachedMetrics(ctx context.Context, candidateID string, p platform.Platform) (*CachedMetrics, error) {
	c := &CachedMetrics{}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT candidate_id, platform, metrics, error, fetched_at, expires_at
		 FROM platform_metrics WHERE candidate_id = $1 AND platform = $2`,
		candidateID, string(p),
	).Scan(&c.CandidateID, &c.Platform, &raw, &c.Error, &c.FetchedAt, &c.ExpiresAt)
	if err != nil {
		return nil, notFound(err, "cached metrics %s/%s", candidateID, p)
	}
	if len(raw) > 0 {
		var m platform.Metrics
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode cached metrics %s: %w", p, err)
		}
		c.Metrics = &m
	}
	return c, nil
}

func (s *Postgres) PutCachedMetrics(ctx context.Context, c CachedMetrics) error {
	// JSON goes over the wire as text; lib/pq would send []byte as binary.
	var metrics any
	if c.Metrics != nil {
		raw, err := json.Marshal(c.Metrics)
		if err != nil {
			return fmt.Errorf("encode cached metrics %s: %w", c.Platform, err)
		}
		metrics = string(raw)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO platform_metrics (candidate_id, platform, metrics, error, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (candidate_id, platform) DO UPDATE
		   SET metrics = EXCLUDED.metrics,
		       error = EXCLUDED.error,
		       fetched_at = EXCLUDED.fetched_at,
		       expires_at = EXCLUDED.expires_at`,
		c.CandidateID, string(c.Platform), metrics, c.Error, c.FetchedAt, c.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("put cached metrics %s: %w", c.Platform, err)
	}
	return nil
}

func (s *Postgres) PutManualEntry(ctx context.Context, e ManualEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO manual_entries (candidate_id, platform, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (candidate_id, platform) DO UPDATE
		   SET payload = EXCLUDED.payload,
		       submitted_at = now()`,
		e.CandidateID, string(e.Platform), string(e.Payload),
	)
	if err != nil {
		return fmt.Errorf("put manual entry %s: %w", e.Platform, err)
	}
	return nil
}

func (s *Postgres) GetManualEntry(ctx context.Context, candidateID string, p platform.Platform) (*ManualEntry, error) {
	e := &ManualEntry{}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT candidate_id, platform, payload, submitted_at
		 FROM manual_entries WHERE candidate_id = $1 AND platform = $2`,
		candidateID, string(p),
	).Scan(&e.CandidateID, &e.Platform, &raw, &e.SubmittedAt)
	if err != nil {
		return nil, notFound(err, "manual entry %s/%s", candidateID, p)
	}
	e.Payload = raw
	return e, nil
}

// AppendSnapshot inserts one snapshot row; there is no update path.
func (s *Postgres) AppendSnapshot(ctx context.Context, sc scoring.CompositeScore) error {
	if err := validateSnapshot(sc); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO score_snapshots (id, candidate_id, overall, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		sc.ID, sc.CandidateID, sc.Overall, string(payload), sc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append snapshot for %s: %w", sc.CandidateID, err)
	}
	return nil
}

func (s *Postgres) LatestSnapshot(ctx context.Context, candidateID string) (*scoring.CompositeScore, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM score_snapshots
		 WHERE candidate_id = $1
		 ORDER BY seq DESC LIMIT 1`,
		candidateID,
	).Scan(&raw)
	if err != nil {
		return nil, notFound(err, "latest snapshot %s", candidateID)
	}
	var sc scoring.CompositeScore
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &sc, nil
}

// ListSnapshots returns snapshots for a candidate, newest first.
func (s *Postgres) ListSnapshots(ctx context.Context, candidateID string, limit int) ([]scoring.CompositeScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM score_snapshots
		 WHERE candidate_id = $1
		 ORDER BY seq DESC LIMIT $2`,
		candidateID, ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []scoring.CompositeScore
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var sc scoring.CompositeScore
		if err := json.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveNotification(ctx context.Context, ev notify.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, candidate_id, kind, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.CandidateID, string(ev.Kind), string(payload), ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save notification %s: %w", ev.ID, err)
	}
	return nil
}

func (s *Postgres) ListNotifications(ctx context.Context, candidateID string, limit int) ([]notify.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM notifications
		 WHERE candidate_id = $1
		 ORDER BY seq DESC LIMIT $2`,
		candidateID, ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []notify.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		var ev notify.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
