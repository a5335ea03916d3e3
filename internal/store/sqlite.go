package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/darescore/dare/pkg/notify"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

type candidateRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string
	CreatedAt time.Time
}

func (candidateRow) TableName() string { return "candidates" }

type connectionRow struct {
	CandidateID string `gorm:"primaryKey"`
	Platform    string `gorm:"primaryKey"`
	Username    string `gorm:"not null"`
	ConnectedAt time.Time
}

func (connectionRow) TableName() string { return "connections" }

type metricsRow struct {
	CandidateID string `gorm:"primaryKey"`
	Platform    string `gorm:"primaryKey"`
	Metrics     *string
	Error       string
	FetchedAt   time.Time
	ExpiresAt   time.Time
}

func (metricsRow) TableName() string { return "platform_metrics" }

type manualRow struct {
	CandidateID string `gorm:"primaryKey"`
	Platform    string `gorm:"primaryKey"`
	Payload     string `gorm:"not null"`
	SubmittedAt time.Time
}

func (manualRow) TableName() string { return "manual_entries" }

type snapshotRow struct {
	Seq         int64  `gorm:"primaryKey;autoIncrement"`
	ID          string `gorm:"uniqueIndex;not null"`
	CandidateID string `gorm:"index;not null"`
	Overall     int
	Payload     string `gorm:"not null"`
	CreatedAt   time.Time
}

func (snapshotRow) TableName() string { return "score_snapshots" }

type notificationRow struct {
	Seq         int64  `gorm:"primaryKey;autoIncrement"`
	ID          string `gorm:"uniqueIndex;not null"`
	CandidateID string `gorm:"index;not null"`
	Kind        string
	Payload     string `gorm:"not null"`
	CreatedAt   time.Time
}

func (notificationRow) TableName() string { return "notifications" }

// SQLite is a Store backed by an embedded SQLite file, for single-node
// deployments and the CLI.
type SQLite struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and migrates
// its tables. Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" databases
	// shared across calls.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := configureSQLite(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := db.AutoMigrate(
		&candidateRow{},
		&connectionRow{},
		&metricsRow{},
		&manualRow{},
		&snapshotRow{},
		&notificationRow{},
	); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func configureSQLite(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("run %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormNotFound(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *SQLite) requireCandidate(db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(&candidateRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("candidate %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) CreateCandidate(ctx context.Context, name, email string) (*Candidate, error) {
	if name == "" {
		return nil, fmt.Errorf("create candidate: %w: name is required", ErrInvalid)
	}
	row := candidateRow{ID: uuid.NewString(), Name: name, Email: email, CreatedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create candidate: %w", err)
	}
	c := candidateFromRow(row)
	return &c, nil
}

func (s *SQLite) GetCandidate(ctx context.Context, id string) (*Candidate, error) {
	var row candidateRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, gormNotFound(err, "get candidate %s", id)
	}
	c := candidateFromRow(row)
	return &c, nil
}

func (s *SQLite) ListCandidates(ctx context.Context) ([]Candidate, error) {
	var rows []candidateRow
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	out := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, candidateFromRow(r))
	}
	return out, nil
}

// DeleteCandidate removes the candidate and every dependent row in one
// transaction.
func (s *SQLite) DeleteCandidate(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&candidateRow{})
		if res.Error != nil {
			return fmt.Errorf("delete candidate %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete candidate %s: %w", id, ErrNotFound)
		}
		for _, model := range []any{
			&connectionRow{}, &metricsRow{}, &manualRow{}, &snapshotRow{}, &notificationRow{},
		} {
			if err := tx.Where("candidate_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("delete candidate %s: %w", id, err)
			}
		}
		return nil
	})
}

func (s *SQLite) UpsertConnection(ctx context.Context, c Connection) (*Connection, error) {
	if !c.Platform.Valid() || c.Username == "" {
		return nil, fmt.Errorf("upsert connection: %w: platform and username are required", ErrInvalid)
	}
	db := s.db.WithContext(ctx)
	if err := s.requireCandidate(db, c.CandidateID); err != nil {
		return nil, fmt.Errorf("upsert connection: %w", err)
	}
	row := connectionRow{
		CandidateID: c.CandidateID,
		Platform:    string(c.Platform),
		Username:    c.Username,
		ConnectedAt: s.now().UTC(),
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("upsert connection %s: %w", c.Platform, err)
	}
	out := connectionFromRow(row)
	return &out, nil
}

func (s *SQLite) ListConnections(ctx context.Context, candidateID string) ([]Connection, error) {
	var rows []connectionRow
	if err := s.db.WithContext(ctx).Where("candidate_id = ?", candidateID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	var out []Connection
	for _, r := range rows {
		out = append(out, connectionFromRow(r))
	}
	sortConnections(out)
	return out, nil
}

func (s *SQLite) DeleteConnection(ctx context.Context, candidateID string, p platform.Platform) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("candidate_id = ? AND platform = ?", candidateID, string(p)).Delete(&connectionRow{})
		if res.Error != nil {
			return fmt.Errorf("delete connection %s: %w", p, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete connection %s/%s: %w", candidateID, p, ErrNotFound)
		}
		if err := tx.Where("candidate_id = ? AND platform = ?", candidateID, string(p)).Delete(&metricsRow{}).Error; err != nil {
			return fmt.Errorf("delete cached metrics %s: %w", p, err)
		}
		return nil
	})
}

func (s *SQLite) GetCachedMetrics(ctx context.Context, candidateID string, p platform.Platform) (*CachedMetrics, error) {
	var row metricsRow
	err := s.db.WithContext(ctx).
		Where("candidate_id = ? AND platform = ?", candidateID, string(p)).
		Take(&row).Error
	if err != nil {
		return nil, gormNotFound(err, "cached metrics %s/%s", candidateID, p)
	}
	c := &CachedMetrics{
		CandidateID: row.CandidateID,
		Platform:    platform.Platform(row.Platform),
		Error:       row.Error,
		FetchedAt:   row.FetchedAt,
		ExpiresAt:   row.ExpiresAt,
	}
	if row.Metrics != nil {
		var m platform.Metrics
		if err := json.Unmarshal([]byte(*row.Metrics), &m); err != nil {
			return nil, fmt.Errorf("decode cached metrics %s: %w", p, err)
		}
		c.Metrics = &m
	}
	return c, nil
}

func (s *SQLite) PutCachedMetrics(ctx context.Context, c CachedMetrics) error {
	db := s.db.WithContext(ctx)
	if err := s.requireCandidate(db, c.CandidateID); err != nil {
		return fmt.Errorf("put cached metrics: %w", err)
	}
	row := metricsRow{
		CandidateID: c.CandidateID,
		Platform:    string(c.Platform),
		Error:       c.Error,
		FetchedAt:   c.FetchedAt,
		ExpiresAt:   c.ExpiresAt,
	}
	if c.Metrics != nil {
		raw, err := json.Marshal(c.Metrics)
		if err != nil {
			return fmt.Errorf("encode cached metrics %s: %w", c.Platform, err)
		}
		encoded := string(raw)
		row.Metrics = &encoded
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("put cached metrics %s: %w", c.Platform, err)
	}
	return nil
}

func (s *SQLite) PutManualEntry(ctx context.Context, e ManualEntry) error {
	db := s.db.WithContext(ctx)
	if err := s.requireCandidate(db, e.CandidateID); err != nil {
		return fmt.Errorf("put manual entry: %w", err)
	}
	row := manualRow{
		CandidateID: e.CandidateID,
		Platform:    string(e.Platform),
		Payload:     string(e.Payload),
		SubmittedAt: e.SubmittedAt,
	}
	if row.SubmittedAt.IsZero() {
		row.SubmittedAt = s.now().UTC()
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("put manual entry %s: %w", e.Platform, err)
	}
	return nil
}

func (s *SQLite) GetManualEntry(ctx context.Context, candidateID string, p platform.Platform) (*ManualEntry, error) {
	var row manualRow
	err := s.db.WithContext(ctx).
		Where("candidate_id = ? AND platform = ?", candidateID, string(p)).
		Take(&row).Error
	if err != nil {
		return nil, gormNotFound(err, "manual entry %s/%s", candidateID, p)
	}
	return &ManualEntry{
		CandidateID: row.CandidateID,
		Platform:    platform.Platform(row.Platform),
		Payload:     json.RawMessage(row.Payload),
		SubmittedAt: row.SubmittedAt,
	}, nil
}

func (s *SQLite) AppendSnapshot(ctx context.Context, sc scoring.CompositeScore) error {
	if err := validateSnapshot(sc); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	db := s.db.WithContext(ctx)
	if err := s.requireCandidate(db, sc.CandidateID); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	row := snapshotRow{
		ID:          sc.ID,
		CandidateID: sc.CandidateID,
		Overall:     sc.Overall,
		Payload:     string(payload),
		CreatedAt:   sc.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("append snapshot for %s: %w", sc.CandidateID, err)
	}
	return nil
}

func (s *SQLite) LatestSnapshot(ctx context.Context, candidateID string) (*scoring.CompositeScore, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("seq DESC").
		Take(&row).Error
	if err != nil {
		return nil, gormNotFound(err, "latest snapshot %s", candidateID)
	}
	var sc scoring.CompositeScore
	if err := json.Unmarshal([]byte(row.Payload), &sc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &sc, nil
}

func (s *SQLite) ListSnapshots(ctx context.Context, candidateID string, limit int) ([]scoring.CompositeScore, error) {
	var rows []snapshotRow
	err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("seq DESC").
		Limit(ClampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]scoring.CompositeScore, 0, len(rows))
	for _, r := range rows {
		var sc scoring.CompositeScore
		if err := json.Unmarshal([]byte(r.Payload), &sc); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, sc)
	}
	return out, nil
}

func (s *SQLite) SaveNotification(ctx context.Context, ev notify.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	row := notificationRow{
		ID:          ev.ID,
		CandidateID: ev.CandidateID,
		Kind:        string(ev.Kind),
		Payload:     string(payload),
		CreatedAt:   ev.CreatedAt,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save notification %s: %w", ev.ID, err)
	}
	return nil
}

func (s *SQLite) ListNotifications(ctx context.Context, candidateID string, limit int) ([]notify.Event, error) {
	var rows []notificationRow
	err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("seq DESC").
		Limit(ClampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]notify.Event, 0, len(rows))
	for _, r := range rows {
		var ev notify.Event
		if err := json.Unmarshal([]byte(r.Payload), &ev); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func candidateFromRow(r candidateRow) Candidate {
	return Candidate{ID: r.ID, Name: r.Name, Email: r.Email, CreatedAt: r.CreatedAt}
}

func connectionFromRow(r connectionRow) Connection {
	return Connection{
		CandidateID: r.CandidateID,
		Platform:    platform.Platform(r.Platform),
		Username:    r.Username,
		ConnectedAt: r.ConnectedAt,
	}
}
