package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/darescore/dare/pkg/notify"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	lite, err := OpenSQLite(filepath.Join(t.TempDir(), "dare.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = lite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func eachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func mustCandidate(t *testing.T, s Store, name string) *Candidate {
	t.Helper()
	c, err := s.CreateCandidate(context.Background(), name, name+"@example.com")
	if err != nil {
		t.Fatalf("CreateCandidate: %v", err)
	}
	return c
}

func snap(id, candidateID string, overall int) scoring.CompositeScore {
	return scoring.CompositeScore{
		ID:              id,
		CandidateID:     candidateID,
		Overall:         overall,
		Recommendations: []string{"Publish public repositories to showcase your work"},
		CreatedAt:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCandidateLifecycle(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := mustCandidate(t, s, "ada")
		if c.ID == "" {
			t.Fatal("expected a generated id")
		}

		got, err := s.GetCandidate(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetCandidate: %v", err)
		}
		if got.Name != "ada" || got.Email != "ada@example.com" {
			t.Errorf("GetCandidate = %+v", got)
		}

		list, err := s.ListCandidates(ctx)
		if err != nil {
			t.Fatalf("ListCandidates: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("ListCandidates len = %d, want 1", len(list))
		}

		if err := s.DeleteCandidate(ctx, c.ID); err != nil {
			t.Fatalf("DeleteCandidate: %v", err)
		}
		if _, err := s.GetCandidate(ctx, c.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetCandidate after delete err = %v, want ErrNotFound", err)
		}
		if err := s.DeleteCandidate(ctx, c.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second DeleteCandidate err = %v, want ErrNotFound", err)
		}
	})
}

func TestCreateCandidateRequiresName(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		if _, err := s.CreateCandidate(context.Background(), "", ""); !errors.Is(err, ErrInvalid) {
			t.Errorf("err = %v, want ErrInvalid", err)
		}
	})
}

func TestConnections(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := mustCandidate(t, s, "grace")

		for _, conn := range []Connection{
			{CandidateID: c.ID, Platform: platform.Twitter, Username: "grace_h"},
			{CandidateID: c.ID, Platform: platform.GitHub, Username: "grace"},
			{CandidateID: c.ID, Platform: platform.GitHub, Username: "grace-hopper"},
		} {
			if _, err := s.UpsertConnection(ctx, conn); err != nil {
				t.Fatalf("UpsertConnection(%s): %v", conn.Platform, err)
			}
		}

		list, err := s.ListConnections(ctx, c.ID)
		if err != nil {
			t.Fatalf("ListConnections: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("ListConnections len = %d, want 2", len(list))
		}
		if list[0].Platform != platform.GitHub || list[0].Username != "grace-hopper" {
			t.Errorf("first connection = %+v, want upserted github", list[0])
		}
		if list[1].Platform != platform.Twitter {
			t.Errorf("second connection = %s, want twitter", list[1].Platform)
		}

		if _, err := s.UpsertConnection(ctx, Connection{CandidateID: "missing", Platform: platform.GitHub, Username: "x"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("upsert for missing candidate err = %v, want ErrNotFound", err)
		}
		if _, err := s.UpsertConnection(ctx, Connection{CandidateID: c.ID, Platform: "myspace", Username: "x"}); !errors.Is(err, ErrInvalid) {
			t.Errorf("upsert unknown platform err = %v, want ErrInvalid", err)
		}
	})
}

func TestDeleteConnectionDropsCache(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := mustCandidate(t, s, "linus")
		if _, err := s.UpsertConnection(ctx, Connection{CandidateID: c.ID, Platform: platform.GitHub, Username: "torvalds"}); err != nil {
			t.Fatalf("UpsertConnection: %v", err)
		}
		now := time.Now().UTC()
		if err := s.PutCachedMetrics(ctx, CachedMetrics{
			CandidateID: c.ID,
			Platform:    platform.GitHub,
			Metrics:     &platform.Metrics{Platform: platform.GitHub, Family: platform.FamilyCodeHosting, Overall: 90},
			FetchedAt:   now,
			ExpiresAt:   now.Add(time.Hour),
		}); err != nil {
			t.Fatalf("PutCachedMetrics: %v", err)
		}

		if err := s.DeleteConnection(ctx, c.ID, platform.GitHub); err != nil {
			t.Fatalf("DeleteConnection: %v", err)
		}
		if _, err := s.GetCachedMetrics(ctx, c.ID, platform.GitHub); !errors.Is(err, ErrNotFound) {
			t.Errorf("cache after disconnect err = %v, want ErrNotFound", err)
		}
		if err := s.DeleteConnection(ctx, c.ID, platform.GitHub); !errors.Is(err, ErrNotFound) {
			t.Errorf("second DeleteConnection err = %v, want ErrNotFound", err)
		}
	})
}

func TestCachedMetricsRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := mustCandidate(t, s, "barbara")
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

		m := &platform.Metrics{
			Platform:        platform.DevTo,
			Family:          platform.FamilyLongFormContent,
			Overall:         61.5,
			SubScores:       []platform.SubScore{{Key: "consistency", Name: "Consistency", Score: 50, Weight: 0.25}},
			Breakdown:       map[string]float64{"posts_per_month": 2},
			Recommendations: []string{"Publish on a more regular schedule"},
		}
		if err := s.PutCachedMetrics(ctx, CachedMetrics{
			CandidateID: c.ID, Platform: platform.DevTo, Metrics: m,
			FetchedAt: now, ExpiresAt: now.Add(24 * time.Hour),
		}); err != nil {
			t.Fatalf("PutCachedMetrics: %v", err)
		}
		if err := s.PutCachedMetrics(ctx, CachedMetrics{
			CandidateID: c.ID, Platform: platform.Medium, Error: "profile not found",
			FetchedAt: now, ExpiresAt: now.Add(24 * time.Hour),
		}); err != nil {
			t.Fatalf("PutCachedMetrics failed entry: %v", err)
		}

		got, err := s.GetCachedMetrics(ctx, c.ID, platform.DevTo)
		if err != nil {
			t.Fatalf("GetCachedMetrics: %v", err)
		}
		if got.Failed() || got.Metrics.Overall != 61.5 || got.Metrics.Breakdown["posts_per_month"] != 2 {
			t.Errorf("GetCachedMetrics = %+v", got.Metrics)
		}
		if !got.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
			t.Errorf("ExpiresAt = %v", got.ExpiresAt)
		}
		if got.Expired(now) || !got.Expired(now.Add(25*time.Hour)) {
			t.Error("Expired does not honour ExpiresAt")
		}

		failed, err := s.GetCachedMetrics(ctx, c.ID, platform.Medium)
		if err != nil {
			t.Fatalf("GetCachedMetrics failed entry: %v", err)
		}
		if !failed.Failed() || failed.Error != "profile not found" {
			t.Errorf("failed entry = %+v", failed)
		}

		if _, err := s.GetCachedMetrics(ctx, c.ID, platform.Hashnode); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing entry err = %v, want ErrNotFound", err)
		}
	})
}

func TestManualEntries(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := mustCandidate(t, s, "margaret")
		payload := json.RawMessage(`{"profile":{"headline":"Engineer"}}`)
		if err := s.PutManualEntry(ctx, ManualEntry{CandidateID: c.ID, Platform: platform.LinkedIn, Payload: payload}); err != nil {
			t.Fatalf("PutManualEntry: %v", err)
		}
		got, err := s.GetManualEntry(ctx, c.ID, platform.LinkedIn)
		if err != nil {
			t.Fatalf("GetManualEntry: %v", err)
		}
		if string(got.Payload) != string(payload) {
			t.Errorf("Payload = %s, want %s", got.Payload, payload)
		}
		if got.SubmittedAt.IsZero() {
			t.Error("SubmittedAt should be set")
		}
		if _, err := s.GetManualEntry(ctx, c.ID, platform.Twitter); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing manual entry err = %v, want ErrNotFound", err)
		}
	})
}

func TestSnapshotsNewestFirst(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := mustCandidate(t, s, "ken")

		if _, err := s.LatestSnapshot(ctx, c.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("LatestSnapshot on empty history err = %v, want ErrNotFound", err)
		}

		for i, overall := range []int{50, 50, 70} {
			if err := s.AppendSnapshot(ctx, snap(fmt.Sprintf("s%d", i), c.ID, overall)); err != nil {
				t.Fatalf("AppendSnapshot %d: %v", i, err)
			}
		}

		latest, err := s.LatestSnapshot(ctx, c.ID)
		if err != nil {
			t.Fatalf("LatestSnapshot: %v", err)
		}
		if latest.ID != "s2" || latest.Overall != 70 {
			t.Errorf("LatestSnapshot = %s/%d, want s2/70", latest.ID, latest.Overall)
		}

		all, err := s.ListSnapshots(ctx, c.ID, 0)
		if err != nil {
			t.Fatalf("ListSnapshots: %v", err)
		}
		var ids []string
		for _, sc := range all {
			ids = append(ids, sc.ID)
		}
		if fmt.Sprint(ids) != "[s2 s1 s0]" {
			t.Errorf("ListSnapshots order = %v, want [s2 s1 s0]", ids)
		}
		if len(all[0].Recommendations) != 1 {
			t.Errorf("snapshot payload lost recommendations: %+v", all[0])
		}

		two, err := s.ListSnapshots(ctx, c.ID, 2)
		if err != nil {
			t.Fatalf("ListSnapshots(2): %v", err)
		}
		if len(two) != 2 || two[0].ID != "s2" {
			t.Errorf("ListSnapshots(2) = %d items", len(two))
		}

		if err := s.AppendSnapshot(ctx, scoring.CompositeScore{CandidateID: c.ID}); !errors.Is(err, ErrInvalid) {
			t.Errorf("snapshot without id err = %v, want ErrInvalid", err)
		}
		if err := s.AppendSnapshot(ctx, snap("orphan", "missing", 10)); !errors.Is(err, ErrNotFound) {
			t.Errorf("snapshot for missing candidate err = %v, want ErrNotFound", err)
		}
	})
}

func TestNotificationsDeduplicate(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := mustCandidate(t, s, "dennis")
		prevScore := 50
		ev := notify.Event{
			ID:            notify.EventID("snap-1", notify.KindScoreImproved),
			CandidateID:   c.ID,
			SnapshotID:    "snap-1",
			Kind:          notify.KindScoreImproved,
			PreviousScore: &prevScore,
			CurrentScore:  70,
			ChangeAmount:  20,
			CreatedAt:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		}
		for range 2 {
			if err := s.SaveNotification(ctx, ev); err != nil {
				t.Fatalf("SaveNotification: %v", err)
			}
		}
		list, err := s.ListNotifications(ctx, c.ID, 10)
		if err != nil {
			t.Fatalf("ListNotifications: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("ListNotifications len = %d, want 1", len(list))
		}
		if list[0].ChangeAmount != 20 || *list[0].PreviousScore != 50 {
			t.Errorf("notification = %+v", list[0])
		}
	})
}

func TestDeleteCandidateCascades(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := mustCandidate(t, s, "bjarne")
		other := mustCandidate(t, s, "guido")
		for _, id := range []string{c.ID, other.ID} {
			if _, err := s.UpsertConnection(ctx, Connection{CandidateID: id, Platform: platform.GitHub, Username: "u"}); err != nil {
				t.Fatalf("UpsertConnection: %v", err)
			}
			if err := s.AppendSnapshot(ctx, snap("snap-"+id, id, 40)); err != nil {
				t.Fatalf("AppendSnapshot: %v", err)
			}
		}

		if err := s.DeleteCandidate(ctx, c.ID); err != nil {
			t.Fatalf("DeleteCandidate: %v", err)
		}
		if conns, _ := s.ListConnections(ctx, c.ID); len(conns) != 0 {
			t.Errorf("connections survived delete: %v", conns)
		}
		if snaps, _ := s.ListSnapshots(ctx, c.ID, 0); len(snaps) != 0 {
			t.Errorf("snapshots survived delete: %d", len(snaps))
		}
		if conns, _ := s.ListConnections(ctx, other.ID); len(conns) != 1 {
			t.Errorf("other candidate lost connections: %v", conns)
		}
	})
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultHistoryLimit},
		{-5, DefaultHistoryLimit},
		{7, 7},
		{MaxHistoryLimit, MaxHistoryLimit},
		{MaxHistoryLimit + 1, MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOpenSQLiteMemory(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	c := mustCandidate(t, s, "alan")
	if _, err := s.GetCandidate(context.Background(), c.ID); err != nil {
		t.Errorf("GetCandidate: %v", err)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DARE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DARE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pg, err := OpenPostgres(ctx, dsn, true)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer pg.Close()

	c := mustCandidate(t, pg, "postgres")
	defer func() { _ = pg.DeleteCandidate(ctx, c.ID) }()

	for i, overall := range []int{50, 70} {
		if err := pg.AppendSnapshot(ctx, snap(fmt.Sprintf("%s-%d", c.ID, i), c.ID, overall)); err != nil {
			t.Fatalf("AppendSnapshot: %v", err)
		}
	}
	latest, err := pg.LatestSnapshot(ctx, c.ID)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest.Overall != 70 {
		t.Errorf("LatestSnapshot overall = %d, want 70", latest.Overall)
	}
	if _, err := pg.GetCandidate(ctx, "not-a-candidate"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCandidate err = %v, want ErrNotFound", err)
	}
}

func TestNewPostgres(t *testing.T) {
	// NewPostgres only stores the handle.
	if NewPostgres(nil).DB() != nil {
		t.Error("expected nil handle")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("memory driver returned %T", s)
	}

	s, err = Open(ctx, Options{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "dare.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if _, ok := s.(*SQLite); !ok {
		t.Errorf("sqlite driver returned %T", s)
	}
	_ = s.Close()

	if _, err := Open(ctx, Options{Driver: "postgres"}); err == nil {
		t.Error("postgres without url should fail")
	}
	if _, err := Open(ctx, Options{Driver: "cassandra"}); err == nil {
		t.Error("unknown driver should fail")
	}
}

func TestSnapshotsAreIsolatedFromCallers(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := mustCandidate(t, s, "grace")

		code := 60.0
		in := snap("s0", c.ID, 60)
		in.Families.CodeHosting = &code
		if err := s.AppendSnapshot(ctx, in); err != nil {
			t.Fatalf("AppendSnapshot: %v", err)
		}
		want := in.Recommendations[0]
		in.Recommendations[0] = "changed after append"
		code = 10

		got, err := s.LatestSnapshot(ctx, c.ID)
		if err != nil {
			t.Fatalf("LatestSnapshot: %v", err)
		}
		if got.Recommendations[0] != want {
			t.Errorf("stored recommendation = %q, want %q", got.Recommendations[0], want)
		}
		if got.Families.CodeHosting == nil || *got.Families.CodeHosting != 60 {
			t.Errorf("stored code-hosting score = %v, want 60", got.Families.CodeHosting)
		}
		got.Recommendations[0] = "changed after read"

		list, err := s.ListSnapshots(ctx, c.ID, 0)
		if err != nil {
			t.Fatalf("ListSnapshots: %v", err)
		}
		if list[0].Recommendations[0] != want {
			t.Errorf("listed recommendation = %q, want %q", list[0].Recommendations[0], want)
		}
	})
}
