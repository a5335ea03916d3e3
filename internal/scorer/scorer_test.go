package scorer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/pkg/logger"
	"github.com/darescore/dare/pkg/notify"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
)

// fakeProfiler serves a code-hosting-only profile with a settable score and
// records which assembly path was used.
type fakeProfiler struct {
	score float64
	calls []string
	err   error
}

func (f *fakeProfiler) profile(id string) (*platform.DigitalProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := platform.Metrics{Platform: platform.GitHub, Family: platform.FamilyCodeHosting, Overall: f.score}
	return platform.NewDigitalProfile(id, []platform.Metrics{m}, time.Now()), nil
}

func (f *fakeProfiler) AggregateProfile(_ context.Context, id string) (*platform.DigitalProfile, error) {
	f.calls = append(f.calls, "cached")
	return f.profile(id)
}

func (f *fakeProfiler) RefreshAllPlatformData(_ context.Context, id string) (*platform.DigitalProfile, error) {
	f.calls = append(f.calls, "refresh")
	return f.profile(id)
}

func (f *fakeProfiler) RefreshStale(_ context.Context, id string) (*platform.DigitalProfile, error) {
	f.calls = append(f.calls, "stale")
	return f.profile(id)
}

func setup(t *testing.T) (*Service, *fakeProfiler, *store.Memory, string) {
	t.Helper()
	st := store.NewMemory()
	c, err := st.CreateCandidate(context.Background(), "ada", "")
	if err != nil {
		t.Fatalf("CreateCandidate: %v", err)
	}
	prof := &fakeProfiler{}
	svc := New(st, prof, WithSink(notify.StoreSink{W: st}), WithLogger(logger.Nop()))
	return svc, prof, st, c.ID
}

func TestScoreSequence(t *testing.T) {
	convey.Convey("Given a candidate scored 50, 50 and then 70", t, func() {
		svc, prof, st, id := setup(t)
		ctx := context.Background()

		var updates []Update
		for _, score := range []float64{50, 50, 70} {
			prof.score = score
			u, err := svc.CalculateAndStoreScore(ctx, id)
			convey.So(err, convey.ShouldBeNil)
			updates = append(updates, u)
		}

		convey.Convey("Then the first score has no previous and no score event", func() {
			convey.So(updates[0].Previous, convey.ShouldBeNil)
			convey.So(updates[0].Changed, convey.ShouldBeFalse)
			convey.So(updates[0].ChangeAmount, convey.ShouldEqual, updates[0].Current.Overall)
			convey.So(updates[0].ChangeAmount, convey.ShouldEqual, 50)
			for _, ev := range updates[0].Events {
				convey.So(ev.Kind, convey.ShouldEqual, notify.KindNewRecommendations)
			}
		})

		convey.Convey("Then the unchanged second score emits nothing", func() {
			convey.So(updates[1].Changed, convey.ShouldBeFalse)
			convey.So(updates[1].ChangeAmount, convey.ShouldEqual, 0)
			convey.So(updates[1].Events, convey.ShouldBeEmpty)
		})

		convey.Convey("Then the third score is an improvement of 20", func() {
			convey.So(updates[2].Changed, convey.ShouldBeTrue)
			convey.So(updates[2].ChangeAmount, convey.ShouldEqual, 20)
			convey.So(updates[2].Previous.Overall, convey.ShouldEqual, 50)
			convey.So(updates[2].Events[0].Kind, convey.ShouldEqual, notify.KindScoreImproved)
		})

		convey.Convey("Then history is newest first and current is the last", func() {
			history, err := svc.GetScoreHistory(ctx, id, 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(history), convey.ShouldEqual, 3)
			convey.So(history[0].Overall, convey.ShouldEqual, 70)
			convey.So(history[2].Overall, convey.ShouldEqual, 50)

			cur, err := svc.CurrentScore(ctx, id)
			convey.So(err, convey.ShouldBeNil)
			convey.So(cur.ID, convey.ShouldEqual, updates[2].Current.ID)
		})

		convey.Convey("Then the improvement was persisted through the sink", func() {
			events, err := st.ListNotifications(ctx, id, 0)
			convey.So(err, convey.ShouldBeNil)
			kinds := map[notify.Kind]int{}
			for _, ev := range events {
				kinds[ev.Kind]++
			}
			convey.So(kinds[notify.KindScoreImproved], convey.ShouldEqual, 1)
			convey.So(kinds[notify.KindScoreDeclined], convey.ShouldEqual, 0)
		})
	})
}

func TestWeights(t *testing.T) {
	svc, _, _, _ := setup(t)

	if svc.GetWeights() != scoring.DefaultWeights() {
		t.Errorf("initial weights = %+v, want defaults", svc.GetWeights())
	}

	half := 0.5
	got, err := svc.SetWeights(scoring.PartialWeights{CodeHosting: &half})
	if err != nil {
		t.Fatalf("SetWeights: %v", err)
	}
	if got.CodeHosting != 0.5 || got.ProfessionalNetwork != scoring.DefaultWeights().ProfessionalNetwork {
		t.Errorf("SetWeights = %+v, want only code hosting changed", got)
	}

	neg := -1.0
	if _, err := svc.SetWeights(scoring.PartialWeights{ShortFormSocial: &neg}); !errors.Is(err, scoring.ErrInvalidWeights) {
		t.Errorf("err = %v, want ErrInvalidWeights", err)
	}
	if svc.GetWeights().ShortFormSocial != scoring.DefaultWeights().ShortFormSocial {
		t.Error("rejected update must leave weights unchanged")
	}
}

func TestCalculateOptions(t *testing.T) {
	svc, prof, _, id := setup(t)
	ctx := context.Background()
	prof.score = 82

	custom := scoring.Weights{CodeHosting: 1}
	u, err := svc.CalculateAndStoreScore(ctx, id, WithWeights(custom), WithRefresh())
	if err != nil {
		t.Fatalf("CalculateAndStoreScore: %v", err)
	}
	if u.Current.Weights != custom {
		t.Errorf("Weights = %+v, want per-call override", u.Current.Weights)
	}
	if u.Current.Overall != 82 {
		t.Errorf("Overall = %d, want 82", u.Current.Overall)
	}
	if svc.GetWeights() != scoring.DefaultWeights() {
		t.Error("per-call weights must not change the process-wide weights")
	}

	if _, err := svc.CalculateAndStoreScore(ctx, id, WithStaleRefresh()); err != nil {
		t.Fatalf("CalculateAndStoreScore: %v", err)
	}
	if _, err := svc.CalculateAndStoreScore(ctx, id); err != nil {
		t.Fatalf("CalculateAndStoreScore: %v", err)
	}
	if fmt.Sprint(prof.calls) != "[refresh stale cached]" {
		t.Errorf("assembly calls = %v", prof.calls)
	}
}

func TestCalculateErrors(t *testing.T) {
	svc, prof, st, id := setup(t)
	ctx := context.Background()

	if _, err := svc.CalculateAndStoreScore(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown candidate err = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetScoreHistory(ctx, "missing", 5); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("history err = %v, want ErrNotFound", err)
	}
	if _, err := svc.CurrentScore(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("current score before any score err = %v, want ErrNotFound", err)
	}

	prof.err = errors.New("cache offline")
	if _, err := svc.CalculateAndStoreScore(ctx, id); err == nil {
		t.Error("expected the profile error to propagate")
	}
	if snaps, _ := st.ListSnapshots(ctx, id, 0); len(snaps) != 0 {
		t.Errorf("no snapshot should be written on failure, got %d", len(snaps))
	}
}

func TestSinkFailureDoesNotFailScore(t *testing.T) {
	st := store.NewMemory()
	c, _ := st.CreateCandidate(context.Background(), "ada", "")
	prof := &fakeProfiler{score: 40}
	failing := notify.SinkFunc(func(context.Context, notify.Event) error { return errors.New("smtp down") })
	svc := New(st, prof, WithSink(failing), WithLogger(logger.Nop()))

	if _, err := svc.CalculateAndStoreScore(context.Background(), c.ID); err != nil {
		t.Fatalf("sink failure leaked: %v", err)
	}
}

func TestStoredHook(t *testing.T) {
	st := store.NewMemory()
	c, _ := st.CreateCandidate(context.Background(), "ada", "")
	var got []int
	svc := New(st, &fakeProfiler{score: 64}, WithLogger(logger.Nop()),
		WithStoredHook(func(s scoring.CompositeScore) { got = append(got, s.Overall) }))

	if _, err := svc.CalculateAndStoreScore(context.Background(), c.ID); err != nil {
		t.Fatalf("CalculateAndStoreScore: %v", err)
	}
	if len(got) != 1 || got[0] != 64 {
		t.Errorf("hook saw %v, want [64]", got)
	}
}
