package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordScoreChange(t *testing.T) {
	up := testutil.ToFloat64(scoreChanges.WithLabelValues("up"))
	down := testutil.ToFloat64(scoreChanges.WithLabelValues("down"))

	RecordScoreChange(20)
	RecordScoreChange(-3)
	RecordScoreChange(0)

	if got := testutil.ToFloat64(scoreChanges.WithLabelValues("up")); got != up+1 {
		t.Errorf("up = %v, want %v", got, up+1)
	}
	if got := testutil.ToFloat64(scoreChanges.WithLabelValues("down")); got != down+1 {
		t.Errorf("down = %v, want %v", got, down+1)
	}
}

func TestRecordFetch(t *testing.T) {
	before := testutil.ToFloat64(platformFetches.WithLabelValues("github", FetchFailed))
	RecordFetch("github", FetchFailed, 0.25)
	if got := testutil.ToFloat64(platformFetches.WithLabelValues("github", FetchFailed)); got != before+1 {
		t.Errorf("fetches = %v, want %v", got, before+1)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordScoreComputed(71)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dare_scoring_scores_computed_total") {
		t.Errorf("expected scores_computed_total in exposition output")
	}
}
