package observability_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sneaker_hub/internal/adapters/observability"
	"sneaker_hub/internal/domain"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	observability.ObserveHTTP("/api/sneakers/{pid}", "GET", 200, 12*time.Millisecond)
	observability.ObserveOp("create", nil, 3*time.Millisecond)
	observability.ObserveArtifactCleanup("failed")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, want := range []string{
		"sneakers_http_requests_total",
		`sneakers_listing_ops_total{op="create",outcome="ok"} 1`,
		`sneakers_artifact_cleanups_total{result="failed"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output", want)
		}
	}
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":                nil,
		"not_found":         domain.NotFound("gone"),
		"unauthorized":      domain.Unauthorized("no"),
		"geocoding_failure": domain.GeocodingFailure("bad address", errors.New("zero results")),
		"transient_failure": errors.New("boom"),
	}
	for want, err := range cases {
		if got := observability.Outcome(err); got != want {
			t.Errorf("Outcome(%v) = %q, want %q", err, got, want)
		}
	}
}
