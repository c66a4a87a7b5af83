package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExporterCollect(t *testing.T) {
	c := NewCollector(nil)
	c.UserStarted()
	c.Record(Outcome{Step: "a", Duration: 10 * time.Millisecond, Success: true, StatusCode: 200})
	c.Record(Outcome{Step: "a", Duration: 20 * time.Millisecond, StatusCode: 500})
	c.Record(Outcome{Step: "a", Duration: 30 * time.Millisecond, Success: true, StatusCode: 200})

	exp := NewExporter(c)
	if n := testutil.CollectAndCount(exp); n != 7 {
		t.Errorf("CollectAndCount() = %d, want 7", n)
	}

	expected := `
# HELP surgefire_requests_total Requests executed by virtual users.
# TYPE surgefire_requests_total counter
surgefire_requests_total{outcome="ko"} 1
surgefire_requests_total{outcome="ok"} 2
# HELP surgefire_users_active Virtual users currently running a scenario.
# TYPE surgefire_users_active gauge
surgefire_users_active 1
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"surgefire_requests_total", "surgefire_users_active"); err != nil {
		t.Error(err)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	c := NewCollector(nil)
	c.Record(Outcome{Step: "a", Duration: time.Millisecond, Success: true, StatusCode: 200})

	srv := httptest.NewServer(Handler(c))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `surgefire_requests_total{outcome="ok"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", body)
	}
}
