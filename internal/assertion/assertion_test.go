package assertion

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Assertion
		wantError bool
	}{
		{
			name:  "global max response time",
			input: "global.response_time.max < 5000",
			want: Assertion{
				Metric:    MetricResponseTime,
				Aggregate: "max",
				Operator:  "<",
				Value:     5000,
				Raw:       "global.response_time.max < 5000",
			},
		},
		{
			name:  "success percent",
			input: "global.successful_requests.percent > 90",
			want: Assertion{
				Metric:    MetricSuccessfulRequests,
				Aggregate: "percent",
				Operator:  ">",
				Value:     90,
				Raw:       "global.successful_requests.percent > 90",
			},
		},
		{
			name:  "gatling camel case with word operator",
			input: "global.responseTime.percentile95 lt 800",
			want: Assertion{
				Metric:    MetricResponseTime,
				Aggregate: "p95",
				Operator:  "<",
				Value:     800,
				Raw:       "global.responseTime.percentile95 lt 800",
			},
		},
		{
			name:  "details scope with spaces",
			input: "details(Get Rooms).failed_requests.count <= 3",
			want: Assertion{
				Step:      "Get Rooms",
				Metric:    MetricFailedRequests,
				Aggregate: "count",
				Operator:  "<=",
				Value:     3,
				Raw:       "details(Get Rooms).failed_requests.count <= 3",
			},
		},
		{
			name:  "no spaces and decimal value",
			input: "global.all_requests.per_sec>=0.5",
			want: Assertion{
				Metric:    MetricAllRequests,
				Aggregate: "per_sec",
				Operator:  ">=",
				Value:     0.5,
				Raw:       "global.all_requests.per_sec>=0.5",
			},
		},
		{
			name:  "not equal",
			input: "global.failed_requests.count != 0",
			want: Assertion{
				Metric:    MetricFailedRequests,
				Aggregate: "count",
				Operator:  "!=",
				Value:     0,
				Raw:       "global.failed_requests.count != 0",
			},
		},
		{name: "empty string", input: "", wantError: true},
		{name: "missing scope", input: "response_time.max < 5", wantError: true},
		{name: "unknown metric", input: "global.latency.max < 5", wantError: true},
		{name: "aggregate of other metric", input: "global.successful_requests.max < 5", wantError: true},
		{name: "unknown operator", input: "global.response_time.max approx 5", wantError: true},
		{name: "empty details", input: "details().response_time.max < 5", wantError: true},
		{name: "non numeric value", input: "global.response_time.max < fast", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError {
				if err == nil {
					t.Fatalf("Parse(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAssertionString(t *testing.T) {
	a := MustParse("details(Login).successfulRequests.percent gte 95.5")
	if got := a.String(); got != "details(Login).successful_requests.percent >= 95.5" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseMultipleCollectsAllErrors(t *testing.T) {
	_, err := ParseMultiple([]string{
		"global.response_time.max < 5000",
		"bogus",
		"global.nope.count > 1",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "assertion[1]") || !strings.Contains(msg, "assertion[2]") {
		t.Errorf("error should name every bad assertion: %v", err)
	}

	got, err := ParseMultiple([]string{"global.response_time.max < 5000", "global.successful_requests.percent > 90"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d assertions, want 2", len(got))
	}

	none, err := ParseMultiple(nil)
	if err != nil || none != nil {
		t.Errorf("ParseMultiple(nil) = %v, %v", none, err)
	}
}
