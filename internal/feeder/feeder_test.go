package feeder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestCSVFeederCircular(t *testing.T) {
	csvPath := writeFile(t, "users.csv", `email,password
alice@example.com,secret1
bob@example.com,secret2
charlie@example.com,secret3`)

	feeder, err := NewCSVFeeder(csvPath, StrategyCircular)
	if err != nil {
		t.Fatalf("NewCSVFeeder() error = %v", err)
	}
	defer feeder.Close()

	if feeder.Len() != 3 {
		t.Errorf("Len() = %d, want 3", feeder.Len())
	}

	ctx := context.Background()
	want := []string{"alice@example.com", "bob@example.com", "charlie@example.com", "alice@example.com"}
	for i, email := range want {
		rec, err := feeder.Next(ctx)
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if rec["email"] != email {
			t.Errorf("record %d email = %q, want %q", i, rec["email"], email)
		}
	}
}

func TestJSONFeederQueueExhausts(t *testing.T) {
	jsonPath := writeFile(t, "rooms.json", `[
		{"roomId": 1, "name": "Reading Room"},
		{"roomId": 2, "name": "Study Hall"}
	]`)

	feeder, err := NewJSONFeeder(jsonPath, StrategyQueue)
	if err != nil {
		t.Fatalf("NewJSONFeeder() error = %v", err)
	}
	defer feeder.Close()

	ctx := context.Background()
	rec1, err := feeder.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec1["roomId"] != "1" || rec1["name"] != "Reading Room" {
		t.Errorf("first record = %v", rec1)
	}
	if _, err := feeder.Next(ctx); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if _, err := feeder.Next(ctx); !errors.Is(err, ErrExhausted) {
		t.Errorf("Next() after last record error = %v, want ErrExhausted", err)
	}
}

func TestInlineRandom(t *testing.T) {
	records := []Record{{"date": "2026-01-01"}, {"date": "2026-01-02"}}
	feeder, err := NewInline(records, StrategyRandom)
	if err != nil {
		t.Fatalf("NewInline() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		rec, err := feeder.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if d := rec["date"]; d != "2026-01-01" && d != "2026-01-02" {
			t.Fatalf("unexpected record %v", rec)
		}
	}
}

func TestNewInlineRequiresRecords(t *testing.T) {
	if _, err := NewInline(nil, StrategyQueue); err == nil {
		t.Fatal("expected error for empty record set")
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "", want: StrategyQueue},
		{in: "queue", want: StrategyQueue},
		{in: "circular", want: StrategyCircular},
		{in: "random", want: StrategyRandom},
		{in: "shuffle", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFeederConcurrentAccess(t *testing.T) {
	// Create CSV with 100 records
	var rows []string
	rows = append(rows, "id,value")
	for i := 1; i <= 100; i++ {
		rows = append(rows, fmt.Sprintf("%d,value-%d", i, i))
	}
	csvPath := writeFile(t, "concurrent.csv", strings.Join(rows, "\n"))

	feeder, err := NewCSVFeeder(csvPath, StrategyQueue)
	if err != nil {
		t.Fatalf("NewCSVFeeder() error = %v", err)
	}
	defer feeder.Close()

	ctx := context.Background()
	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	recordsChan := make(chan Record, numGoroutines)
	errorsChan := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			rec, err := feeder.Next(ctx)
			if err != nil {
				errorsChan <- err
				return
			}
			recordsChan <- rec
		}()
	}

	wg.Wait()
	close(recordsChan)
	close(errorsChan)

	for err := range errorsChan {
		t.Errorf("Next() error = %v", err)
	}

	seen := make(map[string]bool)
	count := 0
	for rec := range recordsChan {
		count++
		if seen[rec["id"]] {
			t.Errorf("Duplicate record ID: %s", rec["id"])
		}
		seen[rec["id"]] = true
	}
	if count != numGoroutines {
		t.Errorf("Got %d records, want %d", count, numGoroutines)
	}
}

func TestFeederLoadErrors(t *testing.T) {
	if _, err := NewCSVFeeder("/nonexistent/path/file.csv", StrategyQueue); err == nil {
		t.Error("NewCSVFeeder() with missing file error = nil, want error")
	}
	if _, err := NewCSVFeeder(writeFile(t, "empty.csv", ""), StrategyQueue); err == nil {
		t.Error("NewCSVFeeder() with empty file error = nil, want error")
	}
	if _, err := NewCSVFeeder(writeFile(t, "header.csv", "a,b"), StrategyQueue); err == nil {
		t.Error("NewCSVFeeder() with header only error = nil, want error")
	}
	if _, err := NewJSONFeeder(writeFile(t, "invalid.json", `{invalid json`), StrategyQueue); err == nil {
		t.Error("NewJSONFeeder() with invalid JSON error = nil, want error")
	}
	if _, err := NewJSONFeeder(writeFile(t, "ok.json", `[{"a":"1"}]`), "sometimes"); err == nil {
		t.Error("NewJSONFeeder() with unknown strategy error = nil, want error")
	}
}

func TestFeederContextCancellation(t *testing.T) {
	feeder, err := NewInline([]Record{{"id": "1"}}, StrategyCircular)
	if err != nil {
		t.Fatalf("NewInline() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err = feeder.Next(ctx)
	if err != context.Canceled {
		t.Errorf("Next() with cancelled context error = %v, want context.Canceled", err)
	}
}
