package variables

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestSession_SetGet(t *testing.T) {
	s := NewSession().Set("username", "john").Set("token", "abc123")

	value, ok := s.Get("username")
	if !ok {
		t.Fatal("expected to find 'username' key")
	}
	if value != "john" {
		t.Errorf("expected 'john', got %q", value)
	}

	value, ok = s.Get("token")
	if !ok || value != "abc123" {
		t.Errorf("expected 'abc123', got %q (ok=%v)", value, ok)
	}
}

func TestSession_SetDoesNotMutateReceiver(t *testing.T) {
	base := NewSession().Set("email", "a@example.com")
	next := base.Set("email", "b@example.com")

	if v, _ := base.Get("email"); v != "a@example.com" {
		t.Errorf("base session mutated: got %q", v)
	}
	if v, _ := next.Get("email"); v != "b@example.com" {
		t.Errorf("next session = %q, want b@example.com", v)
	}
}

func TestSession_GetMissing(t *testing.T) {
	s := NewSession().Set("username", "john")

	value, ok := s.Get("missing_key")
	if ok {
		t.Errorf("expected ok=false for missing key, got ok=true with value %q", value)
	}
	if _, err := s.MustGet("missing_key"); !errors.Is(err, ErrUndefined) {
		t.Errorf("MustGet() error = %v, want ErrUndefined", err)
	}
}

func TestSession_MergeOverrides(t *testing.T) {
	s := NewSession().Set("id", "1").Set("name", "alice")
	merged := s.Merge(map[string]string{"id": "2", "role": "ADMIN"})

	want := map[string]string{"id": "2", "name": "alice", "role": "ADMIN"}
	got := merged.GetAll()
	if len(got) != len(want) {
		t.Fatalf("merged has %d vars, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("merged[%q] = %q, want %q", k, got[k], v)
		}
	}
	if v, _ := s.Get("id"); v != "1" {
		t.Errorf("original session mutated by Merge: id=%q", v)
	}
}

func TestSession_RemoveAndKeys(t *testing.T) {
	s := NewSession().Set("b", "2").Set("a", "1").Set("c", "3")
	s = s.Remove("b")

	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("Keys() = %v, want [a c]", keys)
	}
}

func TestSession_ZeroValueUsable(t *testing.T) {
	var s Session
	if s.Len() != 0 {
		t.Fatalf("zero session Len() = %d", s.Len())
	}
	s = s.Set("k", "v")
	if v, ok := s.Get("k"); !ok || v != "v" {
		t.Errorf("Get() = %q, %v", v, ok)
	}
}

func TestSession_ConcurrentDerivation(t *testing.T) {
	base := NewSession().Set("shared", "x")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			own := base.Set("own", string(rune('a'+i%26)))
			if _, ok := own.Get("shared"); !ok {
				t.Error("derived session lost shared value")
			}
		}(i)
	}
	wg.Wait()
	if base.Len() != 1 {
		t.Errorf("base session changed: %v", base.GetAll())
	}
}

func TestContextRoundTrip(t *testing.T) {
	s := NewSession().Set("userId", "42")
	ctx := NewContext(context.Background(), s)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected session in context")
	}
	if v, _ := got.Get("userId"); v != "42" {
		t.Errorf("userId = %q, want 42", v)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no session in empty context")
	}
}
