package ledger

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewLedger_InvalidMax(t *testing.T) {
	if _, err := NewLedger(0); err == nil {
		t.Errorf("error: expected error for zero max attempts")
	}
}

func TestLedger_RecordFailure(t *testing.T) {
	l, err := NewLedger(3)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	key := Key{Tier: "retry", ID: "ORD-1"}

	for want := 1; want <= 3; want++ {
		if got := l.RecordFailure(key); got != want {
			t.Errorf("error: attempt %d recorded as %d", want, got)
		}
	}

	// clamped at max
	if got := l.RecordFailure(key); got != 3 {
		t.Errorf("error: counter exceeded max, got %d", got)
	}
	if l.Count(key) != 3 {
		t.Errorf("error: count should be 3, got %d", l.Count(key))
	}
}

func TestLedger_TiersAreIndependent(t *testing.T) {
	l, err := NewLedger(3)
	if err != nil {
		t.Fatalf("error: %v", err)
	}

	l.RecordFailure(Key{Tier: "retry", ID: "ORD-1"})
	l.RecordFailure(Key{Tier: "retry", ID: "ORD-1"})
	l.RecordFailure(Key{Tier: "error", ID: "ORD-1"})

	if l.Count(Key{Tier: "retry", ID: "ORD-1"}) != 2 {
		t.Errorf("error: retry counter should be 2")
	}
	if l.Count(Key{Tier: "error", ID: "ORD-1"}) != 1 {
		t.Errorf("error: error counter should be 1")
	}
	if l.Len() != 2 {
		t.Errorf("error: expected 2 counters, got %d", l.Len())
	}
}

func TestLedger_Reset(t *testing.T) {
	l, err := NewLedger(3)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	key := Key{Tier: "retry", ID: "ORD-1"}

	l.Reset(key)
	if l.Has(key) {
		t.Errorf("error: reset of absent key created it")
	}

	l.RecordFailure(key)
	if !l.Has(key) {
		t.Errorf("error: key should be present after failure")
	}

	l.Reset(key)
	if l.Has(key) || l.Count(key) != 0 || l.Len() != 0 {
		t.Errorf("error: key should be gone after reset")
	}

	if l.RecordFailure(key) != 1 {
		t.Errorf("error: counter should restart at 1 after reset")
	}
}

func TestLedger_Concurrent(t *testing.T) {
	const workers = 50
	const ids = 20

	l, err := NewLedger(workers)
	if err != nil {
		t.Fatalf("error: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < ids; i++ {
				l.RecordFailure(Key{Tier: "retry", ID: fmt.Sprintf("ORD-%d", i)})
			}
		}()
	}
	wg.Wait()

	if l.Len() != ids {
		t.Fatalf("error: expected %d counters, got %d", ids, l.Len())
	}
	for i := 0; i < ids; i++ {
		key := Key{Tier: "retry", ID: fmt.Sprintf("ORD-%d", i)}
		if l.Count(key) != workers {
			t.Errorf("error: %v counted %d, expected %d", key, l.Count(key), workers)
		}
	}
}
