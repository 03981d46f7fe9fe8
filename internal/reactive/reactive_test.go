package reactive

import (
	"errors"
	"sync"
	"testing"
)

func TestWritableSubscribeCallsImmediately(t *testing.T) {
	w := NewWritable("portrait")

	var got []string
	unsub := w.Subscribe(func(v string) { got = append(got, v) })
	defer unsub()

	if len(got) != 1 || got[0] != "portrait" {
		t.Fatalf("initial delivery = %v, want [portrait]", got)
	}

	w.Set("landscape")
	if len(got) != 2 || got[1] != "landscape" {
		t.Errorf("after Set = %v", got)
	}
}

func TestWritableNotifiesInSubscriptionOrder(t *testing.T) {
	w := NewWritable(0)

	var order []string
	w.Subscribe(func(int) { order = append(order, "a") })
	w.Subscribe(func(int) { order = append(order, "b") })
	w.Subscribe(func(int) { order = append(order, "c") })
	order = nil

	w.Set(1)

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestWritableUnsubscribe(t *testing.T) {
	w := NewWritable(0)

	calls := 0
	unsub := w.Subscribe(func(int) { calls++ })
	unsub()
	unsub() // idempotent

	w.Set(5)
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (initial only)", calls)
	}
	if w.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", w.Subscribers())
	}
}

func TestWritableUpdate(t *testing.T) {
	w := NewWritable(2)
	w.Update(func(v int) int { return v * 10 })
	if got := w.Get(); got != 20 {
		t.Errorf("Get() = %d, want 20", got)
	}
}

func TestWritableReentrantSet(t *testing.T) {
	w := NewWritable(0)

	// Clamp subscriber: writes back once, last write wins.
	w.Subscribe(func(v int) {
		if v > 10 {
			w.Set(10)
		}
	})

	w.Set(42)
	if got := w.Get(); got != 10 {
		t.Errorf("Get() = %d, want 10", got)
	}
}

func TestWritableUnsubscribeDuringNotify(t *testing.T) {
	w := NewWritable(0)

	var unsubA func()
	bCalls := 0
	unsubA = w.Subscribe(func(v int) {
		if v == 1 {
			unsubA()
		}
	})
	w.Subscribe(func(int) { bCalls++ })
	bCalls = 0

	w.Set(1)
	if bCalls != 1 {
		t.Errorf("second subscriber called %d times, want 1", bCalls)
	}
	if w.Subscribers() != 1 {
		t.Errorf("Subscribers() = %d, want 1", w.Subscribers())
	}
}

func TestWritableConcurrentSet(t *testing.T) {
	w := NewWritable(0)
	var mu sync.Mutex
	seen := 0
	w.Subscribe(func(int) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			w.Set(v)
		}(i)
	}
	wg.Wait()

	if seen != 51 {
		t.Errorf("seen = %d, want 51", seen)
	}
}

func TestDeriveRecomputesOncePerEmission(t *testing.T) {
	src := NewWritable([]int{1, 2})

	computes := 0
	d := Derive[[]int, int](src, func(xs []int) int {
		computes++
		sum := 0
		for _, x := range xs {
			sum += x
		}
		return sum
	})
	defer d.Close()

	if computes != 1 {
		t.Fatalf("computes after construction = %d, want 1", computes)
	}
	if d.Get() != 3 {
		t.Errorf("Get() = %d, want 3", d.Get())
	}

	var delivered []int
	d.Subscribe(func(v int) { delivered = append(delivered, v) })
	d.Subscribe(func(int) {})

	src.Set([]int{10, 20, 30})

	if computes != 2 {
		t.Errorf("computes = %d, want 2 (one per emission, not per subscriber)", computes)
	}
	if len(delivered) != 2 || delivered[1] != 60 {
		t.Errorf("delivered = %v, want [3 60]", delivered)
	}
}

func TestDeriveDeliversBeforeSetReturns(t *testing.T) {
	src := NewWritable("a")
	d := Derive[string, string](src, func(s string) string { return s + s })
	defer d.Close()

	var latest string
	d.Subscribe(func(v string) { latest = v })

	src.Set("b")
	// No synchronization needed: delivery is synchronous.
	if latest != "bb" {
		t.Errorf("latest = %q, want bb", latest)
	}
}

func TestDeriveClose(t *testing.T) {
	src := NewWritable(1)
	computes := 0
	d := Derive[int, int](src, func(v int) int {
		computes++
		return v + 1
	})

	d.Close()
	d.Close()
	src.Set(100)

	if computes != 1 {
		t.Errorf("computes after Close = %d, want 1", computes)
	}
	if d.Get() != 2 {
		t.Errorf("Get() after Close = %d, want last value 2", d.Get())
	}
	if src.Subscribers() != 0 {
		t.Errorf("source still has %d subscribers", src.Subscribers())
	}
}

func TestDeriveIgnoresUnrelatedWritable(t *testing.T) {
	records := NewWritable(0)
	filters := NewWritable("x")

	computes := 0
	d := Derive[int, int](records, func(v int) int {
		computes++
		return v
	})
	defer d.Close()

	filters.Set("y")
	filters.Set("z")

	if computes != 1 {
		t.Errorf("computes = %d, want 1", computes)
	}
}

func TestWritableCommit(t *testing.T) {
	w := NewWritable("a")
	notified := 0
	w.Subscribe(func(string) { notified++ })
	notified = 0

	err := w.Commit("b", func(string) error { return errFailed })
	if err != errFailed {
		t.Fatalf("Commit error = %v, want errFailed", err)
	}
	if w.Get() != "a" || notified != 0 {
		t.Errorf("failed Commit changed state: value=%q notified=%d", w.Get(), notified)
	}

	var persisted string
	if err := w.Commit("c", func(v string) error { persisted = v; return nil }); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if persisted != "c" || w.Get() != "c" || notified != 1 {
		t.Errorf("after Commit: persisted=%q value=%q notified=%d", persisted, w.Get(), notified)
	}
}

var errFailed = errors.New("write failed")
