package config

import (
	"sync"
	"testing"
)

func TestRuntime_GroupID(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(-5000)
	if got := rt.GroupID(); got != -5000 {
		t.Fatalf("expected -5000, got %d", got)
	}

	rt.SetGroupID(0)
	if got := rt.GroupID(); got != 0 {
		t.Fatalf("expected requirement cleared, got %d", got)
	}
}

func TestRuntime_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			rt.SetGroupID(id)
		}(int64(i))
		go func() {
			defer wg.Done()
			_ = rt.GroupID()
		}()
	}
	wg.Wait()
}
