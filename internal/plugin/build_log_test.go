package plugin

import (
	"fmt"
	"testing"
	"time"
)

func TestBuildLog(t *testing.T) {
	t.Run("default size", func(t *testing.T) {
		b := NewBuildLog(0)
		if b.maxSize != 500 {
			t.Errorf("expected default size 500, got %d", b.maxSize)
		}
	})

	t.Run("newest first", func(t *testing.T) {
		b := NewBuildLog(10)
		b.Add(BuildLogEntry{Plugin: "alpha", State: StateSucceeded})
		b.Add(BuildLogEntry{Plugin: "beta", State: StateFailed, Error: "boom"})

		all := b.GetAll()
		if len(all) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(all))
		}
		if all[0].Plugin != "beta" || all[1].Plugin != "alpha" {
			t.Errorf("wrong order: %+v", all)
		}
	})

	t.Run("wraps around", func(t *testing.T) {
		b := NewBuildLog(3)
		for i := 0; i < 5; i++ {
			b.Add(BuildLogEntry{Plugin: fmt.Sprintf("p%d", i), Timestamp: time.Unix(int64(i), 0)})
		}
		if b.Count() != 3 {
			t.Errorf("expected 3 entries, got %d", b.Count())
		}
		all := b.GetAll()
		if all[0].Plugin != "p4" || all[2].Plugin != "p2" {
			t.Errorf("unexpected entries after wrap: %+v", all)
		}
	})

	t.Run("by plugin", func(t *testing.T) {
		b := NewBuildLog(10)
		b.Add(BuildLogEntry{Plugin: "alpha", State: StateFailed})
		b.Add(BuildLogEntry{Plugin: "beta", State: StateSucceeded})
		b.Add(BuildLogEntry{Plugin: "alpha", State: StateSucceeded})

		alpha := b.GetByPlugin("alpha")
		if len(alpha) != 2 {
			t.Fatalf("expected 2 alpha entries, got %d", len(alpha))
		}
		if alpha[0].State != StateSucceeded {
			t.Errorf("newest alpha entry should be succeeded, got %q", alpha[0].State)
		}
		if got := b.GetByPlugin("gamma"); got == nil || len(got) != 0 {
			t.Errorf("unknown plugin should give an empty, non-nil slice, got %#v", got)
		}
	})
}
