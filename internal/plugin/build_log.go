package plugin

import (
	"sync"
	"time"
)

// BuildLogEntry records the outcome of one orchestrated build.
type BuildLogEntry struct {
	Timestamp       time.Time     `json:"timestamp"`
	Plugin          string        `json:"plugin"`
	State           BuildState    `json:"state"`
	Duration        time.Duration `json:"durationNs"`
	BundleSizeBytes int64         `json:"bundleSizeBytes,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// BuildLog is a ring buffer of build outcomes.
type BuildLog struct {
	mu      sync.RWMutex
	entries []BuildLogEntry
	maxSize int
	head    int
	count   int
}

// NewBuildLog creates a build log holding at most maxSize entries.
func NewBuildLog(maxSize int) *BuildLog {
	if maxSize <= 0 {
		maxSize = 500
	}
	return &BuildLog{
		entries: make([]BuildLogEntry, maxSize),
		maxSize: maxSize,
	}
}

// Add appends an entry, evicting the oldest when full.
func (b *BuildLog) Add(entry BuildLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.maxSize
	if b.count < b.maxSize {
		b.count++
	}
}

// GetAll returns all entries, newest first.
func (b *BuildLog) GetAll() []BuildLogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]BuildLogEntry, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head - 1 - i + b.maxSize) % b.maxSize
		result[i] = b.entries[idx]
	}
	return result
}

// GetByPlugin returns entries for one plugin, newest first.
func (b *BuildLog) GetByPlugin(id string) []BuildLogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []BuildLogEntry{}
	for i := 0; i < b.count; i++ {
		idx := (b.head - 1 - i + b.maxSize) % b.maxSize
		if b.entries[idx].Plugin == id {
			result = append(result, b.entries[idx])
		}
	}
	return result
}

// Count returns the number of entries held.
func (b *BuildLog) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}
