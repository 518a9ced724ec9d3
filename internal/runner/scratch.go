package runner

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// ScratchTracker records the scratch databases a batch creates and whether
// each one was dropped again
type ScratchTracker struct {
	mu        sync.Mutex
	created   map[string]time.Time // database name -> creation time
	cleanedUp map[string]bool
}

// NewScratchTracker creates an empty tracker
func NewScratchTracker() *ScratchTracker {
	return &ScratchTracker{
		created:   make(map[string]time.Time),
		cleanedUp: make(map[string]bool),
	}
}

// Track records that a database has been created for a script
func (st *ScratchTracker) Track(dbName string, createdAt time.Time) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	// Names carry a random suffix; a collision means two scripts share a database
	if existingTime, exists := st.created[dbName]; exists {
		return fmt.Errorf("database name collision detected: %s already created at %v", dbName, existingTime)
	}
	st.created[dbName] = createdAt
	return nil
}

// MarkCleaned marks a database as dropped
func (st *ScratchTracker) MarkCleaned(dbName string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.cleanedUp[dbName] = true
}

// Leftovers returns the tracked databases that were never dropped, sorted
func (st *ScratchTracker) Leftovers() []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	var names []string
	for name := range st.created {
		if !st.cleanedUp[name] {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// ValidateCleanup verifies that all databases were properly cleaned up
func (st *ScratchTracker) ValidateCleanup() error {
	if left := st.Leftovers(); len(left) > 0 {
		return fmt.Errorf("scratch databases not cleaned up: %v", left)
	}
	return nil
}
