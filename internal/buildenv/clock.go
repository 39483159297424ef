package buildenv

import (
	"os"
	"strconv"
	"time"
)

// Clock is a scoped, explicitly-constructed replacement for the teacher's
// package-level sync.Once timestamp singleton (see DESIGN.md — "No global
// state leaks"). One Clock is built in main and threaded through the
// Environment; every hewgsym build date in a single invocation reads the
// same instant. The installer's snapshot timestamp clamp does not read it.
type Clock struct {
	instant time.Time
}

// NewClock captures the current instant once. If SOURCE_DATE_EPOCH is set,
// it's honored the same way the teacher's reproducible.Now did, letting
// callers pin artifact timestamps for diffable test fixtures even though
// full reproducible builds are out of scope (spec.md §1 Non-goals).
func NewClock() Clock {
	if secs, err := strconv.ParseInt(os.Getenv("SOURCE_DATE_EPOCH"), 10, 64); err == nil {
		return Clock{instant: time.Unix(secs, 0)}
	}
	return Clock{instant: time.Now()}
}

// Now returns the instant this Clock was constructed with.
func (c Clock) Now() time.Time { return c.instant }
