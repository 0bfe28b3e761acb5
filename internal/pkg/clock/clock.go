package clock

import "time"

type Clock interface {
	Now() time.Time
}

// Real reads the wall clock in Location (UTC when nil).
type Real struct {
	Location *time.Location
}

func (r Real) Now() time.Time {
	if r.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(r.Location)
}

// Fixed always returns T. Used by tests and one-shot jobs.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }
