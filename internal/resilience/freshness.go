// Package resilience classifies forecast freshness and schedules retries.
// Everything here is a pure function of its inputs so the policies stay
// unit-testable without a network or a real clock.
package resilience

import (
	"fmt"
	"time"
)

// Policy fixes the freshness thresholds. The zero value is unusable; use
// DefaultPolicy or derive one from the configured refresh interval.
type Policy struct {
	// StaleAfter is the age at which a bundle stops being Fresh.
	StaleAfter time.Duration
	// OfflineAfter is the age ceiling past which the app is Offline even
	// without a failure streak.
	OfflineAfter time.Duration
	// OfflineFailures is the consecutive-failure count that forces Offline.
	OfflineFailures int
}

// DefaultPolicy matches the shipped refresh cadence: stale at 10 minutes,
// offline at 30 minutes or three straight failures.
func DefaultPolicy() Policy {
	return Policy{
		StaleAfter:      10 * time.Minute,
		OfflineAfter:    30 * time.Minute,
		OfflineFailures: 3,
	}
}

// PolicyForInterval scales the stale threshold with the refresh interval,
// clamped to the default minimum so aggressive intervals don't flap.
func PolicyForInterval(interval time.Duration) Policy {
	p := DefaultPolicy()
	if interval > p.StaleAfter {
		p.StaleAfter = interval
	}
	if 3*p.StaleAfter > p.OfflineAfter {
		p.OfflineAfter = 3 * p.StaleAfter
	}
	return p
}

// Level is the qualitative freshness classification.
type Level int

const (
	Fresh Level = iota
	Stale
	Offline
)

func (l Level) String() string {
	switch l {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "offline"
	}
}

// Status is the freshness verdict plus the data that produced it. It is
// recomputed on demand and never stored.
type Status struct {
	Level    Level
	Age      time.Duration // time since last success; 0 when never succeeded
	HasAge   bool
	Failures int
}

// Label renders the status for the dashboard header.
func (s Status) Label() string {
	switch s.Level {
	case Fresh:
		return "Fresh"
	case Stale:
		if s.HasAge {
			return fmt.Sprintf("Stale (%s)", formatAge(s.Age))
		}
		return "Stale"
	default:
		if s.Failures > 0 {
			return fmt.Sprintf("Offline (%d failures)", s.Failures)
		}
		return "Offline"
	}
}

// Evaluate classifies freshness from the time of the last success and the
// current consecutive-failure count. Equal inputs always yield equal output.
func (p Policy) Evaluate(now time.Time, lastSuccess time.Time, failures int) Status {
	if lastSuccess.IsZero() {
		level := Stale
		if failures >= p.OfflineFailures {
			level = Offline
		}
		return Status{Level: level, Failures: failures}
	}

	age := now.Sub(lastSuccess)
	st := Status{Age: age, HasAge: true, Failures: failures}
	switch {
	case age >= p.OfflineAfter || failures >= p.OfflineFailures:
		st.Level = Offline
	case age >= p.StaleAfter || failures >= 1:
		st.Level = Stale
	default:
		st.Level = Fresh
	}
	return st
}

func formatAge(age time.Duration) string {
	if age < time.Minute {
		return fmt.Sprintf("%ds", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm", int(age.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(age.Hours()), int(age.Minutes())%60)
}
