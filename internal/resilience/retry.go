package resilience

import "time"

// RetryState tracks the active failure streak. It is mutated only through
// the methods below, and only by the state machine goroutine.
type RetryState struct {
	LastSuccess   time.Time
	LastAttempt   time.Time
	NextRetryAt   time.Time
	Failures      int
	LastErrorKind string
}

// MarkAttempt records that a fetch was started and clears any pending retry.
func (r *RetryState) MarkAttempt(now time.Time) {
	r.LastAttempt = now
	r.NextRetryAt = time.Time{}
}

// MarkSuccess resets the streak. Any success, manual or scheduled, clears
// the failure count and the retry window.
func (r *RetryState) MarkSuccess(now time.Time) {
	r.LastAttempt = now
	r.LastSuccess = now
	r.NextRetryAt = time.Time{}
	r.Failures = 0
	r.LastErrorKind = ""
}

// MarkFailure extends the streak. The attempt count is monotonic within a
// streak; only MarkSuccess resets it.
func (r *RetryState) MarkFailure(now time.Time, errKind string) {
	r.LastAttempt = now
	r.Failures++
	r.LastErrorKind = errKind
}

// ScheduleRetry records when the next automatic attempt becomes eligible.
func (r *RetryState) ScheduleRetry(now time.Time, delay time.Duration) {
	r.NextRetryAt = now.Add(delay)
}

// RetryEligible reports whether an automatic refresh may run. Manual
// refreshes bypass this gate.
func (r *RetryState) RetryEligible(now time.Time) bool {
	return r.NextRetryAt.IsZero() || !now.Before(r.NextRetryAt)
}

// RetryIn reports the remaining wait before the next automatic attempt.
func (r *RetryState) RetryIn(now time.Time) (time.Duration, bool) {
	if r.NextRetryAt.IsZero() {
		return 0, false
	}
	d := r.NextRetryAt.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}
