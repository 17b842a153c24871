// Package resilience provides a circuit breaker for calls that leave
// the process, such as bundle downloads.
//
// The breaker cycles closed -> open -> half-open: failures trip it
// open, the open state rejects immediately until ResetAfter elapses,
// then a limited number of probe requests decide whether to close it
// again.
//
// Example Usage:
//
//	br := resilience.New("app-install", resilience.Config{
//	    TripWhen: func(s resilience.Stats) bool { return s.ConsecutiveFailures >= 5 },
//	})
//	body, err := br.Do(func() (any, error) { return fetch(url) })
package resilience
