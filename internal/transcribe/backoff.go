package transcribe

import "time"

// maxBackoff caps the delay between retries regardless of attempt count.
const maxBackoff = 5 * time.Minute

// Backoff returns the delay to wait after the given zero-based failed
// attempt. The delay doubles each attempt starting from initial and is capped
// at five minutes.
func Backoff(initial time.Duration, attempt int) time.Duration {
	if initial <= 0 {
		return 0
	}
	d := initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
