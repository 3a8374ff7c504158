package engine

// ProgressFunc receives coarse progress checkpoints during a long
// conversion: fraction is in [0,1], message is a short human-readable
// phase description. The callback is a plain function call on the
// operation's goroutine — the engine assumes nothing about the execution
// context the caller needs, so callers marshal it themselves.
type ProgressFunc func(fraction float64, message string)

// progressInterval is how many records pass between intra-parse progress
// checkpoints.
const progressInterval = 100

// report invokes p when set. Codecs call this at their checkpoints rather
// than touching the callback directly.
func report(p ProgressFunc, fraction float64, message string) {
	if p == nil {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	p(fraction, message)
}
