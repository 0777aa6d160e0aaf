package feedback

// Option applies a configuration option to the Log.
type Option func(*Log)

// WithoutSync skips the per-append fsync. Appends become cheaper at the cost
// of losing the tail of the log on a crash.
func WithoutSync() Option {
	return func(l *Log) {
		l.noSync = true
	}
}
