package artifact

import "time"

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithVersionFn overrides how new version identifiers are minted.
func WithVersionFn(fn func() string) Option {
	return func(s *FileStore) {
		if fn != nil {
			s.versionFn = fn
		}
	}
}

// WithClock overrides the time source used for commit metadata.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}
