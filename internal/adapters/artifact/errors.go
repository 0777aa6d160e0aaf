package artifact

import (
	"errors"
	"fmt"
)

// Sentinel kinds for artifact errors.
var (
	ErrNoModel  = errors.New("no model committed")
	ErrCorrupt  = errors.New("corrupt artifact")
	ErrArtifact = errors.New("artifact io")
)

// IOError wraps a filesystem failure during commit or load.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("artifact io: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target matches the artifact io sentinel.
func (e *IOError) Is(target error) bool { return target == ErrArtifact }

// SchemaMismatchError reports an inconsistency between the persisted schema
// and the other members of the triple.
type SchemaMismatchError struct {
	SchemaWidth int
	FoundWidth  int
	Member      string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: schema width %d, %s width %d", e.SchemaWidth, e.Member, e.FoundWidth)
}
