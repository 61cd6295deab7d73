package stage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"

	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/tools"
)

// Error taxonomy for stage invocations
var (
	// ErrToolMissing means a required external capability is unavailable.
	ErrToolMissing = errors.New("required tool missing")
	// ErrTimeout means one invocation exceeded its budget.
	ErrTimeout = errors.New("stage timed out")
	// ErrStage covers process-level and transport failures.
	ErrStage = errors.New("stage failed")
	// ErrParse means the tool produced output but none of it was usable.
	ErrParse = errors.New("stage output could not be parsed")
	// ErrInterrupted means the run was cancelled by the user.
	ErrInterrupted = errors.New("interrupted")
)

// Error is a classified stage failure
type Error struct {
	Kind  models.StageKind
	Input string
	Class error
	Err   error
}

func (e *Error) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Kind, e.Input, e.Class, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Kind, e.Class, e.Err)
}

// Unwrap exposes both the class sentinel and the underlying cause
func (e *Error) Unwrap() []error {
	return []error{e.Class, e.Err}
}

// classify maps a raw invocation error onto the taxonomy. parent is the run
// context; a cancelled parent means interruption rather than timeout.
func classify(parent context.Context, kind models.StageKind, input string, err error) error {
	if err == nil {
		return nil
	}

	var class error
	switch {
	case errors.Is(err, exec.ErrNotFound), isMissingBinary(err):
		class = ErrToolMissing
	case parent.Err() != nil:
		class = ErrInterrupted
	case errors.Is(err, context.DeadlineExceeded):
		class = ErrTimeout
	case errors.Is(err, tools.ErrMalformedOutput):
		class = ErrParse
	default:
		class = ErrStage
	}

	return &Error{Kind: kind, Input: input, Class: class, Err: err}
}

// isMissingBinary catches explicit binary paths that do not exist, which
// exec reports as a path error rather than ErrNotFound.
func isMissingBinary(err error) bool {
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	return errors.Is(pathErr.Err, fs.ErrNotExist) && pathErr.Op == "fork/exec"
}

// IsFatal reports whether err must abort the whole run
func IsFatal(err error) bool {
	return errors.Is(err, ErrToolMissing)
}
