package portage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAborted        = errors.New("aborted")
	ErrAlreadyRunning = errors.New("already running")
	ErrMalformed      = errors.New("malformed input")
)

// NotFoundError scopes a missing file or directory to the tree or file that
// needed it.
type NotFoundError struct {
	What string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.What, e.Path)
}

func (e *NotFoundError) Cause() error { return ErrNotFound }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PartialFailureError reports the sources that failed while others succeeded.
type PartialFailureError struct {
	Failed map[string]error
}

func (e *PartialFailureError) Error() string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := []string{}
	for _, k := range keys {
		s = append(s, fmt.Sprintf("%s: %v", k, e.Failed[k]))
	}
	return "partial failure: " + strings.Join(s, "; ")
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
