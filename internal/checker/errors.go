package checker

import (
	"errors"
	"fmt"

	"github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

// ErrChecksFailed is returned by callers that turn a failed run into an
// exit status.
var ErrChecksFailed = errors.New("one or more checks failed")

// CheckError is the failure reported by a single check.
type CheckError struct {
	Category v1alpha1.FailureCategory
	Msg      string
}

func (e *CheckError) Error() string {
	return e.Msg
}

func missing(format string, args ...interface{}) error {
	return &CheckError{Category: v1alpha1.CategoryMissing, Msg: fmt.Sprintf(format, args...)}
}

func mismatch(format string, args ...interface{}) error {
	return &CheckError{Category: v1alpha1.CategoryMismatch, Msg: fmt.Sprintf(format, args...)}
}

// IsMissing reports whether err is a file or structure absence.
func IsMissing(err error) bool {
	return categoryOf(err) == v1alpha1.CategoryMissing
}

// IsMismatch reports whether err is a content or field mismatch.
func IsMismatch(err error) bool {
	return categoryOf(err) == v1alpha1.CategoryMismatch
}

func categoryOf(err error) v1alpha1.FailureCategory {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}
