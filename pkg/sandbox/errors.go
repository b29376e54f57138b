package sandbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// ErrMissingObject marks an engine error caused by a table, view or column that
// does not exist in the sandbox. It is a limitation of simulating without the
// real schema, not a defect in the statement.
var ErrMissingObject = errors.New("object does not exist in sandbox")

// ErrClosed is returned when a closed sandbox is used
var ErrClosed = errors.New("sandbox is closed")

// Error codes carried by EngineError
const (
	CodeOpenFailed    = "OPEN_FAILED"
	CodeSeedFailed    = "SEED_FAILED"
	CodeMissingObject = "MISSING_OBJECT"
	CodeExecFailed    = "EXEC_FAILED"
	CodeQueryFailed   = "QUERY_FAILED"
)

// EngineError represents a sandbox engine error
type EngineError struct {
	Code    string
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrMissingObject) match missing-object engine errors.
func (e *EngineError) Is(target error) bool {
	return target == ErrMissingObject && e.Code == CodeMissingObject
}

// IsMissingObject reports whether err was caused by a missing table, view or column.
func IsMissingObject(err error) bool {
	return errors.Is(err, ErrMissingObject)
}

// missingObjectMarkers are the message fragments that identify a missing
// object. SQLite reports these with the generic SQLITE_ERROR code, so the
// message is the only signal available; a new engine version that rewords
// them would be misclassified as a hard failure.
var missingObjectMarkers = []string{
	"no such table",
	"no such view",
	"no such column",
	"does not exist",
}

// classify wraps an engine error, tagging missing objects with CodeMissingObject.
func classify(code, message string, err error) error {
	if err == nil {
		return nil
	}
	if missingObject(err) {
		return &EngineError{Code: CodeMissingObject, Message: message, Err: err}
	}
	return &EngineError{Code: code, Message: message, Err: err}
}

func missingObject(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code != sqlite3.ErrError {
		// Constraint, type and I/O failures never mean a missing object.
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range missingObjectMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
