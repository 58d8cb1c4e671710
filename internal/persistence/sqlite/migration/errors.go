package migration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrApply is returned when a schema file fails to execute.
	ErrApply = errors.New("schema migration failed")
	// ErrMalformedFile covers bad filenames and empty or statement-less files.
	ErrMalformedFile = errors.New("malformed migration file")
	// ErrSequence means the versions on disk and in schema_migrations disagree.
	ErrSequence = errors.New("migration sequence broken")
	ErrDuplicateVersion = errors.New("duplicate migration version")
	// ErrChecksumMismatch means an applied file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// StepError records which migration step failed and where.
type StepError struct {
	Version string
	File    string
	Step    string
	Err     error
}

func (e *StepError) Error() string {
	var b strings.Builder
	b.WriteString("migration")
	if e.Version != "" {
		b.WriteString(" " + e.Version)
	}
	if e.File != "" {
		b.WriteString(" [" + e.File + "]")
	}
	return fmt.Sprintf("%s: %s: %v", b.String(), e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func fileStepError(version, file, step string, err error) *StepError {
	return &StepError{Version: version, File: file, Step: step, Err: err}
}

// dbStepError is a step that failed against the database rather than a file.
func dbStepError(version, step string, err error) *StepError {
	return &StepError{Version: version, Step: "database " + step, Err: err}
}
