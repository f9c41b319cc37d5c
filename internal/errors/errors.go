package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/eyecare/internal/logger"
)

var (
	// ErrInvalidDomain marks user input that does not normalise to a domain
	ErrInvalidDomain = errors.New("invalid domain")
	// ErrInvalidDuration marks a focus duration or interval below one minute
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrNotRunning is returned when the agent socket cannot be reached
	ErrNotRunning = errors.New("eyecare agent is not running")
	// ErrStoreNotLoaded is returned by stores used before Init/Load
	ErrStoreNotLoaded = errors.New("storage not loaded")
	// ErrNotFound is returned when a document does not exist yet
	ErrNotFound = errors.New("not found")
	// ErrUnknownMessage is returned for message types the agent does not handle
	ErrUnknownMessage = errors.New("unknown message type")
	// ErrNothingToImport is returned when an import payload yields no domains
	ErrNothingToImport = errors.New("nothing to import, provide JSON or newline-separated domains")
)

// IsValidation reports whether err is an expected user-input failure.
// Validation failures are surfaced to the caller and never logged as errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidDomain) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrNothingToImport)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		if !IsValidation(err) {
			logger.Error("Command execution failed", "error", err)
		}
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
