// Command ajoctl operates Ajo groups directly against a local database,
// without going through the server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mmynk/ajo/internal/rotation"
	"github.com/mmynk/ajo/pkg/logging"
)

const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	logging.Setup()
	os.Exit(exitCode(run(os.Args[1:], os.Stdout)))
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(os.Stderr, "ajoctl:", err)

	var ue usageError
	if errors.As(err, &ue) || rotation.CodeOf(err) != 0 {
		return exitUserError
	}
	return exitSysError
}

// usageError marks a mistake in how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}
