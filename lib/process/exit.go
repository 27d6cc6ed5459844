// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exit is replaced in tests.
var exit = os.Exit

// ExitCode returns the status a binary should exit with for err: 0 for
// nil, the value of an ExitCode() int method anywhere in err's chain,
// and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// Fatal writes "error: err" to stderr and exits with ExitCode(err). Use
// it in main for errors from run, where the structured logger may not
// be initialized yet.
func Fatal(err error) {
	report(os.Stderr, err)
	exit(ExitCode(err))
}

func report(output io.Writer, err error) {
	fmt.Fprintf(output, "error: %v\n", err)
}
