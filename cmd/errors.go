package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zipkero/apply-env/internal/config"
	"github.com/zipkero/apply-env/internal/render"
)

const (
	exitSuccess    = 0
	exitError      = 1
	exitConfig     = 2
	exitUnresolved = 3
)

// cliError carries an exit code. A nil cause means the message was already
// printed.
type cliError struct {
	code  int
	cause error
}

func (e *cliError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.cause.Error()
}

func (e *cliError) Unwrap() error {
	return e.cause
}

func withCode(code int, err error) *cliError {
	return &cliError{code: code, cause: err}
}

// handleError prints err and returns the process exit code for it.
func handleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return exitSuccess
	}

	code := exitError
	var ce *cliError
	if errors.As(err, &ce) {
		code = ce.code
		if ce.cause == nil {
			return code
		}
	} else {
		switch {
		case errors.Is(err, config.ErrConfig):
			code = exitConfig
		case errors.Is(err, render.ErrUnresolved):
			code = exitUnresolved
		}
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return code
	}

	cmd.PrintErrln("ERROR: " + err.Error())
	return code
}
