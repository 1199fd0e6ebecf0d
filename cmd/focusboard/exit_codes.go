package main

import "errors"

// Exit code 2 marks configuration problems so wrappers can tell a bad
// setup apart from a runtime failure.
const exitCodeConfig = 2

// codedError tags an error with an explicit process exit status.
type codedError struct {
	error
	code int
}

func (e codedError) Unwrap() error { return e.error }

func (e codedError) status() int {
	if e.code <= 0 {
		return 1
	}
	return e.code
}

// withExitCode tags err so the process exits with code. A nil err
// stays nil.
func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return codedError{error: err, code: code}
}

// exitCodeForError maps an error to a process exit status: 0 for nil,
// the tagged code when one is attached anywhere in the chain, and 1
// for everything else.
func exitCodeForError(err error) int {
	if err == nil {
		return 0
	}
	var tagged codedError
	if errors.As(err, &tagged) {
		return tagged.status()
	}
	return 1
}
