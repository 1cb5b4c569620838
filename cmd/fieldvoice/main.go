package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes.
const (
	ExitSuccess     = 0 // all transcripts interpreted
	ExitParseFailed = 1 // one or more transcripts failed to parse
	ExitError       = 2 // configuration or runtime error
)

// ParseFailureError indicates the command ran to completion but one or more
// transcripts did not parse into a valid field command.
type ParseFailureError struct {
	Failed int
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("%d transcript(s) failed to parse", e.Failed)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var parseErr *ParseFailureError
		if errors.As(err, &parseErr) {
			os.Exit(ExitParseFailed)
		}

		// All other errors are configuration/runtime errors.
		os.Exit(ExitError)
	}
}
