package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ResetOptions configures the reset-db command.
type ResetOptions struct {
	// Yes skips the confirmation prompt.
	Yes    bool
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ResetCommand drops and recreates every table after the operator confirms.
func ResetCommand(ctx context.Context, reset func(context.Context) error, opts ResetOptions) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	if !opts.Yes {
		_, _ = fmt.Fprint(opts.Stdout, "This deletes every user, post and audit entry. Type 'yes' to continue: ")
		answer, err := bufio.NewReader(opts.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			_, _ = fmt.Fprintf(opts.Stderr, "reset-db: read confirmation: %v\n", err)
			return 1
		}
		if !strings.EqualFold(strings.TrimSpace(answer), "yes") {
			_, _ = fmt.Fprintln(opts.Stdout, "aborted")
			return 1
		}
	}

	if err := reset(ctx); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "reset-db: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(opts.Stdout, "database reset")
	return 0
}
