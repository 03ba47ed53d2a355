// Package cli wires argument parsing, logging, and task orchestration into
// the forge command-line entrypoint (spec.md §6/§7, cobra-based per
// SPEC_FULL.md's domain stack, generalized from the teacher's exit-code-
// mapping idiom in its old input.go/executor.go).
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"forge/internal/cachestore"
	"forge/internal/config"
	"forge/internal/reporter"
	"forge/internal/scheduler"
	"forge/internal/taskrun"
)

// Exit codes, following the teacher's ExitSuccess/ExitInvalidInvocation/
// ExitInternalError naming.
const (
	ExitSuccess           = 0
	ExitTaskFailure       = 1
	ExitInvalidInvocation = 2
)

const maxConcurrency = 8

// NewRootCommand builds the "forge [tasks...]" cobra command.
func NewRootCommand() *cobra.Command {
	var verbosity int

	cmd := &cobra.Command{
		Use:           "forge [tasks...]",
		Short:         "Run tasks with content-addressed caching",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(verbosity)
			return runTasks(log, args)
		},
	}

	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	return cmd
}

func newLogger(verbosity int) hclog.Logger {
	level := hclog.Info
	if verbosity >= 1 {
		level = hclog.Trace
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  "forge",
		Level: level,
	})
}

func runTasks(log hclog.Logger, taskNames []string) error {
	loader := config.NewLoader(".")
	rep := reporter.New()

	if len(taskNames) == 0 {
		configs, err := loader.Discover()
		if err != nil {
			return &exitError{code: ExitInvalidInvocation, err: err}
		}
		rep.ShowTasks(configs)
		return nil
	}

	forest, err := scheduler.Build(loader, taskNames)
	if err != nil {
		return &exitError{code: ExitInvalidInvocation, err: err}
	}

	exec := taskrun.New(cachestore.CacheRoot, log, rep)
	skipped, err := scheduler.Run(context.Background(), forest, maxConcurrency, func(_ context.Context, node *scheduler.Node) error {
		return exec.Run(node.Cfg)
	})
	if len(skipped) > 0 {
		fmt.Fprintf(os.Stderr, "skipped (dependency failed): %v\n", skipped)
	}
	if err != nil {
		return &exitError{code: ExitTaskFailure, err: err}
	}
	return nil
}

// exitError carries the semantic exit code alongside the underlying error,
// mirroring the teacher's InvocationError.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// ExitCode extracts the semantic exit code for an error returned by
// (*cobra.Command).Execute. Task-level failures are always wrapped in
// exitError by runTasks; an unwrapped error means cobra itself rejected
// the invocation (e.g. an unknown flag) before RunE ever ran.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitInvalidInvocation
}
