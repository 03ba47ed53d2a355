// Package ptyrun executes a task's shell command under a pseudo-terminal,
// per spec.md §4.3, so TTY-aware programs (colorized output, progress
// bars) behave as they would run interactively. It mirrors the byte
// stream to stdout and to two log files in the task's cache directory.
package ptyrun

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/creack/pty"
	"github.com/hashicorp/go-hclog"
)

// ColorsFile and PlainFile are the two log files written alongside
// manifest.json, grounded on original_source/src/command_runner.rs's
// OUTPUT_COLORS_TXT_FILE / OUTPUT_PLAIN_TXT_FILE constants.
const (
	ColorsFile = "output-colors.txt"
	PlainFile  = "output.txt"
)

const readBufSize = 4096

// CommandFailedError reports a nonzero exit status from the task command.
type CommandFailedError struct {
	Status int
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command failed with status %d", e.Status)
}

// Run executes "/bin/sh -c command" under a PTY inside dir (the task's
// working directory), fanning output out to stdout, cacheDir/output-colors.txt
// verbatim, and cacheDir/output.txt with ANSI sequences stripped.
func Run(log hclog.Logger, command, dir, cacheDir string) error {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = dir

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("starting pty: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	colorsPath := filepath.Join(cacheDir, ColorsFile)
	colorsFile, err := os.Create(colorsPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", colorsPath, err)
	}
	defer func() { _ = colorsFile.Close() }()

	plainPath := filepath.Join(cacheDir, PlainFile)
	plainFile, err := os.Create(plainPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", plainPath, err)
	}
	defer func() { _ = plainFile.Close() }()

	plain := newStripWriter(plainFile)
	dest := io.MultiWriter(os.Stdout, colorsFile, plain)

	readDone := make(chan error, 1)
	go func() {
		buf := make([]byte, readBufSize)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 {
				if _, werr := dest.Write(buf[:n]); werr != nil {
					readDone <- werr
					return
				}
			}
			if err != nil {
				if err == io.EOF {
					readDone <- nil
					return
				}
				// A PTY read after the child has exited and closed its end
				// surfaces as an I/O error, not io.EOF; treat it the same way.
				readDone <- nil
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	<-readDone

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			log.Debug("task command exited nonzero", "status", exitErr.ExitCode())
			return &CommandFailedError{Status: exitErr.ExitCode()}
		}
		return fmt.Errorf("waiting for command: %w", waitErr)
	}

	fmt.Fprintln(os.Stdout)
	return nil
}
