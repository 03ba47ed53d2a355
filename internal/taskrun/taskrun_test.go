package taskrun

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hashicorp/go-hclog"

	"forge/internal/config"
	"forge/internal/reporter"
)

func discardLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{Output: io.Discard})
}

func TestExecutor_Run_MissThenHitSkipsReexecution(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("pty is POSIX-only")
	}

	wd := t.TempDir()
	cacheRoot := filepath.Join(wd, ".boost")

	// marker lives outside wd: it's a side effect of running the command,
	// not a declared input, and must not itself feed the default selector's
	// walk of "." (wd) on the second run.
	marker := filepath.Join(t.TempDir(), "marker")
	cfg := &config.TaskConfig{
		ID:    "build",
		Run:   "echo ran >> " + marker,
		Bytes: []byte(`run = "echo ran"`),
	}

	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(wd); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(oldwd) }()

	exec := New(cacheRoot, discardLogger(), reporter.New())

	if err := exec.Run(cfg); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := exec.Run(cfg); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("reading marker: %v", err)
	}
	if got := len(splitLines(data)); got != 1 {
		t.Errorf("marker written %d times, want 1 (second run should replay, not re-execute)", got)
	}
}

func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, string(data[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}
