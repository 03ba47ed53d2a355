// Package reporter renders task progress and the task-listing table to the
// terminal, colorizing output when stdout is a TTY and degrading to plain
// text otherwise (grounded on turborepo's internal/ui IsTTY gating).
package reporter

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"forge/internal/config"
)

// IsTTY is true when stdout appears to be a terminal.
var IsTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func init() {
	// fatih/color defaults NoColor to its own isatty check; pin it explicitly
	// to IsTTY so the reporter's coloring decision is made in one place and
	// actually exercises go-isatty rather than color's internal duplicate.
	color.NoColor = !IsTTY
}

var (
	cyan  = color.New(color.FgCyan)
	blue  = color.New(color.FgBlue)
	green = color.New(color.FgGreen)
)

// Reporter emits per-task progress lines and the task-listing table.
type Reporter struct {
	Out io.Writer
}

// New creates a Reporter writing to os.Stdout.
func New() *Reporter {
	return &Reporter{Out: os.Stdout}
}

// TaskLabel returns a fn that prefixes non-empty messages with the task's
// id in cyan bold, mirroring original_source/src/reporter.rs::get.
func (r *Reporter) TaskLabel(taskID string) func(format string, args ...any) {
	label := color.New(color.FgCyan, color.Bold).Sprint(taskID)
	return func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		if msg == "" {
			return
		}
		fmt.Fprintf(r.Out, "%s: %s\n", label, msg)
	}
}

// ShowTasks renders the task-listing table: name (with its source file
// annotated), description, run command, and dependencies, per
// original_source/src/tasks.rs::show.
func (r *Reporter) ShowTasks(configs []*config.TaskConfig) {
	if len(configs) == 0 {
		fmt.Fprintln(r.Out, "no tasks found in the current directory")
		return
	}

	sorted := make([]*config.TaskConfig, len(configs))
	copy(sorted, configs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	fmt.Fprintln(r.Out)
	fmt.Fprintln(r.Out, "tasks in the current directory")

	table := tablewriter.NewWriter(r.Out)
	table.SetHeader([]string{"name", "description", "runs", "depends on"})
	table.SetAutoWrapText(false)
	table.SetRowLine(true)

	for _, cfg := range sorted {
		name := fmt.Sprintf("%s (./%s.toml)", cyan.Sprint(cfg.ID), cfg.ID)
		table.Append([]string{
			name,
			blue.Sprint(cfg.Description),
			green.Sprint(cfg.Run),
			green.Sprint(strings.Join(cfg.DependencyNames(), ", ")),
		})
	}

	table.Render()
	fmt.Fprintln(r.Out)
}
