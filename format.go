package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// successf prints a green status line to stderr unless quiet mode is set.
func successf(format string, args ...any) {
	if !flagQuiet {
		color.New(color.FgGreen).Fprintf(os.Stderr, format, args...)
	}
}

// errorf prints a red error line to stderr. Never silenced by quiet.
func errorf(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, format, args...)
}

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
	sizeTB = 1024 * 1024 * 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	switch {
	case bytes >= sizeTB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/float64(sizeTB))
	case bytes >= sizeGB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// progressRenderer writes in-place per-file progress lines when stderr
// is a terminal. On a non-tty (logs, CI) it stays silent; the summary
// line at the end of the run covers that case.
type progressRenderer struct {
	out   io.Writer
	isTTY bool
}

func newProgressRenderer() *progressRenderer {
	return &progressRenderer{
		out:   os.Stderr,
		isTTY: isatty.IsTerminal(os.Stderr.Fd()) && !flagQuiet,
	}
}

// Update renders one progress callback. Safe to call from concurrent
// downloads: lines interleave but never corrupt the terminal state
// beyond cosmetics.
func (r *progressRenderer) Update(name string, written, total int64) {
	if !r.isTTY {
		return
	}

	if total > 0 {
		fmt.Fprintf(r.out, "\r%-40s %s / %s (%d%%)",
			truncateName(name, 40), formatSize(written), formatSize(total), written*100/total)
	} else {
		fmt.Fprintf(r.out, "\r%-40s %s", truncateName(name, 40), formatSize(written))
	}
}

// Done terminates the in-place line.
func (r *progressRenderer) Done() {
	if r.isTTY {
		fmt.Fprintln(r.out)
	}
}

// truncateName shortens long file names so progress lines fit.
func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}

	return name[:max-3] + "..."
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}
