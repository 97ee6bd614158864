package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// ANSI escape sequences for terminal output.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

var colorEnabled = true

// InitColor decides whether output is colored. Colors are dropped when
// stdout is not a terminal or NO_COLOR is set, regardless of the flag.
func InitColor(enabled bool) {
	colorEnabled = enabled && stdoutIsTerminal() && os.Getenv("NO_COLOR") == ""
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func colorize(s, code string) string {
	if !colorEnabled {
		return s
	}
	return code + s + ansiReset
}

func Bold(s string) string   { return colorize(s, ansiBold) }
func Dim(s string) string    { return colorize(s, ansiDim) }
func Red(s string) string    { return colorize(s, ansiRed) }
func Green(s string) string  { return colorize(s, ansiGreen) }
func Yellow(s string) string { return colorize(s, ansiYellow) }

// printJSON prints data as indented JSON.
func printJSON(data interface{}) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// printTable renders a padded ASCII table with a dashed header separator.
// Cell widths are measured on the visible text, so colored cells line up.
func printTable(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = visibleWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && visibleWidth(cell) > widths[i] {
				widths[i] = visibleWidth(cell)
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			sb.WriteString(cell)
			if i < len(headers)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-visibleWidth(cell)+2))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	separator := make([]string, len(headers))
	for i, w := range widths {
		separator[i] = strings.Repeat("-", w)
	}
	writeRow(separator)
	for _, row := range rows {
		writeRow(row)
	}

	fmt.Print(sb.String())
}

// visibleWidth returns the length of a string with ANSI sequences stripped.
func visibleWidth(s string) int {
	width := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			width++
		}
	}
	return width
}

// truncate shortens a string to at most length characters, ellipsized.
func truncate(s string, length int) string {
	if visibleWidth(s) <= length {
		return s
	}
	if length <= 3 {
		return s[:length]
	}
	return s[:length-3] + "..."
}

// formatTimestamp renders an RFC3339 timestamp relative to now for recent
// values, absolute otherwise.
func formatTimestamp(ts string) string {
	if ts == "" {
		return Dim("-")
	}

	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return ts
		}
	}

	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return plural(int(age.Minutes()), "minute")
	case age < 24*time.Hour:
		return plural(int(age.Hours()), "hour")
	case age < 7*24*time.Hour:
		days := int(age.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return plural(days, "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// formatOutcome colors a journal outcome for display.
func formatOutcome(outcome string) string {
	switch outcome {
	case "delivered":
		return Green(outcome)
	case "rejected":
		return Yellow(outcome)
	case "failed":
		return Red(outcome)
	default:
		return outcome
	}
}

// Success prints a checkmarked message.
func Success(msg string) {
	fmt.Printf("%s %s\n", Green("✓"), msg)
}

// Error prints a crossmarked message.
func Error(msg string) {
	fmt.Printf("%s %s\n", Red("✗"), msg)
}
