package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	// outputJSON controls whether commands should output JSON instead of styled text
	outputJSON bool

	// out receives all command output; the root command points it at cmd.OutOrStdout()
	out io.Writer = os.Stdout
)

// SetJSONOutput sets the JSON output mode
func SetJSONOutput(enabled bool) {
	outputJSON = enabled
}

// IsJSONOutput returns true if JSON output mode is enabled
func IsJSONOutput() bool {
	return outputJSON
}

// SetOutput redirects command output
func SetOutput(w io.Writer) {
	out = w
}

// PrintJSON outputs data as JSON if JSON mode is enabled, returns true if it did
func PrintJSON(data interface{}) bool {
	if !outputJSON {
		return false
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.Encode(data)
	return true
}

// PrintSuccess prints a success message with a green checkmark
func PrintSuccess(msg string) {
	fmt.Fprintf(out, "  %s %s\n", SuccessStyle.Render(SymbolSuccess), msg)
}

// PrintSuccessWithValue prints a success message with a right-aligned value
func PrintSuccessWithValue(msg, value string) {
	symbol := SuccessStyle.Render(SymbolSuccess)
	fmt.Fprintf(out, "  %s %-40s %s\n", symbol, msg, DimStyle.Render(value))
}

// PrintErrorMsg prints a simple error message string
func PrintErrorMsg(msg string) {
	fmt.Fprintf(out, "  %s %s\n", ErrorStyle.Render(SymbolError), ErrorStyle.Render(msg))
}

// PrintInfo prints an info message with an arrow
func PrintInfo(msg string) {
	fmt.Fprintf(out, "  %s %s\n", InfoStyle.Render(SymbolInfo), msg)
}

// PrintInfof prints a formatted info message
func PrintInfof(format string, args ...interface{}) {
	PrintInfo(fmt.Sprintf(format, args...))
}

// PrintSuggestions prints a list of suggestions
func PrintSuggestions(title string, suggestions []string) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s\n", DimStyle.Render(title))
	for _, s := range suggestions {
		fmt.Fprintf(out, "    %s %s\n", DimStyle.Render(SymbolBullet), s)
	}
}

// PrintKeyValue prints a key-value pair with consistent alignment
func PrintKeyValue(key, value string) {
	fmt.Fprintf(out, "  %s %s\n", KeyStyle.Render(key), value)
}

// PrintNewline prints an empty line
func PrintNewline() {
	fmt.Fprintln(out)
}

// FormatBytes formats a byte count for humans ("1.2 kB")
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// FormatDuration rounds a duration for display
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

// Plural returns "1 file" / "2 files"
func Plural(n int, singular string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %ss", n, strings.TrimSuffix(singular, "s"))
}

// resolveAgainst makes p absolute against dir
func resolveAgainst(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
