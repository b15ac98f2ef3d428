package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"

	"github.com/hnguyen160596/fnsync/pkg/types"
)

// FsErrorMessages maps underlying filesystem errors to human-readable messages
var FsErrorMessages = []struct {
	Target  error
	Message string
}{
	{fs.ErrPermission, "Permission denied"},
	{fs.ErrNotExist, "No such file or directory"},
	{syscall.ENOTDIR, "A path component is a file, not a directory"},
	{syscall.EISDIR, "Cannot overwrite a directory with a file"},
	{syscall.ENOSPC, "No space left on device"},
	{syscall.EROFS, "Read-only filesystem"},
}

// FsErrorSuggestions provides helpful suggestions for specific filesystem errors
var FsErrorSuggestions = []struct {
	Target      error
	Suggestions []string
}{
	{fs.ErrPermission, []string{
		"Check that the build user can write to the destination directory",
		"Remove read-only files left by an earlier build",
	}},
	{syscall.ENOTDIR, []string{
		"A file exists where a directory is expected in the destination path",
		"Remove it or point " + CodeStyle.Render("--dest") + " somewhere else",
	}},
	{syscall.EISDIR, []string{
		"The destination has a directory where the source has a file",
	}},
	{syscall.ENOSPC, []string{
		"Free disk space on the build machine and run the build again",
	}},
}

// FormatError converts an error to a human-readable message
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var notFound *types.SourceNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("Source directory %s does not exist", notFound.Path)
	}

	var cfgErr *types.ConfigError
	if errors.As(err, &cfgErr) {
		return fmt.Sprintf("Invalid configuration: %s %s", cfgErr.Field, cfgErr.Reason)
	}

	if errors.Is(err, context.Canceled) {
		return "Interrupted"
	}

	var fsErr *types.FsOpError
	if errors.As(err, &fsErr) {
		for _, m := range FsErrorMessages {
			if errors.Is(fsErr.Err, m.Target) {
				return fmt.Sprintf("%s failed for %s: %s", fsErr.Op, fsErr.Path, m.Message)
			}
		}
		return fmt.Sprintf("%s failed for %s: %v", fsErr.Op, fsErr.Path, fsErr.Err)
	}

	return cleanErrorMessage(err.Error())
}

// GetErrorSuggestions returns helpful suggestions for an error
func GetErrorSuggestions(err error) []string {
	if err == nil {
		return nil
	}

	var notFound *types.SourceNotFoundError
	if errors.As(err, &notFound) {
		return []string{
			"Run fnsync from the project root, or pass " + CodeStyle.Render("--cwd <dir>"),
			"Point " + CodeStyle.Render("--source") + " at your functions directory",
		}
	}

	var cfgErr *types.ConfigError
	if errors.As(err, &cfgErr) {
		return []string{"Check " + CodeStyle.Render(cfgErr.Field) + " in your config file or flags"}
	}

	for _, s := range FsErrorSuggestions {
		if errors.Is(err, s.Target) {
			return s.Suggestions
		}
	}
	return nil
}

// cleanErrorMessage cleans up common error message patterns
func cleanErrorMessage(msg string) string {
	msg = strings.TrimPrefix(msg, "error: ")
	msg = strings.TrimPrefix(msg, "Error: ")

	if strings.Contains(msg, ": ") {
		// For deeply nested errors, just show the most relevant part
		parts := strings.Split(msg, ": ")
		if len(parts) > 3 {
			msg = parts[0] + ": " + parts[len(parts)-1]
		}
	}

	return msg
}

// PrintFormattedError prints an error with styling and optional suggestions
func PrintFormattedError(title string, err error) {
	fmt.Fprintln(out)
	PrintErrorMsg(title)

	if err != nil {
		fmt.Fprintf(out, "  %s\n", DimStyle.Render(FormatError(err)))

		if suggestions := GetErrorSuggestions(err); len(suggestions) > 0 {
			PrintSuggestions("Suggestions:", suggestions)
		}
	}
	fmt.Fprintln(out)
}
