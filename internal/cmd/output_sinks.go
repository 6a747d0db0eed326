package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codelens/codelens/internal/output"
)

// nopWriteCloser keeps stdout usable through the io.WriteCloser contract
// without closing the process's stdout on command exit.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// openSink returns the destination for rendered command output. An empty
// path or "-" selects stdout; anything else creates the file, making parent
// directories as needed.
func openSink(path string) (io.WriteCloser, error) {
	target := strings.TrimSpace(path)
	if target == "" || target == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	return os.Create(target)
}

// ensureOutDir creates the report directory and returns its absolute path.
func ensureOutDir(dir string) (string, error) {
	target := strings.TrimSpace(dir)
	if target == "" {
		return "", nil
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if abs, err := filepath.Abs(target); err == nil {
		return abs, nil
	}
	return target, nil
}

// outputExtension maps a format to the file extension used for --out-dir
// report files.
func outputExtension(format output.Format) string {
	switch format {
	case output.FormatJSON:
		return "json"
	case output.FormatMarkdown:
		return "md"
	}
	return "txt"
}

// filenameUnsafe matches runs of characters that do not belong in a report
// filename.
var filenameUnsafe = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeFilename derives a safe report filename stem from a source name.
func sanitizeFilename(value string) string {
	stem := filenameUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	stem = strings.Trim(stem, "-.")
	if stem == "" {
		return "output"
	}
	return stem
}

// resolveOutputFormat parses the --output-format flag.
func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// resolveOutputTargets reads --out and --out-dir, which are mutually
// exclusive sinks.
func resolveOutputTargets(cmd *cobra.Command) (string, string, error) {
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return "", "", err
	}
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return "", "", err
	}

	outPath = strings.TrimSpace(outPath)
	outDir = strings.TrimSpace(outDir)
	if outPath != "" && outDir != "" {
		return "", "", fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	return outPath, outDir, nil
}

// sinkFor opens the command's output destination. A non-empty outDir wins
// and the file inside it is named stem plus the format's extension.
func sinkFor(outPath, outDir, stem string, format output.Format) (io.WriteCloser, error) {
	if outDir != "" {
		resolved, err := ensureOutDir(outDir)
		if err != nil {
			return nil, err
		}
		outPath = filepath.Join(resolved, stem+"."+outputExtension(format))
	}
	return openSink(outPath)
}

// tabularFormat parses --output-format for commands that only render the
// table and json formats.
func tabularFormat(cmd *cobra.Command) (output.Format, error) {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return "", err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	return format, nil
}
