package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dailypick/dailypick/internal/output"
)

const (
	flagOutputFormat = "output-format"
	flagOut          = "out"
	flagOutDir       = "out-dir"
)

// outputTarget is the resolved form of the output flags.
type outputTarget struct {
	format output.Format
	file   string // empty means the command's stdout
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// addOutputFlags registers --output-format, --out and --out-dir.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagOutputFormat, string(output.FormatTable), "Output format: table|json|markdown")
	cmd.Flags().String(flagOut, "", "Write output to a file (default stdout)")
	cmd.Flags().String(flagOutDir, "", "Write output to <dir>/<name>.<ext>")
	cmd.MarkFlagsMutuallyExclusive(flagOut, flagOutDir)
}

func outputExtension(format output.Format) string {
	switch format {
	case output.FormatJSON:
		return "json"
	case output.FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

func sanitizeFilename(value string) string {
	clean := nonFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	if clean = strings.Trim(clean, "-."); clean == "" {
		return "output"
	}
	return clean
}

func flagValue(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return strings.TrimSpace(value)
}

// resolveOutput reads the output flags. name is the base filename used with
// --out-dir.
func resolveOutput(cmd *cobra.Command, name string) (outputTarget, error) {
	format, err := output.ParseFormat(flagValue(cmd, flagOutputFormat))
	if err != nil {
		return outputTarget{}, err
	}
	target := outputTarget{format: format, file: flagValue(cmd, flagOut)}
	if target.file == "-" {
		target.file = ""
	}

	if dir := flagValue(cmd, flagOutDir); dir != "" {
		if target.file != "" {
			return outputTarget{}, errors.New("--out and --out-dir are mutually exclusive")
		}
		target.file = filepath.Join(dir, sanitizeFilename(name)+"."+outputExtension(format))
	}
	return target, nil
}

// open returns the destination writer and its closer.
func (t outputTarget) open(stdout io.Writer) (io.Writer, func() error, error) {
	if t.file == "" {
		return stdout, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(t.file), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(t.file)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}

// writeOutput renders through the formatter selected by the output flags.
func writeOutput(cmd *cobra.Command, name string, render func(output.Formatter) (string, error)) error {
	target, err := resolveOutput(cmd, name)
	if err != nil {
		return err
	}

	rendered, err := render(output.NewFormatter(target.format))
	if err != nil {
		return err
	}

	w, closeFn, err := target.open(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, rendered); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}
