package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitMalformed    = 3
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:   "privfilter",
	Short: "Find personal data fields in structured documents",
	Long: "privfilter flattens JSON, YAML and TOML documents into field paths, flags fields that hold " +
		"personal data, and proposes a redaction selection the operator can edit.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print privfilter version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "privfilter version %s\n", version)
	},
}

// fail reports err with its hints on the command's error stream and sets
// the exit code.
func fail(cmd *cobra.Command, code int, err error) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "Error: %v\n", err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
	exitCode = code
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// isStdout reports whether w is the process's standard output.
func isStdout(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout
}
