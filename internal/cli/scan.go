package cli

import (
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/privfilter/internal/classify"
	"github.com/dshills/privfilter/internal/config"
	"github.com/dshills/privfilter/internal/filter"
	"github.com/dshills/privfilter/internal/output"
	"github.com/dshills/privfilter/internal/redact"
	"github.com/dshills/privfilter/internal/report"
)

// Shared flags
var (
	flagFormat     string
	flagOut        string
	flagFailOn     string
	flagRules      string
	flagMaxDepth   int
	flagNoUnwrap   bool
	flagColor      string
	flagLogLevel   string
	flagIgnore     string
	flagShowValues bool
	flagKeep       string
	flagRedact     string
)

// addFilterFlags registers the flags that shape loading and classification.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagRules, "rules", "", "Rules pack (YAML or JSON)")
	cmd.Flags().IntVar(&flagMaxDepth, "max-depth", 0, "Maximum document nesting")
	cmd.Flags().BoolVar(&flagNoUnwrap, "no-unwrap", false, "Do not unwrap OpenAttestation documents")
	cmd.Flags().StringVar(&flagIgnore, "ignore", "", "Field path patterns to skip during classification (comma-separated)")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// addEditFlags registers the operator edits applied to the proposed selection.
func addEditFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagKeep, "keep", "", "Field paths to leave unredacted (comma-separated)")
	cmd.Flags().StringVar(&flagRedact, "redact", "", "Field path patterns to redact in addition to findings (comma-separated)")
	cmd.Flags().StringVar(&flagColor, "color", "", "Colorize output (auto, always, never)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	if flagMaxDepth > 0 {
		m["maxDepth"] = strconv.Itoa(flagMaxDepth)
	}
	if flagNoUnwrap {
		m["unwrapEnvelope"] = "false"
	}
	if flagColor != "" {
		m["color"] = flagColor
	}
	if flagLogLevel != "" {
		m["logLevel"] = flagLogLevel
	}
	if flagIgnore != "" {
		m["privacy.ignore"] = flagIgnore
	}
	if flagShowValues {
		m["showValues"] = "true"
	}
	return m
}

// newFilter builds a filter from the effective configuration.
func newFilter(cfg config.Config, logger *slog.Logger) (*filter.Filter, error) {
	rules, err := classify.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, errors.Wrap(err, "loading rules")
	}
	classifier, err := rules.Build(
		classify.WithIgnore(cfg.Privacy.Ignore...),
		classify.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "rules file %s", cfg.RulesFile)
	}
	return filter.New(
		filter.WithClassifier(classifier),
		filter.WithMaxDepth(cfg.MaxDepth),
		filter.WithUnwrap(cfg.UnwrapEnvelope),
		filter.WithLogger(logger),
	), nil
}

// importFile reads path ("-" for stdin) into the filter. Read failures are
// runtime errors; anything the filter rejects is a malformed document.
func importFile(cmd *cobra.Command, f *filter.Filter, path string) (filter.Snapshot, int, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return filter.Snapshot{}, ExitRuntimeError, errors.Wrap(err, "reading document")
	}
	snap, err := f.Import(path, data)
	if err != nil {
		return filter.Snapshot{}, ExitMalformed, errors.Wrapf(err, "%s could not be processed", path)
	}
	return snap, ExitSuccess, nil
}

// applyEdits applies --keep and --redact (plus configured redact paths) to
// the proposed selection. With no edits the snapshot is returned unchanged.
func applyEdits(f *filter.Filter, snap filter.Snapshot, cfg config.Config) (filter.Snapshot, error) {
	for _, p := range splitComma(flagKeep) {
		var err error
		if snap, err = f.Remove(p); err != nil {
			return filter.Snapshot{}, errors.Wrap(err, "--keep")
		}
	}

	patterns := append(slices.Clone(cfg.Privacy.RedactPaths), splitComma(flagRedact)...)
	extra := redact.Paths(snap.Entries, patterns)
	if len(extra) == 0 {
		return snap, nil
	}
	return f.SetRedactions(append(slices.Clone(snap.Redactions), extra...))
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return isStdout(w) && !color.NoColor
	}
}

var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "Scan a document for personal data fields",
	Long: "Scan a JSON, YAML or TOML document (or - for stdin) and report the fields that hold personal " +
		"data together with the proposed redaction selection.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		runScan(cmd, args[0], cfg)
		return nil
	},
}

func runScan(cmd *cobra.Command, path string, cfg config.Config) {
	start := time.Now()
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	f, err := newFilter(cfg, logger)
	if err != nil {
		fail(cmd, ExitRuntimeError, err)
		return
	}
	snap, code, err := importFile(cmd, f, path)
	if err != nil {
		fail(cmd, code, err)
		return
	}
	snap, err = applyEdits(f, snap, cfg)
	if err != nil {
		fail(cmd, ExitUsageError, err)
		return
	}

	rep := report.Build(snap, report.Options{
		Version:    version,
		ShowValues: cfg.ShowValues,
		Elapsed:    time.Since(start),
	})

	if err := writeReport(cmd, rep, cfg); err != nil {
		fail(cmd, ExitRuntimeError, errors.Wrap(err, "writing output"))
		return
	}

	// Check fail-on threshold
	if rep.ExceedsThreshold(cfg.FailOn) {
		exitCode = ExitFindings
	}
}

func writeReport(cmd *cobra.Command, rep *report.Report, cfg config.Config) error {
	if flagOut != "" {
		return output.WriteReport(rep, cfg.Format, flagOut, false)
	}
	writer, err := output.GetWriter(cfg.Format)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if tw, ok := writer.(*output.TextWriter); ok {
		tw.Color = useColor(cfg.Color, out)
	}
	return writer.Write(out, rep)
}

func init() {
	addFilterFlags(scanCmd)
	addEditFlags(scanCmd)
	scanCmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	scanCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Output file path (default: stdout)")
	scanCmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Fail on severity threshold (none, low, medium, high)")
	scanCmd.Flags().BoolVar(&flagShowValues, "show-values", false, "Include values of unredacted findings in the report")
}
