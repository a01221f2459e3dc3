package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dshills/privfilter/internal/config"
	"github.com/dshills/privfilter/internal/flatten"
	"github.com/dshills/privfilter/internal/output"
	"github.com/dshills/privfilter/internal/redact"
)

var flagMask bool

var flattenCmd = &cobra.Command{
	Use:   "flatten <file>",
	Short: "Print every leaf field path of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		format := flagFormat
		if format == "" {
			format = "text"
		}

		f, err := newFilter(cfg, newLogger(cmd.ErrOrStderr(), cfg.LogLevel))
		if err != nil {
			fail(cmd, ExitRuntimeError, err)
			return nil
		}
		snap, code, err := importFile(cmd, f, args[0])
		if err != nil {
			fail(cmd, code, err)
			return nil
		}

		entries := snap.Entries
		if flagMask {
			if snap, err = applyEdits(f, snap, cfg); err != nil {
				fail(cmd, ExitUsageError, err)
				return nil
			}
			selected := snap.RedactionSet()
			entries = make([]flatten.Entry, len(snap.Entries))
			for i, e := range snap.Entries {
				if selected[e.Path] {
					e.Value = redact.Placeholder
				}
				entries[i] = e
			}
		}

		if err := output.WriteEntries(cmd.OutOrStdout(), entries, format); err != nil {
			fail(cmd, ExitRuntimeError, errors.Wrap(err, "writing output"))
		}
		return nil
	},
}

func init() {
	addFilterFlags(flattenCmd)
	flattenCmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json)")
	flattenCmd.Flags().BoolVar(&flagMask, "mask", false, "Mask the values of fields in the redaction selection")
	flattenCmd.Flags().StringVar(&flagKeep, "keep", "", "With --mask, field paths to leave unredacted (comma-separated)")
	flattenCmd.Flags().StringVar(&flagRedact, "redact", "", "With --mask, extra field path patterns to redact (comma-separated)")
}
