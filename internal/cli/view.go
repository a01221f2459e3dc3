package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dshills/privfilter/internal/config"
	"github.com/dshills/privfilter/internal/output"
)

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Show a document with sensitive fields highlighted and redactions masked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
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
		if snap, err = applyEdits(f, snap, cfg); err != nil {
			fail(cmd, ExitUsageError, err)
			return nil
		}

		out := cmd.OutOrStdout()
		vw := &output.ViewWriter{Color: useColor(cfg.Color, out)}
		if err := vw.Write(out, snap); err != nil {
			fail(cmd, ExitRuntimeError, errors.Wrap(err, "writing output"))
		}
		return nil
	},
}

func init() {
	addFilterFlags(viewCmd)
	addEditFlags(viewCmd)
}
