package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dshills/privfilter/internal/config"
	"github.com/dshills/privfilter/internal/filter"
	"github.com/dshills/privfilter/internal/output"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-scan a document every time it changes",
	Long: "Watch a document and re-render it with sensitive fields highlighted each time it is saved. " +
		"A save that cannot be processed is reported and the previous document stays on screen.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runWatch(ctx, cmd, args[0], cfg); err != nil {
			fail(cmd, ExitRuntimeError, err)
		}
		return nil
	},
}

// runWatch loads path, renders it, and reloads it on every change until ctx
// is done.
func runWatch(ctx context.Context, cmd *cobra.Command, path string, cfg config.Config) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	f, err := newFilter(cfg, newLogger(errOut, cfg.LogLevel))
	if err != nil {
		return err
	}

	vw := &output.ViewWriter{Color: useColor(cfg.Color, out)}
	cancel := f.Subscribe(func(snap filter.Snapshot) {
		fmt.Fprintf(out, "--- revision %d (%s)\n", snap.Revision, snap.LoadedAt.Format(time.TimeOnly))
		if err := vw.Write(out, snap); err != nil {
			fmt.Fprintf(errOut, "Error: writing output: %v\n", err)
		}
	})
	defer cancel()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer watcher.Close()

	// Watch the directory so saves that replace the file are still seen.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "watching %s", filepath.Dir(target))
	}

	reload := func() {
		if _, _, err := importFile(cmd, f, path); err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
	}
	reload()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "Error: watcher: %v\n", err)
		case <-pending:
			pending = nil
			reload()
		}
	}
}

func init() {
	addFilterFlags(watchCmd)
	watchCmd.Flags().StringVar(&flagColor, "color", "", "Colorize output (auto, always, never)")
}
