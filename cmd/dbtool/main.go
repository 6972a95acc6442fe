package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand wires the export and import subcommands. Both open the
// store selected by DB_TYPE, so exporting from one backend and importing
// into another migrates the data.
func newRootCommand() *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:          "dbtool",
		Short:        "Back up, restore or migrate stored conversations",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "overall time limit")

	root.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Write every conversation to file, or stdout when omitted or -",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, timeout, func(ctx context.Context, st store.Store, dbType string) error {
				n, err := exportTo(ctx, st, pathArg(args))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d conversations from %s store\n", n, dbType)
				return nil
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "import [file]",
		Short: "Merge conversations from file, or stdin when omitted or -",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, timeout, func(ctx context.Context, st store.Store, dbType string) error {
				summary, err := importFrom(ctx, st, pathArg(args))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "imported %d conversations into %s store\n", summary.Imported, dbType)
				for _, e := range summary.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", e.ID, e.Error)
				}
				return nil
			})
		},
	})

	return root
}

func withStore(cmd *cobra.Command, timeout time.Duration, run func(context.Context, store.Store, string) error) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "dbtool").Logger()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	st, err := store.Open(ctx, cfg, &logger)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.DBType, err)
	}
	defer st.Close()
	return run(ctx, st, cfg.DBType)
}

func pathArg(args []string) string {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "-"
	}
	return strings.TrimSpace(args[0])
}

func exportTo(ctx context.Context, st store.Store, path string) (int, error) {
	snap, err := st.Export(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to export conversations: %w", err)
	}
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	if err := writeSnapshot(w, snap); err != nil {
		return 0, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return len(snap), nil
}

func writeSnapshot(w io.Writer, snap domain.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(snap)
}

func importFrom(ctx context.Context, st store.Store, path string) (store.ImportSummary, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return store.ImportSummary{}, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	snaps, err := store.DecodeSnapshots(r)
	if err != nil {
		return store.ImportSummary{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	summary, err := st.Import(ctx, snaps...)
	if err != nil {
		return summary, fmt.Errorf("failed to import conversations: %w", err)
	}
	return summary, nil
}
