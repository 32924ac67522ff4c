package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fintrack-sync/internal/app"
	"fintrack-sync/internal/cache"
)

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain durable cache metadata",
		Long: `Operates on the durable cache layer selected by CACHE_BACKEND.

The durable layer only records expiry times. Sweeping or clearing it from the
command line does not affect the in-memory layer of a running server; use the
admin endpoints for that.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "sweep",
			Short: "Remove expired expiry records",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(opts, func(store *cache.Store) error {
					result := store.SweepExpired(cmd.Context(), time.Now())
					cmd.Printf("removed %d expired records\n", result.Durable)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every expiry record",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(opts, func(store *cache.Store) error {
					store.ClearAll(cmd.Context())
					cmd.Println("cache metadata cleared")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "List expiry records",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(opts, func(store *cache.Store) error {
					meta, err := store.Metadata(cmd.Context())
					if err != nil {
						return fmt.Errorf("failed to read cache metadata: %w", err)
					}
					return renderMetadata(cmd.OutOrStdout(), meta, time.Now())
				})
			},
		},
	)

	return cmd
}

// withStore opens the configured durable backend for the duration of fn.
func withStore(opts *rootOptions, fn func(*cache.Store) error) error {
	durable, closer, err := app.OpenDurable(opts.cfg.Cache, opts.logger)
	if err != nil {
		return fmt.Errorf("failed to open %s cache backend: %w", opts.cfg.Cache.Backend, err)
	}
	if closer != nil {
		defer closer.Close()
	}

	opts.logger.Debug().Str("backend", opts.cfg.Cache.Backend).Msg("durable cache opened")
	return fn(cache.NewStore(durable, cache.WithLogger(opts.logger)))
}

func renderMetadata(w io.Writer, meta []cache.MetadataEntry, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tEXPIRES AT\tSTATE")
	for _, m := range meta {
		state := "fresh"
		if !m.ExpiresAt.After(now) {
			state = "expired"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Key, m.ExpiresAt.UTC().Format(time.RFC3339), state)
	}
	fmt.Fprintf(tw, "\n%d records\n", len(meta))
	return tw.Flush()
}
