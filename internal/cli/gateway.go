package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack-sync/internal/app"
	"fintrack-sync/internal/config"
	"fintrack-sync/internal/gateway"
)

func newGatewayCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the remote document store",
	}

	var file string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Upsert documents from a YAML fixture into the document store",
		Long: `Reads a fixture in the GATEWAY_SEED_FILE layout and upserts every document
into the MongoDB gateway. The memory gateway loads its fixture at startup and
cannot be seeded from here.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = opts.cfg.Gateway.SeedFile
			}
			if file == "" {
				return errors.New("no fixture given: pass --file or set GATEWAY_SEED_FILE")
			}
			if opts.cfg.Gateway.Type != config.GatewayMongoDB {
				return fmt.Errorf("gateway seed requires GATEWAY_TYPE=%s, got %s", config.GatewayMongoDB, opts.cfg.Gateway.Type)
			}

			gw, closer, err := app.OpenGateway(opts.cfg.Gateway, opts.logger)
			if err != nil {
				return fmt.Errorf("failed to open %s gateway: %w", opts.cfg.Gateway.Type, err)
			}
			if closer != nil {
				defer closer.Close()
			}

			w, ok := gw.(gateway.Writer)
			if !ok {
				return fmt.Errorf("%s gateway does not accept writes", opts.cfg.Gateway.Type)
			}

			n, err := seedFromFile(cmd.Context(), w, file)
			if err != nil {
				return err
			}
			cmd.Printf("seeded %d documents from %s\n", n, file)
			return nil
		},
	}
	seed.Flags().StringVarP(&file, "file", "f", "", "YAML fixture to load (defaults to GATEWAY_SEED_FILE)")

	cmd.AddCommand(seed)
	return cmd
}

func seedFromFile(ctx context.Context, w gateway.Writer, file string) (int, error) {
	docs, err := gateway.ReadSeedFile(file)
	if err != nil {
		return 0, err
	}
	n, err := gateway.Seed(ctx, w, docs)
	if err != nil {
		return n, fmt.Errorf("seeded %d of %d documents: %w", n, len(docs), err)
	}
	return n, nil
}
