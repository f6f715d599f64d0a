package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"evcpms/internal/config"
	"evcpms/internal/db"
	"evcpms/internal/models"
	"evcpms/internal/repo"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	DatabaseURL string
	Timeout     time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Operator tooling for the CPMS database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "db", "", "database url (default from CPMS_DATABASE_URL)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "overall timeout")

	cmd.AddCommand(newSchemaCommand(opts), newChargeBoxCommand(opts), newReservationCommand(opts))
	return cmd
}

// connect opens the database and hands it to fn within the configured
// timeout.
func (o *rootOptions) connect(cmd *cobra.Command, fn func(ctx context.Context, d *db.DB) error) error {
	url := o.DatabaseURL
	if url == "" {
		url = config.Load().DatabaseURL
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), o.Timeout)
	defer cancel()

	d, err := db.Connect(ctx, url, db.Options{MaxConns: 2, MinConns: 1})
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d)
}

func newSchemaCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create missing tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.connect(cmd, func(ctx context.Context, d *db.DB) error {
				if err := db.EnsureSchema(ctx, d.Pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
				return nil
			})
		},
	}
}

func newChargeBoxCommand(opts *rootOptions) *cobra.Command {
	var (
		id         string
		connectors int
	)
	cmd := &cobra.Command{
		Use:   "chargebox",
		Short: "Register a charge box so its boot is accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if connectors < 0 {
				return fmt.Errorf("--connectors must not be negative")
			}
			return opts.connect(cmd, func(ctx context.Context, d *db.DB) error {
				created, err := repo.NewChargeBoxRepo(d.Pool).Register(ctx, id)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintln(cmd.OutOrStdout(), "registered charge box", id)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "charge box already registered:", id)
				}

				registry := repo.NewConnectorsRepo(d.Pool)
				for c := 1; c <= connectors; c++ {
					if _, err := registry.EnsureConnector(ctx, id, c); err != nil {
						return fmt.Errorf("connector %d: %w", c, err)
					}
				}
				if connectors > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "connectors 1..%d registered\n", connectors)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "charge box id (required)")
	cmd.Flags().IntVar(&connectors, "connectors", 0, "register connectors 1..N up front")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newReservationCommand(opts *rootOptions) *cobra.Command {
	var (
		idTag     string
		chargeBox string
		expiry    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "reservation",
		Short: "Create a reservation and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if expiry <= 0 {
				return fmt.Errorf("--expiry must be positive")
			}
			return opts.connect(cmd, func(ctx context.Context, d *db.DB) error {
				id, err := repo.NewReservationsRepo(d.Pool).Create(ctx, models.Reservation{
					IdTag:          idTag,
					ChargeBoxId:    chargeBox,
					ExpiryDatetime: time.Now().UTC().Add(expiry),
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&idTag, "id-tag", "", "id tag the reservation is for (required)")
	cmd.Flags().StringVar(&chargeBox, "charge-box", "", "charge box id (required)")
	cmd.Flags().DurationVar(&expiry, "expiry", time.Hour, "time until the reservation expires")
	_ = cmd.MarkFlagRequired("id-tag")
	_ = cmd.MarkFlagRequired("charge-box")
	return cmd
}
