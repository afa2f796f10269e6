package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	var (
		tenantID uint
		blocking bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the catalog of one tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == 0 {
				return errors.New("--tenant is required")
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close(false)

			ctx := cmd.Context()
			if blocking {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Refresh.Timeout)
				defer cancel()
				err = a.catalog.RebuildBlocking(ctx, tenantID)
			} else {
				err = a.catalog.Rebuild(ctx, tenantID)
			}
			if err != nil {
				return err
			}

			snap, err := a.catalog.Snapshot(ctx, tenantID)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"tenant_id": tenantID,
				"rows":      snap.Len(),
				"blocking":  blocking,
			}).Info("Catalog refreshed")
			return nil
		},
	}

	cmd.Flags().UintVar(&tenantID, "tenant", 0, "tenant whose catalog is rebuilt")
	cmd.Flags().BoolVar(&blocking, "blocking", false, "hold readers until the new snapshot is installed")
	return cmd
}
