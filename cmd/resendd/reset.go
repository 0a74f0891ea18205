package main

import (
	"context"
	"fmt"

	"github.com/boclar/booking-app-business-demo-sub000/internal/registry"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/db"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/kvstore"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newResetCommand 清除某个目标的冷却状态，用于人工解锁
func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <flow> <target>",
		Short: "Delete the persisted cooldown state of one target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			flow, err := registry.ParseFlow(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := kvstore.Open(ctx, cfg.Store)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() {
				db.CloseRedis()
				db.CloseMongo(context.Background())
			}()

			hub, err := registry.NewHub(registry.Options{Store: store, Defaults: cfg.Cooldown.Defaults()})
			if err != nil {
				return err
			}
			defer hub.Close()

			if err := hub.Finish(ctx, flow, args[1]); err != nil {
				return err
			}
			logger.Info("cooldown state removed", zap.String("key", registry.InstanceKey(flow, args[1])))
			return nil
		},
	}
}
