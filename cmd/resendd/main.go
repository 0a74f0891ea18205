package main

import (
	"errors"
	"os"

	"github.com/boclar/booking-app-business-demo-sub000/internal/conf"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Fatal(".env error", zap.Error(err))
	}

	root := &cobra.Command{
		Use:           "resendd",
		Short:         "Verification code resend cooldown service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "config file")
	root.AddCommand(newServeCommand(), newResetCommand())

	if err := root.Execute(); err != nil {
		logger.Fatal("resendd failed", zap.Error(err))
	}
}

func loadConfig() (*conf.Config, error) {
	cfg, err := conf.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.Log.Level)
	return cfg, nil
}
