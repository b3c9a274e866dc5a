package cmd

import (
	"github.com/spf13/cobra"

	"github.com/meinhoongagan/carenest/config"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/logger"
)

const serviceName = "carenest"

var rootCmd = &cobra.Command{
	Use:   "carenest",
	Short: "Caregiver marketplace API",
	Long: `CareNest matches clients with caregivers: availability, booking
requests and bookings, messaging, notifications and reviews.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap loads configuration, installs the logger and opens the database.
// The returned func flushes the logger.
func bootstrap() (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	config.Set(cfg)

	flush, err := logger.Init(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Init(cfg.DatabaseURL); err != nil {
		flush()
		return nil, nil, err
	}
	return cfg, flush, nil
}
