package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfsync/shelfsync/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or modify shelfsync configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Catalog Path: %s\n", cfg.Catalog.Path)
			fmt.Printf("Chunk Size: %d\n", cfg.Catalog.ChunkSize)
			fmt.Printf("Extensions: %s\n", strings.Join(cfg.Scan.Extensions, ", "))
			fmt.Printf("Scan Workers: %d\n", cfg.Scan.Workers)
			fmt.Printf("Strategy: %s\n", cfg.Sync.Strategy)
			fmt.Printf("Bandwidth Limit: %d\n", cfg.Sync.BandwidthLimit)
			fmt.Printf("Output Format: %s\n", cfg.Output.Format)
			fmt.Printf("Log Format: %s\n", cfg.Logging.Format)
			fmt.Printf("Log Level: %s\n", cfg.Logging.Level)

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Printf("Configuration file created at: %s\n", path)
			return nil
		},
	}
}
