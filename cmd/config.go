package cmd

import (
	"fmt"
	"os"

	"github.com/bnema/primelayer/internal/config"
	"github.com/bnema/primelayer/internal/logger"
	"github.com/bnema/primelayer/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage primelayer configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.FormatHeader("Configuration"))
		fmt.Fprintln(out, ui.FormatKeyValue("config file", config.GetConfigPath()))

		fmt.Fprintln(out, ui.FormatSection("display"))
		fmt.Fprintln(out, ui.FormatKeyValue("device", cfg.Display.Device))
		fmt.Fprintln(out, ui.FormatKeyValue("path", cfg.Display.Path))
		fmt.Fprintln(out, ui.FormatKeyValue("limited range", cfg.Display.LimitedRange))
		fmt.Fprintln(out, ui.FormatKeyValue("size", fmt.Sprintf("%dx%d", cfg.Display.Width, cfg.Display.Height)))

		fmt.Fprintln(out, ui.FormatSection("renderer"))
		fmt.Fprintln(out, ui.FormatKeyValue("slots", cfg.Renderer.Slots))

		fmt.Fprintln(out, ui.FormatSection("logging"))
		level := cfg.Logging.LogLevel
		if level == "" {
			level = fmt.Sprintf("%s (LOG_LEVEL)", logger.Level())
		}
		fmt.Fprintln(out, ui.FormatKeyValue("log level", level))

		fmt.Fprintln(out, ui.FormatSection("metrics"))
		addr := cfg.Metrics.ListenAddress
		if addr == "" {
			addr = "(disabled)"
		}
		fmt.Fprintln(out, ui.FormatKeyValue("listen address", addr))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite existing configuration")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(configCmd)
}
