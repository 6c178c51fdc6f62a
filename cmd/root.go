package cmd

import (
	"fmt"

	"github.com/bnema/primelayer/internal/config"
	"github.com/bnema/primelayer/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "primelayer",
		Short: "primelayer - hardware video presentation on KMS",
		Long: `primelayer presents decoded hardware video buffers on Linux displays.
Frames go straight to a KMS overlay plane when the display can scan them out,
and are composited through the GPU otherwise. HDR metadata and colorimetry
are negotiated with the sink from its EDID.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				config.SetConfigPath(configFile)
			}
			if err := config.Init(); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
			if lvl := config.Get().Logging.LogLevel; lvl != "" {
				logger.SetLevel(lvl)
			}
			return nil
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: search /etc/primelayer, ~/.config/primelayer, .)")
}
