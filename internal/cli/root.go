// Package cli is the peerboard command line: host a board, join one, or
// run a headless relay host.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"PeerBoard/internal/config"
	"PeerBoard/internal/share"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "peerboard [link]",
	Short: "A shared whiteboard for the local network",
	Long: `PeerBoard hosts a whiteboard that others on the same network can join
with a six-digit code or a peerboard:// link.

Run without arguments to host a new board. Pass a peerboard:// link to join
one, which is how the desktop opens links handed to it.`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if !strings.HasPrefix(args[0], share.Scheme+"://") {
				return fmt.Errorf("expected a %s:// link, got %q; use \"peerboard join\" for codes", share.Scheme, args[0])
			}
			return runJoin(cmd.Context(), args[0])
		}
		return runHost(cmd.Context())
	},
}

// Execute runs the root command. It is called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.peerboard.yaml)")
	flags.String("name", "", "display name shown to other participants")
	flags.String("color", "", "your color as #rrggbb (random when empty)")
	flags.String("listen", "", "address the host listens on")
	flags.Bool("advertise", true, "announce hosted sessions over mDNS so they can be joined by code")
	flags.Duration("resolve-timeout", 0, "how long to look for a session code on the network")
	flags.String("export-dir", "", "directory for PDF exports")
	flags.String("log-level", "", "trace, debug, info, warn or error")

	bind := map[string]string{
		config.NameKey:           "name",
		config.ColorKey:          "color",
		config.ListenKey:         "listen",
		config.AdvertiseKey:      "advertise",
		config.ResolveTimeoutKey: "resolve-timeout",
		config.ExportDirKey:      "export-dir",
		config.LogLevelKey:       "log-level",
	}
	for key, flag := range bind {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}
	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(hostCmd, joinCmd, versionCmd)
}

func initConfig() {
	cobra.CheckErr(config.ReadFile(viper.GetViper(), cfgFile))
}

func loadConfig(*cobra.Command, []string) error {
	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = c
	setupLogging(cfg.LogLevel)
	return nil
}
