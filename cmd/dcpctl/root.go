package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/dcpctl/internal/config"
	"github.com/danmuck/dcpctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath       string
	host             string
	port             int
	debug            bool
	checkCorrelation bool
	logLevel         string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "dcpctl",
		Short:         "Send KLV API commands to a Doremi DCP-2000 server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a TOML client config")
	pf.StringVar(&flags.host, "host", config.DefaultHost, "device host")
	pf.IntVarP(&flags.port, "port", "p", config.DefaultPort, "device API port")
	pf.BoolVarP(&flags.debug, "debug", "d", false, "log wire traces of every frame")
	pf.BoolVar(&flags.checkCorrelation, "check-correlation", false, "reject responses with a foreign correlation id")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level override (trace|debug|info|warn|error|disabled)")

	root.AddCommand(
		newCommandsCmd(),
		newCallCmd(flags),
		newExplainCmd(),
		newConfigCmd(),
	)
	return root
}

// resolveConfig loads the optional config file and applies explicit flags
// on top of it.
func resolveConfig(cmd *cobra.Command, flags *rootFlags) (config.Client, error) {
	cfg := config.Default()
	if strings.TrimSpace(flags.configPath) != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return config.Client{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("host") {
		cfg.Host = strings.TrimSpace(flags.host)
	}
	if changed("port") {
		cfg.Port = flags.port
	}
	if changed("debug") {
		cfg.Debug = flags.debug
	}
	if changed("check-correlation") {
		cfg.CheckCorrelation = flags.checkCorrelation
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return config.Client{}, err
	}
	return cfg, nil
}

// applyLogLevel raises the global level to debug when wire traces are on.
func applyLogLevel(cfg config.Client) error {
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok && strings.TrimSpace(cfg.LogLevel) != "" {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	if cfg.Debug && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
