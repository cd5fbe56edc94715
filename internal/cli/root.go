// Package cli implements rfidctl, a local tool for poking at the reader without the HTTP service.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rfid-bridge/internal/config"
	"rfid-bridge/internal/utils"
)

// version is set at build time via -ldflags "-X rfid-bridge/internal/cli.version=x.y.z"
var version = "dev"

// state is shared by all subcommands of one root command.
type state struct {
	configFile   string
	outputFormat string
	verbose      bool

	factory BackendFactory
	cfg     *config.Config
	logger  *zap.Logger
	backend Backend
	printer *printer
}

// NewRootCommand builds rfidctl; factory supplies the device access once config is loaded.
func NewRootCommand(factory BackendFactory) *cobra.Command {
	st := &state{factory: factory}

	root := &cobra.Command{
		Use:   "rfidctl",
		Short: "Talk to an RFID reader behind a USB to UART bridge",
		Long: `rfidctl lists serial ports and USB bridges, and sends single hex commands
to the RFID reader using the same configuration as the rfid-bridge service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if st.logger != nil {
				_ = utils.CloseLogger(st.logger)
			}
		},
	}

	root.PersistentFlags().StringVar(&st.configFile, "config", os.Getenv("RFID_BRIDGE_CONFIG"), "config file (default searches ., ./config and /etc/rfid-bridge)")
	root.PersistentFlags().StringVarP(&st.outputFormat, "output", "o", FormatTable, "output format: table, json, yaml")
	root.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newPortsCommand(st),
		newUSBCommand(st),
		newSendCommand(st),
		newVersionCommand(),
	)
	return root
}

func (st *state) setup(cmd *cobra.Command) error {
	var err error
	st.printer, err = newPrinter(st.outputFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	st.cfg, err = config.Load(st.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// stdout carries command output, so logs always go to stderr
	logging := st.cfg.Logging
	logging.Output = "stderr"
	logging.Format = "console"
	logging.Level = "warn"
	if st.verbose {
		logging.Level = "debug"
	}
	st.logger, err = utils.NewLogger(&logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	st.backend, err = st.factory(st.cfg, st.logger)
	return err
}

// Execute runs rfidctl against the local hardware.
func Execute() {
	if err := NewRootCommand(NewDeviceBackend).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
