package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rfid-bridge/internal/model"
	"rfid-bridge/internal/service"
)

// ErrTransactionFailed is returned by send after printing a failed result.
var ErrTransactionFailed = errors.New("transaction failed")

func newPortsCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports and mark the ones matching the name filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := st.backend.Ports(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list ports: %w", err)
			}

			filter := st.cfg.Device.NameFilter
			entries := make([]service.PortEntry, 0, len(devices))
			for _, device := range devices {
				entries = append(entries, service.PortEntry{DeviceDescriptor: device, Matches: device.DisplayName == filter})
			}

			return st.printer.print(entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(w, "No serial ports found.")
					return
				}
				fmt.Fprintln(w, "PORT\tNAME\tVID:PID\tSERIAL\tMATCH")
				for _, e := range entries {
					ids := "-"
					if e.IsUSB {
						ids = e.VendorID + ":" + e.ProductID
					}
					match := ""
					if e.Matches {
						match = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.DisplayName, ids, dash(e.SerialNumber), match)
				}
			})
		},
	}
}

func newUSBCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "usb",
		Short: "Scan the USB bus for known USB to UART bridges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bridges, err := st.backend.Bridges(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to scan USB bridges: %w", err)
			}

			return st.printer.print(bridges, func(w io.Writer) {
				if len(bridges) == 0 {
					fmt.Fprintln(w, "No USB bridges found.")
					return
				}
				fmt.Fprintln(w, "VID:PID\tVENDOR\tPRODUCT\tSERIAL\tLOCATION")
				for _, b := range bridges {
					fmt.Fprintf(w, "%s:%s\t%s\t%s\t%s\t%s\n", b.VendorID, b.ProductID, b.Vendor, b.Product, dash(b.SerialNumber), b.Location)
				}
			})
		},
	}
}

func newSendCommand(st *state) *cobra.Command {
	var (
		appendCRC  bool
		nameFilter string
	)

	cmd := &cobra.Command{
		Use:   "send <hex byte>...",
		Short: "Write one command to the reader and print its response",
		Example: `  rfidctl send 01 03 00 00 00 08
  rfidctl send --crc "01 03 00 00 00 08"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := service.TransactionOptions{
				NameFilter:     st.cfg.Device.NameFilter,
				ReadBufferSize: st.cfg.Device.ReadBufferSize,
				AppendCRC:      st.cfg.Device.Frame.AppendCRC || appendCRC,
			}
			if nameFilter != "" {
				options.NameFilter = nameFilter
			}

			sink := &statusWriter{out: cmd.ErrOrStderr()}
			result, err := st.backend.Transact(cmd.Context(), strings.Join(args, " "), options, sink)
			if err != nil {
				return err
			}

			if err := st.printer.print(result, func(w io.Writer) { resultTable(w, result) }); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("%w: %s", ErrTransactionFailed, result.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&appendCRC, "crc", false, "append a Modbus CRC-16 to the command")
	cmd.Flags().StringVar(&nameFilter, "filter", "", "device display name to open (overrides device.name_filter)")
	return cmd
}

func resultTable(w io.Writer, result model.TransactionResult) {
	fmt.Fprintf(w, "ID:\t%s\n", result.ID)
	fmt.Fprintf(w, "COMMAND:\t%s\n", result.Command)
	fmt.Fprintf(w, "STATE:\t%s\n", result.State)
	if result.Success {
		fmt.Fprintf(w, "RESPONSE:\t%s\n", result.Message)
		fmt.Fprintf(w, "BYTES:\t%d\n", len(result.Payload))
		if result.CRCValid != nil {
			fmt.Fprintf(w, "CRC:\t%t\n", *result.CRCValid)
		}
	} else {
		fmt.Fprintf(w, "STAGE:\t%s\n", result.Stage)
		fmt.Fprintf(w, "ERROR:\t%s (%s)\n", result.Message, result.ErrorKind)
	}
	fmt.Fprintf(w, "DURATION:\t%s\n", result.Duration)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show rfidctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "rfidctl version %s\n", version)
			return nil
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
