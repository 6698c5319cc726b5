package main

import (
	"fmt"

	"github.com/j9brown/victron-vebus/internal/core/domain"
	"github.com/j9brown/victron-vebus/pkg/vebus"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"
)

// Control command flags
var (
	currentLimit float64
	stayResident bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor DEVICE",
	Short: "Monitor the status of the attached VE.Bus device",
	Long: `Monitor the status of the attached VE.Bus device.

Polls the LED, DC, AC (one request per phase) and config status in a loop
and prints every frame the device sends. Runs until interrupted.`,
	Example: `  # Watch the simulator
  vebusctl monitor 'sim://?phases=3'

  # Watch a device behind an MQTT gateway, as json
  vebusctl monitor mqtt://broker.local/vebus --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, domain.MonitorCommand{DeviceID: args[0]}, "")
	},
}

var controlCmd = &cobra.Command{
	Use:   "control DEVICE {on|off|charger_only|inverter_only}",
	Short: "Set the switch state and current limit of the attached VE.Bus device",
	Long: `Set the switch state and current limit of the attached VE.Bus device.

The state request is repeated until the device acknowledges it. There is no
retry limit. With --monitor the status is monitored after the
acknowledgment, otherwise the command exits.`,
	Example: `  # Switch to charger only, limiting the input current to 10 A
  vebusctl control mqtt://broker.local/vebus charger_only --current-limit 10

  # Turn on and keep monitoring
  vebusctl control 'sim://?ack_after=2' on --monitor`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"on", "off", "charger_only", "inverter_only"},
	RunE:      runControl,
}

func init() {
	controlCmd.Flags().Float64Var(&currentLimit, "current-limit", 0, "Current limit in amps")
	controlCmd.Flags().BoolVar(&stayResident, "monitor", false, "Keep monitoring the status after acknowledgment")
}

func runControl(cmd *cobra.Command, args []string) error {
	state, err := vebus.ParseSwitchState(args[1])
	if err != nil {
		return err
	}

	command := domain.ControlCommand{
		DeviceID:     args[0],
		SwitchState:  state,
		StayResident: stayResident,
	}
	// an absent limit is not the same as a zero limit
	if cmd.Flags().Changed("current-limit") {
		limit := currentLimit
		command.CurrentLimit = &limit
	}

	return runCommand(cmd, command, command.Description())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vebusctl %s\n", versionInfo())
	},
}

func versionInfo() string {
	return fmt.Sprintf("%s (revision %s, built %s)", versioninfo.Version, versioninfo.Revision, versioninfo.LastCommit.Format("2006-01-02"))
}
