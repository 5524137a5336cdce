// Author @gajzzs
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gajzzs/usbwarden/internal/app"
)

func newRootCommand() *cobra.Command {
	opts := app.NewOptions()

	root := &cobra.Command{
		Use:           "usbwarden",
		Short:         "USB storage device monitor and access control",
		Long:          "usbwarden tracks USB storage devices as they are plugged in and lets an administrator allow or deny them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	opts.Bind(root)

	root.AddCommand(
		app.NewRunCommand(opts),
		app.NewServiceCommand(opts),
		app.NewDevicesCommand(opts),
		app.NewStorageCommand(opts),
		app.NewHardwareCommand(opts),
		app.NewLogsCommand(opts),
		app.NewStatusCommand(opts),
		app.NewConfigCommand(opts),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
