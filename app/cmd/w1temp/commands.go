package main

import (
	"github.com/spf13/cobra"

	"github.com/jroedel/w1temp/app/sdk/appw1temp"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the thermometers on the bus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, release, err := newApp(sinks{})
		if err != nil {
			return err
		}
		defer release()
		return app.List()
	},
}

var readCmd = &cobra.Command{
	Use:   "read [device-id...]",
	Short: "Read the given thermometers, or every thermometer on the bus",
	Long: `Read the given thermometers, or every thermometer on the bus.

Every device is attempted even when others fail. The exit status is 1 when
the bus could not be listed or at least one device could not be read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, release, err := newApp(sinks{journal: true, publish: true})
		if err != nil {
			return err
		}
		defer release()
		return app.Read(args)
	},
}

var history appw1temp.HistoryRequest

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled readings, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := history.Validate(); err != nil {
			return err
		}
		app, release, err := newApp(sinks{journal: true})
		if err != nil {
			return err
		}
		defer release()
		return app.History(history)
	},
}

func init() {
	historyCmd.Flags().StringVarP(&history.Device, "device", "d", "", "only show this device")
	historyCmd.Flags().IntVarP(&history.Limit, "limit", "n", 0, "number of rows to show (default 20)")
	historyCmd.Flags().DurationVarP(&history.Average, "average", "a", 0, "print the average of --device over this window, e.g. 1h")
}
