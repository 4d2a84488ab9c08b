package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nyurban_tracker/internal/model"
)

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a sample notification through every configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := ctx.notifier()
			if err != nil {
				return err
			}
			if err := n.Notify(cmd.Context(), []model.Slot{sampleSlot(time.Now())}); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}

func sampleSlot(now time.Time) model.Slot {
	return model.NewSlot(
		model.Locations[0].Name,
		now.Format("Mon, Jan 2"),
		"Test Gym",
		"Intermediate",
		"7:00pm - 10:00pm",
		"$20",
		"1 Available",
	)
}
