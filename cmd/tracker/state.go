package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"nyurban_tracker/internal/model"
	"nyurban_tracker/internal/storage"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	var availableOnly bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the stored snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(ctx.config)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer func() { _ = store.Close() }()

			st, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load state: %w", err)
			}
			out := cmd.OutOrStdout()
			printState(out, st, availableOnly, isTerminal(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&availableOnly, "available", false, "Only show available slots")
	return cmd
}

func printState(w io.Writer, st model.State, availableOnly, fancy bool) {
	if st.Meta.LastCheckTime > 0 {
		sec := int64(st.Meta.LastCheckTime)
		fmt.Fprintf(w, "Last check: %s\n", time.Unix(sec, 0).Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(w, "Last check: never")
	}

	var rows [][]string
	available := 0
	for _, s := range st.Slots.Slots() {
		if s.IsAvailable {
			available++
		} else if availableOnly {
			continue
		}
		rows = append(rows, []string{s.Location, s.Date, s.Gym, s.Level, s.Time, s.Fee, s.Available})
	}
	fmt.Fprintf(w, "Slots: %d (%d available)\n", st.Slots.Len(), available)
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(w, renderTable([]string{"Location", "Date", "Gym", "Level", "Time", "Fee", "Status"}, rows, fancy))
}
