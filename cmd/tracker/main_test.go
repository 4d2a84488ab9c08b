package main

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nyurban_tracker/internal/config"
	"nyurban_tracker/internal/model"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	var got []string
	for _, c := range root.Commands() {
		got = append(got, c.Name())
	}
	want := []string{"check", "migrate", "notify-test", "run", "serve", "state"}
	for _, name := range want {
		if !slices.Contains(got, name) {
			t.Errorf("subcommand %q not registered (have %v)", name, got)
		}
	}
}

func TestPrintState(t *testing.T) {
	st := model.State{
		Slots: model.NewSnapshot(
			model.NewSlot("Beacon / Fri.", "Fri, Jan 10", "Beacon HS", "Intermediate", "7pm", "$20", "Sold Out"),
			model.NewSlot("Beacon / Fri.", "Fri, Jan 17", "Beacon HS", "Intermediate", "7pm", "$20", "3 Available"),
		),
		Meta: model.Metadata{LastCheckTime: float64(time.Date(2025, 1, 10, 19, 0, 0, 0, time.Local).Unix())},
	}

	tests := []struct {
		name          string
		availableOnly bool
		wantRows      []string
		hiddenRows    []string
	}{
		{"all", false, []string{"Fri, Jan 10", "Fri, Jan 17"}, nil},
		{"available only", true, []string{"Fri, Jan 17"}, []string{"Fri, Jan 10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printState(&buf, st, tt.availableOnly, false)
			out := buf.String()

			lines := strings.SplitN(out, "\n", 3)
			if diff := cmp.Diff("Last check: 2025-01-10 19:00:00", lines[0]); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff("Slots: 2 (1 available)", lines[1]); diff != "" {
				t.Errorf("summary mismatch (-want +got):\n%s", diff)
			}
			for _, want := range tt.wantRows {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, hidden := range tt.hiddenRows {
				if strings.Contains(out, hidden) {
					t.Errorf("output should not contain %q:\n%s", hidden, out)
				}
			}
		})
	}
}

func TestPrintStateEmpty(t *testing.T) {
	var buf bytes.Buffer
	printState(&buf, model.State{}, false, false)
	want := "Last check: never\nSlots: 0 (0 available)\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Date", "Status"}, [][]string{{"Fri, Jan 17", "Open"}, {"Sat"}}, false)
	for _, want := range []string{"DATE", "STATUS", "Fri, Jan 17", "Open", "Sat"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, true) != "" {
		t.Error("expected empty table for no headers")
	}
}

func TestRunMigrationUnknownCommand(t *testing.T) {
	if err := runMigration(t.TempDir()+"/tracker.db", "sideways"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRunMigrationUp(t *testing.T) {
	if err := runMigration(t.TempDir()+"/tracker.db", "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
}

func TestSampleSlotIsAvailable(t *testing.T) {
	s := sampleSlot(time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC))
	if !s.IsAvailable {
		t.Error("sample slot should be available")
	}
	if diff := cmp.Diff("Fri, Jan 17", s.Date); diff != "" {
		t.Errorf("date mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCheckerWithTelegram(t *testing.T) {
	cfg := config.Default()
	cfg.StateFile = t.TempDir() + "/state.json"
	cfg.TelegramBotToken = "123:invalid"
	cfg.TelegramChatIDs = []int64{42}

	c := &commandContext{config: &cfg}
	checker, store, err := c.buildChecker()
	if err != nil {
		t.Fatalf("build checker: %v", err)
	}
	defer func() { _ = store.Close() }()
	if checker == nil {
		t.Fatal("expected checker, got nil")
	}
}
