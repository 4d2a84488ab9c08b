package notify

import (
	"fmt"
	"strings"
	"time"

	"nyurban_tracker/internal/model"
)

const rule = "============================================================"

// Subject returns the message subject for n newly available slots.
func Subject(n int) string {
	return fmt.Sprintf("NY Urban: %d Slot(s) Available!", n)
}

// FormatBody describes every slot in one plain-text message.
func FormatBody(slots []model.Slot, bookURL string, checkedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Great news! %d slot(s) have become available on NY Urban:\n\n", len(slots))
	b.WriteString(rule + "\n\n")

	for i, s := range slots {
		fmt.Fprintf(&b, "Slot %d:\n", i+1)
		if s.Location != "" {
			fmt.Fprintf(&b, "  Location: %s\n", s.Location)
		}
		fmt.Fprintf(&b, "  Date: %s\n", s.Date)
		fmt.Fprintf(&b, "  Gym: %s\n", s.Gym)
		fmt.Fprintf(&b, "  Level: %s\n", s.Level)
		fmt.Fprintf(&b, "  Time: %s\n", s.Time)
		fmt.Fprintf(&b, "  Fee: %s\n", s.Fee)
		fmt.Fprintf(&b, "  Status: %s\n", s.Available)
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n\n")
	if bookURL != "" {
		fmt.Fprintf(&b, "Book now: %s\n", bookURL)
	}
	fmt.Fprintf(&b, "\nChecked at: %s\n", checkedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}
