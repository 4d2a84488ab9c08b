package scraper

import (
	"strings"

	"nyurban_tracker/internal/model"
)

// ColumnMap is the positional layout of a schedule table row. A page layout
// change only needs a new ColumnMap.
type ColumnMap struct {
	Date      int
	Gym       int
	Level     int
	Time      int
	Fee       int
	Available int
	// MinCells is the number of td cells a row needs to be a data row.
	MinCells int
}

// DefaultColumns matches the schedule table:
// Select, Date, Gym, Level, Time, Fee, Available.
var DefaultColumns = ColumnMap{
	Date:      1,
	Gym:       2,
	Level:     3,
	Time:      4,
	Fee:       5,
	Available: 6,
	MinCells:  7,
}

// ExtractRow turns the cell texts of one table row into a Slot for location.
// It reports false for rows that are not data rows: too few cells, or an
// empty date or gym.
func (m ColumnMap) ExtractRow(location string, cells []string) (model.Slot, bool) {
	if len(cells) < m.MinCells {
		return model.Slot{}, false
	}
	cell := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	date, gym := cell(m.Date), cell(m.Gym)
	if date == "" || gym == "" {
		return model.Slot{}, false
	}
	return model.NewSlot(location, date, gym, cell(m.Level), cell(m.Time), cell(m.Fee), cell(m.Available)), true
}
