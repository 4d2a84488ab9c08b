// Package model defines the domain types used across the application.
package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// KeySeparator joins the identity fields of a slot. It is not expected to
// appear in scraped text.
const KeySeparator = "|"

const soldOut = "sold out"

// Location is one of the fixed booking filters on the site.
type Location struct {
	ID   int
	Name string
}

// Locations lists every supported location in check order.
var Locations = []Location{
	{ID: 1, Name: "LaGuardia / Fri."},
	{ID: 2, Name: "Beacon / Fri."},
	{ID: 3, Name: "Brandeis / Fri."},
	{ID: 4, Name: "Brandeis / Sunday"},
	{ID: 5, Name: "Clinics"},
}

// Slot is one bookable row as scraped from a location page.
type Slot struct {
	Location    string `json:"location"`
	Date        string `json:"date"`
	Gym         string `json:"gym"`
	Level       string `json:"level"`
	Time        string `json:"time"`
	Fee         string `json:"fee"`
	Available   string `json:"available"`
	IsAvailable bool   `json:"is_available"`
}

// NewSlot builds a slot and derives IsAvailable from the availability text.
func NewSlot(location, date, gym, level, tm, fee, available string) Slot {
	return Slot{
		Location:    location,
		Date:        date,
		Gym:         gym,
		Level:       level,
		Time:        tm,
		Fee:         fee,
		Available:   available,
		IsAvailable: IsAvailableText(available),
	}
}

// Key returns the identity key of the slot.
func (s Slot) Key() string {
	return SlotKey(s.Location, s.Date, s.Gym, s.Level, s.Time)
}

// SlotKey joins the identity fields of a slot.
func SlotKey(location, date, gym, level, tm string) string {
	return strings.Join([]string{location, date, gym, level, tm}, KeySeparator)
}

// IsAvailableText reports whether availability text means the slot can be
// booked. Only empty text and "sold out" (any case) mean not available;
// every other status counts as available.
func IsAvailableText(text string) bool {
	t := cases.Fold().String(strings.TrimSpace(text))
	return t != soldOut && t != ""
}

// Snapshot maps identity keys to slots and remembers insertion order.
// The zero value is an empty snapshot ready to use.
type Snapshot struct {
	keys  []string
	slots map[string]Slot
}

// NewSnapshot builds a snapshot from slots in order. Later duplicates
// overwrite earlier ones.
func NewSnapshot(slots ...Slot) Snapshot {
	var s Snapshot
	for _, slot := range slots {
		s.Add(slot)
	}
	return s
}

// Add stores slot under its identity key.
func (s *Snapshot) Add(slot Slot) {
	s.Put(slot.Key(), slot)
}

// Put stores slot under key. Overwriting an existing key keeps its position.
func (s *Snapshot) Put(key string, slot Slot) {
	if s.slots == nil {
		s.slots = make(map[string]Slot)
	}
	if _, ok := s.slots[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.slots[key] = slot
}

// Merge adds every entry of other, in its order.
func (s *Snapshot) Merge(other Snapshot) {
	for _, k := range other.keys {
		s.Put(k, other.slots[k])
	}
}

// Get returns the slot stored under key.
func (s Snapshot) Get(key string) (Slot, bool) {
	slot, ok := s.slots[key]
	return slot, ok
}

// Len returns the number of slots.
func (s Snapshot) Len() int {
	return len(s.keys)
}

// Keys returns the identity keys in insertion order.
func (s Snapshot) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Slots returns the slots in insertion order.
func (s Snapshot) Slots() []Slot {
	out := make([]Slot, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.slots[k])
	}
	return out
}

// Metadata is the bookkeeping stored next to a snapshot.
type Metadata struct {
	// LastCheckTime is the wall clock of the last successful save, in epoch
	// seconds. Zero means no check has been recorded.
	LastCheckTime float64
}

// State is the persisted result of the last successful check cycle.
type State struct {
	Slots Snapshot
	Meta  Metadata
}
