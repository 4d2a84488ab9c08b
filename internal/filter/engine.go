// Package filter decides which newly available slots are worth a
// notification.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"nyurban_tracker/internal/model"
)

// Kind says whether a matching rule admits or rejects a slot.
type Kind string

// Rule kinds.
const (
	Include Kind = "include"
	Exclude Kind = "exclude"
)

// Field is the slot field a rule looks at. FieldAll joins every identity
// field.
type Field string

// Fields a rule can be scoped to.
const (
	FieldAll      Field = ""
	FieldLocation Field = "location"
	FieldDate     Field = "date"
	FieldGym      Field = "gym"
	FieldLevel    Field = "level"
	FieldTime     Field = "time"
)

// Rule is one include or exclude condition.
type Rule struct {
	Kind  Kind
	Field Field
	// Value is a case-insensitive substring, or a pattern when re is set.
	Value string
	re    *regexp.Regexp
}

// ParseRule parses "[field:]value" or "[field:]/regexp/". Matching ignores
// case.
func ParseRule(kind Kind, raw string) (Rule, error) {
	r := Rule{Kind: kind}
	raw = strings.TrimSpace(raw)

	if field, rest, ok := strings.Cut(raw, ":"); ok {
		switch f := Field(strings.ToLower(strings.TrimSpace(field))); f {
		case FieldLocation, FieldDate, FieldGym, FieldLevel, FieldTime:
			r.Field = f
			raw = strings.TrimSpace(rest)
		}
	}

	if len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
		pattern := raw[1 : len(raw)-1]
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return Rule{}, fmt.Errorf("invalid regex %q: %w", pattern, err)
		}
		r.Value = pattern
		r.re = re
		return r, nil
	}

	if raw == "" {
		return Rule{}, fmt.Errorf("empty %s rule", kind)
	}
	r.Value = strings.ToLower(raw)
	return r, nil
}

// ParseRules parses include and exclude rules into one list.
func ParseRules(include, exclude []string) ([]Rule, error) {
	var rules []Rule
	for _, group := range []struct {
		kind Kind
		raws []string
	}{{Include, include}, {Exclude, exclude}} {
		for _, raw := range group.raws {
			r, err := ParseRule(group.kind, raw)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// Match reports whether slot passes rules. No rules pass everything.
// Include rules are ORed; any matching exclude rule rejects.
func Match(slot model.Slot, rules []Rule) bool {
	hasIncludes := false
	anyIncludeMatched := false

	for _, r := range rules {
		switch r.Kind {
		case Include:
			hasIncludes = true
			if r.matches(slot) {
				anyIncludeMatched = true
			}
		case Exclude:
			if r.matches(slot) {
				return false
			}
		}
	}
	return !hasIncludes || anyIncludeMatched
}

// Apply returns the slots that pass rules, in order.
func Apply(slots []model.Slot, rules []Rule) []model.Slot {
	if len(rules) == 0 {
		return slots
	}
	var out []model.Slot
	for _, s := range slots {
		if Match(s, rules) {
			out = append(out, s)
		}
	}
	return out
}

func (r Rule) matches(slot model.Slot) bool {
	text := textFor(slot, r.Field)
	if r.re != nil {
		return r.re.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), r.Value)
}

func textFor(slot model.Slot, field Field) string {
	switch field {
	case FieldLocation:
		return slot.Location
	case FieldDate:
		return slot.Date
	case FieldGym:
		return slot.Gym
	case FieldLevel:
		return slot.Level
	case FieldTime:
		return slot.Time
	default:
		return strings.Join([]string{slot.Location, slot.Date, slot.Gym, slot.Level, slot.Time}, " ")
	}
}
