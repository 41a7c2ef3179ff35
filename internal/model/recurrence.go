package model

import (
	"fmt"
	"sort"
	"time"
)

type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// RecurrenceRule describes the cadence of a series anchor. A nil rule (or
// FrequencyNone) means the event is standalone. Until, when set, is the last
// instant at which an occurrence may start, inclusive.
type RecurrenceRule struct {
	Frequency Frequency      `json:"frequency"`
	Interval  int            `json:"interval"`
	Until     *time.Time     `json:"until,omitempty"`
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`
}

func (r RecurrenceRule) Validate() error {
	switch r.Frequency {
	case FrequencyNone:
		return nil
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, r.Frequency)
	}
	if r.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidRule, r.Interval)
	}
	if len(r.Weekdays) > 0 {
		if r.Frequency != FrequencyWeekly {
			return fmt.Errorf("%w: weekday set requires weekly frequency", ErrInvalidRule)
		}
		s := make([]int, 0, len(r.Weekdays))
		for _, d := range r.Weekdays {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("%w: weekday out of range: %d", ErrInvalidRule, d)
			}
			s = append(s, int(d))
		}
		sort.Ints(s)
		for i := 1; i < len(s); i++ {
			if s[i] == s[i-1] {
				return fmt.Errorf("%w: duplicate weekday in rule", ErrInvalidRule)
			}
		}
	}
	return nil
}

// IsRecurring reports whether the rule produces occurrences beyond the anchor.
func (r RecurrenceRule) IsRecurring() bool {
	return r.Frequency != FrequencyNone && r.Frequency != ""
}

// Clone returns a deep copy of the rule.
func (r RecurrenceRule) Clone() RecurrenceRule {
	out := r
	if r.Until != nil {
		u := *r.Until
		out.Until = &u
	}
	out.Weekdays = append([]time.Weekday(nil), r.Weekdays...)
	return out
}
