package model

import "time"

// OccurrenceOverrides is a partial field bag applied over an anchor's fields
// for one occurrence. The same shape carries caller-supplied modifications
// into the series mutator. Start/End replace the occurrence's times; the
// exception key stays the original, un-shifted instant.
type OccurrenceOverrides struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
}

// IsZero reports whether no field is overridden.
func (o OccurrenceOverrides) IsZero() bool {
	return o.Title == nil && o.Description == nil && o.Location == nil &&
		o.Start == nil && o.End == nil
}

// Clone returns a deep copy of the override bag.
func (o OccurrenceOverrides) Clone() OccurrenceOverrides {
	out := OccurrenceOverrides{}
	if o.Title != nil {
		v := *o.Title
		out.Title = &v
	}
	if o.Description != nil {
		v := *o.Description
		out.Description = &v
	}
	if o.Location != nil {
		v := *o.Location
		out.Location = &v
	}
	if o.Start != nil {
		v := *o.Start
		out.Start = &v
	}
	if o.End != nil {
		v := *o.End
		out.End = &v
	}
	return out
}

// Merge returns a copy of o with non-nil fields of other applied on top.
func (o OccurrenceOverrides) Merge(other OccurrenceOverrides) OccurrenceOverrides {
	out := o.Clone()
	if other.Title != nil {
		v := *other.Title
		out.Title = &v
	}
	if other.Description != nil {
		v := *other.Description
		out.Description = &v
	}
	if other.Location != nil {
		v := *other.Location
		out.Location = &v
	}
	if other.Start != nil {
		v := *other.Start
		out.Start = &v
	}
	if other.End != nil {
		v := *other.End
		out.End = &v
	}
	return out
}

// Exception overrides a single occurrence of a series. Exactly one of the
// three meanings applies: Skip cancels the occurrence, Detached marks it
// (and everything after it) as owned by another anchor created by a
// this-and-future split, and a non-nil Overrides bag rewrites fields.
type Exception struct {
	Skip      bool                 `json:"skip,omitempty"`
	Detached  bool                 `json:"detached,omitempty"`
	Overrides *OccurrenceOverrides `json:"overrides,omitempty"`
}

// ExceptionMap holds per-series exceptions keyed by the original occurrence
// start instant. Keys are produced by OccurrenceKey and are the only
// representation of the instant that leaves this package.
type ExceptionMap map[string]Exception

// OccurrenceKey renders an occurrence's original start instant as the
// canonical map key.
func OccurrenceKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseOccurrenceKey is the inverse of OccurrenceKey.
func ParseOccurrenceKey(key string) (time.Time, error) {
	return time.Parse(time.RFC3339, key)
}

// Clone returns a deep copy of the map. A nil map clones to nil.
func (m ExceptionMap) Clone() ExceptionMap {
	if m == nil {
		return nil
	}
	out := make(ExceptionMap, len(m))
	for k, v := range m {
		cp := v
		if v.Overrides != nil {
			ov := v.Overrides.Clone()
			cp.Overrides = &ov
		}
		out[k] = cp
	}
	return out
}
