package model

import "slices"

// IconSet is a sorted, duplicate-free collection of icons.
//
// Adding an icon whose key (URL plus headers) is already present raises
// every entry with that key to the highest kind seen. After each Add the
// set is re-sorted by Icon.Compare and exact duplicates are removed.
//
// IconSet is not safe for concurrent use.
type IconSet struct {
	entries []Icon
}

// NewIconSet returns a set holding icons.
func NewIconSet(icons ...Icon) *IconSet {
	s := &IconSet{}
	s.Add(icons...)
	return s
}

// Add merges icons into the set.
func (s *IconSet) Add(icons ...Icon) {
	if len(icons) == 0 {
		return
	}

	merged := append(slices.Clone(s.entries), icons...)

	kinds := make(map[string]IconKind, len(merged))
	for _, icon := range merged {
		key := icon.Key()
		if kind, ok := kinds[key]; ok {
			kinds[key] = MaxKind(kind, icon.Kind)
		} else {
			kinds[key] = icon.Kind
		}
	}
	for idx := range merged {
		merged[idx].Kind = kinds[merged[idx].Key()]
	}

	slices.SortStableFunc(merged, Icon.Compare)
	s.entries = slices.CompactFunc(merged, Icon.Equal)
}

// Entries returns a copy of the icons in preference order.
func (s *IconSet) Entries() []Icon {
	return slices.Clone(s.entries)
}

// Len returns the number of icons.
func (s *IconSet) Len() int {
	return len(s.entries)
}
