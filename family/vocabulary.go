// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package family

import (
	"fmt"
	"sort"
	"strings"
)

// A Vocabulary is the set of recognized line prefixes across one or
// more families. It is immutable once built and safe for concurrent
// use.
type Vocabulary struct {
	families []*Family
	byName   map[string]*Family

	// entries is sorted by prefix.
	entries []Entry
}

// An Entry binds a recognized prefix to the series it reports.
type Entry struct {
	Prefix string
	Key    SeriesKey
	Family *Family
}

// NewVocabulary validates fams and builds their combined vocabulary.
// It fails if two families share a name, or if one prefix is a prefix
// of another, since a payload must then match more than one.
func NewVocabulary(fams ...*Family) (*Vocabulary, error) {
	v := &Vocabulary{byName: make(map[string]*Family)}
	for _, f := range fams {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, ok := v.byName[f.Name]; ok {
			return nil, fmt.Errorf("duplicate family %s", f.Name)
		}
		v.byName[f.Name] = f
		v.families = append(v.families, f)
		for _, vr := range f.Variants {
			v.entries = append(v.entries, Entry{vr.Prefix, SeriesKey{f.Name, vr.Name}, f})
		}
	}
	if len(v.entries) == 0 {
		return nil, fmt.Errorf("vocabulary has no prefixes")
	}
	sort.Slice(v.entries, func(i, j int) bool {
		return v.entries[i].Prefix < v.entries[j].Prefix
	})
	// After sorting, a prefix of another prefix sorts immediately
	// before some string it prefixes, so checking neighbors is enough.
	for i := 1; i < len(v.entries); i++ {
		a, b := v.entries[i-1], v.entries[i]
		if strings.HasPrefix(b.Prefix, a.Prefix) {
			return nil, fmt.Errorf("ambiguous prefixes %q (%s) and %q (%s)", a.Prefix, a.Key, b.Prefix, b.Key)
		}
	}
	return v, nil
}

// Families returns the families in the order they were given.
func (v *Vocabulary) Families() []*Family {
	return v.families
}

// Family returns the family called name.
func (v *Vocabulary) Family(name string) (*Family, bool) {
	f, ok := v.byName[name]
	return f, ok
}

// Entries returns every recognized prefix, sorted.
func (v *Vocabulary) Entries() []Entry {
	return v.entries
}

// Relevant reports whether line contains any recognized prefix
// anywhere. Lines that are not relevant are kernel noise.
func (v *Vocabulary) Relevant(line string) bool {
	for _, e := range v.entries {
		if strings.Contains(line, e.Prefix) {
			return true
		}
	}
	return false
}

// Match returns the entry whose prefix starts payload. Prefixes are
// unambiguous, so at most one can match.
func (v *Vocabulary) Match(payload string) (Entry, bool) {
	// The matching prefix, if any, is the greatest prefix <= payload.
	i := sort.Search(len(v.entries), func(i int) bool {
		return v.entries[i].Prefix > payload
	})
	if i == 0 {
		return Entry{}, false
	}
	if e := v.entries[i-1]; strings.HasPrefix(payload, e.Prefix) {
		return e, true
	}
	return Entry{}, false
}
