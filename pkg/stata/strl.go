package stata

import (
	"slices"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

const (
	gsoMarker = "GSO"
	gsoText   = 130
)

// StrlEntry is one long-string record. Payload aliases the source buffer.
type StrlEntry struct {
	Key     StrlKey
	Text    bool
	Payload []byte
}

// StrlTable is the sorted, immutable set of long strings of a file. Lookups
// are safe from any number of goroutines.
type StrlTable struct {
	entries []StrlEntry
}

// ParseStrls parses the GSO records of the strl block. An empty block yields
// an empty table.
func ParseStrls(buf []byte, release int) (*StrlTable, error) {
	r := newReader(buf)
	var entries []StrlEntry

	for r.remaining() > 0 {
		if err := r.expect(gsoMarker); err != nil {
			return nil, err
		}
		v, err := r.u32("GSO v")
		if err != nil {
			return nil, err
		}
		var o uint64
		if release == 117 {
			o32, err := r.u32("GSO o")
			if err != nil {
				return nil, err
			}
			o = uint64(o32)
		} else if o, err = r.u64("GSO o"); err != nil {
			return nil, err
		}
		t, err := r.u8("GSO t")
		if err != nil {
			return nil, err
		}
		n, err := r.u32("GSO len")
		if err != nil {
			return nil, err
		}
		payload, err := r.take(int(n), "GSO payload")
		if err != nil {
			return nil, err
		}
		entries = append(entries, StrlEntry{
			Key:     StrlKey{O: o, V: v},
			Text:    t == gsoText,
			Payload: payload,
		})
	}

	slices.SortFunc(entries, func(a, b StrlEntry) int { return a.Key.Compare(b.Key) })
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key == entries[i].Key {
			return nil, errors.Newf(errors.ErrorTypeStructural, "duplicate strl key (o=%d, v=%d)",
				entries[i].Key.O, entries[i].Key.V)
		}
	}

	return &StrlTable{entries: entries}, nil
}

// Len returns the number of records.
func (t *StrlTable) Len() int { return len(t.entries) }

// Lookup returns the payload stored under key. The zero key returns an empty
// payload without consulting the table.
func (t *StrlTable) Lookup(key StrlKey) ([]byte, error) {
	if key.IsZero() {
		return []byte{}, nil
	}
	i, found := slices.BinarySearchFunc(t.entries, key, func(e StrlEntry, k StrlKey) int {
		return e.Key.Compare(k)
	})
	if !found {
		return nil, errors.Newf(errors.ErrorTypeStrlLookup, "no strl record for (o=%d, v=%d)", key.O, key.V).
			WithDetail("o", key.O).
			WithDetail("v", key.V)
	}
	return t.entries[i].Payload, nil
}
