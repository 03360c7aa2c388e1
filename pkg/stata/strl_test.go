package stata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
	"github.com/ajitpratap0/dta2parquet/pkg/stata/statatest"
)

func strlBlock(release int, records ...statatest.GSO) []byte {
	f := &statatest.File{Release: release, Strls: records}
	_, fm, err := ParseMetadata(f.Bytes())
	if err != nil {
		panic(err)
	}
	return fm.Strls
}

func TestParseStrlsLookup(t *testing.T) {
	records := []statatest.GSO{
		{V: 2, O: 5, Payload: []byte("fifth/second\x00")},
		{V: 1, O: 5, Payload: []byte("fifth/first\x00")},
		{V: 1, O: 1, Binary: true, Payload: []byte{0xde, 0xad}},
		{V: 3, O: 1 << 40, Payload: []byte("far\x00")},
	}
	tab, err := ParseStrls(strlBlock(118, records...), 118)
	require.NoError(t, err)
	require.Equal(t, 4, tab.Len())

	for _, r := range records {
		got, err := tab.Lookup(StrlKey{O: r.O, V: r.V})
		require.NoError(t, err)
		assert.Equal(t, r.Payload, got)
	}

	entries := tab.entries
	for i := 1; i < len(entries); i++ {
		assert.Negative(t, entries[i-1].Key.Compare(entries[i].Key), "entries not sorted at %d", i)
	}
	assert.False(t, entries[0].Text, "binary record flagged as text")
	assert.True(t, entries[1].Text)
}

func TestStrlLookupZeroKey(t *testing.T) {
	empty, err := ParseStrls(nil, 118)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	got, err := empty.Lookup(StrlKey{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStrlLookupMissingKey(t *testing.T) {
	tab, err := ParseStrls(strlBlock(118, statatest.GSO{V: 1, O: 1, Payload: []byte("x")}), 118)
	require.NoError(t, err)

	_, err = tab.Lookup(StrlKey{V: 1, O: 2})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStrlLookup))
	assert.Contains(t, err.Error(), "o=2, v=1")
}

func TestParseStrlsRelease117(t *testing.T) {
	tab, err := ParseStrls(strlBlock(117,
		statatest.GSO{V: 4, O: 9, Payload: []byte("from 117\x00")},
	), 117)
	require.NoError(t, err)

	got, err := tab.Lookup(StrlKey{V: 4, O: 9})
	require.NoError(t, err)
	assert.Equal(t, []byte("from 117\x00"), got)
}

func TestParseStrlsErrors(t *testing.T) {
	dup := strlBlock(118,
		statatest.GSO{V: 1, O: 1, Payload: []byte("a")},
		statatest.GSO{V: 1, O: 1, Payload: []byte("b")},
	)
	valid := strlBlock(118, statatest.GSO{V: 1, O: 1, Payload: []byte("abc")})

	tests := []struct {
		name     string
		buf      []byte
		contains string
	}{
		{"duplicate key", dup, "duplicate strl key"},
		{"trailing garbage", append(append([]byte(nil), valid...), 'x', 'y'), "expected tag GSO"},
		{"truncated payload", valid[:len(valid)-1], "truncated input reading GSO payload"},
		{"truncated header", valid[:10], "truncated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStrls(tt.buf, 118)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeStructural))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
