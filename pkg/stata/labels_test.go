package stata

import (
	"encoding/binary"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
	"github.com/ajitpratap0/dta2parquet/pkg/stata/statatest"
)

var yesNo = statatest.LabelSet{Name: "yesno", Values: []int32{0, 1}, Labels: []string{"no", "yes"}}

func TestParseValueLabelsTagged(t *testing.T) {
	f := &statatest.File{
		Release: 118,
		Vars: []statatest.Variable{
			{Name: "q1", Code: statatest.TaggedByte, ValueLabelName: "yesno"},
			{Name: "q2", Code: statatest.TaggedByte, ValueLabelName: "yesno"},
			{Name: "region", Code: statatest.TaggedInt, ValueLabelName: "regions"},
			{Name: "free", Code: statatest.TaggedInt},
		},
		ValueLabels: []statatest.LabelSet{
			yesNo,
			{Name: "regions", Values: []int32{-1, 10, 20}, Labels: []string{"unknown", "north", "süd"}},
		},
	}
	meta, fm, err := ParseMetadata(f.Bytes())
	require.NoError(t, err)

	tables, err := ParseValueLabels(fm.ValueLabels, meta.Release)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "yesno", tables[0].Name)
	assert.Equal(t, []string{"unknown", "north", "süd"}, tables[1].Labels)

	assert.Equal(t, []int32{-1, 10, 20}, tables[1].Values)

	attached := AttachValueLabels(meta, tables)
	assert.Equal(t, 3, attached)
	assert.Same(t, meta.Vars[0].ValueLabels, meta.Vars[1].ValueLabels)
	assert.Same(t, tables[1], meta.Vars[2].ValueLabels)
	assert.Nil(t, meta.Vars[3].ValueLabels)
}

func TestParseValueLabelsLegacy(t *testing.T) {
	f := legacyFixture()
	f.ValueLabels = []statatest.LabelSet{{Name: "scorelbl", Values: []int32{7, -3}, Labels: []string{"seven", "minus three"}}}
	meta, fm, err := ParseMetadata(f.Bytes())
	require.NoError(t, err)

	tables, err := ParseValueLabels(fm.ValueLabels, meta.Release)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, []int32{7, -3}, tables[0].Values)

	AttachValueLabels(meta, tables)
	require.NotNil(t, meta.Vars[0].ValueLabels)
	assert.Nil(t, meta.Vars[1].ValueLabels)
}

func TestParseValueLabelsLatin1(t *testing.T) {
	f := legacyFixture()
	f.ValueLabels = []statatest.LabelSet{{Name: "scorelbl", Values: []int32{7, 101}, Labels: []string{"tr\xe8s bon", "ok"}}}
	meta, fm, err := ParseMetadata(f.Bytes())
	require.NoError(t, err)

	tables, err := ParseValueLabels(fm.ValueLabels, meta.Release)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"tr\uFFFDs bon", "ok"}, tables[0].Labels)
}

func TestParseValueLabelsErrors(t *testing.T) {
	block := func(release int) []byte {
		f := &statatest.File{Release: release, ValueLabels: []statatest.LabelSet{yesNo}}
		_, fm, err := ParseMetadata(f.Bytes())
		require.NoError(t, err)
		return append([]byte(nil), fm.ValueLabels...)
	}

	t.Run("length mismatch", func(t *testing.T) {
		b := block(113)
		binary.LittleEndian.PutUint32(b[0:4], 99)
		_, err := ParseValueLabels(b, 113)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeStructural))
		assert.Contains(t, err.Error(), "does not match")
	})

	t.Run("offset out of range", func(t *testing.T) {
		b := block(113)
		// len, name[33], pad[3], n, txtlen, off[0]
		binary.LittleEndian.PutUint32(b[4+33+3+8:], 500)
		_, err := ParseValueLabels(b, 113)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("missing lbl tag", func(t *testing.T) {
		b := block(117)
		b[1] = 'X'
		_, err := ParseValueLabels(b, 117)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected tag <lbl>")
	})

	t.Run("truncated", func(t *testing.T) {
		b := block(118)
		_, err := ParseValueLabels(b[:len(b)-8], 118)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeStructural))
	})
}

func TestDescribe(t *testing.T) {
	f := legacyFixture()
	f.ValueLabels = []statatest.LabelSet{{Name: "scorelbl", Values: []int32{7}, Labels: []string{"seven"}}}
	meta, fm, err := ParseMetadata(f.Bytes())
	require.NoError(t, err)
	tables, err := ParseValueLabels(fm.ValueLabels, meta.Release)
	require.NoError(t, err)
	AttachValueLabels(meta, tables)

	d := Describe(meta)
	assert.Equal(t, 113, d.Release)
	assert.Equal(t, 3, d.NObs)
	require.Len(t, d.Variables, 2)
	assert.Equal(t, "byte", d.Variables[0].Type)
	assert.Equal(t, []ValueLabel{{Value: 7, Label: "seven"}}, d.Variables[0].ValueLabels)
	assert.Equal(t, "str5", d.Variables[1].Type)

	raw, err := d.JSON()
	require.NoError(t, err)

	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "legacy fixture", back["label"])
	vars := back["variables"].([]interface{})
	first := vars[0].(map[string]interface{})
	assert.Equal(t, "score", first["name"])
	assert.Equal(t, "scorelbl", first["value_label_name"])
}
