// Package statatest builds synthetic .dta files for tests.
package statatest

import (
	"encoding/binary"
	"math"
)

// Raw type codes.
const (
	LegacyByte   = 251
	LegacyInt    = 252
	LegacyLong   = 253
	LegacyFloat  = 254
	LegacyDouble = 255

	TaggedStrL   = 32768
	TaggedByte   = 65530
	TaggedInt    = 65529
	TaggedLong   = 65528
	TaggedFloat  = 65527
	TaggedDouble = 65526
)

// Variable is one dictionary entry. Code is the raw type code for the
// file's release; fixed string codes equal their width.
type Variable struct {
	Name           string
	Code           int
	Format         string
	ValueLabelName string
	Label          string
}

// GSO is one long-string record.
type GSO struct {
	V       uint32
	O       uint64
	Binary  bool
	Payload []byte
}

// LabelSet is one value-label table.
type LabelSet struct {
	Name   string
	Values []int32
	Labels []string
}

// File describes a synthetic dataset. Rows hold already-encoded cells.
type File struct {
	Release     int
	Label       string
	Timestamp   string
	Vars        []Variable
	Rows        [][]byte
	Strls       []GSO
	ValueLabels []LabelSet
	// Expansion payloads are written as legacy expansion fields of type 1.
	Expansion [][]byte
}

// Bytes serializes the file in the layout selected by Release.
func (f *File) Bytes() []byte {
	if f.Release == 113 || f.Release == 114 {
		return f.legacy()
	}
	return f.tagged()
}

func (f *File) legacy() []byte {
	n := len(f.Vars)
	b := []byte{byte(f.Release), 0x02, 0x01, 0x00}
	b = binary.LittleEndian.AppendUint16(b, uint16(n))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(f.Rows)))
	b = appendText(b, f.Label, 81)
	b = appendText(b, f.Timestamp, 18)
	for _, v := range f.Vars {
		b = append(b, byte(v.Code))
	}
	for _, v := range f.Vars {
		b = appendText(b, v.Name, 33)
	}
	b = append(b, make([]byte, 2*(n+1))...)
	fmtLen := 49
	if f.Release == 113 {
		fmtLen = 12
	}
	for _, v := range f.Vars {
		b = appendText(b, v.Format, fmtLen)
	}
	for _, v := range f.Vars {
		b = appendText(b, v.ValueLabelName, 33)
	}
	for _, v := range f.Vars {
		b = appendText(b, v.Label, 81)
	}
	for _, x := range f.Expansion {
		b = append(b, 1)
		b = binary.LittleEndian.AppendUint32(b, uint32(len(x)))
		b = append(b, x...)
	}
	b = append(b, 0, 0, 0, 0, 0)
	for _, row := range f.Rows {
		b = append(b, row...)
	}
	for _, ls := range f.ValueLabels {
		b = appendLabelSet(b, ls, 33)
	}
	return b
}

func (f *File) tagged() []byte {
	nameLen, fmtLen, lblNameLen, varLblLen := 129, 57, 129, 321
	if f.Release == 117 {
		nameLen, fmtLen, lblNameLen, varLblLen = 33, 49, 33, 81
	}
	n := len(f.Vars)
	var offsets [14]uint64

	b := []byte("<stata_dta><header><release>")
	b = append(b, []byte(itoa3(f.Release))...)
	b = append(b, "</release><byteorder>LSF</byteorder><K>"...)
	b = binary.LittleEndian.AppendUint16(b, uint16(n))
	b = append(b, "</K><N>"...)
	if f.Release == 117 {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(f.Rows)))
	} else {
		b = binary.LittleEndian.AppendUint64(b, uint64(len(f.Rows)))
	}
	b = append(b, "</N><label>"...)
	if f.Release == 117 {
		b = append(b, byte(len(f.Label)))
	} else {
		b = binary.LittleEndian.AppendUint16(b, uint16(len(f.Label)))
	}
	b = append(b, f.Label...)
	b = append(b, "</label><timestamp>"...)
	b = append(b, byte(len(f.Timestamp)))
	b = append(b, f.Timestamp...)
	b = append(b, "</timestamp></header>"...)

	offsets[1] = uint64(len(b))
	b = append(b, "<map>"...)
	mapAt := len(b)
	b = append(b, make([]byte, 14*8)...)
	b = append(b, "</map>"...)

	offsets[2] = uint64(len(b))
	b = append(b, "<variable_types>"...)
	for _, v := range f.Vars {
		b = binary.LittleEndian.AppendUint16(b, uint16(v.Code))
	}
	b = append(b, "</variable_types>"...)

	offsets[3] = uint64(len(b))
	b = appendSection(b, "varnames", f.Vars, nameLen, func(v Variable) string { return v.Name })

	offsets[4] = uint64(len(b))
	b = append(b, "<sortlist>"...)
	b = append(b, make([]byte, 2*(n+1))...)
	b = append(b, "</sortlist>"...)

	offsets[5] = uint64(len(b))
	b = appendSection(b, "formats", f.Vars, fmtLen, func(v Variable) string { return v.Format })
	offsets[6] = uint64(len(b))
	b = appendSection(b, "value_label_names", f.Vars, lblNameLen, func(v Variable) string { return v.ValueLabelName })
	offsets[7] = uint64(len(b))
	b = appendSection(b, "variable_labels", f.Vars, varLblLen, func(v Variable) string { return v.Label })

	offsets[8] = uint64(len(b))
	b = append(b, "<characteristics></characteristics>"...)

	offsets[9] = uint64(len(b))
	b = append(b, "<data>"...)
	for _, row := range f.Rows {
		b = append(b, row...)
	}
	b = append(b, "</data>"...)

	offsets[10] = uint64(len(b))
	b = append(b, "<strls>"...)
	for _, g := range f.Strls {
		b = appendGSO(b, g, f.Release)
	}
	b = append(b, "</strls>"...)

	offsets[11] = uint64(len(b))
	b = append(b, "<value_labels>"...)
	for _, ls := range f.ValueLabels {
		b = append(b, "<lbl>"...)
		b = appendLabelSet(b, ls, lblNameLen)
		b = append(b, "</lbl>"...)
	}
	b = append(b, "</value_labels>"...)

	offsets[12] = uint64(len(b))
	b = append(b, "</stata_dta>"...)
	offsets[13] = uint64(len(b))

	for i, off := range offsets {
		binary.LittleEndian.PutUint64(b[mapAt+8*i:], off)
	}
	return b
}

func appendSection(b []byte, name string, vars []Variable, width int, field func(Variable) string) []byte {
	b = append(b, "<"+name+">"...)
	for _, v := range vars {
		b = appendText(b, field(v), width)
	}
	return append(b, "</"+name+">"...)
}

func appendGSO(b []byte, g GSO, release int) []byte {
	b = append(b, "GSO"...)
	b = binary.LittleEndian.AppendUint32(b, g.V)
	if release == 117 {
		b = binary.LittleEndian.AppendUint32(b, uint32(g.O))
	} else {
		b = binary.LittleEndian.AppendUint64(b, g.O)
	}
	if g.Binary {
		b = append(b, 129)
	} else {
		b = append(b, 130)
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(g.Payload)))
	return append(b, g.Payload...)
}

// LabelTable encodes n, txtlen, off[n], val[n], txt.
func LabelTable(ls LabelSet) []byte {
	var txt []byte
	offs := make([]uint32, len(ls.Labels))
	for i, l := range ls.Labels {
		offs[i] = uint32(len(txt))
		txt = append(txt, l...)
		txt = append(txt, 0)
	}
	b := binary.LittleEndian.AppendUint32(nil, uint32(len(ls.Values)))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(txt)))
	for _, o := range offs {
		b = binary.LittleEndian.AppendUint32(b, o)
	}
	for _, v := range ls.Values {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return append(b, txt...)
}

func appendLabelSet(b []byte, ls LabelSet, nameLen int) []byte {
	table := LabelTable(ls)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(table)))
	b = appendText(b, ls.Name, nameLen)
	b = append(b, 0, 0, 0)
	return append(b, table...)
}

func appendText(b []byte, s string, width int) []byte {
	return append(b, Str(s, width)...)
}

func itoa3(release int) string {
	return string([]byte{byte('0' + release/100), byte('0' + release/10%10), byte('0' + release%10)})
}

// Row concatenates encoded cells.
func Row(cells ...[]byte) []byte {
	var row []byte
	for _, c := range cells {
		row = append(row, c...)
	}
	return row
}

// Str encodes s as a NUL-padded field of width bytes, truncating if needed.
func Str(s string, width int) []byte {
	b := make([]byte, width)
	copy(b, s)
	return b
}

func Int8(v int8) []byte { return []byte{byte(v)} }

func Int16(v int16) []byte { return binary.LittleEndian.AppendUint16(nil, uint16(v)) }

func Int32(v int32) []byte { return binary.LittleEndian.AppendUint32(nil, uint32(v)) }

func Float32(v float32) []byte { return Float32Bits(math.Float32bits(v)) }

func Float32Bits(bits uint32) []byte { return binary.LittleEndian.AppendUint32(nil, bits) }

func Float64(v float64) []byte { return Float64Bits(math.Float64bits(v)) }

func Float64Bits(bits uint64) []byte { return binary.LittleEndian.AppendUint64(nil, bits) }

// StrlRef118 encodes a release 118 long-string cell: v:u16 then o:u48.
func StrlRef118(v uint16, o uint64) []byte {
	b := binary.LittleEndian.AppendUint16(nil, v)
	ob := binary.LittleEndian.AppendUint64(nil, o)
	return append(b, ob[:6]...)
}

// StrlRef117 encodes a release 117 long-string cell: v:u32 then o:u32.
func StrlRef117(v, o uint32) []byte {
	b := binary.LittleEndian.AppendUint32(nil, v)
	return binary.LittleEndian.AppendUint32(b, o)
}
