package stata

import (
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

const labelTablePad = 3

// ValueLabelTable maps integer codes to their labels for one label set.
type ValueLabelTable struct {
	Name   string
	Values []int32
	Labels []string
}

// ParseValueLabels parses the value-label block located by ParseMetadata.
func ParseValueLabels(buf []byte, release int) ([]*ValueLabelTable, error) {
	r := newReader(buf)
	var tables []*ValueLabelTable

	nameLen := legacyNameLen
	if release == 118 {
		nameLen = taggedReleases["118"].labelName
	}
	tagged := release == 117 || release == 118

	for r.remaining() > 0 {
		if tagged {
			if err := r.expect("<lbl>"); err != nil {
				return nil, err
			}
		}
		t, err := parseLabelTable(r, nameLen)
		if err != nil {
			return nil, err
		}
		if tagged {
			if err := r.expect("</lbl>"); err != nil {
				return nil, err
			}
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// parseLabelTable reads len, name, padding and a table of
// n, txtlen, off[n], val[n], txt[txtlen].
func parseLabelTable(r *reader, nameLen int) (*ValueLabelTable, error) {
	size, err := r.i32("value label length")
	if err != nil {
		return nil, err
	}
	name, err := r.text(nameLen, "value label name")
	if err != nil {
		return nil, err
	}
	if err := r.skip(labelTablePad, "value label padding"); err != nil {
		return nil, err
	}

	n, err := r.i32("value label count")
	if err != nil {
		return nil, err
	}
	txtlen, err := r.i32("value label text length")
	if err != nil {
		return nil, err
	}
	if n < 0 || txtlen < 0 || int64(size) != 8+8*int64(n)+int64(txtlen) {
		return nil, errors.Newf(errors.ErrorTypeStructural,
			"value label %q: table length %d does not match %d entries and %d text bytes", name, size, n, txtlen)
	}

	offs := make([]int32, n)
	for i := range offs {
		if offs[i], err = r.i32("value label offset"); err != nil {
			return nil, err
		}
	}
	t := &ValueLabelTable{Name: name, Values: make([]int32, n), Labels: make([]string, n)}
	for i := range t.Values {
		if t.Values[i], err = r.i32("value label value"); err != nil {
			return nil, err
		}
	}
	txt, err := r.take(int(txtlen), "value label text")
	if err != nil {
		return nil, err
	}
	for i, off := range offs {
		if off < 0 || off >= txtlen {
			return nil, errors.Newf(errors.ErrorTypeStructural, "value label %q: text offset %d out of range", name, off)
		}
		t.Labels[i] = DecodeLabel(txt[off:])
	}
	return t, nil
}

// AttachValueLabels points every variable whose value-label name matches a
// table at that table. Variables sharing a label name share one table.
func AttachValueLabels(meta *Metadata, tables []*ValueLabelTable) int {
	byName := make(map[string]*ValueLabelTable, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	attached := 0
	for i := range meta.Vars {
		if t, ok := byName[meta.Vars[i].ValueLabelName]; ok && meta.Vars[i].ValueLabelName != "" {
			meta.Vars[i].ValueLabels = t
			attached++
		}
	}
	return attached
}
