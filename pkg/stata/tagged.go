package stata

import (
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

const (
	taggedMapEntries = 14
	taggedMaxStr     = 2045
	taggedStrL       = 32768
)

// Offsets-table slots used to locate the trailing regions.
const (
	mapData        = 9
	mapStrls       = 10
	mapValueLabels = 11
	mapEnd         = 12
)

// taggedWidths holds the release-dependent dictionary field widths.
type taggedWidths struct {
	name      int
	format    int
	labelName int
	varLabel  int
	wideLabel bool // dataset label length is u16 rather than u8
	wideNObs  bool // N is u64 rather than u32
}

var taggedReleases = map[string]taggedWidths{
	"117": {name: 33, format: 49, labelName: 33, varLabel: 81},
	"118": {name: 129, format: 57, labelName: 129, varLabel: 321, wideLabel: true, wideNObs: true},
}

func parseTagged(buf []byte) (*Metadata, *FileMap, error) {
	r := newReader(buf)

	for _, tag := range []string{"<stata_dta>", "<header>", "<release>"} {
		if err := r.expect(tag); err != nil {
			return nil, nil, err
		}
	}
	rel, err := r.take(3, "release")
	if err != nil {
		return nil, nil, err
	}
	w, ok := taggedReleases[string(rel)]
	if !ok {
		return nil, nil, errors.Newf(errors.ErrorTypeUnsupportedVersion, "unsupported release %q", rel)
	}
	meta := &Metadata{ByteOrder: LittleEndian}
	if string(rel) == "117" {
		meta.Release = 117
	} else {
		meta.Release = 118
	}
	if err := r.expect("</release>"); err != nil {
		return nil, nil, err
	}

	if err := r.expect("<byteorder>"); err != nil {
		return nil, nil, err
	}
	order, err := r.take(3, "byteorder")
	if err != nil {
		return nil, nil, err
	}
	if string(order) != "LSF" {
		return nil, nil, errors.Newf(errors.ErrorTypeUnsupportedByteOrder, "byte order %q is not little-endian", order)
	}
	if err := r.expect("</byteorder>"); err != nil {
		return nil, nil, err
	}

	if err := r.expect("<K>"); err != nil {
		return nil, nil, err
	}
	k, err := r.u16("K")
	if err != nil {
		return nil, nil, err
	}
	if err := r.expect("</K>"); err != nil {
		return nil, nil, err
	}
	meta.NVars = int(k)

	if err := r.expect("<N>"); err != nil {
		return nil, nil, err
	}
	var nobs uint64
	if w.wideNObs {
		nobs, err = r.u64("N")
	} else {
		var n32 uint32
		n32, err = r.u32("N")
		nobs = uint64(n32)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := r.expect("</N>"); err != nil {
		return nil, nil, err
	}

	if err := r.expect("<label>"); err != nil {
		return nil, nil, err
	}
	var labelLen int
	if w.wideLabel {
		n, err := r.u16("label length")
		if err != nil {
			return nil, nil, err
		}
		labelLen = int(n)
	} else {
		n, err := r.u8("label length")
		if err != nil {
			return nil, nil, err
		}
		labelLen = int(n)
	}
	if meta.Label, err = r.label(labelLen, "label"); err != nil {
		return nil, nil, err
	}
	if err := r.expect("</label>"); err != nil {
		return nil, nil, err
	}

	if err := r.expect("<timestamp>"); err != nil {
		return nil, nil, err
	}
	tsLen, err := r.u8("timestamp length")
	if err != nil {
		return nil, nil, err
	}
	if meta.Timestamp, err = r.label(int(tsLen), "timestamp"); err != nil {
		return nil, nil, err
	}
	for _, tag := range []string{"</timestamp>", "</header>", "<map>"} {
		if err := r.expect(tag); err != nil {
			return nil, nil, err
		}
	}

	var offsets [taggedMapEntries]uint64
	for i := range offsets {
		if offsets[i], err = r.u64("map"); err != nil {
			return nil, nil, err
		}
	}
	if err := r.expect("</map>"); err != nil {
		return nil, nil, err
	}

	n := meta.NVars
	vars := make([]Var, n)

	if err := r.expect("<variable_types>"); err != nil {
		return nil, nil, err
	}
	for i := range vars {
		code, err := r.u16("variable_types")
		if err != nil {
			return nil, nil, err
		}
		if vars[i].Type, err = taggedVarType(i, code); err != nil {
			return nil, nil, err
		}
	}
	if err := r.expect("</variable_types>"); err != nil {
		return nil, nil, err
	}

	if err := readTextList(r, "varnames", w.name, vars, func(v *Var, s string) { v.Name = s }); err != nil {
		return nil, nil, err
	}

	if err := r.expect("<sortlist>"); err != nil {
		return nil, nil, err
	}
	if err := r.skip(2*(n+1), "sortlist"); err != nil {
		return nil, nil, err
	}
	if err := r.expect("</sortlist>"); err != nil {
		return nil, nil, err
	}

	if err := readTextList(r, "formats", w.format, vars, func(v *Var, s string) { v.Format = s }); err != nil {
		return nil, nil, err
	}
	if err := readTextList(r, "value_label_names", w.labelName, vars, func(v *Var, s string) { v.ValueLabelName = s }); err != nil {
		return nil, nil, err
	}
	if err := readTextList(r, "variable_labels", w.varLabel, vars, func(v *Var, s string) { v.Label = s }); err != nil {
		return nil, nil, err
	}

	meta.Vars = vars
	meta.RowSize = finishVars(vars)

	fm := &FileMap{}
	if fm.Data, err = region(buf, offsets[mapData], offsets[mapStrls], "<data>", "</data>"); err != nil {
		return nil, nil, err
	}
	if fm.Strls, err = region(buf, offsets[mapStrls], offsets[mapValueLabels], "<strls>", "</strls>"); err != nil {
		return nil, nil, err
	}
	if fm.ValueLabels, err = region(buf, offsets[mapValueLabels], offsets[mapEnd], "<value_labels>", "</value_labels>"); err != nil {
		return nil, nil, err
	}

	if meta.DataSize, err = dataSize(meta.RowSize, nobs, len(fm.Data)); err != nil {
		return nil, nil, err
	}
	meta.NObs = int(nobs)
	if err := meta.validate(fm); err != nil {
		return nil, nil, err
	}
	return meta, fm, nil
}

func taggedVarType(index int, code uint16) (VarType, error) {
	switch {
	case code >= 1 && code <= taggedMaxStr:
		return VarType{Kind: KindStrFixed, Width: int(code)}, nil
	case code == taggedStrL:
		return VarType{Kind: KindStrL}, nil
	case code == 65530:
		return VarType{Kind: KindInt8}, nil
	case code == 65529:
		return VarType{Kind: KindInt16}, nil
	case code == 65528:
		return VarType{Kind: KindInt32}, nil
	case code == 65527:
		return VarType{Kind: KindFloat32}, nil
	case code == 65526:
		return VarType{Kind: KindFloat64}, nil
	default:
		return VarType{}, unknownTypeCode(index, int(code))
	}
}

func readTextList(r *reader, section string, width int, vars []Var, set func(*Var, string)) error {
	if err := r.expect("<" + section + ">"); err != nil {
		return err
	}
	for i := range vars {
		s, err := r.text(width, section)
		if err != nil {
			return err
		}
		set(&vars[i], s)
	}
	return r.expect("</" + section + ">")
}

// region returns buf[start+len(openTag) : end-len(closeTag)], where start and end are
// offsets-table entries pointing at the opening tag of this section and of the
// next. The literal tags must be present at both ends.
func region(buf []byte, start, end uint64, openTag, closeTag string) ([]byte, error) {
	size := uint64(len(buf))
	if start > size || end > size || end < start+uint64(len(openTag)+len(closeTag)) {
		return nil, errors.Newf(errors.ErrorTypeStructural, "map offsets [%d, %d) do not frame %s in a %d byte file",
			start, end, openTag, size)
	}
	lo := int(start) + len(openTag)
	hi := int(end) - len(closeTag)
	if string(buf[start:lo]) != openTag {
		return nil, errors.Newf(errors.ErrorTypeStructural, "expected tag %s", openTag).WithDetail("offset", start)
	}
	if string(buf[hi:end]) != closeTag {
		return nil, errors.Newf(errors.ErrorTypeStructural, "expected tag %s", closeTag).WithDetail("offset", hi)
	}
	return buf[lo:hi:hi], nil
}
