package stata

import (
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// Legacy (113/114) field widths.
const (
	legacyByteOrderLOHI = 0x02
	legacyFileType      = 0x01
	legacyLabelLen      = 81
	legacyTimestampLen  = 18
	legacyNameLen       = 33
	legacyVarLabelLen   = 81
	legacyFormatLen113  = 12
	legacyFormatLen114  = 49
	legacyMaxStrWidth   = 244
)

func parseLegacy(buf []byte) (*Metadata, *FileMap, error) {
	r := newReader(buf)

	release, err := r.u8("release")
	if err != nil {
		return nil, nil, err
	}
	order, err := r.u8("byteorder")
	if err != nil {
		return nil, nil, err
	}
	if order != legacyByteOrderLOHI {
		return nil, nil, errors.Newf(errors.ErrorTypeUnsupportedByteOrder, "byte order 0x%02x is not little-endian", order)
	}
	filetype, err := r.u8("filetype")
	if err != nil {
		return nil, nil, err
	}
	if filetype != legacyFileType {
		return nil, nil, errors.Newf(errors.ErrorTypeStructural, "filetype 0x%02x, expected 0x01", filetype)
	}
	if err := r.skip(1, "padding"); err != nil {
		return nil, nil, err
	}
	nvars, err := r.u16("nvars")
	if err != nil {
		return nil, nil, err
	}
	nobs, err := r.u32("nobs")
	if err != nil {
		return nil, nil, err
	}

	meta := &Metadata{
		Release:   int(release),
		ByteOrder: LittleEndian,
		NVars:     int(nvars),
		NObs:      int(nobs),
	}
	if meta.Label, err = r.label(legacyLabelLen, "data_label"); err != nil {
		return nil, nil, err
	}
	if meta.Timestamp, err = r.label(legacyTimestampLen, "time_stamp"); err != nil {
		return nil, nil, err
	}

	n := meta.NVars
	typlist, err := r.take(n, "typlist")
	if err != nil {
		return nil, nil, err
	}
	vars := make([]Var, n)
	for i, code := range typlist {
		t, err := legacyVarType(i, code)
		if err != nil {
			return nil, nil, err
		}
		vars[i].Type = t
	}

	for i := range vars {
		if vars[i].Name, err = r.text(legacyNameLen, "varlist"); err != nil {
			return nil, nil, err
		}
	}
	if err := r.skip(2*(n+1), "srtlist"); err != nil {
		return nil, nil, err
	}
	formatLen := legacyFormatLen114
	if release == 113 {
		formatLen = legacyFormatLen113
	}
	for i := range vars {
		if vars[i].Format, err = r.text(formatLen, "fmtlist"); err != nil {
			return nil, nil, err
		}
	}
	for i := range vars {
		if vars[i].ValueLabelName, err = r.text(legacyNameLen, "lbllist"); err != nil {
			return nil, nil, err
		}
	}
	for i := range vars {
		if vars[i].Label, err = r.text(legacyVarLabelLen, "variable_labels"); err != nil {
			return nil, nil, err
		}
	}

	if err := skipExpansionFields(r); err != nil {
		return nil, nil, err
	}

	meta.Vars = vars
	meta.RowSize = finishVars(vars)
	if meta.DataSize, err = dataSize(meta.RowSize, uint64(nobs), r.remaining()); err != nil {
		return nil, nil, err
	}

	rest := r.rest()
	fm := &FileMap{
		Data:        rest[:meta.DataSize:meta.DataSize],
		ValueLabels: rest[meta.DataSize:],
		Strls:       rest[:0:0],
	}
	if err := meta.validate(fm); err != nil {
		return nil, nil, err
	}
	return meta, fm, nil
}

func legacyVarType(index int, code uint8) (VarType, error) {
	switch {
	case code >= 1 && code <= legacyMaxStrWidth:
		return VarType{Kind: KindStrASCII, Width: int(code)}, nil
	case code == 251:
		return VarType{Kind: KindInt8}, nil
	case code == 252:
		return VarType{Kind: KindInt16}, nil
	case code == 253:
		return VarType{Kind: KindInt32}, nil
	case code == 254:
		return VarType{Kind: KindFloat32}, nil
	case code == 255:
		return VarType{Kind: KindFloat64}, nil
	default:
		return VarType{}, unknownTypeCode(index, int(code))
	}
}

// skipExpansionFields consumes (type u8, len u32, payload) records up to and
// including the type-0 terminator.
func skipExpansionFields(r *reader) error {
	for {
		typ, err := r.u8("expansion field type")
		if err != nil {
			return err
		}
		n, err := r.u32("expansion field length")
		if err != nil {
			return err
		}
		if typ == 0 {
			return nil
		}
		if err := r.skip(int(n), "expansion field"); err != nil {
			return err
		}
	}
}
