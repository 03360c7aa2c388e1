package stata

import (
	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// ParseMetadata parses the header and variable dictionary of a .dta file and
// locates its data, value-label and strl blocks. The returned FileMap aliases buf.
func ParseMetadata(buf []byte) (*Metadata, *FileMap, error) {
	if len(buf) == 0 {
		return nil, nil, errors.New(errors.ErrorTypeStructural, "empty input")
	}

	switch {
	case buf[0] == 113 || buf[0] == 114:
		return parseLegacy(buf)
	case buf[0] == '<':
		return parseTagged(buf)
	default:
		return nil, nil, errors.Newf(errors.ErrorTypeUnsupportedVersion, "unsupported format byte 0x%02x", buf[0]).
			WithDetail("version", int(buf[0]))
	}
}

// finishVars assigns row offsets and returns the row size.
func finishVars(vars []Var) int {
	offset := 0
	for i := range vars {
		vars[i].Offset = offset
		offset += vars[i].Type.Size()
	}
	return offset
}

// dataSize computes rowsize*nobs, rejecting sizes that cannot fit in the buffer.
func dataSize(rowSize int, nobs uint64, available int) (int, error) {
	if rowSize == 0 {
		return 0, nil
	}
	if nobs > uint64(available/rowSize) {
		return 0, errors.Newf(errors.ErrorTypeStructural,
			"data block needs %d rows of %d bytes but only %d bytes remain", nobs, rowSize, available)
	}
	return rowSize * int(nobs), nil
}

func unknownTypeCode(index int, code int) error {
	return errors.Newf(errors.ErrorTypeUnknownTypeCode, "variable %d has type code %d", index, code).
		WithDetail("index", index).
		WithDetail("code", code)
}

func (m *Metadata) validate(fm *FileMap) error {
	if len(m.Vars) != m.NVars {
		return errors.Newf(errors.ErrorTypeStructural, "parsed %d variables, header declares %d", len(m.Vars), m.NVars)
	}
	sum := 0
	for _, v := range m.Vars {
		sum += v.Type.Size()
	}
	if sum != m.RowSize {
		return errors.Newf(errors.ErrorTypeStructural, "row size %d does not match variable widths %d", m.RowSize, sum)
	}
	if m.DataSize != m.RowSize*m.NObs {
		return errors.Newf(errors.ErrorTypeStructural, "data size %d is not %d rows of %d bytes", m.DataSize, m.NObs, m.RowSize)
	}
	if len(fm.Data) != m.DataSize {
		return errors.Newf(errors.ErrorTypeStructural, "data block holds %d bytes, expected %d", len(fm.Data), m.DataSize)
	}
	return nil
}
