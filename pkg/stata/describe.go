package stata

import (
	"github.com/goccy/go-json"
)

// Dictionary is a serializable description of a dataset's variables.
type Dictionary struct {
	Release   int            `json:"release"`
	Label     string         `json:"label,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	NObs      int            `json:"observations"`
	Variables []VariableInfo `json:"variables"`
}

// VariableInfo describes one variable.
type VariableInfo struct {
	Name           string       `json:"name"`
	Type           string       `json:"type"`
	Format         string       `json:"format,omitempty"`
	Label          string       `json:"label,omitempty"`
	ValueLabelName string       `json:"value_label_name,omitempty"`
	ValueLabels    []ValueLabel `json:"value_labels,omitempty"`
}

// ValueLabel is one code/label pair.
type ValueLabel struct {
	Value int32  `json:"value"`
	Label string `json:"label"`
}

// Describe builds the dictionary of meta, including attached value labels.
func Describe(meta *Metadata) *Dictionary {
	d := &Dictionary{
		Release:   meta.Release,
		Label:     meta.Label,
		Timestamp: meta.Timestamp,
		NObs:      meta.NObs,
		Variables: make([]VariableInfo, len(meta.Vars)),
	}
	for i, v := range meta.Vars {
		info := VariableInfo{
			Name:           v.Name,
			Type:           v.Type.String(),
			Format:         v.Format,
			Label:          v.Label,
			ValueLabelName: v.ValueLabelName,
		}
		if t := v.ValueLabels; t != nil {
			info.ValueLabels = make([]ValueLabel, len(t.Values))
			for j := range t.Values {
				info.ValueLabels[j] = ValueLabel{Value: t.Values[j], Label: t.Labels[j]}
			}
		}
		d.Variables[i] = info
	}
	return d
}

// JSON encodes the dictionary.
func (d *Dictionary) JSON() ([]byte, error) {
	return json.Marshal(d)
}
