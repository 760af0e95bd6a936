package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Measure is a numeric value that the remote service may send as a JSON
// number, a numeric string, or a display string with a unit ("61.0%",
// "120 mmHg"). Placeholders such as "N/A", null or unparsable text decode
// to an invalid Measure instead of failing the whole payload.
type Measure struct {
	Value float64
	Valid bool
}

// Known returns a valid Measure.
func Known(v float64) Measure {
	return Measure{Value: v, Valid: true}
}

// Ptr returns nil for an invalid Measure.
func (m Measure) Ptr() *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	*m = Measure{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, ok := parseMeasure(s); ok {
			*m = Known(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	*m = Known(v)
	return nil
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func parseMeasure(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
