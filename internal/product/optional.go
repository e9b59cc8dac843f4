package product

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

var jsonNull = []byte("null")

// OptFloat is a float64 that may be absent. Absent and JSON null decode to Valid=false.
type OptFloat struct {
	Value float64
	Valid bool
}

// Float returns a present OptFloat.
func Float(v float64) OptFloat {
	return OptFloat{Value: v, Valid: true}
}

// Or returns the value when present and finite, otherwise def.
func (o OptFloat) Or(def float64) float64 {
	if !o.Finite() {
		return def
	}
	return o.Value
}

// Finite reports whether the value is present and neither NaN nor infinite.
func (o OptFloat) Finite() bool {
	return o.Valid && !math.IsNaN(o.Value) && !math.IsInf(o.Value, 0)
}

// MarshalJSON implements json.Marshaler.
func (o OptFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return jsonNull, nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*o = OptFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		// scrapers frequently emit numbers as strings
		var s string
		if strErr := json.Unmarshal(data, &s); strErr != nil {
			return err
		}
		parsed, parseErr := strconv.ParseFloat(s, 64)
		if parseErr != nil {
			return parseErr
		}
		v = parsed
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		// "NaN" and "Infinity" strings carry no usable figure
		*o = OptFloat{}
		return nil
	}
	*o = OptFloat{Value: v, Valid: true}
	return nil
}

// OptInt is an int that may be absent.
type OptInt struct {
	Value int
	Valid bool
}

// Int returns a present OptInt.
func Int(v int) OptInt {
	return OptInt{Value: v, Valid: true}
}

// Or returns the value when present, otherwise def.
func (o OptInt) Or(def int) int {
	if !o.Valid {
		return def
	}
	return o.Value
}

// MarshalJSON implements json.Marshaler.
func (o OptInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return jsonNull, nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON implements json.Unmarshaler. Fractional numbers are truncated.
func (o *OptInt) UnmarshalJSON(data []byte) error {
	var f OptFloat
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	if !f.Valid {
		*o = OptInt{}
		return nil
	}
	*o = OptInt{Value: int(f.Value), Valid: true}
	return nil
}
