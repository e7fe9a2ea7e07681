package dto

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a leniently decoded numeric field. JSON numbers and numeric strings are accepted;
// anything else leaves the field invalid so the caller falls back to a default.
// Set records that the key was present in the body, whatever its value.
type Number struct {
	Value float64
	Valid bool
	Set   bool
}

// NewNumber returns a valid Number holding v.
func NewNumber(v float64) Number {
	return Number{Value: v, Valid: true, Set: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{Set: true}

	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		raw = []byte(strings.TrimSpace(s))
	}

	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	*n = Number{Value: v, Valid: true, Set: true}
	return nil
}

// IsZero lets omitzero drop unusable values.
func (n Number) IsZero() bool {
	return !n.Valid
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, n.Value, 'f', -1, 64), nil
}

// Float returns the value and whether it can be used.
func (n Number) Float() (float64, bool) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return 0, false
	}
	return n.Value, true
}

// TelegramID decodes a Telegram user id sent either as a JSON string or a JSON number.
type TelegramID string

func (id *TelegramID) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		*id = ""
		return nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*id = TelegramID(strings.TrimSpace(s))
		return nil
	}

	if i, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		*id = TelegramID(strconv.FormatInt(i, 10))
		return nil
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		*id = TelegramID(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}

	*id = ""
	return nil
}

func (id TelegramID) String() string {
	return string(id)
}
