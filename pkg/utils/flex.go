package utils

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string, number or bool and keeps its textual form.
// Objects, arrays and null decode to the empty string.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(strconv.FormatBool(v))
	case '{', '[':
		*f = ""
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
	}
	return nil
}

func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// Int parses the value as an integer, returning 0 when it is not one.
func (f FlexString) Int() int {
	n, err := strconv.Atoi(f.String())
	if err != nil {
		return 0
	}
	return n
}

// StringifyID renders an id decoded with UseNumber (or as a plain string).
func StringifyID(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

// DigitsOnly strips everything but 0-9, used to compare phone numbers that
// may or may not carry a leading + or separators.
func DigitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
