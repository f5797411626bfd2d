package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// flexID accepts identifiers encoded either as JSON strings or numbers
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// decodeListings splits a JSON array into raw listings
func decodeListings(data json.RawMessage) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var listings []json.RawMessage
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func formatSalaryRange(low, high float64, currency, period string) *string {
	if low <= 0 && high <= 0 {
		return nil
	}
	var s string
	switch {
	case low > 0 && high > 0 && low != high:
		s = fmt.Sprintf("%.0f - %.0f", low, high)
	case high > 0:
		s = fmt.Sprintf("%.0f", high)
	default:
		s = fmt.Sprintf("%.0f", low)
	}
	if currency != "" {
		s += " " + currency
	}
	if period != "" {
		s += " / " + strings.ToLower(period)
	}
	return &s
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
