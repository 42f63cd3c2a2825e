package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// OtherBikeID is the identifier carried by the synthetic aggregate chart row.
var OtherBikeID = StringID("Other")

// ID is an identifier served by the API as either a JSON number or a JSON
// string. The dashboard never does arithmetic on it; it keeps the text and
// writes it back in the form it arrived in.
type ID struct {
	text    string
	numeric bool
}

// BikeID identifies a bike.
type BikeID = ID

// StringID returns an ID that encodes as a JSON string.
func StringID(s string) ID {
	return ID{text: s}
}

// NumberID returns an ID that encodes as a JSON number.
func NumberID(n int64) ID {
	return ID{text: strconv.FormatInt(n, 10), numeric: true}
}

// Numeric reports whether the ID arrived as a JSON number.
func (id ID) Numeric() bool {
	return id.numeric
}

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool {
	return id.text == ""
}

func (id ID) String() string {
	return id.text
}

// UnmarshalJSON accepts a JSON number or a JSON string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID{text: n.String(), numeric: true}
	return nil
}

// MarshalJSON writes the ID in the form it was decoded from. An empty ID
// is written as null.
func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case id.text == "":
		return []byte("null"), nil
	case id.numeric:
		return []byte(id.text), nil
	default:
		return json.Marshal(id.text)
	}
}

// RiskRecord is one row of /scores/at-risk.
type RiskRecord struct {
	// BikeID identifies the bike.
	BikeID BikeID
	// RiskScore is the predicted failure likelihood. NaN when the API sent
	// something that is not a number.
	RiskScore float64
	// Extra holds every field other than bike_id and risk_score, untouched.
	Extra map[string]json.RawMessage
}

// Score returns the risk score with NaN and infinities coerced to 0.
func (r RiskRecord) Score() float64 {
	return Coerce(r.RiskScore)
}

// Coerce maps non-finite values to 0 and leaves everything else alone.
func Coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (r *RiskRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode risk record: %w", err)
	}

	out := RiskRecord{RiskScore: math.NaN()}
	if raw, ok := fields["bike_id"]; ok {
		if err := out.BikeID.UnmarshalJSON(raw); err != nil {
			return err
		}
		delete(fields, "bike_id")
	}
	if raw, ok := fields["risk_score"]; ok {
		out.RiskScore = parseScore(raw)
		delete(fields, "risk_score")
	}
	if len(fields) > 0 {
		out.Extra = fields
	}

	*r = out
	return nil
}

func (r RiskRecord) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(r.Extra, map[string]any{
		"bike_id":    r.BikeID,
		"risk_score": r.Score(),
	})
}

// parseScore is lenient on purpose: numbers and numeric strings are kept,
// everything else (null, booleans, objects, junk) becomes NaN.
func parseScore(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return math.NaN()
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return math.NaN()
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text = string(raw)
	default:
		return math.NaN()
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ChartRow is a chart-ready slice of the risk pie.
type ChartRow struct {
	RiskRecord
	// Name is the slice label, "B<bike_id>" or "Other".
	Name string
	// Value is the slice share of the total risk, in percent.
	Value float64
}

// IsOther reports whether the row is the synthetic aggregate bucket.
func (c ChartRow) IsOther() bool {
	return c.BikeID == OtherBikeID && c.Name == OtherBikeID.String()
}

func (c *ChartRow) UnmarshalJSON(data []byte) error {
	var rec RiskRecord
	if err := rec.UnmarshalJSON(data); err != nil {
		return err
	}

	out := ChartRow{RiskRecord: rec}
	if raw, ok := rec.Extra["name"]; ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return fmt.Errorf("decode chart row name: %w", err)
		}
		delete(out.Extra, "name")
	}
	if raw, ok := rec.Extra["value"]; ok {
		out.Value = Coerce(parseScore(raw))
		delete(out.Extra, "value")
	}
	if len(out.Extra) == 0 {
		out.Extra = nil
	}

	*c = out
	return nil
}

func (c ChartRow) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(c.Extra, map[string]any{
		"bike_id":    c.BikeID,
		"risk_score": c.Score(),
		"name":       c.Name,
		"value":      c.Value,
	})
}

func marshalWithExtra(extra map[string]json.RawMessage, known map[string]any) ([]byte, error) {
	merged := make(map[string]any, len(extra)+len(known))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}
