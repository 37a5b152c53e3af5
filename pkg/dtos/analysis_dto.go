package dtos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnalysisRequest is the single image submitted to the analysis backend.
// Image must be non-empty.
type AnalysisRequest struct {
	FileName string
	Image    []byte
}

// AnalysisResponse mirrors the JSON verdict returned by POST /analyze.
type AnalysisResponse struct {
	DecodedData string     `json:"decoded_data,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	Fraud       bool       `json:"fraud"`
	Confidence  Confidence `json:"confidence"`
	Reason      string     `json:"reason,omitempty"`
}

// Confidence is either a numeric score (0.9) or a label ("High").
type Confidence struct {
	Score   *float64
	Label   string
	present bool
}

func ScoreConfidence(score float64) Confidence {
	return Confidence{Score: &score, present: true}
}

func LabelConfidence(label string) Confidence {
	return Confidence{Label: label, present: label != ""}
}

// IsZero reports whether the backend sent no confidence at all.
func (c Confidence) IsZero() bool {
	return !c.present
}

func (c Confidence) String() string {
	if c.Score != nil {
		return strconv.FormatFloat(*c.Score, 'f', -1, 64)
	}
	return c.Label
}

func (c *Confidence) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Confidence{}
		return nil
	}
	if data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*c = LabelConfidence(label)
		return nil
	}
	score, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("confidence must be a number or string: %w", err)
	}
	*c = ScoreConfidence(score)
	return nil
}

func (c Confidence) MarshalJSON() ([]byte, error) {
	switch {
	case c.Score != nil:
		return []byte(strconv.FormatFloat(*c.Score, 'f', -1, 64)), nil
	case c.present:
		return json.Marshal(c.Label)
	default:
		return []byte("null"), nil
	}
}
