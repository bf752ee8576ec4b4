package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// TimestampLayout is the ISO-8601 form every stored timestamp is normalized to.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// MaxCellLength is the largest value a single spreadsheet cell accepts.
const MaxCellLength = 50000

const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// Header is the fixed column order of the feedback tab.
var Header = []string{
	"timestamp",
	"feedbackType",
	"userComment",
	"lastQuestion",
	"lastResponse",
	"fullConversation",
	"sessionId",
	"Type",
}

// ErrInvalidFeedbackType rejects submissions before any side effect.
var ErrInvalidFeedbackType = errors.New("feedbackType must be 'positive' or 'negative'")

// Feedback is one normalized submission, ready to be appended as a row.
type Feedback struct {
	Timestamp        time.Time
	FeedbackType     string
	UserComment      string
	LastQuestion     string
	LastResponse     string
	FullConversation string
	SessionID        string
	TypeLabel        string
}

// Row renders the record in Header order.
func (f *Feedback) Row() []string {
	return []string{
		f.Timestamp.UTC().Format(TimestampLayout),
		f.FeedbackType,
		truncateCell(f.UserComment),
		truncateCell(f.LastQuestion),
		truncateCell(f.LastResponse),
		truncateCell(f.FullConversation),
		truncateCell(f.SessionID),
		truncateCell(f.TypeLabel),
	}
}

// Submission is the untrusted JSON body of a feedback request.
type Submission struct {
	FeedbackType     LooseString     `json:"feedbackType"`
	UserComment      LooseString     `json:"userComment"`
	LastQuestion     LooseString     `json:"lastQuestion"`
	LastResponse     LooseString     `json:"lastResponse"`
	SessionID        LooseString     `json:"sessionId"`
	Type             LooseString     `json:"type"`
	AdmissionsType   LooseString     `json:"admissionsType"`
	Timestamp        LooseString     `json:"timestamp"`
	FullConversation json.RawMessage `json:"fullConversation"`
}

// Normalize validates s and builds the record to persist. now is used when
// the submission carries no usable timestamp; the returned bool reports
// whether a supplied timestamp had to be replaced.
func (s *Submission) Normalize(now time.Time) (*Feedback, bool, error) {
	feedbackType := string(s.FeedbackType)
	if feedbackType != FeedbackPositive && feedbackType != FeedbackNegative {
		return nil, false, ErrInvalidFeedbackType
	}

	ts, replaced := parseTimestamp(string(s.Timestamp), now)

	typeLabel := string(s.Type)
	if typeLabel == "" {
		typeLabel = string(s.AdmissionsType)
	}

	return &Feedback{
		Timestamp:        ts,
		FeedbackType:     feedbackType,
		UserComment:      string(s.UserComment),
		LastQuestion:     string(s.LastQuestion),
		LastResponse:     string(s.LastResponse),
		FullConversation: serializeConversation(s.FullConversation),
		SessionID:        string(s.SessionID),
		TypeLabel:        typeLabel,
	}, replaced, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), false
		}
	}
	return now.UTC(), true
}

// serializeConversation stores a JSON array as received, compacted. Turns
// are not inspected. Anything that is not an array becomes "[]".
func serializeConversation(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return "[]"
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "[]"
	}
	return buf.String()
}

// truncateCell cuts v to MaxCellLength characters.
func truncateCell(v string) string {
	if utf8.RuneCountInString(v) <= MaxCellLength {
		return v
	}
	n := 0
	for i := range v {
		if n == MaxCellLength {
			return v[:i]
		}
		n++
	}
	return v
}

// LooseString accepts any JSON scalar and keeps its text form; null and
// composite values become "".
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = ""
		return nil
	}

	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
		*s = LooseString(v)
	case 'n', '{', '[':
		*s = ""
	default:
		// numbers and booleans
		*s = LooseString(data)
	}
	return nil
}
