package receipt

import (
	"encoding/json"
	"time"

	"github.com/zombor/billlens/internal/parsing"
)

// rawTextPreviewLen caps the OCR text echoed back to clients and stored
const rawTextPreviewLen = 500

// Analysis is a parsed receipt together with what the OCR engine reported
type Analysis struct {
	parsing.ParsedReceipt
	Engine         string                   `json:"engine,omitempty"`
	Confidence     float64                  `json:"confidence"`
	RawText        string                   `json:"raw_text,omitempty"`
	SuggestedSplit *parsing.SplitSuggestion `json:"suggested_split,omitempty"`
}

// Receipt is a processed bill kept with its original image
type Receipt struct {
	ID string `json:"id"`
	Analysis
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot is the latest group data a user pushed from the app
type Snapshot struct {
	UserID    string          `json:"user_id"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// preview returns the first rawTextPreviewLen characters of text
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= rawTextPreviewLen {
		return text
	}
	return string(runes[:rawTextPreviewLen])
}
