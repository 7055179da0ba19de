package scanning

import "context"

// Engine names reported in Result.Engine
const (
	EngineGemini    = "gemini"
	EngineOllama    = "ollama"
	EngineTesseract = "tesseract"
)

// Result is the raw text read from one receipt image
type Result struct {
	Text       string  `json:"raw_text"`
	Engine     string  `json:"engine"`
	Confidence float64 `json:"confidence"` // 0..1
}

// Scanner reads the text printed on a receipt image or PDF
type Scanner interface {
	// ExtractText transcribes the document. It does not interpret the text.
	ExtractText(ctx context.Context, data []byte, contentType string) (*Result, error)
	// Close releases the backend's resources
	Close() error
}
