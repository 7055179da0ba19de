package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/billlens/internal/config"
	"github.com/zombor/billlens/internal/parsing"
	"github.com/zombor/billlens/internal/scanning"
)

var (
	// ErrInvalid marks requests the caller must fix
	ErrInvalid = errors.New("invalid request")
	// ErrNoScanner is returned for image requests when no OCR backend is configured
	ErrNoScanner = errors.New("no OCR backend configured")
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type clock struct{}

func (clock) Now() time.Time {
	return time.Now().UTC()
}

// Upload is one receipt image submitted for OCR
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	Hint        string
	Currency    string
	MemberIDs   []string
	// Enhance binarises the photo before OCR
	Enhance bool
}

// Service runs OCR and parsing and keeps processed receipts
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	rules       *parsing.Rules
	currency    string
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with UUID ids and the wall clock. A nil cfg
// uses the built-in rules; a nil scanner disables the image endpoints.
func NewService(db DB, scanner scanning.Scanner, storage Storage, cfg *config.Config) *Service {
	return NewServiceWithDeps(db, scanner, storage, cfg, uuidGenerator{}, clock{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, cfg *config.Config, idGen IDGenerator, timeSrc TimeSource) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		rules:       cfg.Rules(),
		currency:    cfg.Currency,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename shortens phone camera names and strips anything unsafe
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := strings.ToLower(unsafeFilenameChars.ReplaceAllString(filepath.Ext(filename), ""))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(strings.TrimSpace(base), "_")
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	if ext != "" {
		ext = "." + ext
	}
	return base + ext
}

// ExtractText runs OCR on an image, optionally enhancing it first. An image
// that cannot be enhanced is scanned as uploaded.
func (s *Service) ExtractText(ctx context.Context, data []byte, contentType string, enhance bool) (*scanning.Result, error) {
	if s.scanner == nil {
		return nil, ErrNoScanner
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalid)
	}

	if enhance {
		enhanced, err := scanning.Enhance(data, contentType)
		if err != nil {
			slog.Warn("Image enhancement failed, scanning original", "content_type", contentType, "error", err)
		} else {
			data, contentType = enhanced, "image/png"
		}
	}

	result, err := s.scanner.ExtractText(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}
	return result, nil
}

// ParseText parses already extracted text and, when members are given,
// suggests a split.
func (s *Service) ParseText(text, hint, currency string, memberIDs []string) *Analysis {
	if strings.TrimSpace(currency) == "" {
		currency = s.currency
	}

	analysis := &Analysis{
		ParsedReceipt: *parsing.Parse(text, hint, currency, s.rules),
		RawText:       preview(text),
	}
	if len(memberIDs) > 0 {
		analysis.SuggestedSplit = parsing.SuggestSplit(analysis.Total, analysis.Items, memberIDs)
	}
	return analysis
}

// ParseImage runs OCR on the upload and parses the text
func (s *Service) ParseImage(ctx context.Context, upload Upload) (*Analysis, error) {
	result, err := s.ExtractText(ctx, upload.Data, upload.ContentType, upload.Enhance)
	if err != nil {
		return nil, err
	}

	analysis := s.ParseText(result.Text, upload.Hint, upload.Currency, upload.MemberIDs)
	analysis.Engine = result.Engine
	analysis.Confidence = result.Confidence
	return analysis, nil
}

// ProcessReceipt stores the upload, parses it and saves the record. The
// stored image is removed again when any later step fails.
func (s *Service) ProcessReceipt(ctx context.Context, upload Upload) (*Receipt, error) {
	if s.scanner == nil {
		return nil, ErrNoScanner
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.Filename)), upload.Data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	analysis, err := s.ParseImage(ctx, upload)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", upload.Filename,
			"content_type", upload.ContentType,
			"file_size", len(upload.Data),
			"error", err,
		)
		s.removeFile(savedName)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	receipt := &Receipt{
		ID:          id,
		Analysis:    *analysis,
		Filename:    savedName,
		ContentType: upload.ContentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.SaveReceipt(receipt); err != nil {
		s.removeFile(savedName)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Processed receipt", "id", id, "merchant", receipt.Merchant, "total", receipt.Total, "engine", receipt.Engine)
	return receipt, nil
}

func (s *Service) removeFile(name string) {
	if err := s.storage.Delete(name); err != nil {
		slog.Warn("Failed to delete file", "filename", name, "error", err)
	}
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt and its image
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	s.removeFile(receipt.Filename)

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile returns the stored image and its content type
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}

// PushSnapshot replaces the user's synced data
func (s *Service) PushSnapshot(userID string, payload json.RawMessage) (*Snapshot, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalid)
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrInvalid)
	}

	snapshot := &Snapshot{
		UserID:    userID,
		Payload:   payload,
		UpdatedAt: s.timeSource.Now(),
	}
	if err := s.db.SaveSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return snapshot, nil
}

// PullSnapshot returns the user's synced data. A user who never pushed gets
// an empty payload.
func (s *Service) PullSnapshot(userID string) (*Snapshot, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalid)
	}

	snapshot, err := s.db.GetSnapshot(userID)
	if errors.Is(err, ErrNotFound) {
		return &Snapshot{UserID: userID, Payload: json.RawMessage("{}")}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	return snapshot, nil
}
