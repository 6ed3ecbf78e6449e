package expense

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/expensio/expensio/internal/extraction"
	"github.com/expensio/expensio/internal/ocr"
)

// IDGenerator generates unique IDs for expenses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles expense operations: it stores the uploaded image, acquires
// raw text through the OCR source, runs the extraction engine and persists
// the result.
type Service struct {
	db          DB
	source      ocr.Source
	storage     Storage
	notifier    Notifier
	engine      *extraction.Engine
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator, time source and
// log-based notifier.
func NewService(db DB, source ocr.Source, storage Storage) *Service {
	return NewServiceWithDeps(db, source, storage, NewLogNotifier(), &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, source ocr.Source, storage Storage, notifier Notifier, idGen IDGenerator, timeSrc TimeSource) *Service {
	s := &Service{
		db:          db,
		source:      source,
		storage:     storage,
		notifier:    notifier,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
	s.engine = extraction.NewEngineWithDeps(timeSrc, func(ev extraction.StatusEvent) {
		if s.notifier != nil {
			s.notifier.Notify(ev)
		}
	})
	return s
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// extractionSeed derives the degraded-mode seed from the input's identity so
// the same nominal upload reproduces the same synthesized record.
func extractionSeed(filename string, size int) int64 {
	return int64(len(filename)) + int64(size)
}

// ProcessReceipt stores an uploaded receipt, acquires its text and runs the
// extraction engine. Extraction itself never fails; the returned expense is
// tagged degraded when the engine fell back to a synthesized record. An error
// is returned only for failures outside the engine's control: unreadable
// input at the OCR boundary, or storage/database trouble.
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*Expense, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	rawText, err := s.source.Text(data, contentType)
	if err != nil {
		slog.Error("Failed to read receipt text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("reading receipt text: %w", err)
	}

	result := s.engine.Extract(extraction.Input{
		RawText:  rawText,
		ImageRef: savedPath,
		Seed:     extractionSeed(filename, len(data)),
	})

	status := StatusProcessed
	if result.Degraded {
		status = StatusDegraded
	}

	exp := &Expense{
		ID:          id,
		Record:      result.Record,
		Status:      status,
		Filename:    savedPath,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveExpense(exp); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving expense to database: %w", err)
	}

	return exp, nil
}

// GetExpense retrieves an expense by ID
func (s *Service) GetExpense(id string) (*Expense, error) {
	exp, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return exp, nil
}

// ListExpenses returns all expenses
func (s *Service) ListExpenses() ([]*Expense, error) {
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return expenses, nil
}

// DeleteExpense removes an expense and its stored image
func (s *Service) DeleteExpense(id string) error {
	exp, err := s.db.GetExpense(id)
	if err != nil {
		return fmt.Errorf("getting expense for deletion: %w", err)
	}

	if err := s.storage.Delete(exp.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", exp.Filename, "error", err)
	}

	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense from database: %w", err)
	}
	return nil
}

// GetExpenseFile retrieves the stored image for an expense
func (s *Service) GetExpenseFile(id string) ([]byte, string, error) {
	exp, err := s.db.GetExpense(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense: %w", err)
	}

	data, err := s.storage.Get(exp.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense file: %w", err)
	}

	return data, exp.ContentType, nil
}
