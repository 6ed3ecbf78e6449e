package expense

import (
	"time"

	"github.com/expensio/expensio/internal/extraction"
)

// Status distinguishes a real extraction from a synthesized fallback record.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusDegraded  Status = "degraded"
)

// Expense wraps an extracted receipt record with tracking metadata.
type Expense struct {
	ID          string                   `json:"id"`
	Record      extraction.ReceiptRecord `json:"record"`
	Status      Status                   `json:"status"`
	Filename    string                   `json:"filename"`
	ContentType string                   `json:"content_type"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}
