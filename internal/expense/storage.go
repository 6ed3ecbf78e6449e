package expense

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage holds the original receipt images so an expense can always be
// traced back to its source document. References returned by Save are what
// Expense.Filename and ReceiptRecord.ImageRef carry.
type Storage interface {
	// Save writes a receipt image and returns the reference to fetch it by
	Save(filename string, data []byte) (string, error)

	// Get retrieves a stored receipt image by reference
	Get(ref string) ([]byte, error)

	// Delete removes a stored receipt image
	Delete(ref string) error
}

// LocalStorage keeps receipt images as flat files under a base directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a LocalStorage rooted at basePath, creating the
// directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save writes a receipt image. The reference is the file's base name, so a
// filename carrying path separators cannot place the image outside the base
// directory.
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	ref := filepath.Base(filename)
	if err := os.WriteFile(filepath.Join(l.basePath, ref), data, 0644); err != nil {
		return "", fmt.Errorf("writing receipt image: %w", err)
	}
	return ref, nil
}

// Get retrieves a stored receipt image
func (l *LocalStorage) Get(ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.Base(ref)))
	if err != nil {
		return nil, fmt.Errorf("reading receipt image: %w", err)
	}
	return data, nil
}

// Delete removes a stored receipt image
func (l *LocalStorage) Delete(ref string) error {
	if err := os.Remove(filepath.Join(l.basePath, filepath.Base(ref))); err != nil {
		return fmt.Errorf("deleting receipt image: %w", err)
	}
	return nil
}
