// Package ocr acquires raw text from receipt images and PDFs. It owns only
// the text acquisition boundary: everything downstream of the returned string
// is the extraction engine's concern, and an error here is the one failure
// the rest of the system surfaces to callers directly.
package ocr

// Source converts a receipt image or PDF into raw text.
type Source interface {
	// Text transcribes the document. The returned text is unstructured and
	// may be empty when the document carries no readable characters.
	Text(imageData []byte, contentType string) (string, error)
	// Close releases any underlying client resources.
	Close() error
}
