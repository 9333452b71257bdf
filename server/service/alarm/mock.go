package alarm

import (
	"context"
	"strings"
	"sync"
)

// MockRecognizer is a TextRecognizer for tests. It returns the text mapped
// to the image bytes, or Text when the image has no entry.
type MockRecognizer struct {
	Text   string
	Texts  map[string]string
	Err    error
	Reject []string // MIME types reported as unsupported

	mu    sync.Mutex
	calls int
}

// NewMockRecognizer creates a MockRecognizer that always returns text.
func NewMockRecognizer(text string) *MockRecognizer {
	return &MockRecognizer{Text: text}
}

// ExtractText returns the configured text or error.
func (m *MockRecognizer) ExtractText(ctx context.Context, image []byte, _ string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if text, ok := m.Texts[string(image)]; ok {
		return text, nil
	}
	return m.Text, nil
}

// IsSupported accepts image/* types not listed in Reject.
func (m *MockRecognizer) IsSupported(mimeType string) bool {
	for _, rejected := range m.Reject {
		if strings.EqualFold(rejected, mimeType) {
			return false
		}
	}
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}

// Calls returns how many times ExtractText ran.
func (m *MockRecognizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ TextRecognizer = (*MockRecognizer)(nil)
