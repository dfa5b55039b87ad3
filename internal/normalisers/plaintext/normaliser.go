package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// utf8BOM is stripped from the start of text files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plaintext normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/x-markdown",
		"text/csv",
	}
}

// Normalise returns the file content. Content that is not UTF-8 is rejected
// rather than sent to the generator as mojibake.
func (n *Normaliser) Normalise(_ context.Context, doc domain.Document) (string, error) {
	content := bytes.TrimPrefix(doc.Content, utf8BOM)
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: %s is not UTF-8 text", domain.ErrInvalidDocument, doc.Name)
	}
	return string(bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))), nil
}
