package services

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
	"github.com/custodia-labs/tasklift/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentReader = (*DocumentService)(nil)

// extensionTypes maps file extensions to MIME types for documents that
// arrive without one. Platform MIME tables often lack .eml.
var extensionTypes = map[string]string{
	".eml":  "message/rfc822",
	".html": "text/html",
	".htm":  "text/html",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// DocumentService selects a normaliser by MIME type and extracts the text
// of attached documents.
type DocumentService struct {
	byType map[string]driven.Normaliser
}

// NewDocumentService registers normalisers. A later normaliser replaces an
// earlier one for a shared MIME type.
func NewDocumentService(normalisers ...driven.Normaliser) *DocumentService {
	s := &DocumentService{byType: make(map[string]driven.Normaliser)}
	for _, n := range normalisers {
		for _, t := range n.SupportedMIMETypes() {
			s.byType[t] = n
		}
	}
	return s
}

// Text returns the trimmed text of doc.
func (s *DocumentService) Text(ctx context.Context, doc domain.Document) (string, error) {
	mimeType := mediaType(doc)
	n, ok := s.byType[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, doc.Name)
	}

	text, err := n.Normalise(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", doc.Name, err)
	}
	logger.Debug("%s: extracted %d bytes of %s text", doc.Name, len(text), mimeType)
	return strings.TrimSpace(text), nil
}

func mediaType(doc domain.Document) string {
	if doc.MIMEType != "" {
		if t, _, err := mime.ParseMediaType(doc.MIMEType); err == nil {
			return t
		}
	}
	ext := strings.ToLower(filepath.Ext(doc.Name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t, _, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil {
		return t
	}
	return ""
}
