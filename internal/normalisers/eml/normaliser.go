package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	htmlnormaliser "github.com/custodia-labs/tasklift/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML (email) documents.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"message/rfc822",
	}
}

// Normalise returns the message headers the generator extracts sender,
// received time and attachment names from, followed by the body.
func (n *Normaliser) Normalise(_ context.Context, doc domain.Document) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(doc.Content))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	to := decodeHeader(msg.Header.Get("To"))
	date := msg.Header.Get("Date")

	body, attachments, err := extractBody(msg)
	if err != nil {
		return "", err
	}

	var content strings.Builder
	writeHeader(&content, "From", from)
	writeHeader(&content, "To", to)
	writeHeader(&content, "Date", date)
	writeHeader(&content, "Subject", subject)
	writeHeader(&content, "Attachments", strings.Join(attachments, ", "))
	content.WriteString("\n")
	content.WriteString(body)

	return strings.TrimSpace(content.String()), nil
}

func writeHeader(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody extracts the text content and attachment file names.
func extractBody(msg *mail.Message) (string, []string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	body := decodeTransfer(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If we can't parse content type, try to read as plain text
		data, readErr := io.ReadAll(body)
		if readErr != nil {
			return "", nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, readErr)
		}
		return string(data), nil, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		text, attachments := extractMultipartBody(body, params["boundary"])
		return text, attachments, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}
	if mediaType == "text/html" {
		return htmlnormaliser.Strip(string(data)), nil, nil
	}
	return string(data), nil, nil
}

// decodeTransfer undoes a Content-Transfer-Encoding.
func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// extractMultipartBody extracts text from multipart messages. Plain text
// parts are preferred over HTML.
func extractMultipartBody(r io.Reader, boundary string) (string, []string) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts, attachments []string

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		if name := part.FileName(); name != "" {
			attachments = append(attachments, decodeHeader(name))
			part.Close()
			continue
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "text/plain"
		}

		var content []byte
		if strings.HasPrefix(mediaType, "multipart/") {
			content, err = io.ReadAll(part)
		} else {
			// NextPart has already decoded and dropped quoted-printable.
			content, err = io.ReadAll(decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding")))
		}
		part.Close()
		if err != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, htmlnormaliser.Strip(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, nestedAttachments := extractMultipartBody(bytes.NewReader(content), params["boundary"])
			if nested != "" {
				textParts = append(textParts, nested)
			}
			attachments = append(attachments, nestedAttachments...)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), attachments
	}
	return strings.Join(htmlParts, "\n"), attachments
}
