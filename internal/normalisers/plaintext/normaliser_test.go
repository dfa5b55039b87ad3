package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tasklift/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "text/markdown")
}

func TestNormalise_PlainText(t *testing.T) {
	text, err := New().Normalise(context.Background(), domain.Document{
		Name:    "chat.txt",
		Content: []byte("Kim: lunch tomorrow?\r\nMe: sure, 12:30\r\n"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Kim: lunch tomorrow?\nMe: sure, 12:30\n", text)
}

func TestNormalise_StripsBOM(t *testing.T) {
	text, err := New().Normalise(context.Background(), domain.Document{
		Content: append([]byte{0xEF, 0xBB, 0xBF}, "# Notes"...),
	})

	require.NoError(t, err)
	assert.Equal(t, "# Notes", text)
}

func TestNormalise_RejectsBinary(t *testing.T) {
	_, err := New().Normalise(context.Background(), domain.Document{
		Name:    "blob.txt",
		Content: []byte{0xff, 0xfe, 0x00, 0x41},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}
