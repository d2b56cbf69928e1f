package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "text/markdown")
}

func TestExtract_ReturnsTrimmedText(t *testing.T) {
	content, err := New().Extract(context.Background(), []byte("  hello world\n"))

	require.NoError(t, err)
	assert.Equal(t, "hello world", content)
}

func TestExtract_EmptyInput(t *testing.T) {
	content, err := New().Extract(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	_, err := New().Extract(context.Background(), []byte{0xff, 0xfe, 0xfd})

	assert.ErrorIs(t, err, domain.ErrCorruptDocument)
}
