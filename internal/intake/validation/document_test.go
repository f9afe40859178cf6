package validation

import (
	"testing"

	apperrors "lead-intake-service/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name       string
		meta       DocumentMeta
		wantReason string
	}{
		{
			name: "pdf with matching content type",
			meta: DocumentMeta{Filename: "resume.pdf", Size: 1024, ContentType: "application/pdf"},
		},
		{
			name: "uppercase extension is accepted",
			meta: DocumentMeta{Filename: "resume.PDF", Size: 1024, ContentType: "application/pdf"},
		},
		{
			name: "missing content type passes extension check only",
			meta: DocumentMeta{Filename: "resume.docx", Size: 1024},
		},
		{
			name: "rtf accepts both mime spellings",
			meta: DocumentMeta{Filename: "resume.rtf", Size: 1024, ContentType: "text/rtf"},
		},
		{
			name: "exactly at the size cap",
			meta: DocumentMeta{Filename: "resume.pdf", Size: MaxDocumentSize, ContentType: "application/pdf"},
		},
		{
			name:       "empty filename",
			meta:       DocumentMeta{Filename: "", Size: 1024},
			wantReason: ReasonFilenameMissing,
		},
		{
			name:       "whitespace filename",
			meta:       DocumentMeta{Filename: "   ", Size: 1024},
			wantReason: ReasonFilenameMissing,
		},
		{
			name:       "one byte over the size cap",
			meta:       DocumentMeta{Filename: "resume.pdf", Size: MaxDocumentSize + 1, ContentType: "application/pdf"},
			wantReason: ReasonDocumentTooLarge,
		},
		{
			name:       "disallowed extension",
			meta:       DocumentMeta{Filename: "resume.exe", Size: 1024},
			wantReason: ReasonExtensionInvalid,
		},
		{
			name:       "no extension",
			meta:       DocumentMeta{Filename: "resume", Size: 1024},
			wantReason: ReasonExtensionInvalid,
		},
		{
			name:       "content type mismatch",
			meta:       DocumentMeta{Filename: "resume.pdf", Size: 1024, ContentType: "image/png"},
			wantReason: ReasonContentTypeInvalid,
		},
		{
			name:       "parent directory traversal",
			meta:       DocumentMeta{Filename: "../resume.pdf", Size: 1024, ContentType: "application/pdf"},
			wantReason: ReasonFilenameUnsafe,
		},
		{
			name:       "forward slash",
			meta:       DocumentMeta{Filename: "a/b.pdf", Size: 1024, ContentType: "application/pdf"},
			wantReason: ReasonFilenameUnsafe,
		},
		{
			name:       "backslash",
			meta:       DocumentMeta{Filename: "a\\b.pdf", Size: 1024, ContentType: "application/pdf"},
			wantReason: ReasonFilenameUnsafe,
		},
		{
			name:       "shell metacharacter",
			meta:       DocumentMeta{Filename: "resume|x.pdf", Size: 1024, ContentType: "application/pdf"},
			wantReason: ReasonFilenameUnsafe,
		},
		{
			// Size is checked before the extension, so an oversized exe
			// reports the size reason.
			name:       "size check precedes extension check",
			meta:       DocumentMeta{Filename: "resume.exe", Size: MaxDocumentSize + 1},
			wantReason: ReasonDocumentTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.meta)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidDocument))

			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.wantReason, stdErr.Message)
		})
	}
}

func TestCanonicalContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", CanonicalContentType("resume.pdf"))
	assert.Equal(t, "application/pdf", CanonicalContentType("resume.PDF"))
	assert.Equal(t, "text/plain", CanonicalContentType("notes.txt"))
	assert.Equal(t, "application/rtf", CanonicalContentType("resume.rtf"))
	assert.Equal(t, "application/octet-stream", CanonicalContentType("unknown.bin"))
}
