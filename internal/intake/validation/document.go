package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	apperrors "lead-intake-service/internal/common/errors"
)

// MaxDocumentSize is the resume upload cap.
const MaxDocumentSize = 10 << 20 // 10 MiB

// Document reason strings, shown verbatim to the applicant.
const (
	ReasonFilenameMissing    = "A resume file is required"
	ReasonDocumentTooLarge   = "Resume must not exceed 10 MB"
	ReasonExtensionInvalid   = "Resume must be a .pdf, .doc, .docx, .txt or .rtf file"
	ReasonContentTypeInvalid = "Resume content type does not match its file extension"
	ReasonFilenameUnsafe     = "Resume filename contains invalid characters"
)

// DocumentMeta describes an uploaded resume without holding its content.
type DocumentMeta struct {
	Filename    string
	Size        int64
	ContentType string
}

// allowedTypes maps accepted extensions to their canonical MIME types.
var allowedTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".txt":  {"text/plain"},
	".rtf":  {"application/rtf", "text/rtf"},
}

// unsafeSequences are rejected anywhere in the filename to block path
// traversal and shell/filesystem metacharacters.
var unsafeSequences = []string{"..", "/", "\\", "<", ">", ":", "\"", "|", "?", "*"}

// ValidateDocument runs the document checks in order, short-circuiting on
// the first failure.
func ValidateDocument(meta DocumentMeta) error {
	if strings.TrimSpace(meta.Filename) == "" {
		return apperrors.NewInvalidDocumentError(ReasonFilenameMissing)
	}

	if meta.Size > MaxDocumentSize {
		return apperrors.NewInvalidDocumentError(ReasonDocumentTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(meta.Filename))
	canonical, ok := allowedTypes[ext]
	if !ok {
		return apperrors.NewInvalidDocumentError(ReasonExtensionInvalid)
	}

	if meta.ContentType != "" {
		matched := false
		for _, mime := range canonical {
			if strings.EqualFold(meta.ContentType, mime) {
				matched = true
				break
			}
		}
		if !matched {
			return apperrors.NewInvalidDocumentError(ReasonContentTypeInvalid)
		}
	}

	for _, seq := range unsafeSequences {
		if strings.Contains(meta.Filename, seq) {
			return apperrors.NewInvalidDocumentError(ReasonFilenameUnsafe)
		}
	}

	return nil
}

// CanonicalContentType returns the primary MIME type for a validated
// filename, used when the upload did not declare one.
func CanonicalContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if types, ok := allowedTypes[ext]; ok {
		return types[0]
	}
	return "application/octet-stream"
}

// String implements fmt.Stringer for log fields.
func (m DocumentMeta) String() string {
	return fmt.Sprintf("%s (%d bytes, %s)", m.Filename, m.Size, m.ContentType)
}
