package excerpt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/core/ports"
)

// maxObjectBytes caps how much of a stored object is read for extraction.
const maxObjectBytes = 20 << 20

// Extractor pulls a text excerpt out of a staged upload's stored object.
// Formats with no extractable text (images, legacy .doc) yield an empty
// string, which callers turn into a metadata placeholder.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, staged *domain.StagedUpload) (string, error) {
	contentType := ""
	if staged.Metadata != nil {
		contentType, _ = staged.Metadata[domain.MetaContentType].(string)
	}
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	mediaType = strings.TrimSpace(mediaType)

	switch mediaType {
	case "application/pdf":
	case "text/plain":
	default:
		return "", nil
	}

	f, err := e.storage.Open(ctx, staged.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open stored object: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxObjectBytes))
	if err != nil {
		return "", fmt.Errorf("read stored object: %w", err)
	}

	if mediaType == "application/pdf" {
		return extractPDF(data)
	}
	if !utf8.Valid(data) {
		return "", nil
	}
	return collapseWhitespace(string(data)), nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(raw)), nil
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
