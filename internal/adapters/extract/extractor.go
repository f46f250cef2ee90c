// Package extract converts attached files to text. Plain-text formats are
// read raw; formats that need a rendering engine are reported as
// unsupported and surface as inline annotations in the draft.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bnema/plebchat-cli/internal/domain"
	"github.com/bnema/plebchat-cli/internal/ports"
)

// maxFileSize guards against accidentally attaching huge files; anything
// over-budget is trimmed by the reducer later, but reading gigabytes into
// memory first helps nobody.
const maxFileSize = 8 << 20

type Extractor struct{}

var _ ports.Extractor = (*Extractor)(nil)

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedExtraction, filepath.Base(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat attachment: %w", err)
	}
	if info.Size() > maxFileSize {
		return "", fmt.Errorf("attachment too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not text", domain.ErrUnsupportedExtraction, filepath.Base(path))
	}

	return string(data), nil
}
