package vertex

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PreparePDF optimizes a PDF and keeps at most maxPages leading pages.
// maxPages <= 0 keeps every page.
func PreparePDF(data []byte, maxPages int) ([]byte, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	var optimized bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &optimized, cfg); err != nil {
		return nil, fmt.Errorf("optimize pdf: %w", err)
	}

	pages, err := api.PageCount(bytes.NewReader(optimized.Bytes()), cfg)
	if err != nil {
		return nil, fmt.Errorf("count pdf pages: %w", err)
	}
	if maxPages <= 0 || pages <= maxPages {
		return optimized.Bytes(), nil
	}

	var trimmed bytes.Buffer
	selection := []string{fmt.Sprintf("1-%d", maxPages)}
	if err := api.Trim(bytes.NewReader(optimized.Bytes()), &trimmed, selection, cfg); err != nil {
		return nil, fmt.Errorf("trim pdf to %d pages: %w", maxPages, err)
	}
	return trimmed.Bytes(), nil
}
