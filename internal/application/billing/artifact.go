package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// PDFArtifactPipeline genera el PDF del documento y lo sube al almacenamiento de objetos.
type PDFArtifactPipeline struct {
	generator InvoicePDFGenerator
	storage   ObjectStorage
}

// NewPDFArtifactPipeline construye el pipeline.
func NewPDFArtifactPipeline(generator InvoicePDFGenerator, storage ObjectStorage) *PDFArtifactPipeline {
	return &PDFArtifactPipeline{generator: generator, storage: storage}
}

// RenderAndStore implementa ArtifactPipeline.
func (p *PDFArtifactPipeline) RenderAndStore(ctx context.Context, doc *entity.InvoiceDocument) (string, error) {
	pdf, err := p.generator.GenerateInvoicePDF(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("generar pdf: %w", err)
	}
	loc, err := p.storage.Upload(ctx, ArtifactKey(doc), pdf, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("subir pdf: %w", err)
	}
	return loc, nil
}

// ArtifactKey clave del objeto: invoices/<grupo>/<año>/<número>.pdf
func ArtifactKey(doc *entity.InvoiceDocument) string {
	return fmt.Sprintf("invoices/%s/%d/%s.pdf", doc.GroupID, doc.Year, slugNumber(doc.Number))
}

// slugNumber "FT-2024/007" -> "FT-2024-007"
func slugNumber(number string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, number)
}
