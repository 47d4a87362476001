package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

// PDFUseCase genera bajo demanda el PDF de un documento para su descarga.
type PDFUseCase struct {
	invoiceRepo repository.InvoiceRepository
	generator   InvoicePDFGenerator
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(invoiceRepo repository.InvoiceRepository, generator InvoicePDFGenerator) *PDFUseCase {
	return &PDFUseCase{invoiceRepo: invoiceRepo, generator: generator}
}

// DownloadInvoicePDF devuelve el PDF y el nombre de archivo sugerido.
//
// Retorna:
//   - domain.ErrNotFound     si el documento no existe.
//   - domain.ErrInvalidInput si el documento aún no tiene número definitivo.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, documentID string) (pdfBytes []byte, filename string, err error) {
	doc, err := uc.invoiceRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener documento: %w", err)
	}
	if doc == nil {
		return nil, "", domain.ErrNotFound
	}
	if doc.IsPlaceholder() {
		return nil, "", fmt.Errorf("%w: el documento %s aún no tiene número definitivo", domain.ErrInvalidInput, doc.ID)
	}

	pdfBytes, err = uc.generator.GenerateInvoicePDF(ctx, doc)
	if err != nil {
		return nil, "", domain.NewArtifactError("pdf", err)
	}
	filename = fmt.Sprintf("%s_%s.pdf", doc.DocumentType, slugNumber(doc.Number))
	return pdfBytes, filename, nil
}
