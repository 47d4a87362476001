package http

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rentals-api/internal/application/billing"
	"github.com/jhoicas/rentals-api/internal/application/dto"
)

// InvoiceHandler maneja las peticiones HTTP de emisión y ciclo de vida (protegido).
type InvoiceHandler struct {
	compiler  *billing.Compiler
	batch     *billing.BatchOrchestrator
	lifecycle *billing.LifecycleController
	pdf       *billing.PDFUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(compiler *billing.Compiler, batch *billing.BatchOrchestrator, lifecycle *billing.LifecycleController, pdf *billing.PDFUseCase) *InvoiceHandler {
	return &InvoiceHandler{compiler: compiler, batch: batch, lifecycle: lifecycle, pdf: pdf}
}

// Issue godoc
// @Summary      Emitir documento para una reserva
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IssueInvoiceRequest  true  "booking_id, customer/items/notes opcionales, lock"
// @Success      201   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Issue(c *fiber.Ctx) error {
	var in dto.IssueInvoiceRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	doc, err := h.compiler.IssueForBooking(c.UserContext(), in.BookingID, billing.IssueOptions{
		Customer:        in.Customer.ToCustomerSnapshot(),
		Items:           dto.ToFiscalItems(in.Items),
		Notes:           in.Notes,
		LockImmediately: in.Lock,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromDocument(doc))
}

// IssueBatch godoc
// @Summary      Emitir documentos para varias reservas
// @Description  Devuelve un resultado por reserva en el mismo orden; un fallo no detiene a las demás.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchIssueRequest  true  "booking_ids, skip_existing, lock"
// @Success      200   {array}   dto.BatchResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/invoices/batch [post]
func (h *InvoiceHandler) IssueBatch(c *fiber.Ctx) error {
	var in dto.BatchIssueRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	results := h.batch.CompileBatch(c.UserContext(), in.BookingIDs, billing.BatchOptions{
		SkipExisting:    in.SkipExisting,
		LockImmediately: in.Lock,
		Concurrency:     in.Concurrency,
	})
	out := make([]dto.BatchResultResponse, 0, len(results))
	issued := 0
	for _, r := range results {
		item := dto.BatchResultResponse{
			BookingID: r.BookingID,
			Success:   r.Success,
			Skipped:   r.Skipped,
			Document:  dto.FromDocument(r.Document),
		}
		if r.Err != nil {
			item.Error = toErrorResponse(r.Err)
		} else if !r.Skipped {
			issued++
		}
		out = append(out, item)
	}
	return c.JSON(fiber.Map{
		"total":   len(out),
		"issued":  issued,
		"results": out,
	})
}

// GetByID godoc
// @Summary      Detalle de un documento
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.lifecycle.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// List godoc
// @Summary      Documentos de un grupo emisor en un año
// @Description  Ordenados por número. total cuenta todos los documentos del año.
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        group_id  query  string  true   "Grupo emisor"
// @Param        year      query  int     true   "Año de numeración"
// @Param        limit     query  int     false  "Tamaño de página (1-100, por defecto 20)"
// @Param        offset    query  int     false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/invoices [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	groupID := c.Query("group_id")
	year, err := strconv.Atoi(c.Query("year"))
	if groupID == "" || err != nil || year <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "group_id y year requeridos"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "limit/offset inválidos"})
	}
	page.DefaultPage()
	if err := validate.Struct(page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(err)})
	}
	docs, err := h.lifecycle.List(c.UserContext(), groupID, year)
	if err != nil {
		return writeError(c, err)
	}
	start := min(page.Offset, len(docs))
	end := min(start+page.Limit, len(docs))
	items := make([]*dto.InvoiceResponse, 0, end-start)
	for _, d := range docs[start:end] {
		items = append(items, dto.FromDocument(d))
	}
	return c.JSON(fiber.Map{
		"total":    len(docs),
		"page":     dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(docs)},
		"invoices": items,
	})
}

// UpdateDraft godoc
// @Summary      Modificar un borrador
// @Description  Recalcula los totales. Un documento bloqueado no se modifica.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del documento"
// @Param        body  body  dto.UpdateDraftRequest  true  "version, customer, items, notes"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [patch]
func (h *InvoiceHandler) UpdateDraft(c *fiber.Ctx) error {
	var in dto.UpdateDraftRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	doc, err := h.lifecycle.UpdateDraft(c.UserContext(), c.Params("id"), in.Version, billing.DraftPatch{
		Customer: in.Customer.ToCustomerSnapshot(),
		Items:    dto.ToFiscalItems(in.Items),
		Notes:    in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// Lock godoc
// @Summary      Bloquear (emitir definitivamente) un borrador
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del documento"
// @Param        body  body  dto.TransitionRequest  false "version esperada"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/lock [post]
func (h *InvoiceHandler) Lock(c *fiber.Ctx) error {
	var in dto.TransitionRequest
	if ok, err := bindOptionalBody(c, &in); !ok {
		return err
	}
	doc, err := h.lifecycle.Lock(c.UserContext(), c.Params("id"), in.Version)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// MarkSent godoc
// @Summary      Marcar un documento como enviado
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del documento"
// @Param        body  body  dto.TransitionRequest  false "version esperada"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/sent [post]
func (h *InvoiceHandler) MarkSent(c *fiber.Ctx) error {
	var in dto.TransitionRequest
	if ok, err := bindOptionalBody(c, &in); !ok {
		return err
	}
	doc, err := h.lifecycle.MarkSent(c.UserContext(), c.Params("id"), in.Version)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// Cancel godoc
// @Summary      Anular un documento emitido
// @Description  El documento conserva su número; el operador del token queda como autor.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del documento"
// @Param        body  body  dto.CancelInvoiceRequest  true  "version, reason"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelInvoiceRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	doc, err := h.lifecycle.Cancel(c.UserContext(), c.Params("id"), in.Version, in.Reason, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// Delete godoc
// @Summary      Borrar un borrador
// @Description  Libera el número reservado y desmarca la reserva.
// @Tags         invoices
// @Security     Bearer
// @Param        id       path   string  true   "ID del documento"
// @Param        version  query  int     false  "version esperada"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	version := c.QueryInt("version", 0)
	if err := h.lifecycle.DeleteDraft(c.UserContext(), c.Params("id"), version); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddNote godoc
// @Summary      Agregar nota interna
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del documento"
// @Param        body  body  dto.InternalNoteRequest  true  "note"
// @Success      200   {object}  dto.InvoiceResponse
// @Router       /api/invoices/{id}/notes [post]
func (h *InvoiceHandler) AddNote(c *fiber.Ctx) error {
	var in dto.InternalNoteRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	doc, err := h.lifecycle.AddInternalNote(c.UserContext(), c.Params("id"), in.Note)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// RenderArtifact godoc
// @Summary      Regenerar y almacenar el PDF
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/artifact [post]
func (h *InvoiceHandler) RenderArtifact(c *fiber.Ctx) error {
	doc, err := h.lifecycle.RenderArtifact(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromDocument(doc))
}

// DownloadPDF godoc
// @Summary      Descargar el PDF del documento
// @Tags         invoices
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.pdf.DownloadInvoicePDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(pdfBytes)
}

// bindOptionalBody como bindBody pero acepta cuerpo vacío.
func bindOptionalBody(c *fiber.Ctx, out any) (bool, error) {
	if len(c.Body()) == 0 {
		return true, nil
	}
	return bindBody(c, out)
}

