package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rentals-api/internal/application/billing"
	"github.com/jhoicas/rentals-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Compiler  *billing.Compiler
	Batch     *billing.BatchOrchestrator
	Lifecycle *billing.LifecycleController
	Sequence  *billing.SequenceService
	PDF       *billing.PDFUseCase
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token; las que cambian
// documentos además requieren rol admin u operator.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	write := RequireRole(jwt.RoleAdmin, jwt.RoleOperator)
	read := RequireRole(jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer)

	invoiceHandler := NewInvoiceHandler(deps.Compiler, deps.Batch, deps.Lifecycle, deps.PDF)
	invoices := api.Group("/invoices")
	invoices.Post("/", write, invoiceHandler.Issue)
	invoices.Post("/batch", write, invoiceHandler.IssueBatch)
	invoices.Get("/", read, invoiceHandler.List)
	invoices.Get("/:id", read, invoiceHandler.GetByID)
	invoices.Patch("/:id", write, invoiceHandler.UpdateDraft)
	invoices.Delete("/:id", write, invoiceHandler.Delete)
	invoices.Post("/:id/lock", write, invoiceHandler.Lock)
	invoices.Post("/:id/sent", write, invoiceHandler.MarkSent)
	invoices.Post("/:id/cancel", write, invoiceHandler.Cancel)
	invoices.Post("/:id/notes", write, invoiceHandler.AddNote)
	invoices.Post("/:id/artifact", write, invoiceHandler.RenderArtifact)
	invoices.Get("/:id/pdf", read, invoiceHandler.DownloadPDF)

	counterHandler := NewCounterHandler(deps.Sequence)
	api.Get("/counters/:group_id/:year", read, counterHandler.Get)
}
