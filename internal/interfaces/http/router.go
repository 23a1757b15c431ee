package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/clinica-pro/internal/application/billing"
	"github.com/tu-usuario/clinica-pro/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	BatchInvoiceUC  *billing.BatchInvoiceUseCase
	CreateInvoiceUC *billing.CreateInvoiceUseCase
	Log             *logger.Logger
	JWTSecret       string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Tandas de facturación por actividad grupal (protegido)
	batchHandler := NewBatchInvoiceHandler(deps.BatchInvoiceUC, deps.Log)
	activities := protected.Group("/activities")
	activities.Get("/:id/invoices/batch/preview", batchHandler.Preview)
	activities.Post("/:id/invoices/batch", batchHandler.Run)
	activities.Post("/:id/invoices/batch/stop", batchHandler.Stop)
	activities.Get("/:id/invoices/batch/archive", batchHandler.DownloadArchive)

	// Facturas individuales (protegido)
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.CreateInvoiceUC)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)
}
