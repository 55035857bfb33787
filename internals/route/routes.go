package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"schoolflow_backend/internals/configs"
	assignmentCtl "schoolflow_backend/internals/features/fees/assignments/controller"
	catalogCtl "schoolflow_backend/internals/features/fees/catalog/controller"
	invoiceCtl "schoolflow_backend/internals/features/fees/invoices/controller"
	paymentCtl "schoolflow_backend/internals/features/fees/payments/controller"
	paymentModel "schoolflow_backend/internals/features/fees/payments/model"
	paymentSvc "schoolflow_backend/internals/features/fees/payments/service"
	receiptCtl "schoolflow_backend/internals/features/fees/receipts/controller"
	receiptSvc "schoolflow_backend/internals/features/fees/receipts/service"
	"schoolflow_backend/internals/middlewares/auth"
)

// SetupRoutes wires every handler under /api/v1. The webhook stays outside
// the auth group: providers sign their deliveries, they do not carry tokens.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	renderer := &receiptSvc.FileRenderer{Dir: configs.ReceiptsDir}
	gateways := map[string]paymentSvc.Gateway{
		paymentModel.PaymentProviderRazorpay: &paymentSvc.RazorpayGateway{
			KeyID:         configs.RazorpayKeyID,
			WebhookSecret: configs.RazorpayWebhookSecret,
		},
	}
	if configs.MidtransServerKey != "" {
		gateways[paymentModel.PaymentProviderMidtrans] =
			paymentSvc.NewMidtransGateway(configs.MidtransServerKey, configs.MidtransProduction)
	}

	components := catalogCtl.NewCatalogController(db)
	assignments := assignmentCtl.NewAssignmentController(db)
	invoices := invoiceCtl.NewInvoiceController(db)
	payments := paymentCtl.NewPaymentController(db, gateways, renderer)
	receipts := receiptCtl.NewReceiptController(db, renderer)

	api := app.Group("/api/v1")

	// Provider-facing, signature-verified.
	api.Post("/payments/webhook", payments.Webhook)

	protected := api.Group("", auth.AuthJWT(auth.AuthJWTOpts{
		Secret:              configs.JWTSecret,
		AllowCookieFallback: true,
	}))

	fees := protected.Group("/fees")
	fees.Post("/components", components.CreateComponent)
	fees.Get("/components", components.ListComponents)
	fees.Post("/plans", components.CreatePlan)
	fees.Get("/plans", components.ListPlans)
	fees.Get("/plans/:id", components.GetPlan)
	fees.Post("/plans/:id/components", components.AddPlanComponent)

	fees.Post("/assignments", assignments.Create)
	fees.Get("/assignments", assignments.List)
	fees.Get("/assignments/:id/resolution", assignments.Resolution)
	fees.Patch("/assignments/:id", assignments.Patch)
	fees.Delete("/assignments/:id", assignments.Delete)

	fees.Post("/invoices", invoices.Create)
	fees.Get("/invoices", invoices.List)
	fees.Get("/invoices/:id", invoices.Get)

	protected.Post("/payments/create-order/:invoice_id", payments.CreateOrder)

	protected.Get("/receipts/:id", receipts.Get)
	protected.Post("/receipts/reissue/:payment_id", receipts.Reissue)
}
