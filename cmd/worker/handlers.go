package main

import (
	"github.com/hibiken/asynq"

	"receipt-service/internal/domains/receipt/jobs"
	"receipt-service/internal/shared"
	"receipt-service/pkg/container"
)

// HandlerRegistry holds the fulfillment and housekeeping job handlers.
type HandlerRegistry struct {
	generatePDF *jobs.GeneratePDFHandler
	upload      *jobs.UploadHandler
	sendEmail   *jobs.SendEmailHandler
	recovery    *jobs.RecoveryHandler
	cleanup     *jobs.CleanupHandler
}

// initializeHandlers builds the handlers on top of the shared container.
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		generatePDF: jobs.NewGeneratePDFHandler(
			c.ReceiptRepo,
			c.JobLogRepo,
			c.AsynqClient,
			c.Config.Uploads.Dir,
		),
		upload: jobs.NewUploadHandler(
			c.ReceiptRepo,
			c.JobLogRepo,
			c.CloudStorageLogRepo,
			c.Storage,
			c.ReceiptService,
		),
		sendEmail: jobs.NewSendEmailHandler(
			c.ReceiptRepo,
			c.JobLogRepo,
			c.EmailLogRepo,
			c.Email,
			c.ReceiptService,
			c.Config.SMTP.From,
		),
		recovery: jobs.NewRecoveryHandler(c.RecoveryService, c.JobLogRepo),
		cleanup:  jobs.NewCleanupHandler(c.WebhookLogRepo, c.JobLogRepo, c.ReceiptRepo),
	}
}

// RegisterHandlers binds task types to handlers on the mux.
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeGenerateReceiptPDF, h.generatePDF.ProcessTask)
	mux.HandleFunc(shared.TypeUploadReceiptPDF, h.upload.ProcessTask)
	mux.HandleFunc(shared.TypeSendReceiptEmail, h.sendEmail.ProcessTask)
	mux.HandleFunc(shared.TypeRecoveryScan, h.recovery.ProcessTask)
	mux.HandleFunc(shared.TypeCleanupLogs, h.cleanup.ProcessLogCleanup)
	mux.HandleFunc(shared.TypeCleanupArtifacts, h.cleanup.ProcessArtifactCleanup)
}
