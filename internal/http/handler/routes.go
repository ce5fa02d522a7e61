package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// DocumentsPath is the API base the vault UI and vaultctl talk to.
const DocumentsPath = "/api/documents"

// RegisterRoutes attaches the probes and the document API to app.
func RegisterRoutes(app fiber.Router, db *sql.DB, docSvc service.DocumentService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	docs := app.Group(DocumentsPath)
	docs.Get("", ListDocuments(docSvc))
	// literal segments are registered before /:id so they are not captured as ids
	docs.Get("/search", SearchDocuments(docSvc))
	docs.Post("/upload", UploadDocument(docSvc))
	docs.Get("/download/:id", DownloadDocument(docSvc))
	docs.Get("/:id", GetDocument(docSvc))
	docs.Delete("/:id", DeleteDocument(docSvc))
}
