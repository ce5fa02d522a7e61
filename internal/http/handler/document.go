package handler

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/database"
	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

func internalError(c *fiber.Ctx, err error) error {
	middleware.SetCause(c, err)
	return WriteError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func notFound(c *fiber.Ctx) error {
	return WriteError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
}

// validID rejects ids that cannot name a document before the service is asked.
func validID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// HealthCheck godoc
// @Summary Readiness probe
// @Description Pings the database.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return WriteError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		if err := database.Ping(c.UserContext(), db); err != nil {
			middleware.SetCause(c, err)
			return WriteError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe answers 200 while the process serves requests.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListDocuments godoc
// @Summary List documents
// @Description Every document, newest upload first.
// @Tags documents
// @Produce json
// @Success 200 {array} model.Document
// @Failure 500 {object} errorPayload
// @Router /api/documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.List(c.UserContext())
		if err != nil {
			return internalError(c, err)
		}
		return c.JSON(docs)
	}
}

// SearchDocuments godoc
// @Summary Search documents by name
// @Description Case-insensitive substring match on the name. A blank query lists everything.
// @Tags documents
// @Produce json
// @Param query query string false "name fragment"
// @Success 200 {array} model.Document
// @Failure 500 {object} errorPayload
// @Router /api/documents/search [get]
func SearchDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.Search(c.UserContext(), c.Query("query"))
		if err != nil {
			return internalError(c, err)
		}
		return c.JSON(docs)
	}
}

// UploadDocument godoc
// @Summary Upload a document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "document content"
// @Param name formData string true "display name"
// @Param description formData string false "description"
// @Success 201 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/documents/upload [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return WriteError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		name := strings.TrimSpace(c.FormValue("name"))
		if name == "" {
			return WriteError(c, fiber.StatusBadRequest, "NAME_REQUIRED", "name is required")
		}

		f, err := fh.Open()
		if err != nil {
			return WriteError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Upload(c.UserContext(), model.UploadInput{
			Name:        name,
			Description: c.FormValue("description"),
			FileName:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Content:     f,
		})
		if err != nil {
			if errors.Is(err, service.ErrNameRequired) {
				return WriteError(c, fiber.StatusBadRequest, "NAME_REQUIRED", "name is required")
			}
			return internalError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument godoc
// @Summary Get document metadata
// @Tags documents
// @Produce json
// @Param id path string true "document id (uuid)"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return WriteError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return notFound(c)
			}
			return internalError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument godoc
// @Summary Download document content
// @Description Streams the stored bytes as an attachment named after the original file.
// @Tags documents
// @Produce octet-stream
// @Param id path string true "document id (uuid)"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/documents/download/{id} [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return WriteError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, doc, err := svc.Open(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				middleware.SetCause(c, err)
				return notFound(c)
			}
			return internalError(c, err)
		}

		// Attachment guesses a type from the extension; the recorded type wins.
		c.Attachment(doc.FileName)
		if doc.FileType != "" {
			c.Set(fiber.HeaderContentType, doc.FileType)
		}
		size := -1
		if doc.FileSize > 0 {
			size = int(doc.FileSize)
		}
		// fasthttp closes rc once the body is written.
		return c.Status(fiber.StatusOK).SendStream(rc, size)
	}
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags documents
// @Param id path string true "document id (uuid)"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validID(c)
		if !ok {
			return WriteError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return notFound(c)
			}
			return internalError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
