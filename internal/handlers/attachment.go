package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

type AttachmentHandler struct {
	attachmentService *services.AttachmentService
}

func NewAttachmentHandler(attachmentService *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// Upload stores a multipart "file" on the record named by the subject_type
// and subject_id form fields.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxAttachmentSize+1<<20)
	subject, ok := parseRef(c, c.PostForm("subject_type"), c.PostForm("subject_id"))
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		apierrors.BadRequest(c, "A file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		apierrors.InternalErrorWithCause(c, "Failed to read upload", err)
		return
	}
	defer file.Close()

	attachment, err := h.attachmentService.Upload(c.Request.Context(), actor, services.UploadInput{
		Subject:  subject,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAttachmentDTO(attachment, nil))
}

// ListAttachments lists the files on ?subject_type=&subject_id=
func (h *AttachmentHandler) ListAttachments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	subject, ok := refQuery(c, "subject")
	if !ok {
		return
	}

	attachments, err := h.attachmentService.ListAttachments(c.Request.Context(), actor, subject)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	loaded := graph.NewLoaded("uploader")
	c.JSON(http.StatusOK, mapItems(attachments, func(a *models.Attachment) dto.AttachmentDTO {
		return dto.ToAttachmentDTO(a, loaded)
	}))
}

// Download redirects to a short-lived presigned URL
func (h *AttachmentHandler) Download(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	attachmentID, ok := paramID(c, "attachmentId")
	if !ok {
		return
	}

	url, err := h.attachmentService.DownloadURL(c.Request.Context(), actor, attachmentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if c.Query("redirect") == "false" {
		c.JSON(http.StatusOK, gin.H{"url": url})
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	attachmentID, ok := paramID(c, "attachmentId")
	if !ok {
		return
	}

	if err := h.attachmentService.DeleteAttachment(c.Request.Context(), actor, attachmentID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}
