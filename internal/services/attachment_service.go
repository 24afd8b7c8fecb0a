package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/storage"
)

var (
	ErrAttachmentNotFound        = notFound("attachment")
	ErrAttachmentSubjectNotFound = notFound("attachment subject")
	ErrNotAttachable             = invalid("attachments are not supported on this kind")
	ErrFileNameRequired          = invalid("file name is required")
	ErrEmptyFile                 = invalid("file is empty")
	ErrFileTooLarge              = invalid("file exceeds " + humanize.IBytes(constants.MaxAttachmentSize))
	ErrStorageUnavailable        = fmt.Errorf("attachments %w", ErrUnavailable)
)

var attachable = map[models.EntityKind]bool{
	models.KindTask: true,
	models.KindWiki: true,
}

// AttachmentService uploads files to object storage and keeps their metadata.
type AttachmentService struct {
	attachments repository.Store[models.Attachment]
	blobs       storage.BlobStore
	resolver    *graph.Resolver
	activity    *ActivityService
	eval        *authz.Evaluator
}

// NewAttachmentService wires the service. blobs may be nil when storage is
// not configured; uploads and downloads then fail with ErrStorageUnavailable.
func NewAttachmentService(attachments repository.Store[models.Attachment], blobs storage.BlobStore, resolver *graph.Resolver, activity *ActivityService, eval *authz.Evaluator) *AttachmentService {
	return &AttachmentService{
		attachments: attachments,
		blobs:       blobs,
		resolver:    resolver,
		activity:    activity,
		eval:        eval,
	}
}

type UploadInput struct {
	Subject  models.Ref
	FileName string
	MimeType string
	Size     int64
	Body     io.Reader
}

func (s *AttachmentService) Upload(ctx context.Context, actor *authz.Actor, input UploadInput) (*models.Attachment, error) {
	if s.blobs == nil {
		return nil, ErrStorageUnavailable
	}
	if !attachable[input.Subject.Kind] {
		return nil, ErrNotAttachable
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(input.FileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, ErrFileNameRequired
	}
	if input.Size <= 0 {
		return nil, ErrEmptyFile
	}
	if input.Size > constants.MaxAttachmentSize {
		return nil, ErrFileTooLarge
	}

	subject, err := s.resolver.ResolveRef(ctx, input.Subject)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, ErrAttachmentSubjectNotFound
		}
		return nil, fmt.Errorf("failed to find attachment subject: %w", err)
	}
	if err := authorize(s.eval, actor, authz.ActionView, subject, ErrAttachmentSubjectNotFound); err != nil {
		return nil, err
	}
	workspaceID := *subject.ScopeWorkspaceID()
	if err := authorizeCreate(s.eval, actor, models.KindAttachment, &workspaceID); err != nil {
		return nil, err
	}

	mimeType := input.MimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(name))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	key := storage.ObjectKey(workspaceID, name)
	if err := s.blobs.Put(ctx, key, input.Body, input.Size, mimeType); err != nil {
		return nil, err
	}

	attachment := &models.Attachment{
		WorkspaceID:    workspaceID,
		AttachableType: input.Subject.Kind,
		AttachableID:   input.Subject.ID,
		UploaderID:     actor.UserID,
		FileName:       name,
		MimeType:       mimeType,
		Size:           input.Size,
		StorageKey:     key,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		s.removeBlob(ctx, key)
		return nil, fmt.Errorf("failed to create attachment: %w", err)
	}

	s.activity.Track(ctx, Change{Actor: actor, Entity: attachment, Action: "created", New: attachment})
	return attachment, nil
}

func (s *AttachmentService) ListAttachments(ctx context.Context, actor *authz.Actor, subjectRef models.Ref) ([]models.Attachment, error) {
	if !attachable[subjectRef.Kind] {
		return nil, ErrNotAttachable
	}
	subject, err := s.resolver.ResolveRef(ctx, subjectRef)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, ErrAttachmentSubjectNotFound
		}
		return nil, fmt.Errorf("failed to find attachment subject: %w", err)
	}
	if err := authorize(s.eval, actor, authz.ActionView, subject, ErrAttachmentSubjectNotFound); err != nil {
		return nil, err
	}

	attachments, _, err := s.attachments.List(ctx, repository.Query{
		Where:   map[string]interface{}{"attachable_type": subjectRef.Kind, "attachable_id": subjectRef.ID},
		Order:   "id ASC",
		Preload: []string{"Uploader"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// DownloadURL returns a presigned link for the blob behind an attachment.
func (s *AttachmentService) DownloadURL(ctx context.Context, actor *authz.Actor, id uint64) (string, error) {
	attachment, err := s.find(ctx, actor, id, authz.ActionView)
	if err != nil {
		return "", err
	}
	if s.blobs == nil {
		return "", ErrStorageUnavailable
	}
	return s.blobs.PresignedURL(ctx, attachment.StorageKey, attachment.FileName)
}

func (s *AttachmentService) DeleteAttachment(ctx context.Context, actor *authz.Actor, id uint64) error {
	attachment, err := s.find(ctx, actor, id, authz.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.attachments.Delete(ctx, attachment); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	s.removeBlob(ctx, attachment.StorageKey)

	s.activity.Track(ctx, Change{Actor: actor, Entity: attachment, Action: "deleted", Old: attachment})
	return nil
}

func (s *AttachmentService) find(ctx context.Context, actor *authz.Actor, id uint64, action authz.Action) (*models.Attachment, error) {
	attachment, err := s.attachments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrAttachmentNotFound, "attachment")
	}
	if err := authorize(s.eval, actor, action, attachment, ErrAttachmentNotFound); err != nil {
		return nil, err
	}
	return attachment, nil
}

// removeBlob deletes an object whose row is gone. A leftover blob is only
// wasted space, so failures are logged.
func (s *AttachmentService) removeBlob(ctx context.Context, key string) {
	if s.blobs == nil {
		return
	}
	if err := s.blobs.Remove(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to remove attachment blob")
	}
}
