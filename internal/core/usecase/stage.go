package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/core/ports"
)

// DefaultMaxUploadBytes is the upload size ceiling when none is configured.
const DefaultMaxUploadBytes = 20 << 20 // 20 MiB

// allowedContentTypes maps accepted MIME types to the storage extension used
// for the object key.
var allowedContentTypes = map[string]string{
	"application/pdf":    ".pdf",
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

type UploadIntakeUseCase struct {
	loans    ports.LoanRepository
	staged   ports.StagedUploadRepository
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	maxBytes int64
}

func NewUploadIntakeUseCase(
	loans ports.LoanRepository,
	staged ports.StagedUploadRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	maxBytes int64,
) *UploadIntakeUseCase {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadIntakeUseCase{
		loans:    loans,
		staged:   staged,
		storage:  storage,
		queue:    queue,
		maxBytes: maxBytes,
	}
}

// StageUpload validates and persists one raw upload, then schedules
// classification. Scheduling is fire-and-forget: a publish failure leaves the
// upload successfully staged for a later retry sweep.
func (uc *UploadIntakeUseCase) StageUpload(ctx context.Context, actor domain.Actor, req ports.UploadRequest) (*domain.StagedUpload, error) {
	if strings.TrimSpace(req.LoanApplicationID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "stage upload", fmt.Errorf("loan application id is required"))
	}

	loan, err := uc.loans.GetByID(ctx, req.LoanApplicationID)
	if err != nil {
		return nil, fmt.Errorf("resolve loan application: %w", err)
	}
	if loan.TenantID != actor.TenantID {
		return nil, domain.WrapError(domain.ErrNotFound, "stage upload", fmt.Errorf("loan %s not visible to tenant", req.LoanApplicationID))
	}
	if loan.OwnerID != actor.ID && !actor.IsReviewer() {
		return nil, domain.WrapError(domain.ErrPermissionDenied, "stage upload", fmt.Errorf("loan %s is not owned by caller", req.LoanApplicationID))
	}

	if req.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "stage upload", fmt.Errorf("no file provided"))
	}
	if req.Size > uc.maxBytes {
		return nil, domain.WrapError(domain.ErrRequestTooLarge, "stage upload",
			fmt.Errorf("file is %d bytes, ceiling is %d", req.Size, uc.maxBytes))
	}
	ext, ok := allowedContentTypes[normalizeContentType(req.ContentType)]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedType, "stage upload",
			fmt.Errorf("content type %q not in allow-list", req.ContentType))
	}

	id := uuid.NewString()
	declaredType := req.DeclaredType
	if strings.TrimSpace(declaredType) == "" {
		declaredType = "Unknown"
	}
	storageKey := fmt.Sprintf("documents/%s/%s%s", sanitizeSegment(declaredType), id, ext)

	if err := uc.storage.Save(ctx, storageKey, req.Body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	now := time.Now().UTC()
	staged := &domain.StagedUpload{
		ID:           id,
		TenantID:     actor.TenantID,
		OwnerID:      actor.ID,
		Filename:     req.Filename,
		DeclaredType: declaredType,
		Status:       domain.StagedPending,
		StoragePath:  storageKey,
		Metadata: map[string]any{
			domain.MetaSize:              req.Size,
			domain.MetaContentType:       req.ContentType,
			domain.MetaLoanApplicationID: loan.ID,
			domain.MetaUploadTimestamp:   now.Format(time.RFC3339),
			domain.MetaUploadedBy:        actor.Name,
		},
		UploadedAt: now,
	}

	if err := uc.staged.Create(ctx, staged); err != nil {
		return nil, fmt.Errorf("create staged upload: %w", err)
	}

	if err := uc.queue.PublishStagedUpload(ctx, staged.ID); err != nil {
		// Upload success is decoupled from classification scheduling.
		slog.Warn("classification dispatch failed",
			"staged_id", staged.ID,
			"loan_application_id", loan.ID,
			"error", err,
		)
	}

	return staged, nil
}

// GetStaged returns a staged upload visible to the actor.
func (uc *UploadIntakeUseCase) GetStaged(ctx context.Context, actor domain.Actor, stagedID string) (*domain.StagedUpload, error) {
	staged, err := uc.staged.GetByID(ctx, stagedID)
	if err != nil {
		return nil, fmt.Errorf("fetch staged upload: %w", err)
	}
	if staged.TenantID != actor.TenantID {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch staged upload",
			fmt.Errorf("upload %s not visible to tenant", stagedID))
	}
	if staged.OwnerID != actor.ID && !actor.IsReviewer() {
		return nil, domain.WrapError(domain.ErrPermissionDenied, "fetch staged upload",
			fmt.Errorf("upload %s is not owned by caller", stagedID))
	}
	return staged, nil
}

func normalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// sanitizeSegment makes a declared document type safe to use as an object
// key path segment.
func sanitizeSegment(name string) string {
	base := filepath.Base(strings.ToLower(strings.TrimSpace(name)))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "unknown"
	}
	return base
}
