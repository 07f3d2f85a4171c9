package workbooks

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/middleware"
	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/response"
	"github.com/inkwell-funnel/backend/pkg/storage"
)

// AccessGate answers whether a user currently holds access to a product.
type AccessGate interface {
	Verify(ctx context.Context, userID uuid.UUID, productType models.ProductType) (bool, error)
}

// Handler handles workbook asset endpoints. Downloads sit behind the
// access gate: a paywalled asset never leaves the bucket without a current
// entitlement, and gate failures answer retryable, never granted.
type Handler struct {
	repo   *Repository
	gate   AccessGate
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a workbooks handler.
func NewHandler(repo *Repository, gate AccessGate, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, gate: gate, s3: s3, logger: logger}
}

// DownloadURL handles GET /workbooks/:product_type/download-url (bearer auth).
func (h *Handler) DownloadURL(c *gin.Context) {
	productType, err := models.ParseProductType(c.Param("product_type"))
	if err != nil {
		response.BadRequest(c, "invalid product_type")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	granted, err := h.gate.Verify(c.Request.Context(), userID, productType)
	if err != nil {
		h.logger.Error("access verification failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Upstream(c, "could not verify access, please retry")
		return
	}
	if !granted {
		response.Forbidden(c, "purchase required")
		return
	}

	if h.s3 == nil {
		response.Internal(c, "S3 not configured")
		return
	}
	asset, err := h.repo.GetByProduct(c.Request.Context(), productType)
	if err != nil {
		response.Internal(c, "failed to load asset")
		return
	}
	if asset == nil {
		response.NotFound(c, "no downloadable asset for this product")
		return
	}

	expire := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.WorkbooksBucket(), asset.S3Key, expire)
	if err != nil {
		h.logger.Error("presign download failed", zap.Error(err), zap.String("key", asset.S3Key))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{
		"url":        url,
		"filename":   asset.Filename,
		"expires_in": int(expire.Seconds()),
	})
}

// UploadAsset handles POST /admin/workbooks/:product_type/asset (admin only).
// Server-side upload to the private workbooks bucket.
func (h *Handler) UploadAsset(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "S3 not configured")
		return
	}
	productType, err := models.ParseProductType(c.Param("product_type"))
	if err != nil {
		response.BadRequest(c, "invalid product_type")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxAssetFileSize {
		response.BadRequest(c, "file size exceeds 50MB limit")
		return
	}
	if !storage.ValidateAssetFileType(file.Header.Get("Content-Type"), file.Filename) {
		response.BadRequest(c, "invalid file type: only pdf, zip and epub allowed")
		return
	}

	contentType := storage.ContentTypeForFilename(file.Filename)
	if ct := file.Header.Get("Content-Type"); ct != "" {
		if _, ok := storage.AllowedAssetTypes[ct]; ok {
			contentType = ct
		}
	}

	key := storage.AssetKey(productType.String(), file.Filename)
	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	if _, err := h.s3.Upload(c.Request.Context(), h.s3.WorkbooksBucket(), key, contentType, rc, file.Size); err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return
	}

	asset := &Asset{
		ProductType: productType,
		S3Key:       key,
		Filename:    file.Filename,
		ContentType: contentType,
		SizeBytes:   file.Size,
	}
	if err := h.repo.Upsert(c.Request.Context(), asset); err != nil {
		h.logger.Error("save asset record failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to save asset record")
		return
	}
	response.OK(c, asset)
}
