package service

import (
	"encoding/base64"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filevault/internal/file/biz"
	"github.com/lk2023060901/filevault/internal/file/types"
	apperrors "github.com/lk2023060901/filevault/internal/pkg/errors"
	"github.com/lk2023060901/filevault/internal/pkg/logger"
	"github.com/lk2023060901/filevault/internal/pkg/response"
	"go.uber.org/zap"
)

// FileService exposes the deduplication engine over HTTP
type FileService struct {
	uc     *biz.FileUseCase
	logger *logger.Logger
}

// NewFileService creates the file HTTP service
func NewFileService(uc *biz.FileUseCase, log *logger.Logger) *FileService {
	return &FileService{
		uc:     uc,
		logger: log,
	}
}

// RegisterRoutes mounts the file routes on a router group
func (s *FileService) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/files", s.UploadFile)
	r.GET("/files", s.ListFiles)
	r.GET("/files/:id", s.GetFile)
	r.GET("/files/:id/download", s.GetDownloadLink)
	r.GET("/stats", s.GetStats)
}

// UploadFile accepts a raw request body as the file payload. The display
// name comes from the X-Filename header, the MIME type from Content-Type,
// and a base64 transfer encoding is honored via Content-Transfer-Encoding.
func (s *FileService) UploadFile(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrFileInvalidPayload, "failed to read request body")
		return
	}

	payload := body
	if strings.EqualFold(c.GetHeader("Content-Transfer-Encoding"), "base64") {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
		if err != nil {
			response.ErrorWithCode(c, apperrors.ErrFileInvalidPayload, "failed to decode base64 body")
			return
		}
		payload = decoded
	}

	name := c.GetHeader("X-Filename")
	contentType := c.ContentType()

	result, err := s.uc.Upload(c.Request.Context(), payload, name, contentType)
	if err != nil {
		s.handleError(c, err)
		return
	}

	resp := &UploadResponse{
		Status: result.Status,
		Record: toFileRecordResponse(result.Record),
	}

	if result.Status == types.StatusDuplicate {
		response.Conflict(c, "duplicate file", resp)
		return
	}

	response.Created(c, resp)
}

// GetFile returns the metadata record for one file_id
func (s *FileService) GetFile(c *gin.Context) {
	id := c.Param("id")

	record, err := s.uc.GetRecord(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, toFileRecordResponse(record))
}

// ListFiles returns one page of records. limit and cursor are query
// parameters; the cursor round-trips untouched through the URL.
func (s *FileService) ListFiles(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	records, nextCursor, err := s.uc.ListRecords(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, toListFilesResponse(records, nextCursor, limit))
}

// GetStats returns aggregate deduplication statistics
func (s *FileService) GetStats(c *gin.Context) {
	stats, err := s.uc.GetStats(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &StatsResponse{
		TotalUniqueFiles:  stats.TotalUniqueFiles,
		DuplicatesAvoided: stats.DuplicatesAvoided,
		TotalBytesSaved:   stats.TotalBytesSaved,
	})
}

// GetDownloadLink issues a presigned download URL for one file_id
func (s *FileService) GetDownloadLink(c *gin.Context) {
	id := c.Param("id")

	url, record, err := s.uc.GetDownloadLink(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &DownloadLinkResponse{
		DownloadURL:      url,
		Name:             record.Name,
		SizeBytes:        record.SizeBytes,
		ExpiresInSeconds: int64(s.uc.PresignTTL().Seconds()),
	})
}

// handleError maps engine sentinel errors onto business error codes
func (s *FileService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrInvalidPayload):
		response.ErrorWithCode(c, apperrors.ErrFileInvalidPayload)
	case errors.Is(err, biz.ErrPayloadTooLarge):
		response.ErrorWithCode(c, apperrors.ErrFileTooLarge)
	case errors.Is(err, biz.ErrNotFound):
		response.ErrorWithCode(c, apperrors.ErrFileNotFound)
	case errors.Is(err, types.ErrInvalidCursor):
		response.ErrorWithCode(c, apperrors.ErrFileInvalidCursor)
	case errors.Is(err, biz.ErrInconsistent):
		s.logger.Error("upload left inconsistent state", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrFileInconsistent)
	case errors.Is(err, biz.ErrStoreUnavailable):
		s.logger.Error("store unavailable", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrFileStoreFailed)
	default:
		s.logger.Error("unexpected error", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrInternalServer)
	}
}
