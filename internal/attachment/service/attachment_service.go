package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harry123180/erp-backend/internal/attachment/entity"
	"github.com/harry123180/erp-backend/internal/attachment/repository"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// AttachmentService 附件服务，文件本体存MinIO，元数据落库
type AttachmentService struct {
	repo        *repository.AttachmentRepository
	minioClient *minio.Client
	bucketName  string
	logger      *zap.Logger
}

func NewAttachmentService(repo *repository.AttachmentRepository, minioClient *minio.Client, bucketName string, logger *zap.Logger) *AttachmentService {
	return &AttachmentService{
		repo:        repo,
		minioClient: minioClient,
		bucketName:  bucketName,
		logger:      logger,
	}
}

// 附件归属类型合法集合
var validRelatedTypes = map[string]bool{
	entity.RelatedPO:            true,
	entity.RelatedConsolidation: true,
	entity.RelatedBatch:         true,
}

// Upload 上传附件
func (s *AttachmentService) Upload(ctx context.Context, userID, relatedType, relatedID string, reader io.Reader, fileName string, fileSize int64, contentType string) (*entity.Attachment, error) {
	if !validRelatedTypes[relatedType] {
		return nil, fmt.Errorf("附件归属类型无效: %s", relatedType)
	}

	objectPath := fmt.Sprintf("attachments/%s/%s%s",
		time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))

	if s.minioClient != nil {
		_, err := s.minioClient.PutObject(ctx, s.bucketName, objectPath, reader, fileSize, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return nil, fmt.Errorf("upload file: %w", err)
		}
	}

	att := &entity.Attachment{
		ID:          uuid.New().String()[:32],
		RelatedType: relatedType,
		RelatedID:   relatedID,
		FileName:    fileName,
		ObjectPath:  objectPath,
		Size:        fileSize,
		MimeType:    contentType,
		UploadedBy:  userID,
	}
	if err := s.repo.Create(ctx, att); err != nil {
		return nil, err
	}
	return att, nil
}

// ListByRelated 查询某对象的附件
func (s *AttachmentService) ListByRelated(ctx context.Context, relatedType, relatedID string) ([]entity.Attachment, error) {
	return s.repo.ListByRelated(ctx, relatedType, relatedID)
}

// Download 下载附件
func (s *AttachmentService) Download(ctx context.Context, id string) (io.ReadCloser, *entity.Attachment, error) {
	att, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if s.minioClient == nil {
		return nil, att, fmt.Errorf("storage not configured")
	}

	object, err := s.minioClient.GetObject(ctx, s.bucketName, att.ObjectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object: %w", err)
	}
	return object, att, nil
}

// PresignedURL 生成限时下载链接
func (s *AttachmentService) PresignedURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	att, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if s.minioClient == nil {
		return "", fmt.Errorf("storage not configured")
	}

	u, err := s.minioClient.PresignedGetObject(ctx, s.bucketName, att.ObjectPath, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}
