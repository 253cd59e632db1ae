// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/nepshop-backend/internal/config"
	"github.com/javajoker/nepshop-backend/internal/models"
)

// ObjectStorage holds product images and avatars outside the database.
type ObjectStorage interface {
	Upload(ctx context.Context, file *FileUpload, folder string) (models.Image, error)
	Delete(ctx context.Context, storageKey string) error
}

// FileUpload is an image received from a client.
type FileUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

const (
	FolderProducts = "products"
	FolderAvatars  = "avatars"

	maxImageSize = 5 * 1024 * 1024
)

var allowedImageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// ReadFileUpload reads a multipart image into memory.
func ReadFileUpload(header *multipart.FileHeader) (*FileUpload, error) {
	if header.Size > maxImageSize {
		return nil, fmt.Errorf("file size %d bytes exceeds maximum allowed size %d bytes", header.Size, maxImageSize)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// Validate checks extension, size and the image signature.
func (f *FileUpload) Validate() error {
	if len(f.Content) == 0 {
		return fmt.Errorf("file is empty")
	}
	if len(f.Content) > maxImageSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size %d bytes", len(f.Content), maxImageSize)
	}

	ext := strings.ToLower(filepath.Ext(f.Filename))
	allowed := false
	for _, allowedExt := range allowedImageExts {
		if ext == allowedExt {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("file type %s is not allowed", ext)
	}

	if !isValidImageType(f.Content) {
		return fmt.Errorf("invalid image file")
	}
	return nil
}

type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		return &StorageService{config: config}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

func (s *StorageService) Upload(ctx context.Context, file *FileUpload, folder string) (models.Image, error) {
	if err := file.Validate(); err != nil {
		return models.Image{}, err
	}

	key := generateObjectKey(file.Filename, folder)

	if s.s3Client == nil {
		// Local development, nothing leaves the process
		logrus.WithField("key", key).Debug("Simulated image upload")
		return models.Image{
			StorageKey: key,
			URL:        fmt.Sprintf("http://%s:%s/uploads/%s", s.config.Server.Host, s.config.Server.Port, key),
		}, nil
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file.Content),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(file.Content))),
		ACL:           aws.String(s3.ObjectCannedACLPublicRead),
	})
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return models.Image{StorageKey: key, URL: s.objectURL(key)}, nil
}

func (s *StorageService) Delete(ctx context.Context, storageKey string) error {
	if s.s3Client == nil {
		logrus.WithField("key", storageKey).Debug("Simulated image delete")
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

func generateObjectKey(originalName, folder string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	timestamp := time.Now().UTC().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, uuid.NewString(), ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}
	return filename
}

func (s *StorageService) objectURL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.config.AWS.CloudFrontURL, "/"), key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

func isValidImageType(buffer []byte) bool {
	// JPEG
	if len(buffer) >= 3 && buffer[0] == 0xFF && buffer[1] == 0xD8 && buffer[2] == 0xFF {
		return true
	}

	// PNG
	if len(buffer) >= 8 && bytes.Equal(buffer[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		return true
	}

	// GIF
	if len(buffer) >= 6 && (string(buffer[:6]) == "GIF87a" || string(buffer[:6]) == "GIF89a") {
		return true
	}

	// WebP
	if len(buffer) >= 12 && string(buffer[:4]) == "RIFF" && string(buffer[8:12]) == "WEBP" {
		return true
	}

	return false
}
