package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recordhub/internal/common"
	sc "github.com/dmitrijs2005/recordhub/internal/server/config"
	"github.com/dmitrijs2005/recordhub/internal/server/models"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// AttachmentService manages per-record file attachments. The server never
// proxies file bytes: clients upload and download through short-lived
// presigned URLs against the S3-compatible backend, and the service tracks
// only the metadata.
type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewAttachmentService(db *sql.DB, rm repomanager.RepositoryManager, cfg *sc.Config) *AttachmentService {
	return &AttachmentService{
		db:          db,
		repomanager: rm,
		config:      cfg,
	}
}

func (s *AttachmentService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}

// GetRandomStorageKey builds a date-partitioned object key. Keys are opaque
// to clients; the record ID is never part of the key.
func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("records/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *AttachmentService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

func (s *AttachmentService) getPresignedPutURL(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func (s *AttachmentService) getPresignedGetURL(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// CreateUpload registers a pending attachment on a record and returns it
// together with a presigned PUT URL for the actual bytes. The record must
// exist.
func (s *AttachmentService) CreateUpload(ctx context.Context, recordID string) (*models.Attachment, string, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.repomanager.Records(s.db).GetByID(ctx, recordID); err != nil {
		return nil, "", translateStoreErr(err)
	}

	attachment := &models.Attachment{
		ID:           uuid.New().String(),
		RecordID:     recordID,
		StorageKey:   GetRandomStorageKey(),
		UploadStatus: models.UploadStatusPending,
	}

	url, err := s.getPresignedPutURL(ctx, attachment.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("error presigning upload: %w", err)
	}

	if err := s.repomanager.Attachments(s.db).Create(ctx, attachment); err != nil {
		return nil, "", translateStoreErr(err)
	}

	return attachment, url, nil
}

// MarkUploaded flips a pending attachment to uploaded once the client
// confirms the PUT succeeded.
func (s *AttachmentService) MarkUploaded(ctx context.Context, id string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.repomanager.Attachments(s.db).MarkUploaded(ctx, id); err != nil {
		return translateStoreErr(err)
	}
	return nil
}

// GetDownloadURL returns a presigned GET URL for an uploaded attachment.
// Attachments still pending upload are not downloadable.
func (s *AttachmentService) GetDownloadURL(ctx context.Context, id string) (string, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	attachment, err := s.repomanager.Attachments(s.db).GetByID(ctx, id)
	if err != nil {
		return "", translateStoreErr(err)
	}

	if attachment.UploadStatus != models.UploadStatusUploaded {
		return "", fmt.Errorf("attachment %s is not uploaded yet: %w", id, common.ErrNotFound)
	}

	return s.getPresignedGetURL(ctx, attachment.StorageKey)
}
