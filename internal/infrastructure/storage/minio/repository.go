package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

// ErrReportNotFound is returned when the requested report key does not exist.
var ErrReportNotFound = errors.New(errors.ErrCodeNotFound, "report not found")

// metadataGeneratedAt is the user-metadata key carrying the generation time.
// MinIO returns user metadata with canonicalized keys.
const metadataGeneratedAt = "Generated-At"

// SaveReportRequest is one report to archive.
type SaveReportRequest struct {
	Key         string
	Data        []byte
	ContentType string
	Metadata    map[string]string
	GeneratedAt time.Time
}

// StoredReport describes an archived report.
type StoredReport struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// ReportContent is a fetched report with its payload.
type ReportContent struct {
	Data         []byte
	ContentType  string
	Size         int64
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// ─────────────────────────────────────────────────────────────────────────────
// ReportRepository
// ─────────────────────────────────────────────────────────────────────────────

// ReportRepository archives generated compliance reports in the report
// bucket.  Keys are caller-chosen; the reporting layer namespaces them by
// entity and generation date.
type ReportRepository struct {
	client *Client
	logger logging.Logger
}

// NewReportRepository constructs a ready-to-use ReportRepository.
func NewReportRepository(client *Client, log logging.Logger) *ReportRepository {
	return &ReportRepository{client: client, logger: log}
}

// SaveReport writes one report.  Content type is sniffed from the payload
// when the caller does not set it.
func (r *ReportRepository) SaveReport(ctx context.Context, req SaveReportRequest) (*StoredReport, error) {
	if req.Key == "" {
		return nil, errors.New(errors.ErrCodeValidation, "report key is required")
	}
	if len(req.Data) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "report payload is empty")
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(req.Data[:minInt(512, len(req.Data))])
	}

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	generatedAt := req.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	metadata[metadataGeneratedAt] = generatedAt.UTC().Format(time.RFC3339)

	info, err := r.client.API().PutObject(ctx,
		r.client.Bucket(), req.Key,
		bytes.NewReader(req.Data), int64(len(req.Data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: metadata,
		})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to store report")
	}

	r.logger.Info("Archived report",
		logging.String("key", req.Key),
		logging.Int64("size", info.Size),
		logging.String("content_type", contentType))

	return &StoredReport{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  contentType,
		LastModified: generatedAt,
	}, nil
}

// FetchReport reads one report back with its payload.
func (r *ReportRepository) FetchReport(ctx context.Context, key string) (*ReportContent, error) {
	if key == "" {
		return nil, errors.New(errors.ErrCodeValidation, "report key is required")
	}

	obj, err := r.client.API().GetObject(ctx, r.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open report")
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces at Stat.
	stat, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrReportNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to stat report")
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read report")
	}

	return &ReportContent{
		Data:         data,
		ContentType:  stat.ContentType,
		Size:         stat.Size,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
		Metadata:     stat.UserMetadata,
	}, nil
}

// ReportExists reports whether a key is present without fetching it.
func (r *ReportRepository) ReportExists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.API().StatObject(ctx, r.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeInternal, "failed to stat report")
	}
	return true, nil
}

// ListReports walks the bucket under a key prefix, newest API order, up to
// limit entries.
func (r *ReportRepository) ListReports(ctx context.Context, prefix string, limit int) ([]StoredReport, error) {
	if limit <= 0 {
		limit = 100
	}

	ch := r.client.API().ListObjects(ctx, r.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var reports []StoredReport
	for obj := range ch {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeInternal, "failed to list reports")
		}
		reports = append(reports, StoredReport{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
		if len(reports) >= limit {
			break
		}
	}
	return reports, nil
}

// DeleteReport removes one report.  Removing an absent key is not an error;
// the SDK treats it as a no-op delete.
func (r *ReportRepository) DeleteReport(ctx context.Context, key string) error {
	if key == "" {
		return errors.New(errors.ErrCodeValidation, "report key is required")
	}
	err := r.client.API().RemoveObject(ctx, r.client.Bucket(), key, minio.RemoveObjectOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete report")
	}
	return nil
}

// DeleteOlderThan removes reports last modified before the cutoff and
// reports how many were removed.  The worker's retention sweep calls it
// alongside the decision-store sweeps.
func (r *ReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	ch := r.client.API().ListObjects(ctx, r.client.Bucket(), minio.ListObjectsOptions{
		Recursive: true,
	})

	deleted := 0
	for obj := range ch {
		if obj.Err != nil {
			return deleted, errors.Wrap(obj.Err, errors.ErrCodeInternal, "failed to list reports for sweep")
		}
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := r.client.API().RemoveObject(ctx, r.client.Bucket(), obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeInternal, "failed to delete aged report")
		}
		deleted++
	}

	if deleted > 0 {
		r.logger.Info("Swept aged reports",
			logging.Int("deleted", deleted),
			logging.String("cutoff", cutoff.UTC().Format(time.RFC3339)))
	}
	return deleted, nil
}

// PresignedDownloadURL returns a time-limited download link for one report.
func (r *ReportRepository) PresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if key == "" {
		return "", errors.New(errors.ErrCodeValidation, "report key is required")
	}
	return r.client.PresignedGetURL(ctx, key, expiry)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
