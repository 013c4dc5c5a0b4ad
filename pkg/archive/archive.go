// Package archive copies downloaded report documents to S3-compatible object
// storage.
package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/Nephrolytics-ai/pd-report/pkg/config"
	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const reportTypeMetadataKey = "Report-Type"

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Archiver struct {
	client objectPutter
	bucket string
	prefix string
	newID  func() string
}

func NewArchiver(cfg config.ArchiveConfig) (*Archiver, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, utils.WrapIfNotNil(errors.New("archive endpoint is required"))
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, utils.WrapIfNotNil(errors.New("archive bucket is required"))
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return newArchiver(client, bucket, cfg.Prefix), nil
}

func newArchiver(client objectPutter, bucket string, prefix string) *Archiver {
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
		newID:  uuid.NewString,
	}
}

// Archive uploads doc under <prefix>/<id>/report.<format> and returns the
// object key.
func (a *Archiver) Archive(ctx context.Context, doc model.Document, reportType string) (string, error) {
	log := logging.NewLogger(ctx)
	if len(doc.Body) == 0 {
		return "", utils.WrapIfNotNil(errors.New("document body is empty"))
	}

	key := a.objectKey(doc.Format)
	contentType := doc.ContentType
	if contentType == "" {
		contentType = doc.Format.ContentType()
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if reportType = strings.TrimSpace(reportType); reportType != "" {
		opts.UserMetadata = map[string]string{reportTypeMetadataKey: reportType}
	}

	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(doc.Body), int64(len(doc.Body)), opts)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", utils.WrapIfNotNil(err)
	}

	log.Infof("report_archived bucket=%s key=%s bytes=%d etag=%s", a.bucket, key, info.Size, info.ETag)
	return key, nil
}

func (a *Archiver) objectKey(format model.DocumentFormat) string {
	return path.Join(a.prefix, a.newID(), format.Filename())
}
