package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	circuitbreaker "github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/circuit-breaker"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/metrics"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const (
	FolderImages         = "images/products"
	FolderDocuments      = "documents/products"
	FolderSpecifications = "specifications/products"

	DefaultUploadURLTTL = 5 * time.Minute
	MaxSignedURLTTL     = 7 * 24 * time.Hour

	maxBaseNameLength = 50
	thumbnailSuffix   = "_thumb.jpg"
)

// ObjectAPI is the subset of *minio.Client the gateway writes through.
type ObjectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
}

// ObjectReader loads a whole object with its content type.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, string, error)
}

type StoredObject struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Gateway struct {
	api       ObjectAPI
	reader    ObjectReader
	bucket    string
	publicURL string
	breaker   *gobreaker.CircuitBreaker[any]
	now       func() time.Time
}

func CreateMinioClient(conf config.StorageConfig) (*minio.Client, error) {
	return minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKeyID, conf.SecretAccessKey, ""),
		Secure: conf.UseSSL,
		Region: conf.Region,
	})
}

func CreateGateway(api ObjectAPI, reader ObjectReader, bucket, publicURL string) *Gateway {
	return &Gateway{
		api:       api,
		reader:    reader,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		breaker:   circuitbreaker.CreateCircuitBreaker[any]("object-storage"),
		now:       time.Now,
	}
}

// Put overwrites any object already stored under key.
func (g *Gateway) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (obj StoredObject, err error) {
	_, err = g.breaker.Execute(func() (any, error) {
		_, err := g.api.PutObject(ctx, g.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: metadata,
		})
		return nil, err
	})
	metrics.ObserveStorage("put", err)
	if err != nil {
		log.Error().Err(err).Str("component", "Put").Str("key", key).Msg("")
		return obj, fmt.Errorf("%w: %s: %v", errs.ErrStorageWrite, key, err)
	}

	return StoredObject{
		Key:         key,
		URL:         g.PublicURL(key),
		ContentType: contentType,
		Size:        int64(len(body)),
	}, nil
}

// Delete treats a missing key as already deleted.
func (g *Gateway) Delete(ctx context.Context, key string) (err error) {
	_, err = g.breaker.Execute(func() (any, error) {
		err := g.api.RemoveObject(ctx, g.bucket, key, minio.RemoveObjectOptions{})
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	})
	metrics.ObserveStorage("delete", err)
	if err != nil {
		log.Error().Err(err).Str("component", "Delete").Str("key", key).Msg("")
		return fmt.Errorf("%w: %s: %v", errs.ErrStorageDelete, key, err)
	}

	return nil
}

func (g *Gateway) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return g.presign(ctx, "sign_get", key, ttl, func() (*url.URL, error) {
		return g.api.PresignedGetObject(ctx, g.bucket, key, ttl, nil)
	})
}

func (g *Gateway) PresignedUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return g.presign(ctx, "sign_put", key, ttl, func() (*url.URL, error) {
		return g.api.PresignedPutObject(ctx, g.bucket, key, ttl)
	})
}

func (g *Gateway) presign(ctx context.Context, operation, key string, ttl time.Duration, sign func() (*url.URL, error)) (string, error) {
	if key == "" || ttl <= 0 || ttl > MaxSignedURLTTL {
		return "", fmt.Errorf("%w: ttl must be between 1s and %s", errs.ErrValidation, MaxSignedURLTTL)
	}

	u, err := g.breaker.Execute(func() (any, error) {
		return sign()
	})
	metrics.ObserveStorage(operation, err)
	if err != nil {
		log.Error().Err(err).Str("component", "presign").Str("key", key).Msg("")
		return "", fmt.Errorf("%w: %s: %v", errs.ErrStorageSign, key, err)
	}

	return u.(*url.URL).String(), nil
}

func (g *Gateway) Get(ctx context.Context, key string) ([]byte, string, error) {
	body, contentType, err := g.reader.ReadObject(ctx, g.bucket, key)
	metrics.ObserveStorage("get", err)
	if err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("%w: %s", errs.ErrNotFound, key)
		}
		log.Error().Err(err).Str("component", "Get").Str("key", key).Msg("")
		return nil, "", fmt.Errorf("%w: %s: %v", errs.ErrStorageRead, key, err)
	}

	return body, contentType, nil
}

// GenerateKey builds {prefix}/{yyyy}/{mm}/{dd}/{ulid}_{name}{.ext}. The ulid
// carries the timestamp and 80 random bits.
func (g *Gateway) GenerateKey(originalName, prefix string) string {
	now := g.now().UTC()
	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	ext := path.Ext(base)
	name := sanitize(strings.TrimSuffix(base, ext))
	if name == "" {
		name = "file"
	}
	ext = strings.ToLower(sanitize(ext))

	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())

	return fmt.Sprintf("%s/%04d/%02d/%02d/%s_%s%s",
		strings.Trim(prefix, "/"), now.Year(), int(now.Month()), now.Day(),
		strings.ToLower(id.String()), name, ext)
}

func (g *Gateway) PublicURL(key string) string {
	return g.publicURL + "/" + key
}

// KeyFromURL reverses PublicURL. URLs outside the bucket's public base are
// rejected.
func (g *Gateway) KeyFromURL(rawURL string) (string, bool) {
	prefix := g.publicURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}

	key, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
	if err != nil || key == "" {
		return "", false
	}

	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}

// ThumbnailKey names the thumbnail derivative stored next to key.
func ThumbnailKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + thumbnailSuffix
}

func IsThumbnailKey(key string) bool {
	return strings.HasSuffix(key, thumbnailSuffix)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxBaseNameLength {
			break
		}
	}

	out := b.String()
	if len(out) > maxBaseNameLength {
		out = out[:maxBaseNameLength]
	}
	return out
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return true
	}

	return errors.Is(err, errs.ErrNotFound)
}

// MinioReader adapts *minio.Client to ObjectReader.
type MinioReader struct {
	Client *minio.Client
}

func (r MinioReader) ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, string, error) {
	obj, err := r.Client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", err
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", err
	}

	return body, info.ContentType, nil
}
