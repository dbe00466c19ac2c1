// Package storagetest provides an in-memory object store that satisfies the
// gateway's client interfaces.
package storagetest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
)

type Object struct {
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

type MemoryClient struct {
	mu      sync.Mutex
	objects map[string]Object

	PutCalls    int
	RemoveCalls int
	PutErr      error
	RemoveErr   error
	SignErr     error
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{objects: make(map[string]Object)}
}

func (m *MemoryClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls++
	if m.PutErr != nil {
		return minio.UploadInfo{}, m.PutErr
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}

	m.objects[bucketName+"/"+objectName] = Object{Body: body, ContentType: opts.ContentType, Metadata: opts.UserMetadata}
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(body))}, nil
}

func (m *MemoryClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RemoveCalls++
	if m.RemoveErr != nil {
		return m.RemoveErr
	}

	id := bucketName + "/" + objectName
	if _, ok := m.objects[id]; !ok {
		return minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound, Key: objectName, BucketName: bucketName}
	}
	delete(m.objects, id)
	return nil
}

func (m *MemoryClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	return m.presign(http.MethodGet, bucketName, objectName, expires)
}

func (m *MemoryClient) PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error) {
	return m.presign(http.MethodPut, bucketName, objectName, expires)
}

func (m *MemoryClient) presign(method, bucketName, objectName string, expires time.Duration) (*url.URL, error) {
	if m.SignErr != nil {
		return nil, m.SignErr
	}
	return url.Parse(fmt.Sprintf("https://storage.test/%s/%s?X-Amz-Expires=%d&X-Method=%s", bucketName, objectName, int(expires.Seconds()), method))
}

func (m *MemoryClient) ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[bucketName+"/"+objectName]
	if !ok {
		return nil, "", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound, Key: objectName, BucketName: bucketName}
	}
	return append([]byte(nil), obj.Body...), obj.ContentType, nil
}

func (m *MemoryClient) Object(bucketName, objectName string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[bucketName+"/"+objectName]
	return obj, ok
}

// Keys lists stored object names in bucket, sorted.
func (m *MemoryClient) Keys(bucketName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := bucketName + "/"
	var keys []string
	for id := range m.objects {
		if len(id) > len(prefix) && id[:len(prefix)] == prefix {
			keys = append(keys, id[len(prefix):])
		}
	}
	sort.Strings(keys)
	return keys
}
