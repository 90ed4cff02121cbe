// Package mocks provides a testify mock of storage.Client with helpers for
// the snapshot objects the service stores.
package mocks

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"

	"github.com/burakenal/data/core/storage"
)

var _ storage.Client = (*Client)(nil)

// Client is a mock implementation of storage.Client.
type Client struct {
	mock.Mock
}

// NewClient returns a mock whose expectations are asserted when t finishes.
func NewClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *Client {
	c := &Client{}
	c.Test(t)
	t.Cleanup(func() { c.AssertExpectations(t) })
	return c
}

// ServeObject answers one download of bucket/object with data.
func (m *Client) ServeObject(bucket, object string, data []byte) *mock.Call {
	return m.On("GetObject", mock.Anything, bucket, object, mock.Anything).
		Return(io.NopCloser(bytes.NewReader(data)), nil).Once()
}

// CaptureUpload stores the body of one upload of bucket/object in out.
func (m *Client) CaptureUpload(bucket, object string, out *[]byte) *mock.Call {
	return m.On("PutObject", mock.Anything, bucket, object, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*out, _ = io.ReadAll(args.Get(3).(io.Reader))
		}).
		Return(minio.UploadInfo{}, nil).Once()
}

func (m *Client) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *Client) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *Client) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	info, _ := args.Get(0).(minio.UploadInfo)
	return info, args.Error(1)
}

func (m *Client) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	obj, _ := args.Get(0).(io.ReadCloser)
	return obj, args.Error(1)
}

// ListObjects returns a closed, empty channel unless a channel was configured.
func (m *Client) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	if ch, ok := m.Called(ctx, bucketName, opts).Get(0).(<-chan minio.ObjectInfo); ok {
		return ch
	}
	ch := make(chan minio.ObjectInfo)
	close(ch)
	return ch
}

func (m *Client) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}
