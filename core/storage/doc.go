// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface so table snapshots
// can be written to AWS S3 or a self-hosted MinIO instance, and mocked in
// tests (see core/storage/mocks).
//
// # Operations
//
//   - BucketExists and MakeBucket, combined by EnsureBucket
//   - PutObject: Uploads content (with size and options).
//   - GetObject: Retrieves content as a stream.
//   - ListObjects: Lists objects in a bucket (supports prefix/recursive).
//   - RemoveObject: Deletes a single object.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	err = storage.EnsureBucket(ctx, client, config.Bucket, config.Region)
package storage
