// Package s3 implements the ObjectStore over S3-compatible storage.
//
// This file contains deletion: single deletes and chunked batch deletes via
// the DeleteObjects API.
package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/dittodrive/pkg/store"
)

// Delete removes one object. S3 DeleteObject succeeds for absent keys, which
// matches the store contract's idempotent delete.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w: %v", key, store.ErrUnavailable, err)
	}

	return nil
}

// DeleteBatch removes up to len(keys) objects using DeleteObjects.
//
// S3 allows max 1000 objects per delete request; larger batches are chunked
// automatically. Per-key failures are collected rather than aborting the
// batch, so recursive folder deletion can report exactly which sub-paths
// survived.
func (s *S3Store) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	failures := make(map[string]error)

	const maxBatchSize = 1000

	for i := 0; i < len(keys); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(keys); j++ {
				failures[keys[j]] = err
			}
			return failures, err
		}

		end := i + maxBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[i:end]

		if err := s.limiter.WaitN(ctx, uint(len(batch))); err != nil {
			for _, key := range batch {
				failures[key] = err
			}
			return failures, err
		}

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, key := range batch {
			objects[j] = types.ObjectIdentifier{
				Key: aws.String(s.objectKey(key)),
			}
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			for _, key := range batch {
				failures[key] = fmt.Errorf("%w: %v", store.ErrUnavailable, err)
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}
			key := s.namespacePath(*deleteErr.Key)
			errMsg := "unknown error"
			if deleteErr.Code != nil && deleteErr.Message != nil {
				errMsg = fmt.Sprintf("%s: %s", *deleteErr.Code, *deleteErr.Message)
			}
			failures[key] = fmt.Errorf("%s", errMsg)
		}
	}

	return failures, nil
}
