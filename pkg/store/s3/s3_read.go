// Package s3 implements the ObjectStore over S3-compatible storage.
//
// This file contains the read side: prefix listing, object metadata and
// presigned download URLs.
package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/dittodrive/pkg/store"
)

// List performs a delimiter listing under prefix.
//
// S3's ListObjectsV2 with Delimiter="/" returns exactly the shape the
// namespace needs: CommonPrefixes become candidate folders, Contents become
// candidate files. Pagination is followed to exhaustion so one List call
// always reflects the complete immediate children of the prefix.
func (s *S3Store) List(ctx context.Context, prefix string) (*store.Listing, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullPrefix := s.objectKey(prefix)
	if fullPrefix != "" && fullPrefix[len(fullPrefix)-1] != '/' {
		fullPrefix += "/"
	}

	listing := &store.Listing{}
	var continuation *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(fullPrefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("list %q: %w: %v", prefix, store.ErrUnavailable, err)
		}

		for _, cp := range out.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			listing.Prefixes = append(listing.Prefixes, s.namespacePath(*cp.Prefix))
		}
		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			key := s.namespacePath(*obj.Key)
			// S3 reports the listed prefix itself when a zero-byte
			// object exists at it; skip that self entry.
			if key == prefix || key == fullPrefix {
				continue
			}
			listing.Keys = append(listing.Keys, key)
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}

	return listing, nil
}

// Head returns size and modification time for one object.
func (s *S3Store) Head(ctx context.Context, key string) (*store.ObjectInfo, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("head %q: %w", key, store.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("head %q: %w: %v", key, store.ErrUnavailable, err)
	}

	info := &store.ObjectInfo{}
	if out.ContentLength != nil {
		info.Size = uint64(*out.ContentLength)
	}
	if out.LastModified != nil {
		info.UpdatedAt = *out.LastModified
	}
	return info, nil
}

// DownloadURL returns a presigned GET URL for the object.
//
// The object's existence is verified first so that absent keys surface as
// ErrObjectNotFound instead of a URL that 404s later.
func (s *S3Store) DownloadURL(ctx context.Context, key string) (string, error) {
	if _, err := s.Head(ctx, key); err != nil {
		return "", err
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("presign %q: %w: %v", key, store.ErrUnavailable, err)
	}

	return req.URL, nil
}

// isNotFound matches the two shapes S3 uses for absent objects: NoSuchKey
// from GetObject and the generic NotFound from HeadObject.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
