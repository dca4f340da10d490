package store

import (
	"context"
	"io"
	"time"
)

// Recorder receives timing for completed store primitives.
//
// The interface lives here so backends stay free of any metrics dependency;
// the Prometheus implementation is provided elsewhere and a nil Recorder
// disables instrumentation entirely.
type Recorder interface {
	RecordOperation(operation string, duration time.Duration, err error)
}

// Instrument wraps s so every primitive reports its duration and outcome to
// r. A nil Recorder returns s unchanged.
func Instrument(s ObjectStore, r Recorder) ObjectStore {
	if r == nil {
		return s
	}
	return &instrumented{inner: s, recorder: r}
}

type instrumented struct {
	inner    ObjectStore
	recorder Recorder
}

func (s *instrumented) record(op string, start time.Time, err error) {
	s.recorder.RecordOperation(op, time.Since(start), err)
}

func (s *instrumented) List(ctx context.Context, prefix string) (*Listing, error) {
	start := time.Now()
	listing, err := s.inner.List(ctx, prefix)
	s.record("list", start, err)
	return listing, err
}

func (s *instrumented) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	start := time.Now()
	info, err := s.inner.Head(ctx, key)
	s.record("head", start, err)
	return info, err
}

func (s *instrumented) DownloadURL(ctx context.Context, key string) (string, error) {
	start := time.Now()
	url, err := s.inner.DownloadURL(ctx, key)
	s.record("download_url", start, err)
	return url, err
}

func (s *instrumented) Put(ctx context.Context, key string, r io.Reader, size int64, progress ProgressFunc) error {
	start := time.Now()
	err := s.inner.Put(ctx, key, r, size, progress)
	s.record("put", start, err)
	return err
}

func (s *instrumented) Copy(ctx context.Context, srcKey, dstKey string) error {
	start := time.Now()
	err := s.inner.Copy(ctx, srcKey, dstKey)
	s.record("copy", start, err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, key)
	s.record("delete", start, err)
	return err
}

func (s *instrumented) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	start := time.Now()
	failures, err := s.inner.DeleteBatch(ctx, keys)
	s.record("delete_batch", start, err)
	return failures, err
}

var _ ObjectStore = (*instrumented)(nil)
