package lease

import (
	"context"
	"errors"
	"sync"
	"time"
)

type mockStore struct {
	setFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	mgetFn func(ctx context.Context, keys []string) ([][]byte, error)
	keysFn func(ctx context.Context, prefix string) ([]string, error)
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return errors.New("not implemented")
}

func (m *mockStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if m.mgetFn != nil {
		return m.mgetFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if m.keysFn != nil {
		return m.keysFn(ctx, prefix)
	}
	return nil, nil
}

func (m *mockStore) Ping(_ context.Context) error {
	return nil
}

type recordingObserver struct {
	mu      sync.Mutex
	written map[string]int
	skipped map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{written: map[string]int{}, skipped: map[string]int{}}
}

func (o *recordingObserver) LeaseWritten(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written[result]++
}

func (o *recordingObserver) RecordSkipped(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped[reason]++
}
