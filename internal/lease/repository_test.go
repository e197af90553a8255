package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/adapter/memory"
	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/layout"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repository, *memory.KVStore, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	store := memory.NewKVStore(clock)
	return NewRepository(store, clock), store, clock
}

func TestTTLSeconds(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	tests := []struct {
		name   string
		offset time.Duration
		want   int64
	}{
		{"one millisecond rounds up", time.Millisecond, 1},
		{"exact second", time.Second, 1},
		{"just over a second", 1001 * time.Millisecond, 2},
		{"ninety seconds", 90 * time.Second, 90},
		{"now", 0, 0},
		{"past", -5 * time.Second, 0},
		{"seven days", 7 * 24 * time.Hour, 604800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repo.TTLSeconds(epoch.Add(tt.offset)))
		})
	}
}

func TestTTLSeconds_NonIncreasingAsTimePasses(t *testing.T) {
	repo, _, clock := newTestRepo(t)
	expiresAt := epoch.Add(10*time.Second + 300*time.Millisecond)

	prev := repo.TTLSeconds(expiresAt)
	for range 40 {
		clock.Advance(300 * time.Millisecond)
		ttl := repo.TTLSeconds(expiresAt)
		assert.LessOrEqual(t, ttl, prev)
		assert.GreaterOrEqual(t, ttl, int64(0))
		prev = ttl
	}
	assert.Equal(t, int64(0), prev)
}

func TestSaveLease_WritesRecordWithTTL(t *testing.T) {
	repo, store, _ := newTestRepo(t)
	ctx := context.Background()

	lease := domain.Lease{Text: "hello", Link: "https://example.com", ExpiresAt: epoch.Add(90 * time.Second)}
	require.NoError(t, repo.SaveLease(ctx, 4, lease))

	ttl, ok := store.TTL("mosaic:tile:4")
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, ttl)

	values, err := store.MGet(ctx, []string{"mosaic:tile:4"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hello","link":"https://example.com","expiresAt":"2025-03-01T12:01:30Z"}`, string(values[0]))
}

func TestSaveLease_OmitsEmptyLinkAndNormalisesZone(t *testing.T) {
	repo, store, _ := newTestRepo(t)
	ctx := context.Background()

	zone := time.FixedZone("BRT", -3*60*60)
	lease := domain.Lease{Text: "hi", ExpiresAt: epoch.Add(time.Hour).In(zone)}
	require.NoError(t, repo.SaveLease(ctx, 1, lease))

	values, err := store.MGet(ctx, []string{"mosaic:tile:1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi","expiresAt":"2025-03-01T13:00:00Z"}`, string(values[0]))
}

func TestSaveLease_RejectsExpiredWithoutWriting(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	store := &mockStore{
		setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
			t.Fatal("store must not be written for an expired lease")
			return nil
		},
	}
	obs := newRecordingObserver()
	repo := NewRepository(store, clock, WithObserver(obs))

	for _, expiresAt := range []time.Time{epoch, epoch.Add(-time.Hour), {}} {
		err := repo.SaveLease(context.Background(), 2, domain.Lease{Text: "x", ExpiresAt: expiresAt})
		assert.ErrorIs(t, err, domain.ErrLeaseExpired)
	}
	assert.Equal(t, 3, obs.written["expired"])
}

func TestSaveLease_StoreErrorIsWrapped(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &mockStore{
		setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error { return storeErr },
	}
	repo := NewRepository(store, clockwork.NewFakeClockAt(epoch))

	err := repo.SaveLease(context.Background(), 2, domain.Lease{Text: "x", ExpiresAt: epoch.Add(time.Minute)})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Contains(t, err.Error(), "slot 2")
}

func TestSaveLease_OverwriteIsLastWriterWins(t *testing.T) {
	repo, store, _ := newTestRepo(t)
	ctx := context.Background()

	first := domain.Lease{Text: "first", ExpiresAt: epoch.Add(time.Hour)}
	second := domain.Lease{Text: "second", ExpiresAt: epoch.Add(2 * time.Minute)}

	require.NoError(t, repo.SaveLease(ctx, 9, first))
	require.NoError(t, repo.SaveLease(ctx, 9, second))
	require.NoError(t, repo.SaveLease(ctx, 9, second))

	assert.Equal(t, 1, store.Size())
	ttl, ok := store.TTL("mosaic:tile:9")
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, ttl)

	slots := repo.CurrentWorldView(ctx)
	require.NotNil(t, slots[8].Lease)
	assert.Equal(t, "second", slots[8].Text)
}

func TestCurrentWorldView_MergesLeasesOntoLayout(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveLease(ctx, 1, domain.Lease{Text: "big", ExpiresAt: epoch.Add(time.Hour)}))
	require.NoError(t, repo.SaveLease(ctx, 7, domain.Lease{Text: "mid", Link: "worldapp://x", ExpiresAt: epoch.Add(time.Hour)}))

	slots := repo.CurrentWorldView(ctx)
	base := layout.Base()
	require.Len(t, slots, len(base))

	for i, s := range slots {
		structural := s
		structural.Lease = nil
		assert.Equal(t, base[i], structural, "structure of slot %d", s.ID)

		switch s.ID {
		case 1:
			require.NotNil(t, s.Lease)
			assert.Equal(t, "big", s.Text)
			assert.True(t, epoch.Add(time.Hour).Equal(s.ExpiresAt))
		case 7:
			require.NotNil(t, s.Lease)
			assert.Equal(t, "mid", s.Text)
			assert.Equal(t, "worldapp://x", s.Link)
		default:
			assert.False(t, s.Leased(), "slot %d", s.ID)
		}
	}
}

func TestCurrentWorldView_LeaseDisappearsAfterExpiry(t *testing.T) {
	repo, _, clock := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveLease(ctx, 3, domain.Lease{Text: "brief", ExpiresAt: epoch.Add(1500 * time.Millisecond)}))
	assert.True(t, repo.CurrentWorldView(ctx)[2].Leased())

	clock.Advance(2 * time.Second)
	assert.False(t, repo.CurrentWorldView(ctx)[2].Leased())
}

func TestCurrentWorldView_SkipsCorruptAndForeignRecords(t *testing.T) {
	_, store, clock := newTestRepo(t)
	ctx := context.Background()
	obs := newRecordingObserver()
	repo := NewRepository(store, clock, WithObserver(obs))

	require.NoError(t, repo.SaveLease(ctx, 5, domain.Lease{Text: "ok", ExpiresAt: epoch.Add(time.Hour)}))
	require.NoError(t, store.SetWithTTL(ctx, "mosaic:tile:3", []byte("not json"), time.Hour))
	require.NoError(t, store.SetWithTTL(ctx, "mosaic:tile:abc", []byte(`{"text":"x"}`), time.Hour))
	require.NoError(t, store.SetWithTTL(ctx, "mosaic:tile:007", []byte(`{"text":"x"}`), time.Hour))
	require.NoError(t, store.SetWithTTL(ctx, "mosaic:tile:999", []byte(`{"text":"x"}`), time.Hour))

	slots := repo.CurrentWorldView(ctx)

	leased := 0
	for _, s := range slots {
		if s.Leased() {
			leased++
			assert.Equal(t, 5, s.ID)
		}
	}
	assert.Equal(t, 1, leased)
	assert.Equal(t, 1, obs.skipped["corrupt"])
	assert.Equal(t, 2, obs.skipped["bad_key"])
}

func TestCurrentWorldView_DegradesToLayoutOnStoreFailure(t *testing.T) {
	tests := []struct {
		name  string
		store *mockStore
	}{
		{"keys fails", &mockStore{
			keysFn: func(_ context.Context, _ string) ([]string, error) { return nil, errors.New("down") },
		}},
		{"mget fails", &mockStore{
			keysFn: func(_ context.Context, _ string) ([]string, error) { return []string{"mosaic:tile:1"}, nil },
			mgetFn: func(_ context.Context, _ []string) ([][]byte, error) { return nil, errors.New("down") },
		}},
		{"mget short", &mockStore{
			keysFn: func(_ context.Context, _ string) ([]string, error) { return []string{"mosaic:tile:1", "mosaic:tile:2"}, nil },
			mgetFn: func(_ context.Context, _ []string) ([][]byte, error) { return [][]byte{[]byte(`{}`)}, nil },
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRepository(tt.store, clockwork.NewFakeClockAt(epoch))
			assert.Equal(t, layout.Base(), repo.CurrentWorldView(context.Background()))
		})
	}
}

func TestOccupiedIDs(t *testing.T) {
	repo, store, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveLease(ctx, 2, domain.Lease{Text: "a", ExpiresAt: epoch.Add(time.Hour)}))
	require.NoError(t, store.SetWithTTL(ctx, "mosaic:tile:10", []byte("garbage"), time.Hour))
	require.NoError(t, store.SetWithTTL(ctx, "mosaic:tile:x", []byte("{}"), time.Hour))
	require.NoError(t, store.SetWithTTL(ctx, "unrelated:3", []byte("{}"), time.Hour))

	ids, err := repo.OccupiedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{2: {}, 10: {}}, ids)
}

func TestOccupiedIDs_PropagatesStoreError(t *testing.T) {
	store := &mockStore{
		keysFn: func(_ context.Context, _ string) ([]string, error) { return nil, errors.New("down") },
	}
	repo := NewRepository(store, clockwork.NewFakeClockAt(epoch))

	_, err := repo.OccupiedIDs(context.Background())
	assert.Error(t, err)
}

func TestWithKeyPrefix(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	store := memory.NewKVStore(clock)
	repo := NewRepository(store, clock, WithKeyPrefix("test:slot:"))
	ctx := context.Background()

	require.NoError(t, repo.SaveLease(ctx, 6, domain.Lease{Text: "x", ExpiresAt: epoch.Add(time.Minute)}))

	keys, err := store.Keys(ctx, "test:slot:")
	require.NoError(t, err)
	assert.Equal(t, []string{"test:slot:6"}, keys)
	assert.True(t, repo.CurrentWorldView(ctx)[5].Leased())
}

func TestSlotKeyRoundTrip(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	for _, id := range []int{1, 9, 10, 53, 120} {
		got, ok := repo.slotIDFromKey(repo.slotKey(id))
		require.True(t, ok)
		assert.Equal(t, id, got)
	}

	for _, key := range []string{"mosaic:tile:", "mosaic:tile:-1", "mosaic:tile:0", "mosaic:tile:01", "mosaic:tile:1a", "other:1"} {
		_, ok := repo.slotIDFromKey(key)
		assert.False(t, ok, key)
	}
}
