package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoshaa/kia/internal/client"
	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/monitoring"
	"github.com/Makoshaa/kia/internal/storage"
	"github.com/Makoshaa/kia/internal/transformer"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fetch func(ctx context.Context, call int) ([]models.RawRecord, error)
}

func (f *fakeSource) FetchRecords(ctx context.Context) ([]models.RawRecord, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fetch(ctx, call)
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func records(names ...string) []models.RawRecord {
	out := make([]models.RawRecord, 0, len(names))
	for _, name := range names {
		out = append(out, models.RawRecord{"имя": models.String(name), "качество": models.String("высокий")})
	}
	return out
}

func newTestRefresher(t *testing.T, source client.RecordSource, interval time.Duration) (*Refresher, *storage.SnapshotStore) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := storage.NewSnapshotStore()
	factory := func(models.Dashboard) (client.RecordSource, error) { return source, nil }
	r := New(store, transformer.New(transformer.WithLocation(time.UTC)), factory, monitoring.New(), logger, interval)
	t.Cleanup(r.Stop)
	return r, store
}

func TestRefreshNowAppliesLeads(t *testing.T) {
	source := &fakeSource{fetch: func(context.Context, int) ([]models.RawRecord, error) {
		return records("Иван", "Анна"), nil
	}}
	r, store := newTestRefresher(t, source, time.Minute)
	require.NoError(t, r.Track(models.Dashboard{ID: "d1"}))

	resp, err := r.RefreshNow(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 2, resp.Leads)
	assert.Equal(t, 2, resp.Quality.TotalRecords)

	snapshot, ok := store.Get("d1")
	require.True(t, ok)
	assert.Equal(t, resp.Generation, snapshot.Generation)
	require.Len(t, snapshot.Leads, 2)
	assert.Equal(t, "Иван", snapshot.Leads[0].Name)
	assert.Equal(t, models.QualityHigh, snapshot.Leads[0].Quality)
	require.NotNil(t, snapshot.Report)
}

func TestRefreshNowUnknownDashboard(t *testing.T) {
	r, _ := newTestRefresher(t, &fakeSource{}, time.Minute)

	_, err := r.RefreshNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestRefreshFailureKeepsPreviousLeads(t *testing.T) {
	source := &fakeSource{fetch: func(_ context.Context, call int) ([]models.RawRecord, error) {
		if call == 1 {
			return records("Иван"), nil
		}
		return nil, errors.New("server error: 502")
	}}
	r, store := newTestRefresher(t, source, time.Minute)
	require.NoError(t, r.Track(models.Dashboard{ID: "d1"}))

	_, err := r.RefreshNow(context.Background(), "d1")
	require.NoError(t, err)

	_, err = r.RefreshNow(context.Background(), "d1")
	require.Error(t, err)

	snapshot, ok := store.Get("d1")
	require.True(t, ok)
	assert.Len(t, snapshot.Leads, 1)
	assert.Equal(t, "server error: 502", snapshot.LastError)
}

func TestNewerRefreshCancelsAndSupersedesOlder(t *testing.T) {
	started := make(chan struct{})
	source := &fakeSource{fetch: func(ctx context.Context, call int) ([]models.RawRecord, error) {
		if call == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return records("Свежий"), nil
	}}
	r, store := newTestRefresher(t, source, time.Minute)
	require.NoError(t, r.Track(models.Dashboard{ID: "d1"}))

	slowErr := make(chan error, 1)
	go func() {
		_, err := r.RefreshNow(context.Background(), "d1")
		slowErr <- err
	}()
	<-started

	resp, err := r.RefreshNow(context.Background(), "d1")
	require.NoError(t, err)

	select {
	case err := <-slowErr:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(5 * time.Second):
		t.Fatal("older refresh was not cancelled")
	}

	snapshot, ok := store.Get("d1")
	require.True(t, ok)
	assert.Equal(t, resp.Generation, snapshot.Generation)
	assert.Equal(t, "Свежий", snapshot.Leads[0].Name)
	assert.Empty(t, snapshot.LastError)
}

func TestUntrackDropsSnapshot(t *testing.T) {
	source := &fakeSource{fetch: func(context.Context, int) ([]models.RawRecord, error) {
		return records("Иван"), nil
	}}
	r, store := newTestRefresher(t, source, time.Minute)
	require.NoError(t, r.Track(models.Dashboard{ID: "d1"}))
	_, err := r.RefreshNow(context.Background(), "d1")
	require.NoError(t, err)

	r.Untrack("d1")

	assert.False(t, r.IsTracked("d1"))
	_, ok := store.Get("d1")
	assert.False(t, ok)
	_, err = r.RefreshNow(context.Background(), "d1")
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestTrackRejectsBadSource(t *testing.T) {
	logger, _ := test.NewNullLogger()
	factory := func(models.Dashboard) (client.RecordSource, error) { return nil, errors.New("no url") }
	r := New(storage.NewSnapshotStore(), transformer.New(), factory, monitoring.New(), logger, time.Minute)
	defer r.Stop()

	assert.Error(t, r.Track(models.Dashboard{ID: "d1"}))
	assert.False(t, r.IsTracked("d1"))
}

func TestScheduledRefresh(t *testing.T) {
	source := &fakeSource{fetch: func(context.Context, int) ([]models.RawRecord, error) {
		return records("Иван"), nil
	}}
	r, store := newTestRefresher(t, source, time.Second)
	require.NoError(t, r.Track(models.Dashboard{ID: "auto", AutoRefresh: true}))
	require.NoError(t, r.Track(models.Dashboard{ID: "manual"}))
	r.Start()

	require.Eventually(t, func() bool {
		_, ok := store.Get("auto")
		return ok
	}, 5*time.Second, 50*time.Millisecond)

	_, ok := store.Get("manual")
	assert.False(t, ok)
}

func TestRefreshAll(t *testing.T) {
	source := &fakeSource{fetch: func(context.Context, int) ([]models.RawRecord, error) {
		return records("Иван"), nil
	}}
	r, store := newTestRefresher(t, source, time.Minute)
	require.NoError(t, r.Track(models.Dashboard{ID: "a"}))
	require.NoError(t, r.Track(models.Dashboard{ID: "b"}))

	r.RefreshAll(context.Background())

	assert.Equal(t, 2, source.Calls())
	_, okA := store.Get("a")
	_, okB := store.Get("b")
	assert.True(t, okA)
	assert.True(t, okB)
}
