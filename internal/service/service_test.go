package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/car-location-go/internal/algorithm"
	"github.com/jengzang/car-location-go/internal/cache"
	"github.com/jengzang/car-location-go/internal/models"
	"github.com/jengzang/car-location-go/internal/session"
	"github.com/jengzang/car-location-go/internal/source"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memStore is an in-memory LocationStore; failOn lists 1-based Append calls that fail
type memStore struct {
	mu      sync.Mutex
	records []models.LocationRecord
	failOn  map[int]bool
	calls   int
}

func newMemStore(failOn ...int) *memStore {
	s := &memStore{failOn: map[int]bool{}}
	for _, n := range failOn {
		s.failOn[n] = true
	}
	return s
}

func (s *memStore) Append(_ context.Context, rec *models.LocationRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn[s.calls] {
		return 0, errors.New("disk full")
	}
	rec.ID = int64(len(s.records) + 1)
	s.records = append(s.records, *rec)
	return rec.ID, nil
}

func (s *memStore) matching(filter models.HistoryFilter) []models.LocationRecord {
	var out []models.LocationRecord
	for _, rec := range s.records {
		if filter.CarModel != "" && rec.CarModel != filter.CarModel {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

func (s *memStore) History(_ context.Context, filter models.HistoryFilter) ([]models.LocationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.matching(filter)
	if filter.PageSize > 0 {
		start := filter.Offset()
		if start > len(out) {
			start = len(out)
		}
		end := start + filter.PageSize
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return append([]models.LocationRecord{}, out...), nil
}

func (s *memStore) Count(_ context.Context, filter models.HistoryFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matching(filter))), nil
}

func (s *memStore) Latest(ctx context.Context) (*models.LocationRecord, error) {
	records, _ := s.History(ctx, models.HistoryFilter{Page: 1, PageSize: 1})
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (s *memStore) all() []models.LocationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LocationRecord{}, s.records...)
}

// fakeSource records the handler so tests can deliver fixes synchronously,
// the same serial delivery the real dispatcher provides
type fakeSource struct {
	mu      sync.Mutex
	handler source.FixHandler
	last    source.FixHandler
	liveErr error
	starts  int
	stops   int
}

func (s *fakeSource) start(handler source.FixHandler) {
	s.handler, s.last = handler, handler
	s.starts++
}

func (s *fakeSource) StartLive(handler source.FixHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveErr != nil {
		return s.liveErr
	}
	s.start(handler)
	return nil
}

func (s *fakeSource) StartSimulated(_ time.Duration, handler source.FixHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start(handler)
	return nil
}

func (s *fakeSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = nil
	s.stops++
}

func (s *fakeSource) emit(t *testing.T, fix models.RawLocationPoint) error {
	t.Helper()
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	require.NotNil(t, h, "no active subscription")
	return h(context.Background(), fix)
}

type panicFilter struct{}

func (panicFilter) ID() string { return "exploding" }

func (panicFilter) Process([]models.RawLocationPoint) []models.ProcessedLocationPoint {
	panic("index out of range")
}

func selectAlgorithm(model models.VehicleModel) Filter {
	return algorithm.ForModel(model, algorithm.DefaultOptions())
}

func fix(ts int64) models.RawLocationPoint {
	return models.RawLocationPoint{Timestamp: ts, Latitude: 18.52 + float64(ts)*1e-8, Longitude: 73.85}
}

type harness struct {
	coord  *Coordinator
	source *fakeSource
	store  *memStore
	writer *Writer
}

func newHarness(t *testing.T, cfg CoordinatorConfig, filters FilterFactory, store *memStore) *harness {
	t.Helper()
	if store == nil {
		store = newMemStore()
	}
	src := &fakeSource{}
	writer := NewWriter(store, nil, 0, testLogger())
	t.Cleanup(writer.Close)
	coord := NewCoordinator(cfg, src, filters, writer, session.NewBuffer(0), testLogger())
	return &harness{coord: coord, source: src, store: store, writer: writer}
}

func timestamps[T any](items []T, ts func(T) int64) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = ts(item)
	}
	return out
}

func TestWriterContinuesAfterFailure(t *testing.T) {
	store := newMemStore(5)
	writer := NewWriter(store, nil, 16, testLogger())

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, writer.Submit(models.LocationRecord{Timestamp: i, CarModel: "Model A"}))
	}
	writer.Close()

	records := store.all()
	assert.Equal(t, []int64{1, 2, 3, 4, 6, 7, 8, 9, 10},
		timestamps(records, func(r models.LocationRecord) int64 { return r.Timestamp }))
	assert.Equal(t, int64(1), writer.Failures())
	assert.Equal(t, int64(9), writer.Written())
}

func TestWriterRejectsAfterClose(t *testing.T) {
	writer := NewWriter(newMemStore(), nil, 1, testLogger())
	writer.Close()
	writer.Close()
	assert.ErrorIs(t, writer.Submit(models.LocationRecord{}), ErrWriterClosed)
}

// blockingStore holds every Append until release is closed
type blockingStore struct {
	*memStore
	release chan struct{}
}

func newBlockingStore() *blockingStore {
	return &blockingStore{memStore: newMemStore(), release: make(chan struct{})}
}

func (s *blockingStore) Append(ctx context.Context, rec *models.LocationRecord) (int64, error) {
	<-s.release
	return s.memStore.Append(ctx, rec)
}

func TestWriterDropsWhenQueueFull(t *testing.T) {
	store := newBlockingStore()
	writer := NewWriter(store, nil, 1, testLogger())

	var busy int
	for i := int64(1); i <= 5; i++ {
		err := writer.Submit(models.LocationRecord{Timestamp: i})
		if errors.Is(err, ErrWriterBusy) {
			busy++
		} else {
			require.NoError(t, err)
		}
	}
	// one record in flight, one queued
	assert.GreaterOrEqual(t, busy, 3)
	assert.Equal(t, int64(busy), writer.Dropped())
	assert.Equal(t, int64(busy), writer.Failures())

	close(store.release)
	writer.Close()
	assert.Equal(t, 5-busy, len(store.all()))
	assert.Equal(t, int64(5-busy), writer.Written())
}

type recordingCache struct {
	mu     sync.Mutex
	latest []models.LocationRecord
}

func (c *recordingCache) SetLatest(_ context.Context, rec models.LocationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = append(c.latest, rec)
	return nil
}

func (c *recordingCache) GetLatest(_ context.Context, carModel string) (*models.LocationRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.latest) - 1; i >= 0; i-- {
		if carModel == "" || c.latest[i].CarModel == carModel {
			rec := c.latest[i]
			return &rec, nil
		}
	}
	return nil, cache.ErrMiss
}

func TestWriterCachesOnlyPersistedRecords(t *testing.T) {
	c := &recordingCache{}
	writer := NewWriter(newMemStore(2), c, 0, testLogger())
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, writer.Submit(models.LocationRecord{Timestamp: i}))
	}
	writer.Close()

	require.Len(t, c.latest, 2)
	assert.Equal(t, int64(1), c.latest[0].Timestamp)
	assert.Equal(t, int64(3), c.latest[1].Timestamp)
	assert.NotZero(t, c.latest[1].ID)
}

func TestCoordinatorLifecycle(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelA}, selectAlgorithm, nil)

	info := h.coord.Session()
	assert.Equal(t, models.SessionIdle, info.State)
	assert.Equal(t, "Model A", info.CarModel)

	info, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	assert.Equal(t, models.SessionRunning, info.State)
	assert.Equal(t, algorithm.MovingAverageID, info.AlgorithmID)
	assert.Equal(t, models.SourceSimulated, info.Mode)
	assert.NotEmpty(t, info.ID)
	require.NotNil(t, info.StartedAt)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, h.source.emit(t, fix(i*1000)))
	}

	info = h.coord.Stop()
	assert.Equal(t, models.SessionIdle, info.State)
	assert.NotNil(t, info.StoppedAt)
	assert.Equal(t, int64(3), info.FixesReceived)
	assert.Equal(t, int64(3), info.PointsProduced)
	assert.Empty(t, info.LastError)

	h.writer.Close()
	records := h.store.all()
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, "Model A", rec.CarModel)
		require.NotNil(t, rec.AlgorithmID)
		assert.Equal(t, algorithm.MovingAverageID, *rec.AlgorithmID)
	}
}

func TestCoordinatorStartWhileRunningIsNoop(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelDev}, selectAlgorithm, nil)

	first, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	require.NoError(t, h.source.emit(t, fix(1)))

	second, err := h.coord.Start(context.Background(), models.SourceLive)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.SourceSimulated, second.Mode)
	assert.Equal(t, 1, h.source.starts)
	assert.Len(t, h.coord.CurrentSession(), 1)
}

func TestCoordinatorPermissionDenied(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelB}, selectAlgorithm, nil)
	h.source.liveErr = source.ErrPermissionDenied

	info, err := h.coord.Start(context.Background(), models.SourceLive)
	assert.ErrorIs(t, err, source.ErrPermissionDenied)
	assert.Equal(t, models.SessionIdle, info.State)
	assert.Equal(t, models.SessionIdle, h.coord.Session().State)

	select {
	case n := <-h.coord.Notifications():
		assert.Equal(t, models.NotifyPermissionDenied, n.Kind)
		assert.Equal(t, info.ID, n.SessionID)
	default:
		t.Fatal("expected a permission notification")
	}
	select {
	case n := <-h.coord.Notifications():
		t.Fatalf("unexpected notification %+v", n)
	default:
	}

	h.writer.Close()
	assert.Empty(t, h.store.all())
	assert.Empty(t, h.coord.CurrentSession())

	// simulated mode remains available
	_, err = h.coord.Start(context.Background(), models.SourceSimulated)
	assert.NoError(t, err)
}

func TestCoordinatorAlgorithmFault(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelC}, func(models.VehicleModel) Filter { return panicFilter{} }, nil)

	started, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)

	err = h.source.emit(t, fix(1))
	assert.ErrorIs(t, err, ErrAlgorithmFault)

	info := h.coord.Session()
	assert.Equal(t, models.SessionIdle, info.State)
	assert.Contains(t, info.LastError, "index out of range")
	assert.Equal(t, started.ID, info.ID)

	n := <-h.coord.Notifications()
	assert.Equal(t, models.NotifyAlgorithmFault, n.Kind)
	assert.Equal(t, started.ID, n.SessionID)

	// a stale delivery after the fault changes nothing
	require.NoError(t, h.source.last(context.Background(), fix(2)))
	assert.Equal(t, int64(1), h.coord.Session().FixesReceived)
	assert.Empty(t, h.coord.CurrentSession())

	assert.Equal(t, models.SessionIdle, h.coord.Stop().State)
	select {
	case n := <-h.coord.Notifications():
		t.Fatalf("unexpected notification %+v", n)
	default:
	}
}

func TestCoordinatorPreservesOrder(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelDev}, selectAlgorithm, nil)
	_, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)

	var want []int64
	for i := int64(1); i <= 20; i++ {
		ts := i * 1000
		if i == 10 {
			ts = 500 // out-of-order fix is kept where it arrived
		}
		want = append(want, ts)
		require.NoError(t, h.source.emit(t, fix(ts)))
	}
	h.coord.Stop()
	h.writer.Close()

	buffered := h.coord.CurrentSession()
	assert.Equal(t, want, timestamps(buffered, func(p models.ProcessedLocationPoint) int64 { return p.Timestamp }))

	records := h.store.all()
	assert.Equal(t, want, timestamps(records, func(r models.LocationRecord) int64 { return r.Timestamp }))
	for i, rec := range records {
		assert.Equal(t, "Dev Rig", rec.CarModel)
		require.NotNil(t, rec.AlgorithmID)
		assert.Equal(t, algorithm.PassthroughID, *rec.AlgorithmID)
		assert.Equal(t, buffered[i].Latitude, rec.Latitude)
	}
}

func TestCoordinatorBatchesAndFlushesOnStop(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelDev, BatchSize: 3}, selectAlgorithm, nil)
	_, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)

	for i := int64(1); i <= 2; i++ {
		require.NoError(t, h.source.emit(t, fix(i)))
	}
	assert.Empty(t, h.coord.CurrentSession())

	require.NoError(t, h.source.emit(t, fix(3)))
	assert.Len(t, h.coord.CurrentSession(), 3)

	require.NoError(t, h.source.emit(t, fix(4)))
	assert.Len(t, h.coord.CurrentSession(), 3)

	info := h.coord.Stop()
	assert.Len(t, h.coord.CurrentSession(), 4)
	assert.Equal(t, int64(4), info.FixesReceived)
	assert.Equal(t, int64(4), info.PointsProduced)
}

func TestCoordinatorIgnoresFixesAfterStop(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelDev}, selectAlgorithm, nil)
	_, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	require.NoError(t, h.source.emit(t, fix(1)))

	h.coord.Stop()
	h.coord.Stop()
	// once on Start to clear any stale subscription, once on the first Stop
	assert.Equal(t, 2, h.source.stops)

	require.NoError(t, h.source.last(context.Background(), fix(2)))
	assert.Len(t, h.coord.CurrentSession(), 1)
	assert.Equal(t, int64(1), h.coord.Session().FixesReceived)
}

func TestCoordinatorRestartResetsSession(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelDev}, selectAlgorithm, nil)

	first, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	require.NoError(t, h.source.emit(t, fix(1)))
	require.NoError(t, h.source.emit(t, fix(2)))
	h.coord.Stop()
	assert.Len(t, h.coord.CurrentSession(), 2)
	stale := h.source.last

	second, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, h.coord.CurrentSession())
	assert.Zero(t, second.FixesReceived)

	// the previous session's handler no longer delivers
	require.NoError(t, stale(context.Background(), fix(3)))
	assert.Empty(t, h.coord.CurrentSession())

	require.NoError(t, h.source.emit(t, fix(4)))
	assert.Len(t, h.coord.CurrentSession(), 1)
}

func TestCoordinatorNotBlockedBySlowStore(t *testing.T) {
	store := newBlockingStore()
	writer := NewWriter(store, nil, 1, testLogger())
	src := &fakeSource{}
	coord := NewCoordinator(CoordinatorConfig{Model: models.ModelDev}, src, selectAlgorithm, writer,
		session.NewBuffer(0), testLogger())

	_, err := coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	src.mu.Lock()
	deliver := src.handler
	src.mu.Unlock()

	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		for i := int64(1); i <= 4; i++ {
			_ = deliver(context.Background(), fix(i))
		}
	}()
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("fix delivery waited on persistence")
	}

	sessions := make(chan models.SessionInfo, 1)
	go func() { sessions <- coord.Session() }()
	var info models.SessionInfo
	select {
	case info = <-sessions:
	case <-time.After(2 * time.Second):
		t.Fatal("Session waited on persistence")
	}
	assert.Equal(t, int64(4), info.PointsProduced)
	assert.GreaterOrEqual(t, info.WriteFailures, int64(2))
	assert.Len(t, coord.CurrentSession(), 4)

	close(store.release)
	coord.Stop()
	writer.Close()
	assert.Equal(t, int64(4), int64(len(store.all()))+writer.Dropped())
}

func TestCoordinatorDeniedStartKeepsPreviousPoints(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelDev}, selectAlgorithm, nil)
	_, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	require.NoError(t, h.source.emit(t, fix(1)))
	require.NoError(t, h.source.emit(t, fix(2)))
	h.coord.Stop()

	h.source.liveErr = source.ErrPermissionDenied
	_, err = h.coord.Start(context.Background(), models.SourceLive)
	require.ErrorIs(t, err, source.ErrPermissionDenied)
	assert.Len(t, h.coord.CurrentSession(), 2)

	h.source.liveErr = nil
	_, err = h.coord.Start(context.Background(), models.SourceLive)
	require.NoError(t, err)
	assert.Empty(t, h.coord.CurrentSession())
}

func TestCoordinatorReportsRetentionEvictions(t *testing.T) {
	src := &fakeSource{}
	writer := NewWriter(newMemStore(), nil, 0, testLogger())
	t.Cleanup(writer.Close)
	coord := NewCoordinator(CoordinatorConfig{Model: models.ModelDev}, src, selectAlgorithm, writer,
		session.NewBuffer(2), testLogger())

	_, err := coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, src.emit(t, fix(i)))
	}

	info := coord.Session()
	assert.Equal(t, int64(5), info.PointsProduced)
	assert.Equal(t, 2, info.PointsBuffered)
	assert.Equal(t, int64(3), info.PointsEvicted)
	assert.Equal(t, []int64{4, 5}, timestamps(coord.CurrentSession(), func(p models.ProcessedLocationPoint) int64 { return p.Timestamp }))

	coord.Stop()
	_, err = coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	info = coord.Session()
	assert.Zero(t, info.PointsBuffered)
	assert.Zero(t, info.PointsEvicted)
}

func TestCoordinatorRejectsUnknownMode(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelDev}, selectAlgorithm, nil)
	_, err := h.coord.Start(context.Background(), models.SourceMode("satellite"))
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, models.SessionIdle, h.coord.Session().State)
}

func TestCoordinatorReportsWriteFailures(t *testing.T) {
	h := newHarness(t, CoordinatorConfig{Model: models.ModelDev}, selectAlgorithm, newMemStore(2))
	_, err := h.coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, h.source.emit(t, fix(i)))
	}
	h.coord.Stop()
	h.writer.Close()

	info := h.coord.Session()
	assert.Equal(t, int64(1), info.WriteFailures)
	assert.Equal(t, int64(3), info.PointsProduced)
	assert.Len(t, h.coord.CurrentSession(), 3)
	assert.Len(t, h.store.all(), 2)
}

func TestCoordinatorWithSimulatedSource(t *testing.T) {
	store := newMemStore()
	writer := NewWriter(store, nil, 0, testLogger())
	src := source.New(source.Config{}, testLogger())
	coord := NewCoordinator(CoordinatorConfig{Model: models.ModelDev, Interval: 5 * time.Millisecond},
		src, selectAlgorithm, writer, session.NewBuffer(0), testLogger())

	_, err := coord.Start(context.Background(), models.SourceSimulated)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(coord.CurrentSession()) >= 4 }, 5*time.Second, time.Millisecond)
	coord.Stop()
	writer.Close()

	buffered := coord.CurrentSession()
	records := store.all()
	require.Len(t, records, len(buffered))
	for i, p := range buffered {
		assert.Equal(t, source.DefaultFixtures[i%len(source.DefaultFixtures)].Latitude, p.Latitude)
		assert.Equal(t, p.Timestamp, records[i].Timestamp)
	}
}

func TestHistoryServicePagination(t *testing.T) {
	store := newMemStore()
	for i := int64(1); i <= 5; i++ {
		_, err := store.Append(context.Background(), &models.LocationRecord{Timestamp: i, CarModel: "Model A"})
		require.NoError(t, err)
	}
	svc := NewHistoryService(store, nil, testLogger())

	page, err := svc.GetHistory(context.Background(), models.HistoryFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, []int64{3, 2}, timestamps(page.Data, func(r models.LocationRecord) int64 { return r.Timestamp }))

	page, err = svc.GetHistory(context.Background(), models.HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPageSize, page.PageSize)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Data, 5)
}

func TestHistoryServiceLatest(t *testing.T) {
	store := newMemStore()
	c := &recordingCache{}
	svc := NewHistoryService(store, c, testLogger())

	_, err := svc.Latest(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, rec := range []models.LocationRecord{
		{Timestamp: 1, CarModel: "Model A"},
		{Timestamp: 3, CarModel: "Model B"},
		{Timestamp: 2, CarModel: "Model A"},
	} {
		_, err := store.Append(context.Background(), &rec)
		require.NoError(t, err)
	}

	// cache miss falls back to the store
	latest, err := svc.Latest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.Timestamp)

	latest, err = svc.Latest(context.Background(), "Model A")
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Timestamp)

	require.NoError(t, c.SetLatest(context.Background(), models.LocationRecord{ID: 99, Timestamp: 42, CarModel: "Model A"}))
	latest, err = svc.Latest(context.Background(), "Model A")
	require.NoError(t, err)
	assert.Equal(t, int64(99), latest.ID)
}
