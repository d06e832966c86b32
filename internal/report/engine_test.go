package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"siteinsight/internal/db"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func variantCounts(args mock.Arguments) ([]db.VariantCount, error) {
	rows, _ := args.Get(0).([]db.VariantCount)
	return rows, args.Error(1)
}

func keyedCounts(args mock.Arguments) ([]db.KeyedCount, error) {
	rows, _ := args.Get(0).([]db.KeyedCount)
	return rows, args.Error(1)
}

func (m *MockStore) EventCountsByVariant(ctx context.Context, eventName string) ([]db.VariantCount, error) {
	return variantCounts(m.Called(ctx, eventName))
}

func (m *MockStore) EventUniqueSessions(ctx context.Context, eventName string) ([]db.VariantCount, error) {
	return variantCounts(m.Called(ctx, eventName))
}

func (m *MockStore) EventCountsLike(ctx context.Context, pattern string) ([]db.KeyedCount, error) {
	return keyedCounts(m.Called(ctx, pattern))
}

func (m *MockStore) EventCountsOnPage(ctx context.Context, eventName, page string) ([]db.VariantCount, error) {
	return variantCounts(m.Called(ctx, eventName, page))
}

func (m *MockStore) PageViewCountsByVariant(ctx context.Context, page string) ([]db.VariantCount, error) {
	return variantCounts(m.Called(ctx, page))
}

func (m *MockStore) EventCountsByVariantAndName(ctx context.Context) ([]db.KeyedCount, error) {
	return keyedCounts(m.Called(ctx))
}

func (m *MockStore) PageViewCountsByVariantAndPage(ctx context.Context) ([]db.KeyedCount, error) {
	return keyedCounts(m.Called(ctx))
}

func (m *MockStore) RecentEvents(ctx context.Context, limit int) ([]db.Event, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]db.Event)
	return events, args.Error(1)
}

func newTestEngine() (*Engine, *MockStore) {
	store := new(MockStore)
	return NewEngine(store, zap.NewNop()), store
}

func TestEngine_EventsByVariant(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("EventCountsByVariant", ctx, "click").Return([]db.VariantCount{
		{VariantName: "B", Count: 1},
		{VariantName: "A", Count: 2},
	}, nil)

	r, err := engine.EventsByVariant(ctx, "click")

	require.NoError(t, err)
	assert.False(t, r.NoData())
	assert.Equal(t, []db.VariantCount{{VariantName: "A", Count: 2}, {VariantName: "B", Count: 1}}, r.Rows)
	store.AssertExpectations(t)
}

func TestEngine_EventsByVariant_NoData(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("EventCountsByVariant", ctx, "missing").Return(nil, nil)

	r, err := engine.EventsByVariant(ctx, "missing")

	require.NoError(t, err)
	assert.True(t, r.NoData())
}

func TestEngine_RejectsMissingParameters(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	_, err := engine.EventsByVariant(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.EventsDetailed(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.EventsLike(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.PageviewsByVariant(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.Conversion(ctx, "click", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.Conversion(ctx, "", "/")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.Recent(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	store.AssertNotCalled(t, "EventCountsByVariant", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "RecentEvents", mock.Anything, mock.Anything)
}

func TestEngine_EventsDetailed(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("EventCountsByVariant", ctx, "click").Return([]db.VariantCount{{VariantName: "A", Count: 3}}, nil)
	store.On("EventUniqueSessions", ctx, "click").Return([]db.VariantCount{{VariantName: "A", Count: 2}}, nil)

	r, err := engine.EventsDetailed(ctx, "click")

	require.NoError(t, err)
	assert.Equal(t, []DetailedRow{{VariantName: "A", Total: 3, UniqueSessions: 2, AvgPerSession: 1.5}}, r.Rows)
}

func TestEngine_EventsDetailed_ZeroUniqueSessions(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("EventCountsByVariant", ctx, "click").Return([]db.VariantCount{{VariantName: "A", Count: 4}}, nil)
	store.On("EventUniqueSessions", ctx, "click").Return([]db.VariantCount{{VariantName: "A", Count: 0}}, nil)

	r, err := engine.EventsDetailed(ctx, "click")

	require.NoError(t, err)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, 0.0, r.Rows[0].AvgPerSession)
}

func TestEngine_Conversion_KeepsVariantsMissingOnOneSide(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("PageViewCountsByVariant", ctx, "/").Return([]db.VariantCount{
		{VariantName: "A", Count: 10},
		{VariantName: "B", Count: 5},
	}, nil)
	store.On("EventCountsOnPage", ctx, "click", "/").Return([]db.VariantCount{
		{VariantName: "A", Count: 2},
		{VariantName: "C", Count: 1},
	}, nil)

	r, err := engine.Conversion(ctx, "click", "/")

	require.NoError(t, err)
	assert.Equal(t, []ConversionRow{
		{VariantName: "A", Pageviews: 10, Events: 2, Rate: 0.2},
		{VariantName: "B", Pageviews: 5, Events: 0, Rate: 0},
		{VariantName: "C", Pageviews: 0, Events: 1, Rate: 0},
	}, r.Rows)
	store.AssertExpectations(t)
}

func TestEngine_Conversion_NoData(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("PageViewCountsByVariant", ctx, "/").Return(nil, nil)
	store.On("EventCountsOnPage", ctx, "click", "/").Return(nil, nil)

	r, err := engine.Conversion(ctx, "click", "/")

	require.NoError(t, err)
	assert.True(t, r.NoData())
}

func TestEngine_EventsLike_SortsByVariantThenName(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("EventCountsLike", ctx, "click_%").Return([]db.KeyedCount{
		{VariantName: "B", Name: "click_buy_hero", Count: 1},
		{VariantName: "A", Name: "click_buy_hero", Count: 2},
		{VariantName: "A", Name: "click-legacy", Count: 1},
	}, nil)

	r, err := engine.EventsLike(ctx, "click_%")

	require.NoError(t, err)
	assert.Equal(t, []db.KeyedCount{
		{VariantName: "A", Name: "click-legacy", Count: 1},
		{VariantName: "A", Name: "click_buy_hero", Count: 2},
		{VariantName: "B", Name: "click_buy_hero", Count: 1},
	}, r.Rows)
}

func TestEngine_Summary_Empty(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("EventCountsByVariantAndName", ctx).Return(nil, nil)
	store.On("PageViewCountsByVariantAndPage", ctx).Return(nil, nil)

	r, err := engine.Summary(ctx)

	require.NoError(t, err)
	assert.True(t, r.NoData())
}

func TestEngine_Recent(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("RecentEvents", ctx, 2).Return([]db.Event{{EventName: "a"}, {EventName: "b"}}, nil)

	r, err := engine.Recent(ctx, 2)

	require.NoError(t, err)
	assert.Len(t, r.Events, 2)
}

func TestEngine_StoreErrorsAreWrapped(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	boom := errors.New("connection refused")
	store.On("PageViewCountsByVariant", ctx, "/").Return(nil, boom)

	r, err := engine.Conversion(ctx, "click", "/")

	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)
	store.AssertNotCalled(t, "EventCountsOnPage", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_Run(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("PageViewCountsByVariant", ctx, "/").Return([]db.VariantCount{{VariantName: "A", Count: 1}}, nil)

	r, err := engine.Run(ctx, Request{Kind: KindPageviews, Page: "/"})
	require.NoError(t, err)
	assert.IsType(t, &PageviewsReport{}, r)

	_, err = engine.Run(ctx, Request{Kind: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEngine_Run_FailureReturnsNilReport(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	store.On("EventCountsByVariantAndName", ctx).Return(nil, errors.New("down"))

	r, err := engine.Run(ctx, Request{Kind: KindSummary})

	assert.Error(t, err)
	assert.Nil(t, r)
}
