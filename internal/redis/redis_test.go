package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridehail/internal/domain"
)

// setupMiniredis creates a new miniredis server and a client connected to it.
func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestLocationStore_FindNearby(t *testing.T) {
	_, client := setupMiniredis(t)
	store := NewLocationStore(client)
	ctx := context.Background()

	center := domain.Location{Latitude: 40.7580, Longitude: -73.9855}
	require.NoError(t, store.UpdateLocation(ctx, "near", domain.Location{Latitude: 40.7590, Longitude: -73.9845}))
	require.NoError(t, store.UpdateLocation(ctx, "mid", domain.Location{Latitude: 40.7680, Longitude: -73.9820}))
	require.NoError(t, store.UpdateLocation(ctx, "far", domain.Location{Latitude: 40.6413, Longitude: -73.7781}))

	found, err := store.FindNearby(ctx, center, 3)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "near", found[0].DriverID)
	assert.Equal(t, "mid", found[1].DriverID)
	assert.Less(t, found[0].DistanceKm, found[1].DistanceKm)
	assert.InDelta(t, 40.7590, found[0].Location.Latitude, 0.001)

	require.NoError(t, store.RemoveLocation(ctx, "near"))
	found, err = store.FindNearby(ctx, center, 3)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "mid", found[0].DriverID)
}

func TestLockStore(t *testing.T) {
	mr, client := setupMiniredis(t)
	store := NewLockStore(client)
	ctx := context.Background()
	key := TripLockKey("trip-1")

	first, err := store.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := store.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.Nil(t, second, "lock is already held")

	err = store.Release(ctx, &Lock{Key: key, Token: "someone-else"})
	assert.ErrorIs(t, err, ErrLockNotHeld)
	assert.True(t, mr.Exists(key))

	require.NoError(t, store.Release(ctx, first))
	assert.False(t, mr.Exists(key))

	third, err := store.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, third)

	mr.FastForward(6 * time.Second)
	assert.ErrorIs(t, store.Release(ctx, third), ErrLockNotHeld)
	assert.NoError(t, store.Release(ctx, nil))
}

func TestCacheStore_Trip(t *testing.T) {
	mr, client := setupMiniredis(t)
	cache := NewCacheStore(client)
	ctx := context.Background()

	miss, err := cache.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	trip := &domain.Trip{
		ID:       "trip-1",
		RiderID:  "rider-1",
		Status:   domain.TripStatusRequested,
		RideType: domain.RideTypeComfort,
		Fare:     domain.Fare{BaseFare: 2.5, DistanceFare: 15, Total: 17.5, Promo: domain.PromoNone},
		Route:    []domain.Location{{Latitude: 1, Longitude: 2}},
	}
	require.NoError(t, cache.SetTrip(ctx, trip))
	assert.Equal(t, TripCacheTTL, mr.TTL("cache:trip:trip-1"))

	got, err := cache.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, trip.Status, got.Status)
	assert.Equal(t, trip.Fare, got.Fare)
	assert.Equal(t, trip.Route, got.Route)

	require.NoError(t, cache.InvalidateTrip(ctx, "trip-1"))
	got, err = cache.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheStore_DriversBatch(t *testing.T) {
	_, client := setupMiniredis(t)
	cache := NewCacheStore(client)
	ctx := context.Background()

	hits, missing, err := cache.GetDriversBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Empty(t, missing)

	require.NoError(t, cache.SetDriversBatch(ctx, []*domain.Driver{
		{ID: "d1", Name: "Ana", IsOnline: true, Car: domain.Car{Model: "Prius"}},
		{ID: "d2", Name: "Ben", IsOnline: true},
	}))

	hits, missing, err = cache.GetDriversBatch(ctx, []string{"d1", "d3", "d2"})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "Prius", hits["d1"].Car.Model)
	assert.Equal(t, []string{"d3"}, missing)

	require.NoError(t, cache.InvalidateDriver(ctx, "d1"))
	d, err := cache.GetDriver(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	_, client := setupMiniredis(t)
	bus := NewEventBus(client)
	ctx := context.Background()

	tripStream, err := bus.Subscribe(ctx, TripTopic("trip-1"))
	require.NoError(t, err)
	defer tripStream.Unsubscribe()

	userStream, err := bus.Subscribe(ctx, UserTopic("rider-1"))
	require.NoError(t, err)
	defer userStream.Unsubscribe()

	event := domain.TripEvent{
		ID:      "evt-1",
		Type:    domain.EventTripAccepted,
		TripID:  "trip-1",
		RiderID: "rider-1",
		Status:  domain.TripStatusAccepted,
		Title:   "Driver on the way",
	}
	require.NoError(t, bus.Publish(ctx, event, TripTopic("trip-1"), UserTopic("rider-1")))

	for _, stream := range []EventStream{tripStream, userStream} {
		select {
		case got := <-stream.Events():
			assert.Equal(t, event.ID, got.ID)
			assert.Equal(t, domain.EventTripAccepted, got.Type)
			assert.Equal(t, domain.TripStatusAccepted, got.Status)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestEventBus_UnsubscribeClosesStream(t *testing.T) {
	_, client := setupMiniredis(t)
	bus := NewEventBus(client)

	stream, err := bus.Subscribe(context.Background(), TripTopic("trip-1"))
	require.NoError(t, err)

	require.NoError(t, stream.Unsubscribe())
	assert.NoError(t, stream.Unsubscribe())

	select {
	case _, ok := <-stream.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}
}

func TestEventBus_ContextCancelEndsStream(t *testing.T) {
	mr, client := setupMiniredis(t)
	bus := NewEventBus(client)
	topic := TripTopic("trip-1")

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := bus.Subscribe(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, 1, mr.PubSubNumSub(topic)[topic])

	cancel()

	select {
	case _, ok := <-stream.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after the context was cancelled")
	}
	assert.Eventually(t, func() bool {
		return mr.PubSubNumSub(topic)[topic] == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, stream.Unsubscribe())
}
