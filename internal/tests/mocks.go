package tests

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
// Update honours the status guard like the postgres repository.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	FindError   error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = cloneTrip(trip)
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.trips[trip.ID]; exists {
		return repository.ErrDuplicate
	}
	// Mirrors the partial unique index on open trips per rider.
	for _, t := range m.trips {
		if t.RiderID == trip.RiderID && !t.Status.IsTerminal() {
			return repository.ErrDuplicate
		}
	}
	m.trips[trip.ID] = cloneTrip(trip)
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTrip(trip), nil
}

func (m *MockTripRepository) Update(ctx context.Context, trip *domain.Trip, expected domain.TripStatus) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[trip.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != expected {
		return repository.ErrConflict
	}
	m.trips[trip.ID] = cloneTrip(trip)
	return nil
}

func (m *MockTripRepository) AppendRoutePoint(ctx context.Context, id string, point domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[id]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status.IsTerminal() {
		return repository.ErrConflict
	}
	stored.Route = append(stored.Route, point)
	return nil
}

func (m *MockTripRepository) Find(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Trip
	for _, t := range m.trips {
		if filter.UserID != "" {
			owner := t.RiderID
			if filter.Role == domain.UserTypeDriver {
				owner = t.DriverID
			}
			if owner != filter.UserID {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		result = append(result, cloneTrip(t))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RequestedAt.After(result[j].RequestedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// GetTrip returns the stored trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.trips[id]; ok {
		return cloneTrip(t)
	}
	return nil
}

// CountTrips returns the number of trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

func cloneTrip(t *domain.Trip) *domain.Trip {
	c := *t
	c.Route = slices.Clone(t.Route)
	if t.ActualFare != nil {
		fare := *t.ActualFare
		c.ActualFare = &fare
	}
	if t.Rating != nil {
		rating := *t.Rating
		c.Rating = &rating
	}
	return &c
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	IncrementError error
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *user
	m.users[user.ID] = &copy
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Preferences = prefs
	return nil
}

func (m *MockUserRepository) IncrementTotalRides(ctx context.Context, ids ...string) error {
	if m.IncrementError != nil {
		return m.IncrementError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			user.TotalRides++
		}
	}
	return nil
}

// TotalRides returns a user's ride counter for test assertions.
func (m *MockUserRepository) TotalRides(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if user, ok := m.users[id]; ok {
		return user.TotalRides
	}
	return 0
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount             int32
	UpdateAvailabilityCallCount int32

	// Error injection
	CreateError             error
	UpdateAvailabilityError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = cloneDriver(driver)
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = cloneDriver(driver)
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneDriver(driver), nil
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		result = append(result, cloneDriver(d))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockDriverRepository) ListOnline(ctx context.Context) ([]*domain.Driver, error) {
	all, _ := m.GetAll(ctx)
	online := make([]*domain.Driver, 0, len(all))
	for _, d := range all {
		if d.IsOnline {
			online = append(online, d)
		}
	}
	return online, nil
}

func (m *MockDriverRepository) UpdateAvailability(ctx context.Context, id string, online bool, location *domain.Location) error {
	atomic.AddInt32(&m.UpdateAvailabilityCallCount, 1)
	if m.UpdateAvailabilityError != nil {
		return m.UpdateAvailabilityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.IsOnline = online
	if location != nil {
		loc := *location
		driver.CurrentLocation = &loc
	}
	driver.UpdatedAt = time.Now()
	return nil
}

// GetDriver returns the stored driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.drivers[id]; ok {
		return cloneDriver(d)
	}
	return nil
}

func cloneDriver(d *domain.Driver) *domain.Driver {
	c := *d
	if d.CurrentLocation != nil {
		loc := *d.CurrentLocation
		c.CurrentLocation = &loc
	}
	return &c
}

// ──────────────────────────────────────────────
// MOCK WALLET REPOSITORY
// ──────────────────────────────────────────────

// MockWalletRepository is a mock implementation of WalletRepository.
type MockWalletRepository struct {
	mu   sync.RWMutex
	txns []*domain.WalletTransaction

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockWalletRepository creates a new mock wallet repository.
func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{}
}

// Fund adds a completed top-up for the user.
func (m *MockWalletRepository) Fund(userID string, amount string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txns = append(m.txns, &domain.WalletTransaction{
		ID:             uuid.New().String(),
		UserID:         userID,
		Type:           domain.TransactionTopUp,
		Amount:         decimal.RequireFromString(amount),
		Status:         domain.TransactionCompleted,
		IdempotencyKey: "seed:" + uuid.New().String(),
		CreatedAt:      time.Now(),
	})
}

func (m *MockWalletRepository) Create(ctx context.Context, txn *domain.WalletTransaction) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.IdempotencyKey == txn.IdempotencyKey {
			return repository.ErrDuplicate
		}
	}
	copy := *txn
	m.txns = append(m.txns, &copy)
	return nil
}

func (m *MockWalletRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.txns {
		if t.IdempotencyKey == key {
			copy := *t
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockWalletRepository) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockWalletRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.WalletTransaction
	for i := len(m.txns) - 1; i >= 0; i-- {
		if m.txns[i].UserID == userID {
			copy := *m.txns[i]
			result = append(result, &copy)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockWalletRepository) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, t := range m.txns {
		if t.UserID == userID && t.Status == domain.TransactionCompleted {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

// CountTransactions returns the number of ledger entries.
func (m *MockWalletRepository) CountTransactions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txns)
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor runs units of work against the mock repositories one at a
// time and restores their contents when fn fails.
type MockTransactor struct {
	mu      sync.Mutex
	trips   *MockTripRepository
	users   *MockUserRepository
	drivers *MockDriverRepository
	wallet  *MockWalletRepository

	Commits   int32
	Rollbacks int32
}

// NewMockTransactor creates a transactor over the given mocks. Nil mocks are
// left out of the unit of work.
func NewMockTransactor(trips *MockTripRepository, users *MockUserRepository, drivers *MockDriverRepository, wallet *MockWalletRepository) *MockTransactor {
	return &MockTransactor{trips: trips, users: users, drivers: drivers, wallet: wallet}
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var repos repository.Repositories
	var restore []func()
	if m.trips != nil {
		repos.Trips = m.trips
		restore = append(restore, m.trips.snapshot())
	}
	if m.users != nil {
		repos.Users = m.users
		restore = append(restore, m.users.snapshot())
	}
	if m.drivers != nil {
		repos.Drivers = m.drivers
		restore = append(restore, m.drivers.snapshot())
	}
	if m.wallet != nil {
		repos.Wallet = m.wallet
		restore = append(restore, m.wallet.snapshot())
	}

	if err := fn(repos); err != nil {
		for _, r := range restore {
			r()
		}
		atomic.AddInt32(&m.Rollbacks, 1)
		return err
	}
	atomic.AddInt32(&m.Commits, 1)
	return nil
}

func (m *MockTripRepository) snapshot() func() {
	m.mu.RLock()
	saved := make(map[string]*domain.Trip, len(m.trips))
	for id, t := range m.trips {
		saved[id] = cloneTrip(t)
	}
	m.mu.RUnlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.trips = saved
	}
}

func (m *MockUserRepository) snapshot() func() {
	m.mu.RLock()
	saved := make(map[string]*domain.User, len(m.users))
	for id, u := range m.users {
		copy := *u
		saved[id] = &copy
	}
	m.mu.RUnlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.users = saved
	}
}

func (m *MockDriverRepository) snapshot() func() {
	m.mu.RLock()
	saved := make(map[string]*domain.Driver, len(m.drivers))
	for id, d := range m.drivers {
		saved[id] = cloneDriver(d)
	}
	m.mu.RUnlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.drivers = saved
	}
}

func (m *MockWalletRepository) snapshot() func() {
	m.mu.RLock()
	saved := make([]*domain.WalletTransaction, len(m.txns))
	for i, txn := range m.txns {
		copy := *txn
		saved[i] = &copy
	}
	m.mu.RUnlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.txns = saved
	}
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
// FindNearby returns every indexed driver; it does no geo filtering.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]domain.Location

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError error
	FindNearbyError     error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]domain.Location),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, loc domain.Location) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = loc
	return nil
}

func (m *MockLocationStore) FindNearby(ctx context.Context, center domain.Location, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.FindNearbyError != nil {
		return nil, m.FindNearbyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]redis.DriverLocation, 0, len(m.locations))
	for id, loc := range m.locations {
		result = append(result, redis.DriverLocation{DriverID: id, Location: loc})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DriverID < result[j].DriverID })
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// HasLocation checks if a driver location exists.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string // key -> token

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]string),
	}
}

func (m *MockLockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (*redis.Lock, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return nil, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[key]; held {
		return nil, nil
	}
	token := uuid.New().String()
	m.locks[key] = token
	return &redis.Lock{Key: key, Token: token}, nil
}

func (m *MockLockStore) Release(ctx context.Context, lock *redis.Lock) error {
	if lock == nil {
		return nil
	}
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[lock.Key] != lock.Token {
		return redis.ErrLockNotHeld
	}
	delete(m.locks, lock.Key)
	return nil
}

// Hold takes key on behalf of another process.
func (m *MockLockStore) Hold(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[key] = "held-elsewhere"
}

// IsLocked checks if a key is held (for test assertions).
func (m *MockLockStore) IsLocked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[key]
	return held
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is an in-memory CacheStoreInterface.
type MockCacheStore struct {
	mu      sync.Mutex
	trips   map[string]*domain.Trip
	drivers map[string]*domain.Driver
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		trips:   make(map[string]*domain.Trip),
		drivers: make(map[string]*domain.Driver),
	}
}

func (m *MockCacheStore) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trips[tripID]; ok {
		return cloneTrip(t), nil
	}
	return nil, nil
}

func (m *MockCacheStore) SetTrip(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = cloneTrip(trip)
	return nil
}

func (m *MockCacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, tripID)
	return nil
}

func (m *MockCacheStore) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.drivers[driverID]; ok {
		return cloneDriver(d), nil
	}
	return nil, nil
}

func (m *MockCacheStore) SetDriver(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = cloneDriver(driver)
	return nil
}

func (m *MockCacheStore) InvalidateDriver(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, driverID)
	return nil
}

func (m *MockCacheStore) GetDriversBatch(ctx context.Context, driverIDs []string) (map[string]*domain.Driver, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := make(map[string]*domain.Driver)
	var missing []string
	for _, id := range driverIDs {
		if d, ok := m.drivers[id]; ok {
			found[id] = cloneDriver(d)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

func (m *MockCacheStore) SetDriversBatch(ctx context.Context, drivers []*domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range drivers {
		m.drivers[d.ID] = cloneDriver(d)
	}
	return nil
}

// HasTrip reports whether the trip is cached.
func (m *MockCacheStore) HasTrip(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.trips[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK EVENT BUS
// ──────────────────────────────────────────────

// MockEventBus is an in-memory EventBus.
type MockEventBus struct {
	mu        sync.Mutex
	published []PublishedEvent
	streams   map[string][]*mockStream

	PublishError error
}

// PublishedEvent is one recorded Publish call.
type PublishedEvent struct {
	Event  domain.TripEvent
	Topics []string
}

// NewMockEventBus creates a new mock event bus.
func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		streams: make(map[string][]*mockStream),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, event domain.TripEvent, topics ...string) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, PublishedEvent{Event: event, Topics: topics})
	for _, topic := range topics {
		for _, s := range m.streams[topic] {
			s.deliver(event)
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, topics ...string) (redis.EventStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &mockStream{events: make(chan domain.TripEvent, 32)}
	for _, topic := range topics {
		m.streams[topic] = append(m.streams[topic], s)
	}
	context.AfterFunc(ctx, func() { _ = s.Unsubscribe() })
	return s, nil
}

// Types returns the type of every published event, in order.
func (m *MockEventBus) Types() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]domain.EventType, len(m.published))
	for i, p := range m.published {
		types[i] = p.Event.Type
	}
	return types
}

// Published returns the recorded Publish calls.
func (m *MockEventBus) Published() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.published)
}

type mockStream struct {
	mu     sync.Mutex
	events chan domain.TripEvent
	closed bool
}

func (s *mockStream) deliver(event domain.TripEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
	}
}

func (s *mockStream) Events() <-chan domain.TripEvent {
	return s.events
}

func (s *mockStream) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK PSP (Payment Service Provider)
// ──────────────────────────────────────────────

// MockPSP is a mock payment service provider.
type MockPSP struct {
	mu sync.Mutex

	// Control behavior
	ShouldFail bool
	FailError  error

	// Counters
	ChargeCallCount int32
}

// NewMockPSP creates a new mock PSP.
func NewMockPSP() *MockPSP {
	return &MockPSP{}
}

func (m *MockPSP) Charge(ctx context.Context, userID string, amount decimal.Decimal) (bool, error) {
	atomic.AddInt32(&m.ChargeCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailError != nil {
		return false, m.FailError
	}
	if m.ShouldFail {
		return false, nil
	}
	return true, nil
}

// SetFailure configures the PSP to fail.
func (m *MockPSP) SetFailure(shouldFail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldFail = shouldFail
	m.FailError = err
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)

// Ensure mocks implement interfaces.
var (
	_ repository.TripRepository    = (*MockTripRepository)(nil)
	_ repository.UserRepository    = (*MockUserRepository)(nil)
	_ repository.DriverRepository  = (*MockDriverRepository)(nil)
	_ repository.WalletRepository  = (*MockWalletRepository)(nil)
	_ redis.LocationStoreInterface = (*MockLocationStore)(nil)
	_ redis.LockStoreInterface     = (*MockLockStore)(nil)
	_ redis.EventBusInterface      = (*MockEventBus)(nil)
)
