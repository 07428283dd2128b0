package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/apperr"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/fanout"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memLeaseStore struct {
	mu    sync.Mutex
	alive map[string]bool
}

func newMemLeaseStore() *memLeaseStore {
	return &memLeaseStore{alive: make(map[string]bool)}
}

func (s *memLeaseStore) Refresh(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive[userID] = true
	return nil
}

func (s *memLeaseStore) Alive(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive[userID], nil
}

func (s *memLeaseStore) Release(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alive, userID)
	return nil
}

// expire simulates a TTL running out without a clean release.
func (s *memLeaseStore) expire(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive[userID] = false
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo(ids ...string) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*model.User)}
	for _, id := range ids {
		r.users[id] = &model.User{ID: id, Name: id}
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFoundf("user %s", id)
	}
	found := *u
	return &found, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return nil, apperr.NotFoundf("user with email %s", email)
}

func (r *memUserRepo) ListOthers(_ context.Context, excludeUserID string) ([]model.User, error) {
	return nil, nil
}

func (r *memUserRepo) ListOnlineIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, u := range r.users {
		if u.IsOnline {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (r *memUserRepo) SetPasswordHash(_ context.Context, id string, hash string) error {
	return nil
}

func (r *memUserRepo) SetPresence(_ context.Context, id string, online bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperr.NotFoundf("user %s", id)
	}
	u.IsOnline = online
	u.LastSeen = at
	return nil
}

func newTestTracker(users *memUserRepo, leases *memLeaseStore) (*Tracker, *fanout.Broker) {
	broker := fanout.NewBroker(zap.NewNop())
	return NewTracker(users, leases, broker, time.Minute, zap.NewNop()), broker
}

func TestConnect_FirstConnectionGoesOnline(t *testing.T) {
	users := newMemUserRepo("alice")
	leases := newMemLeaseStore()
	tracker, broker := newTestTracker(users, leases)

	sub := broker.Subscribe(fanout.PresenceTopic("alice"))
	tracker.Connect(context.Background(), "alice")

	u, err := users.GetByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, u.IsOnline)

	alive, _ := leases.Alive(context.Background(), "alice")
	assert.True(t, alive)

	ev := <-sub.Events()
	update, ok := ev.Payload.(Update)
	require.True(t, ok)
	assert.True(t, update.IsOnline)
	assert.Equal(t, "alice", update.UserID)
}

func TestDisconnect_OnlyLastConnectionGoesOffline(t *testing.T) {
	users := newMemUserRepo("alice")
	leases := newMemLeaseStore()
	tracker, _ := newTestTracker(users, leases)
	ctx := context.Background()

	tracker.Connect(ctx, "alice")
	tracker.Connect(ctx, "alice")

	tracker.Disconnect("alice")
	u, err := users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.IsOnline, "one connection still open")

	tracker.Disconnect("alice")
	u, err = users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, u.IsOnline)

	alive, _ := leases.Alive(ctx, "alice")
	assert.False(t, alive)
}

func TestDisconnect_WithoutConnectIsHarmless(t *testing.T) {
	users := newMemUserRepo("alice")
	leases := newMemLeaseStore()
	tracker, _ := newTestTracker(users, leases)

	tracker.Disconnect("alice")

	u, err := users.GetByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, u.IsOnline)
}

func TestSweep_ExpiredLeaseForcesOffline(t *testing.T) {
	users := newMemUserRepo("alice", "bob")
	leases := newMemLeaseStore()
	tracker, broker := newTestTracker(users, leases)
	ctx := context.Background()

	tracker.Connect(ctx, "alice")
	tracker.Connect(ctx, "bob")

	// alice's process dies without a disconnect
	leases.expire("alice")

	sub := broker.Subscribe(fanout.PresenceTopic("alice"))
	tracker.Sweep(ctx)

	u, err := users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, u.IsOnline)

	ev := <-sub.Events()
	update, ok := ev.Payload.(Update)
	require.True(t, ok)
	assert.False(t, update.IsOnline)

	// bob's lease is alive, he stays online
	u, err = users.GetByID(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, u.IsOnline)
}

func TestSnapshot_ReflectsStoredState(t *testing.T) {
	users := newMemUserRepo("alice")
	leases := newMemLeaseStore()
	tracker, _ := newTestTracker(users, leases)
	ctx := context.Background()

	snap, err := tracker.Snapshot(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, snap.IsOnline)

	tracker.Connect(ctx, "alice")

	snap, err = tracker.Snapshot(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, snap.IsOnline)

	_, err = tracker.Snapshot(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
