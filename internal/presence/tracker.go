// Package presence tracks per-user online/offline plus last-seen. The state
// machine has two states only: connect or app-foreground moves a user to
// Online, disconnect, background or logout moves them to Offline. Abrupt
// process death resolves to Offline through heartbeat lease expiry.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/fanout"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/repo"

	"go.uber.org/zap"
)

// Update is the presence payload pushed to subscribers on every transition.
type Update struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

type Tracker struct {
	users  repo.UserRepository
	leases LeaseStore
	broker *fanout.Broker
	logger *zap.Logger

	sweepInterval time.Duration

	mu    sync.Mutex
	conns map[string]int // live connections per user
}

func NewTracker(users repo.UserRepository, leases LeaseStore, broker *fanout.Broker, sweepInterval time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		users:         users,
		leases:        leases,
		broker:        broker,
		logger:        logger,
		sweepInterval: sweepInterval,
		conns:         make(map[string]int),
	}
}

// Connect records a new live connection. The first connection for a user
// transitions them Online.
func (t *Tracker) Connect(ctx context.Context, userID string) {
	t.mu.Lock()
	t.conns[userID]++
	first := t.conns[userID] == 1
	t.mu.Unlock()

	if first {
		t.SetOnline(ctx, userID)
	} else {
		t.Heartbeat(ctx, userID)
	}
}

// Disconnect records a connection teardown. The last connection going away
// transitions the user Offline. Failures are best-effort: teardown must
// never block, and lease expiry covers a lost write.
func (t *Tracker) Disconnect(userID string) {
	t.mu.Lock()
	if t.conns[userID] > 0 {
		t.conns[userID]--
	}
	last := t.conns[userID] == 0
	if last {
		delete(t.conns, userID)
	}
	t.mu.Unlock()

	if !last {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.SetOffline(ctx, userID)
}

// SetOnline flips the user online with a server-assigned last_seen, refreshes
// the liveness lease and notifies presence subscribers.
func (t *Tracker) SetOnline(ctx context.Context, userID string) {
	now := time.Now().UTC()

	if err := t.users.SetPresence(ctx, userID, true, now); err != nil {
		t.logger.Warn("set online failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := t.leases.Refresh(ctx, userID); err != nil {
		t.logger.Warn("lease refresh failed", zap.String("user_id", userID), zap.Error(err))
	}

	t.broker.Publish(fanout.PresenceTopic(userID), fanout.Modified, Update{
		UserID:   userID,
		IsOnline: true,
		LastSeen: now,
	})
}

// SetOffline flips the user offline and releases the lease.
func (t *Tracker) SetOffline(ctx context.Context, userID string) {
	now := time.Now().UTC()

	if err := t.users.SetPresence(ctx, userID, false, now); err != nil {
		t.logger.Warn("set offline failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := t.leases.Release(ctx, userID); err != nil {
		t.logger.Warn("lease release failed", zap.String("user_id", userID), zap.Error(err))
	}

	t.broker.Publish(fanout.PresenceTopic(userID), fanout.Modified, Update{
		UserID:   userID,
		IsOnline: false,
		LastSeen: now,
	})
}

// Heartbeat extends the liveness lease. Driven by websocket pongs.
func (t *Tracker) Heartbeat(ctx context.Context, userID string) {
	if err := t.leases.Refresh(ctx, userID); err != nil {
		t.logger.Warn("heartbeat failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Snapshot returns the current presence record for a user.
func (t *Tracker) Snapshot(ctx context.Context, userID string) (*Update, error) {
	user, err := t.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Update{
		UserID:   user.ID,
		IsOnline: user.IsOnline,
		LastSeen: user.LastSeen,
	}, nil
}

// Run sweeps until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep(ctx)
		}
	}
}

// Sweep transitions every user whose lease expired to Offline. This is the
// correctness fallback for processes killed without a clean disconnect.
func (t *Tracker) Sweep(ctx context.Context) {
	online, err := t.users.ListOnlineIDs(ctx)
	if err != nil {
		t.logger.Warn("presence sweep listing failed", zap.Error(err))
		return
	}

	for _, userID := range online {
		alive, err := t.leases.Alive(ctx, userID)
		if err != nil {
			t.logger.Warn("presence sweep lease check failed",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if alive {
			continue
		}

		t.logger.Info("presence lease expired, marking offline",
			zap.String("user_id", userID))
		t.SetOffline(ctx, userID)
	}
}
