package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/apperr"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/db"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type userRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

// UserRepository stores account documents and their presence fields.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListOthers(ctx context.Context, excludeUserID string) ([]model.User, error)
	ListOnlineIDs(ctx context.Context) ([]string, error)
	SetPasswordHash(ctx context.Context, id string, hash string) error
	SetPresence(ctx context.Context, id string, online bool, at time.Time) error
}

func NewUserRepository(con *mongo.Database, repo *db.Repository[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	taken, err := r.mongoRepo.Exists(ctx, db.NewFilter().Eq("email", user.Email).Build())
	if err != nil {
		return fmt.Errorf("email check failed: %w", err)
	}
	if taken {
		return apperr.Validationf("email %s is already registered", user.Email)
	}

	if _, err := r.mongoRepo.Create(ctx, *user); err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}

	r.logger.Info("user created", zap.String("user_id", user.ID))
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("user %s", id)
		}
		return nil, fmt.Errorf("get user failed: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.mongoRepo.FindOne(ctx, db.NewFilter().Eq("email", email).Build())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("user with email %s", email)
		}
		return nil, fmt.Errorf("get user by email failed: %w", err)
	}
	return user, nil
}

// ListOthers returns the user directory minus the caller, the way the
// dashboard consumes it.
func (r *userRepository) ListOthers(ctx context.Context, excludeUserID string) ([]model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Ne("_id", excludeUserID).Build()
	sort := bson.D{{Key: "name", Value: 1}}

	users, err := r.mongoRepo.FindAll(ctx, filter, sort)
	if err != nil {
		return nil, fmt.Errorf("list users failed: %w", err)
	}
	return users, nil
}

// ListOnlineIDs returns users currently flagged online. The presence sweeper
// reconciles this set against live heartbeat leases.
func (r *userRepository) ListOnlineIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	users, err := r.mongoRepo.FindAll(ctx, db.NewFilter().Eq("is_online", true).Build())
	if err != nil {
		return nil, fmt.Errorf("list online users failed: %w", err)
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// SetPasswordHash replaces the stored credential after a password reset.
func (r *userRepository) SetPasswordHash(ctx context.Context, id string, hash string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.Update(ctx, bson.M{"_id": id}, bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("set password failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFoundf("user %s", id)
	}
	return nil
}

// SetPresence stamps is_online plus a server-assigned last_seen.
func (r *userRepository) SetPresence(ctx context.Context, id string, online bool, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.Update(ctx, bson.M{"_id": id}, bson.M{
		"is_online": online,
		"last_seen": at,
	})
	if err != nil {
		return fmt.Errorf("set presence failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFoundf("user %s", id)
	}
	return nil
}
