package service

import (
	"context"
	"strings"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/repo"
)

// UserService serves the user directory backing the conversation-partner
// picker.
type UserService interface {
	Directory(ctx context.Context, callerID, query string) ([]model.PublicProfile, error)
	Profile(ctx context.Context, userID string) (*model.PublicProfile, error)
}

type userService struct {
	users repo.UserRepository
}

func NewUserService(users repo.UserRepository) UserService {
	return &userService{users: users}
}

// Directory lists everyone except the caller, optionally narrowed by a
// case-insensitive name/email search.
func (s *userService) Directory(ctx context.Context, callerID, query string) ([]model.PublicProfile, error) {
	users, err := s.users.ListOthers(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		users = Filter(users, func(u model.User) bool {
			return strings.Contains(strings.ToLower(u.Name), q) ||
				strings.Contains(strings.ToLower(u.Email), q)
		})
	}

	profiles := make([]model.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Public())
	}
	return profiles, nil
}

func (s *userService) Profile(ctx context.Context, userID string) (*model.PublicProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Public()
	return &profile, nil
}
