package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/models"
)

func decodeUser(rec localstore.Record) (*models.User, error) {
	var user models.User
	if err := jsonUnmarshal(rec.Payload, &user); err != nil {
		return nil, err
	}
	applyEnvelope(&user.Envelope, rec)
	return &user, nil
}

// RegisterUser creates a new local user record. Email and username must be
// unique among non-deleted users; both checks run before anything is
// written. Admin accounts always get base ALL.
func (s *Service) RegisterUser(ctx context.Context, req models.RegisterRequest, passwordHash string) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" {
		return nil, fmt.Errorf("%w: email and username are required", ErrInvalidInput)
	}
	if !models.IsValidRole(req.Role) {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, req.Role)
	}

	if existing, err := s.store.GetByIndex(ctx, localstore.EntityUsers, "email", email); err != nil {
		return nil, err
	} else if len(existing) > 0 {
		return nil, ErrEmailTaken
	}
	if existing, err := s.store.GetByIndex(ctx, localstore.EntityUsers, "username", username); err != nil {
		return nil, err
	} else if len(existing) > 0 {
		return nil, ErrUsernameTaken
	}

	base := strings.ToUpper(strings.TrimSpace(req.Base))
	if req.Role == models.RoleAdmin {
		base = models.BaseAll
	}
	now := time.Now().UTC()
	user := models.User{
		Envelope:     models.Envelope{LocalID: newLocalID(), SyncStatus: models.SyncPending},
		Name:         req.Name,
		Email:        email,
		Username:     username,
		Role:         req.Role,
		Base:         base,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.add(ctx, localstore.EntityUsers, user.LocalID, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByUsername returns the non-deleted user with the given username.
func (s *Service) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	recs, err := s.store.GetByIndex(ctx, localstore.EntityUsers, "username", strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, localstore.ErrNotFound
	}
	return decodeUser(recs[0])
}

// FindUserByEmail returns the non-deleted user with the given email.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	recs, err := s.store.GetByIndex(ctx, localstore.EntityUsers, "email", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, localstore.ErrNotFound
	}
	return decodeUser(recs[0])
}

// ListUsers returns every non-deleted user.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	recs, err := s.store.GetAll(ctx, localstore.EntityUsers)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(recs))
	for _, rec := range recs {
		user, err := decodeUser(rec)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

// TouchLastLogin stamps the user's last login time.
func (s *Service) TouchLastLogin(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.LastLogin = &now
	user.UpdatedAt = now
	return s.update(ctx, localstore.EntityUsers, user.LocalID, user)
}

// DeleteUser soft-deletes a user record.
func (s *Service) DeleteUser(ctx context.Context, localID string) error {
	return s.store.MarkForDeletion(ctx, localstore.EntityUsers, localID)
}
