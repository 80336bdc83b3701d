package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/models"
)

func decodeCustomType(rec localstore.Record) (*models.CustomType, error) {
	var ct models.CustomType
	if err := jsonUnmarshal(rec.Payload, &ct); err != nil {
		return nil, err
	}
	applyEnvelope(&ct.Envelope, rec)
	return &ct, nil
}

// CreateCustomType adds a selectable category. The name must be unique
// among non-deleted types of the same kind.
func (s *Service) CreateCustomType(ctx context.Context, ct models.CustomType) (*models.CustomType, error) {
	ct.Name = strings.TrimSpace(ct.Name)
	if ct.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !models.IsValidCustomTypeKind(ct.Kind) {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidInput, ct.Kind)
	}
	existing, err := s.store.GetByIndex(ctx, localstore.EntityCustomTypes, "name", ct.Name)
	if err != nil {
		return nil, err
	}
	for _, rec := range existing {
		other, err := decodeCustomType(rec)
		if err != nil {
			return nil, err
		}
		if other.Kind == ct.Kind {
			return nil, ErrTypeNameTaken
		}
	}
	ct.Envelope = models.Envelope{LocalID: newLocalID(), SyncStatus: models.SyncPending}
	if err := s.add(ctx, localstore.EntityCustomTypes, ct.LocalID, ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

// ListCustomTypes returns the non-deleted categories of a kind.
func (s *Service) ListCustomTypes(ctx context.Context, kind models.CustomTypeKind) ([]models.CustomType, error) {
	recs, err := s.store.GetByIndex(ctx, localstore.EntityCustomTypes, "kind", string(kind))
	if err != nil {
		return nil, err
	}
	types := make([]models.CustomType, 0, len(recs))
	for _, rec := range recs {
		ct, err := decodeCustomType(rec)
		if err != nil {
			return nil, err
		}
		types = append(types, *ct)
	}
	return types, nil
}

// DeleteCustomType soft-deletes a category.
func (s *Service) DeleteCustomType(ctx context.Context, localID string) error {
	return s.store.MarkForDeletion(ctx, localstore.EntityCustomTypes, localID)
}
