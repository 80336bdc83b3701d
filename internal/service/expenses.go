package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/models"
)

func decodeExpense(rec localstore.Record) (*models.Expense, error) {
	var expense models.Expense
	if err := jsonUnmarshal(rec.Payload, &expense); err != nil {
		return nil, err
	}
	applyEnvelope(&expense.Envelope, rec)
	return &expense, nil
}

// CreateExpense logs a cost against a trip.
func (s *Service) CreateExpense(ctx context.Context, expense models.Expense) (*models.Expense, error) {
	if expense.TripID == "" || expense.Value <= 0 {
		return nil, fmt.Errorf("%w: trip and a positive value are required", ErrInvalidInput)
	}
	if _, err := s.GetTrip(ctx, expense.TripID); err != nil {
		return nil, err
	}
	if expense.ExpenseDate.IsZero() {
		expense.ExpenseDate = time.Now().UTC()
	}
	expense.Envelope = models.Envelope{LocalID: newLocalID(), SyncStatus: models.SyncPending}
	if err := s.add(ctx, localstore.EntityExpenses, expense.LocalID, expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// ListExpenses returns the trip's non-deleted expenses.
func (s *Service) ListExpenses(ctx context.Context, tripID string) ([]models.Expense, error) {
	recs, err := s.store.GetByIndex(ctx, localstore.EntityExpenses, "tripId", tripID)
	if err != nil {
		return nil, err
	}
	expenses := make([]models.Expense, 0, len(recs))
	for _, rec := range recs {
		expense, err := decodeExpense(rec)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}
	return expenses, nil
}

// AttachExpenseReceipt links an uploaded receipt blob to the expense.
func (s *Service) AttachExpenseReceipt(ctx context.Context, localID string, receipt models.Receipt) error {
	rec, err := s.store.Get(ctx, localstore.EntityExpenses, localID)
	if err != nil {
		return err
	}
	expense, err := decodeExpense(*rec)
	if err != nil {
		return err
	}
	expense.Receipt = &receipt
	return s.update(ctx, localstore.EntityExpenses, localID, expense)
}

// UpdateExpense replaces an expense's fields.
func (s *Service) UpdateExpense(ctx context.Context, expense models.Expense) error {
	return s.update(ctx, localstore.EntityExpenses, expense.LocalID, expense)
}

// DeleteExpense soft-deletes an expense.
func (s *Service) DeleteExpense(ctx context.Context, localID string) error {
	return s.store.MarkForDeletion(ctx, localstore.EntityExpenses, localID)
}
