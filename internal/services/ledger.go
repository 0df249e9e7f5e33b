// Package services orchestrates domain operations across storage and the
// optional event publisher. Services own validation sequencing: nothing is
// persisted before it has passed the domain rules.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/storage"
)

// LedgerStore is the storage surface the ledger service needs. It is
// satisfied by *storage.SQLiteRepository and faked in tests.
type LedgerStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListCategoriesByType(ctx context.Context, t core.TxType) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, p storage.ListTransactionsParams) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, p storage.UpdateTransactionParams) error
	DeleteTransaction(ctx context.Context, userID, id int64) error
}

// EventPublisher publishes ledger change events. May be backed by
// *amqp.Client; a nil interface disables publishing entirely.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

type LedgerService struct {
	store     LedgerStore
	publisher EventPublisher
	logger    *log.Logger
}

func NewLedgerService(store LedgerStore, publisher EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.ComponentLedger, log.Config{})
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *LedgerService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *LedgerService) CategoriesByType(ctx context.Context, t core.TxType) ([]core.Category, error) {
	if !t.Valid() {
		return nil, core.ErrInvalidType
	}
	return s.store.ListCategoriesByType(ctx, t)
}

// CreateTransaction validates, checks that the category belongs to the
// transaction's side of the ledger, persists, and publishes an event.
func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkCategory(ctx, tx.Type, tx.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.EntityTransaction, amqp.ActionCreated, saved.ID, saved.UserID)
	return saved, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

func (s *LedgerService) ListTransactions(ctx context.Context, p storage.ListTransactionsParams) ([]core.Transaction, error) {
	if p.Type != nil && !p.Type.Valid() {
		return nil, core.ErrInvalidType
	}
	return s.store.ListTransactions(ctx, p)
}

// UpdateTransaction applies a partial edit. A new amount or category is
// validated against the stored transaction's type before anything is written.
func (s *LedgerService) UpdateTransaction(ctx context.Context, p storage.UpdateTransactionParams) (core.Transaction, error) {
	current, err := s.store.GetTransaction(ctx, p.UserID, p.ID)
	if err != nil {
		return core.Transaction{}, err
	}

	if p.Amount != nil {
		if err := core.ValidateAmount(*p.Amount); err != nil {
			return core.Transaction{}, err
		}
	}
	if p.CategoryID != nil {
		if err := s.checkCategory(ctx, current.Type, *p.CategoryID); err != nil {
			return core.Transaction{}, err
		}
	}
	if p.Memo != nil && len(*p.Memo) > 200 {
		return core.Transaction{}, core.ErrMemoTooLong
	}

	if err := s.store.UpdateTransaction(ctx, p); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.GetTransaction(ctx, p.UserID, p.ID)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publish(ctx, amqp.EntityTransaction, amqp.ActionUpdated, updated.ID, updated.UserID)
	return updated, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.EntityTransaction, amqp.ActionDeleted, id, userID)
	return nil
}

// MonthCalendar loads one month's transactions and aggregates per-day totals.
func (s *LedgerService) MonthCalendar(ctx context.Context, userID int64, year, month int) (core.MonthCalendar, []core.Transaction, error) {
	if month < 1 || month > 12 {
		return core.MonthCalendar{}, nil, core.ErrInvalidDate
	}
	txs, err := s.store.ListTransactions(ctx, storage.ListTransactionsParams{
		UserID: userID,
		Year:   year,
		Month:  month,
	})
	if err != nil {
		return core.MonthCalendar{}, nil, fmt.Errorf("load month: %w", err)
	}
	return core.Aggregate(txs), txs, nil
}

func (s *LedgerService) checkCategory(ctx context.Context, txType core.TxType, categoryID int64) error {
	cat, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrNoCategory
		}
		return fmt.Errorf("load category: %w", err)
	}
	return core.ValidateCategoryMatch(txType, cat)
}

// publish sends a change event without ever failing the caller's request.
func (s *LedgerService) publish(ctx context.Context, entity, action string, id, userID int64) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	event := amqp.NewLedgerEvent(entity, action, id, userID)
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldError, err,
			"entity", entity,
			"action", action,
			log.FieldTxID, id,
			log.FieldUserID, userID)
	}
}
