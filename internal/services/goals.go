package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/storage"
)

// GoalStore is the storage surface the goals service needs. Satisfied by
// *storage.SQLiteRepository and faked in tests.
type GoalStore interface {
	CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error)
	GetGoal(ctx context.Context, userID, id int64) (core.SavingsGoal, error)
	ListGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error)
	UpdateGoal(ctx context.Context, p storage.UpdateGoalParams) error
	SetGoalActive(ctx context.Context, userID, id int64, active bool) error
	DeleteGoal(ctx context.Context, userID, id int64) error
}

// GoalWithProgress pairs a stored goal with metrics derived at read time.
// Progress is never persisted; it is recomputed on every read so that a
// stale snapshot cannot be served after an update.
type GoalWithProgress struct {
	Goal     core.SavingsGoal
	Progress core.GoalProgress
}

type GoalsService struct {
	store     GoalStore
	publisher EventPublisher
	logger    *log.Logger

	// now is swappable so tests can pin the clock for deadline math.
	now func() time.Time
}

func NewGoalsService(store GoalStore, publisher EventPublisher, logger *log.Logger) *GoalsService {
	if logger == nil {
		logger = log.New(log.ComponentGoals, log.Config{})
	}
	return &GoalsService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *GoalsService) CreateGoal(ctx context.Context, g core.SavingsGoal) (GoalWithProgress, error) {
	if err := g.Validate(); err != nil {
		return GoalWithProgress{}, err
	}
	g.Active = true

	saved, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return GoalWithProgress{}, fmt.Errorf("save goal: %w", err)
	}

	s.publishEvent(ctx, amqp.ActionCreated, saved.ID, saved.UserID)
	return s.withProgress(saved), nil
}

func (s *GoalsService) GetGoal(ctx context.Context, userID, id int64) (GoalWithProgress, error) {
	g, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return GoalWithProgress{}, err
	}
	return s.withProgress(g), nil
}

func (s *GoalsService) ListGoals(ctx context.Context, userID int64) ([]GoalWithProgress, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]GoalWithProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, s.withProgress(g))
	}
	return out, nil
}

// ListActiveGoals returns only goals still being pursued, for the summary
// views that should not show archived targets.
func (s *GoalsService) ListActiveGoals(ctx context.Context, userID int64) ([]GoalWithProgress, error) {
	all, err := s.ListGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]GoalWithProgress, 0, len(all))
	for _, g := range all {
		if g.Goal.Active {
			active = append(active, g)
		}
	}
	return active, nil
}

// UpdateGoal applies a partial edit after validating each provided field.
func (s *GoalsService) UpdateGoal(ctx context.Context, p storage.UpdateGoalParams) (GoalWithProgress, error) {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return GoalWithProgress{}, core.ErrEmptyName
		}
		if len(*p.Name) > 100 {
			return GoalWithProgress{}, core.ErrNameTooLong
		}
	}
	if p.Target != nil {
		if err := core.ValidateGoalTarget(*p.Target); err != nil {
			return GoalWithProgress{}, err
		}
	}
	if p.Current != nil {
		if err := core.ValidateGoalCurrent(*p.Current); err != nil {
			return GoalWithProgress{}, err
		}
	}
	if p.Deadline != nil && !p.ClearDeadline {
		if err := core.ValidateDateString(*p.Deadline); err != nil {
			return GoalWithProgress{}, err
		}
	}

	if err := s.store.UpdateGoal(ctx, p); err != nil {
		return GoalWithProgress{}, err
	}

	updated, err := s.store.GetGoal(ctx, p.UserID, p.ID)
	if err != nil {
		return GoalWithProgress{}, err
	}

	s.publishEvent(ctx, amqp.ActionUpdated, updated.ID, updated.UserID)
	return s.withProgress(updated), nil
}

func (s *GoalsService) SetGoalActive(ctx context.Context, userID, id int64, active bool) (GoalWithProgress, error) {
	if err := s.store.SetGoalActive(ctx, userID, id, active); err != nil {
		return GoalWithProgress{}, err
	}
	g, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return GoalWithProgress{}, err
	}
	s.publishEvent(ctx, amqp.ActionUpdated, id, userID)
	return s.withProgress(g), nil
}

func (s *GoalsService) DeleteGoal(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteGoal(ctx, userID, id); err != nil {
		return err
	}
	s.publishEvent(ctx, amqp.ActionDeleted, id, userID)
	return nil
}

func (s *GoalsService) withProgress(g core.SavingsGoal) GoalWithProgress {
	return GoalWithProgress{
		Goal:     g,
		Progress: core.ComputeProgress(g, s.now()),
	}
}

func (s *GoalsService) publishEvent(ctx context.Context, action string, id, userID int64) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	event := amqp.NewLedgerEvent(amqp.EntityGoal, action, id, userID)
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish goal event",
			log.FieldError, err,
			"action", action,
			log.FieldGoalID, id,
			log.FieldUserID, userID)
	}
}
