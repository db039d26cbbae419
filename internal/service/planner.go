package service

import (
	"context"

	"github.com/Shishlyannikovvv/sprint-service/internal/domain"
)

// PlanSprint назначает перечисленные задачи в целевой цикл. Откуда задача
// пришла - бэклог, другой активный или даже завершенный цикл - не важно,
// и статус задачи не ограничиваем: перепланирование свободное.
func (s *Manager) PlanSprint(ctx context.Context, cycleID int, issueIDs []int) (*domain.Cycle, error) {
	var cycle *domain.Cycle

	err := s.repo.Transaction(ctx, func(tx domain.Repository) error {
		c, err := tx.GetCycleByID(ctx, cycleID)
		if err != nil {
			return err
		}
		if _, err := tx.AssignIssuesToCycle(ctx, issueIDs, c.ID); err != nil {
			return err
		}
		cycle = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cycle, nil
}

// MoveIncompleteIssues переносит незавершенные задачи из одного цикла в
// другой. Задачи со статусом done остаются в исходном цикле. Идемпотентен:
// повторный вызов после переноса вернет moved_count = 0.
func (s *Manager) MoveIncompleteIssues(ctx context.Context, fromCycleID, toCycleID int) (*domain.MoveResult, error) {
	var result *domain.MoveResult

	err := s.repo.Transaction(ctx, func(tx domain.Repository) error {
		fromCycle, err := tx.GetCycleByID(ctx, fromCycleID)
		if err != nil {
			return err
		}
		toCycle, err := tx.GetCycleByID(ctx, toCycleID)
		if err != nil {
			return err
		}

		moved, err := tx.MoveIncompleteIssues(ctx, fromCycle.ID, toCycle.ID)
		if err != nil {
			return err
		}

		result = &domain.MoveResult{
			MovedCount: moved,
			FromCycle:  fromCycle,
			ToCycle:    toCycle,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
