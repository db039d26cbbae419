package service

import (
	"context"
	"time"

	"github.com/Shishlyannikovvv/sprint-service/internal/domain"
)

type Manager struct {
	repo domain.Repository
}

func NewManager(repo domain.Repository) *Manager {
	return &Manager{repo: repo}
}

// --- Cycle Lifecycle ---

func (s *Manager) CreateCycle(ctx context.Context, input domain.CreateCycleInput) (*domain.Cycle, error) {
	if input.Name == "" || input.ProjectID == 0 {
		return nil, domain.ErrValidation
	}
	if !input.StartDate.Before(input.EndDate) {
		return nil, domain.ErrInvalidDateRange
	}

	// Новый цикл всегда стартует из PLANNED
	cycle := &domain.Cycle{
		ProjectID:      input.ProjectID,
		Name:           input.Name,
		Goal:           input.Goal,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		TargetCapacity: input.TargetCapacity,
		Status:         domain.CycleStatusPlanned,
	}

	if err := s.repo.CreateCycle(ctx, cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// StartCycle переводит цикл PLANNED -> ACTIVE. Активный цикл в проекте может
// быть только один, поэтому все шаги идут в одной транзакции под блокировкой
// циклов проекта: конкурентные Start не могут оставить два активных цикла.
func (s *Manager) StartCycle(ctx context.Context, cycleID int) (*domain.Cycle, error) {
	var started *domain.Cycle

	err := s.repo.Transaction(ctx, func(tx domain.Repository) error {
		var err error
		started, err = startCycleTx(ctx, tx, cycleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// startCycleTx - тело перехода PLANNED -> ACTIVE. Вызывается только изнутри
// открытой транзакции (из StartCycle и из UpdateCycle со статусом в payload).
func startCycleTx(ctx context.Context, tx domain.Repository, cycleID int) (*domain.Cycle, error) {
	cycle, err := tx.GetCycleByID(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	// Читаем все циклы проекта под блокировкой записи и перечитываем
	// целевой статус уже из заблокированного набора
	locked, err := tx.ListProjectCyclesForUpdate(ctx, cycle.ProjectID, "")
	if err != nil {
		return nil, err
	}

	var target *domain.Cycle
	for i := range locked {
		if locked[i].ID == cycleID {
			target = &locked[i]
			break
		}
	}
	if target == nil {
		return nil, domain.ErrCycleNotFound
	}
	if target.Status != domain.CycleStatusPlanned {
		return nil, domain.ErrInvalidTransition
	}

	// Демотируем прежний активный цикл обратно в PLANNED.
	// actual_start_date у него оставляем как исторический след.
	for i := range locked {
		other := &locked[i]
		if other.ID != cycleID && other.Status == domain.CycleStatusActive {
			err := tx.UpdateCycleFields(ctx, other.ID, map[string]interface{}{
				"status": domain.CycleStatusPlanned,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	now := time.Now().UTC()
	err = tx.UpdateCycleFields(ctx, cycleID, map[string]interface{}{
		"status":            domain.CycleStatusActive,
		"actual_start_date": now,
	})
	if err != nil {
		return nil, err
	}

	target.Status = domain.CycleStatusActive
	target.ActualStartDate = &now
	return target, nil
}

// CompleteCycle переводит цикл ACTIVE -> COMPLETED и фиксирует метрики.
// COMPLETED терминален. Метрики и статус пишутся одной транзакцией:
// сорвался статус - не остается и метрик.
func (s *Manager) CompleteCycle(ctx context.Context, cycleID int) (*domain.Cycle, error) {
	var completed *domain.Cycle

	err := s.repo.Transaction(ctx, func(tx domain.Repository) error {
		var err error
		completed, err = completeCycleTx(ctx, tx, cycleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// completeCycleTx - тело перехода ACTIVE -> COMPLETED. Вызывается только
// изнутри открытой транзакции.
func completeCycleTx(ctx context.Context, tx domain.Repository, cycleID int) (*domain.Cycle, error) {
	cycle, err := tx.GetCycleByID(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != domain.CycleStatusActive {
		return nil, domain.ErrInvalidTransition
	}

	report, err := computeVelocity(ctx, tx, cycleID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = tx.UpdateCycleFields(ctx, cycleID, map[string]interface{}{
		"status":                 domain.CycleStatusCompleted,
		"actual_end_date":        now,
		"velocity":               report.Velocity,
		"story_points_completed": report.StoryPointsCompleted,
	})
	if err != nil {
		return nil, err
	}

	cycle.Status = domain.CycleStatusCompleted
	cycle.ActualEndDate = &now
	cycle.Velocity = &report.Velocity
	cycle.StoryPointsCompleted = &report.StoryPointsCompleted
	return cycle, nil
}

// UpdateCycle частично обновляет цикл. Статус в теле запроса - не лазейка
// мимо стейт-машины: переход идет через те же правила, что Start/Complete.
// Весь payload валидируется до первой записи, и все записи идут одной
// транзакцией: невалидное поле в запросе не оставляет частичных эффектов.
func (s *Manager) UpdateCycle(ctx context.Context, cycleID int, update domain.CycleUpdate) (*domain.Cycle, error) {
	var updated *domain.Cycle

	err := s.repo.Transaction(ctx, func(tx domain.Repository) error {
		// Архивный цикл сюда не попадет - для этого лукапа его нет
		current, err := tx.GetCycleByID(ctx, cycleID)
		if err != nil {
			return err
		}

		// Сначала валидация всего payload
		if update.Status != nil {
			if err := validateTransition(current.Status, *update.Status); err != nil {
				return err
			}
		}

		fields := map[string]interface{}{}
		if update.Name != nil {
			fields["name"] = *update.Name
		}
		if update.Goal != nil {
			fields["goal"] = *update.Goal
		}
		if update.TargetCapacity != nil {
			fields["target_capacity"] = *update.TargetCapacity
		}

		if update.StartDate != nil || update.EndDate != nil {
			// Порядок дат перепроверяем на итоговой паре
			start, end := current.StartDate, current.EndDate
			if update.StartDate != nil {
				start = *update.StartDate
				fields["start_date"] = start
			}
			if update.EndDate != nil {
				end = *update.EndDate
				fields["end_date"] = end
			}
			if !start.Before(end) {
				return domain.ErrInvalidDateRange
			}
		}

		// Только теперь пишем: переход и поля в одной транзакции
		if update.Status != nil && *update.Status != current.Status {
			switch *update.Status {
			case domain.CycleStatusActive:
				if _, err := startCycleTx(ctx, tx, cycleID); err != nil {
					return err
				}
			case domain.CycleStatusCompleted:
				if _, err := completeCycleTx(ctx, tx, cycleID); err != nil {
					return err
				}
			}
		}

		if len(fields) > 0 {
			if err := tx.UpdateCycleFields(ctx, cycleID, fields); err != nil {
				return err
			}
		}

		updated, err = tx.GetCycleByID(ctx, cycleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// validateTransition отбрасывает мусорные значения статуса и нелегальные
// переходы до каких-либо записей. Переход в текущий статус - no-op.
func validateTransition(from, to string) error {
	switch to {
	case domain.CycleStatusPlanned, domain.CycleStatusActive, domain.CycleStatusCompleted:
	default:
		return domain.ErrValidation
	}
	if to == from {
		return nil
	}
	// Только PLANNED -> ACTIVE -> COMPLETED, без прыжков и обратных переходов
	if from == domain.CycleStatusPlanned && to == domain.CycleStatusActive {
		return nil
	}
	if from == domain.CycleStatusActive && to == domain.CycleStatusCompleted {
		return nil
	}
	return domain.ErrInvalidTransition
}

// --- Lookups ---

func (s *Manager) GetCycle(ctx context.Context, cycleID int) (*domain.Cycle, error) {
	return s.repo.GetCycleByID(ctx, cycleID)
}

func (s *Manager) ListCycles(ctx context.Context, projectID int, status string) ([]domain.Cycle, error) {
	return s.repo.ListCycles(ctx, projectID, status)
}
