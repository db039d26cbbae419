package storage

import (
	"context"
	"time"

	"github.com/Shishlyannikovvv/sprint-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB отдает нижележащий gorm.DB (нужно тестам для очистки таблиц)
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Transaction выполняет fn в одной транзакции базы. Репозиторий внутри fn
// работает через транзакционный handle, так что все шаги коммитятся или
// откатываются вместе.
func (r *Repository) Transaction(ctx context.Context, fn func(domain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// --- Cycle ---

func (r *Repository) CreateCycle(ctx context.Context, cycle *domain.Cycle) error {
	return r.db.WithContext(ctx).Create(cycle).Error
}

func (r *Repository) GetCycleByID(ctx context.Context, id int) (*domain.Cycle, error) {
	var cycle domain.Cycle
	// Архивные циклы для обычных операций не существуют
	err := r.db.WithContext(ctx).Where("archived_at IS NULL").First(&cycle, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrCycleNotFound
		}
		return nil, err
	}
	return &cycle, nil
}

func (r *Repository) ListCycles(ctx context.Context, projectID int, status string) ([]domain.Cycle, error) {
	var cycles []domain.Cycle
	q := r.db.WithContext(ctx).
		Where("project_id = ? AND archived_at IS NULL", projectID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("start_date, id").Find(&cycles).Error
	return cycles, err
}

func (r *Repository) ListActiveCycles(ctx context.Context) ([]domain.Cycle, error) {
	var cycles []domain.Cycle
	err := r.db.WithContext(ctx).
		Where("status = ? AND archived_at IS NULL", domain.CycleStatusActive).
		Find(&cycles).Error
	return cycles, err
}

func (r *Repository) ListProjectCyclesForUpdate(ctx context.Context, projectID int, status string) ([]domain.Cycle, error) {
	var cycles []domain.Cycle
	q := r.db.WithContext(ctx).
		Where("project_id = ? AND archived_at IS NULL", projectID)
	// SELECT ... FOR UPDATE сериализует конкурентные Start по проекту.
	// В sqlite такого синтаксиса нет, там писатель и так один на базу.
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&cycles).Error
	return cycles, err
}

func (r *Repository) UpdateCycleFields(ctx context.Context, id int, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&domain.Cycle{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCycleNotFound
	}
	return nil
}

// --- Archive ---

func (r *Repository) ListArchivedCycles(ctx context.Context, projectID int, moment time.Time, limit, offset int) ([]domain.Cycle, error) {
	var cycles []domain.Cycle
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND archived_at IS NOT NULL AND permanent_delete_at > ?", projectID, moment).
		Order("archived_at DESC").
		Limit(limit).Offset(offset).
		Find(&cycles).Error
	return cycles, err
}

func (r *Repository) ListExpiredCycleIDs(ctx context.Context, moment time.Time) ([]int, error) {
	var ids []int
	err := r.db.WithContext(ctx).Model(&domain.Cycle{}).
		Where("archived_at IS NOT NULL AND permanent_delete_at <= ?", moment).
		Order("permanent_delete_at").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) HardDeleteExpiredCycle(ctx context.Context, id int, moment time.Time) (bool, error) {
	deleted := false
	// Своя под-транзакция на каждый цикл: снапшоты уходят транзитивно, а
	// условие по дедлайну защищает от гонки с параллельным Restore
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("id = ? AND archived_at IS NOT NULL AND permanent_delete_at <= ?", id, moment).
			Delete(&domain.Cycle{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Цикл успели восстановить или удалить - это не ошибка
			return nil
		}
		deleted = true
		return tx.Where("cycle_id = ?", id).Delete(&domain.CycleSnapshot{}).Error
	})
	return deleted, err
}

func (r *Repository) RestoreCycle(ctx context.Context, id int, moment time.Time) (bool, error) {
	// Условный UPDATE: восстановление проходит только пока срок не истек.
	// Если purge успел закоммититься первым, строки уже нет и RowsAffected = 0.
	result := r.db.WithContext(ctx).Model(&domain.Cycle{}).
		Where("id = ? AND archived_at IS NOT NULL AND permanent_delete_at > ?", id, moment).
		Updates(map[string]interface{}{
			"deleted_at":          nil,
			"archived_at":         nil,
			"permanent_delete_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// --- Issue ---

func (r *Repository) DetachIssuesFromCycle(ctx context.Context, cycleID int) (int, error) {
	result := r.db.WithContext(ctx).Model(&domain.Issue{}).
		Where("cycle_id = ?", cycleID).
		Update("cycle_id", nil)
	return int(result.RowsAffected), result.Error
}

func (r *Repository) AssignIssuesToCycle(ctx context.Context, issueIDs []int, cycleID int) (int, error) {
	if len(issueIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&domain.Issue{}).
		Where("id IN ?", issueIDs).
		Update("cycle_id", cycleID)
	return int(result.RowsAffected), result.Error
}

func (r *Repository) MoveIncompleteIssues(ctx context.Context, fromCycleID, toCycleID int) (int, error) {
	// Завершенные задачи остаются в исходном цикле
	result := r.db.WithContext(ctx).Model(&domain.Issue{}).
		Where("cycle_id = ? AND status <> ?", fromCycleID, domain.IssueStatusDone).
		Update("cycle_id", toCycleID)
	return int(result.RowsAffected), result.Error
}

// AggregateIssuesByStatus считает количество задач и сумму стори-поинтов
// цикла в разрезе статусов
func (r *Repository) AggregateIssuesByStatus(ctx context.Context, cycleID int) ([]domain.IssueStatusAggregate, error) {
	var rows []struct {
		Status string
		Count  int64
		Points int64
	}

	err := r.db.WithContext(ctx).Model(&domain.Issue{}).
		Select("status, count(id) as count, coalesce(sum(story_points), 0) as points").
		Where("cycle_id = ?", cycleID).
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	aggregates := make([]domain.IssueStatusAggregate, 0, len(rows))
	for _, row := range rows {
		aggregates = append(aggregates, domain.IssueStatusAggregate{
			Status:      row.Status,
			Count:       int(row.Count),
			StoryPoints: int(row.Points),
		})
	}
	return aggregates, nil
}

func (r *Repository) CountCycleIssues(ctx context.Context, cycleID int) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Issue{}).
		Where("cycle_id = ?", cycleID).
		Count(&count).Error
	return int(count), err
}

// --- Snapshot ---

func (r *Repository) UpsertSnapshot(ctx context.Context, snapshot *domain.CycleSnapshot) error {
	// Повторный замер за тот же день перезаписывает строку, а не дублирует
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cycle_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_issues", "completed_issues", "in_progress_issues",
			"total_points", "remaining_points", "completed_points",
		}),
	}).Create(snapshot).Error
}

func (r *Repository) ListSnapshots(ctx context.Context, cycleID int) ([]domain.CycleSnapshot, error) {
	var snapshots []domain.CycleSnapshot
	err := r.db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("snapshot_date").
		Find(&snapshots).Error
	return snapshots, err
}
