package domain

import (
	"context"
	"time"
)

// Repository описывает методы работы с базой данных
type Repository interface {
	// Transaction выполняет fn в одной транзакции. Репозиторий, переданный
	// в fn, привязан к транзакции; ошибка из fn откатывает все изменения.
	Transaction(ctx context.Context, fn func(Repository) error) error

	// Cycle methods
	CreateCycle(ctx context.Context, cycle *Cycle) error
	// GetCycleByID возвращает только живой (не архивный) цикл
	GetCycleByID(ctx context.Context, id int) (*Cycle, error)
	ListCycles(ctx context.Context, projectID int, status string) ([]Cycle, error)
	ListActiveCycles(ctx context.Context) ([]Cycle, error)
	// ListProjectCyclesForUpdate читает циклы проекта под блокировкой записи -
	// для сериализации конкурентных Start в рамках проекта
	ListProjectCyclesForUpdate(ctx context.Context, projectID int, status string) ([]Cycle, error)
	// UpdateCycleFields частично обновляет цикл. Возвращает ErrCycleNotFound,
	// если строка не затронута.
	UpdateCycleFields(ctx context.Context, id int, fields map[string]interface{}) error

	// Archive methods
	ListArchivedCycles(ctx context.Context, projectID int, moment time.Time, limit, offset int) ([]Cycle, error)
	ListExpiredCycleIDs(ctx context.Context, moment time.Time) ([]int, error)
	// HardDeleteExpiredCycle удаляет цикл вместе со снапшотами, но только если
	// его срок хранения истек к moment. Возвращает false, если удалять нечего
	// (цикл восстановлен или уже удален параллельным вызовом).
	HardDeleteExpiredCycle(ctx context.Context, id int, moment time.Time) (bool, error)
	// RestoreCycle снимает архивные отметки, но только пока срок не истек.
	// Возвращает false, если цикл не в архиве или уже истек.
	RestoreCycle(ctx context.Context, id int, moment time.Time) (bool, error)

	// Issue methods (узкий контракт коллаборатора: только cycle_id и агрегаты)
	DetachIssuesFromCycle(ctx context.Context, cycleID int) (int, error)
	AssignIssuesToCycle(ctx context.Context, issueIDs []int, cycleID int) (int, error)
	MoveIncompleteIssues(ctx context.Context, fromCycleID, toCycleID int) (int, error)
	AggregateIssuesByStatus(ctx context.Context, cycleID int) ([]IssueStatusAggregate, error)
	CountCycleIssues(ctx context.Context, cycleID int) (int, error)

	// Snapshot methods
	UpsertSnapshot(ctx context.Context, snapshot *CycleSnapshot) error
	ListSnapshots(ctx context.Context, cycleID int) ([]CycleSnapshot, error)
}

// Service описывает бизнес-логику (то, что вызывается из HTTP хендлеров и планировщика)
type Service interface {
	// Жизненный цикл спринта
	CreateCycle(ctx context.Context, input CreateCycleInput) (*Cycle, error)
	StartCycle(ctx context.Context, cycleID int) (*Cycle, error)
	CompleteCycle(ctx context.Context, cycleID int) (*Cycle, error)
	UpdateCycle(ctx context.Context, cycleID int, update CycleUpdate) (*Cycle, error)
	GetCycle(ctx context.Context, cycleID int) (*Cycle, error)
	ListCycles(ctx context.Context, projectID int, status string) ([]Cycle, error)

	// Архив
	ArchiveCycle(ctx context.Context, cycleID int) error
	ListArchived(ctx context.Context, projectID, limit, offset int) ([]Cycle, error)
	RestoreCycle(ctx context.Context, cycleID int) (*Cycle, error)
	// PurgeExpired возвращает и число удаленных, и число сбоев - сбои не
	// прерывают чистку, но caller/мониторинг должен их видеть
	PurgeExpired(ctx context.Context) (purged, failed int, err error)

	// Планирование
	PlanSprint(ctx context.Context, cycleID int, issueIDs []int) (*Cycle, error)
	MoveIncompleteIssues(ctx context.Context, fromCycleID, toCycleID int) (*MoveResult, error)

	// Burndown
	RecordSnapshot(ctx context.Context, cycleID int, date time.Time, stats SnapshotStats) error
	ComputeBurndown(ctx context.Context, cycleID int) (*BurndownReport, error)
	// RecordDailySnapshots - ежедневный тик продюсера снапшотов по всем активным циклам
	RecordDailySnapshots(ctx context.Context, date time.Time) (int, error)
}

// CreateCycleInput - входные данные создания цикла
type CreateCycleInput struct {
	ProjectID      int
	Name           string
	Goal           string
	StartDate      time.Time
	EndDate        time.Time
	TargetCapacity *int
}
