package domain

import "time"

// Статусы цикла (спринта)
const (
	CycleStatusPlanned   = "PLANNED"
	CycleStatusActive    = "ACTIVE"
	CycleStatusCompleted = "COMPLETED"
)

// Терминальный статус задачи. Остальные статусы задач нам не важны,
// ядро смотрит только "done / не done".
const IssueStatusDone = "done"

// ArchiveRetentionDays - сколько дней архив живет до окончательного удаления
const ArchiveRetentionDays = 30

// Cycle - спринт/итерация в рамках одного проекта
type Cycle struct {
	ID        int `json:"id" gorm:"primaryKey"`
	ProjectID int `json:"project_id" gorm:"index;not null"`

	Name           string `json:"name"`
	Goal           string `json:"goal,omitempty"`
	TargetCapacity *int   `json:"target_capacity,omitempty"`

	// Плановые и фактические даты. Фактические проставляются переходами статуса.
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	ActualStartDate *time.Time `json:"actual_start_date,omitempty"`
	ActualEndDate   *time.Time `json:"actual_end_date,omitempty"`

	Status string `json:"status"` // PLANNED | ACTIVE | COMPLETED

	// Тройка таймстемпов мягкого удаления: либо все null (живой цикл),
	// либо все проставлены (архив с дедлайном окончательного удаления)
	DeletedAt         *time.Time `json:"deleted_at,omitempty" gorm:"index"`
	ArchivedAt        *time.Time `json:"archived_at,omitempty"`
	PermanentDeleteAt *time.Time `json:"permanent_delete_at,omitempty" gorm:"index"`

	// Метрики, вычисляемые один раз при завершении цикла
	Velocity             *int `json:"velocity,omitempty"`
	StoryPointsCompleted *int `json:"story_points_completed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CycleSnapshot - неизменяемый дневной замер состояния цикла.
// Не больше одного снапшота на цикл в день (upsert по паре cycle_id + snapshot_date).
type CycleSnapshot struct {
	ID           int       `json:"id" gorm:"primaryKey"`
	CycleID      int       `json:"cycle_id" gorm:"uniqueIndex:idx_snapshot_cycle_day;not null"`
	SnapshotDate time.Time `json:"snapshot_date" gorm:"uniqueIndex:idx_snapshot_cycle_day;not null"`

	// Счетчики задач
	TotalIssues      int `json:"total_issues"`
	CompletedIssues  int `json:"completed_issues"`
	InProgressIssues int `json:"in_progress_issues"`

	// Стори-поинты (отдельная шкала от счетчиков, см. burndown)
	TotalPoints     int `json:"total_points"`
	RemainingPoints int `json:"remaining_points"`
	CompletedPoints int `json:"completed_points"`
}

// Issue - внешняя сущность. Мы не владеем задачами: ядро читает/пишет только
// cycle_id и читает status/story_points, все остальное живет у коллаборатора.
type Issue struct {
	ID          int    `json:"id" gorm:"primaryKey"`
	ProjectID   int    `json:"project_id" gorm:"index;not null"`
	CycleID     *int   `json:"cycle_id,omitempty" gorm:"index"`
	Status      string `json:"status"`
	StoryPoints *int   `json:"story_points,omitempty"`
}

// IssueStatusAggregate - одна строка агрегации задач цикла по статусу
type IssueStatusAggregate struct {
	Status      string `json:"status"`
	Count       int    `json:"count"`
	StoryPoints int    `json:"story_points"` // сумма, null считаем нулем
}

// VelocityReport - метрики, записываемые в цикл при завершении
type VelocityReport struct {
	Velocity             int `json:"velocity"`
	StoryPointsCompleted int `json:"story_points_completed"`
}

// BurndownPoint - одна точка серии burndown.
// В идеальной линии заполнены только Date и Remaining.
type BurndownPoint struct {
	Date       time.Time `json:"date"`
	Remaining  int       `json:"remaining"`
	Completed  int       `json:"completed"`
	InProgress int       `json:"in_progress"`
}

// BurndownReport - идеальная и фактическая серии.
// Длины и даты серий не обязаны совпадать, выравнивание - забота клиента.
type BurndownReport struct {
	Cycle          *Cycle          `json:"cycle"`
	IdealBurndown  []BurndownPoint `json:"ideal_burndown"`
	ActualBurndown []BurndownPoint `json:"actual_burndown"`
}

// MoveResult - результат переноса незавершенных задач между циклами
type MoveResult struct {
	MovedCount int    `json:"moved_count"`
	FromCycle  *Cycle `json:"from_cycle"`
	ToCycle    *Cycle `json:"to_cycle"`
}

// CycleUpdate - частичное обновление цикла. nil-поля не трогаем.
// Status прогоняется через те же правила переходов, что Start/Complete.
type CycleUpdate struct {
	Name           *string    `json:"name,omitempty"`
	Goal           *string    `json:"goal,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	TargetCapacity *int       `json:"target_capacity,omitempty"`
	Status         *string    `json:"status,omitempty"`
}

// SnapshotStats - замер, который продюсер снапшотов отдает в RecordSnapshot
type SnapshotStats struct {
	TotalIssues      int `json:"total_issues"`
	CompletedIssues  int `json:"completed_issues"`
	InProgressIssues int `json:"in_progress_issues"`
	TotalPoints      int `json:"total_points"`
	RemainingPoints  int `json:"remaining_points"`
	CompletedPoints  int `json:"completed_points"`
}
