package service_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/Shishlyannikovvv/sprint-service/internal/domain"
	"github.com/Shishlyannikovvv/sprint-service/internal/service"
	"github.com/Shishlyannikovvv/sprint-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRepo    domain.Repository
	testService domain.Service
)

func TestMain(m *testing.M) {
	// In-memory sqlite: реальные транзакции без поднятого Postgres
	db, err := storage.NewSQLiteDB("file:sprint_service_test?mode=memory&cache=shared")
	if err != nil {
		log.Fatalf("Could not open test DB: %v", err)
	}

	testRepo = storage.NewRepository(db)
	testService = service.NewManager(testRepo)

	code := m.Run()
	os.Exit(code)
}

// setupTest очищает таблицы перед каждым тестом
func setupTest(t *testing.T) {
	t.Helper()
	gdb := testRepo.(*storage.Repository).DB()

	for _, table := range []string{"cycle_snapshots", "issues", "cycles"} {
		require.NoError(t, gdb.Exec("DELETE FROM "+table).Error)
	}
}

// --- Helpers ---

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func createTestCycle(t *testing.T, projectID int, name string, start, end time.Time) *domain.Cycle {
	t.Helper()
	cycle, err := testService.CreateCycle(context.Background(), domain.CreateCycleInput{
		ProjectID: projectID,
		Name:      name,
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	return cycle
}

func seedIssue(t *testing.T, projectID int, cycleID *int, status string, points *int) *domain.Issue {
	t.Helper()
	issue := &domain.Issue{
		ProjectID:   projectID,
		CycleID:     cycleID,
		Status:      status,
		StoryPoints: points,
	}
	gdb := testRepo.(*storage.Repository).DB()
	require.NoError(t, gdb.Create(issue).Error)
	return issue
}

// --- Lifecycle ---

func TestCreateCycle(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	cycle := createTestCycle(t, 1, "Sprint 1", date(2024, 1, 1), date(2024, 1, 14))

	// Новый цикл всегда PLANNED, фактических дат и метрик еще нет
	assert.Equal(t, domain.CycleStatusPlanned, cycle.Status)
	assert.Nil(t, cycle.ActualStartDate)
	assert.Nil(t, cycle.ActualEndDate)
	assert.Nil(t, cycle.Velocity)

	// start >= end недопустимо
	_, err := testService.CreateCycle(ctx, domain.CreateCycleInput{
		ProjectID: 1,
		Name:      "Broken",
		StartDate: date(2024, 1, 14),
		EndDate:   date(2024, 1, 1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = testService.CreateCycle(ctx, domain.CreateCycleInput{
		ProjectID: 1,
		Name:      "Zero length",
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 1, 1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestStartAndCompleteCycle(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	cycle := createTestCycle(t, 1, "Sprint 1", date(2024, 1, 1), date(2024, 1, 14))

	// Завершить PLANNED нельзя
	_, err := testService.CompleteCycle(ctx, cycle.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	started, err := testService.StartCycle(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CycleStatusActive, started.Status)
	require.NotNil(t, started.ActualStartDate)

	// Повторный Start активного цикла - невалидный переход
	_, err = testService.StartCycle(ctx, cycle.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	completed, err := testService.CompleteCycle(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CycleStatusCompleted, completed.Status)
	require.NotNil(t, completed.ActualEndDate)

	// COMPLETED терминален: ни Start, ни повторный Complete не проходят
	_, err = testService.StartCycle(ctx, cycle.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = testService.CompleteCycle(ctx, cycle.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Состояние цикла не изменилось после отбитых переходов
	reloaded, err := testService.GetCycle(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CycleStatusCompleted, reloaded.Status)
}

func TestSingleActiveCycleInvariant(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	c1 := createTestCycle(t, 1, "Sprint 1", date(2024, 1, 1), date(2024, 1, 14))
	c2 := createTestCycle(t, 1, "Sprint 2", date(2024, 1, 15), date(2024, 1, 28))
	// Цикл чужого проекта не должен пострадать
	other := createTestCycle(t, 2, "Other project sprint", date(2024, 1, 1), date(2024, 1, 14))

	_, err := testService.StartCycle(ctx, c1.ID)
	require.NoError(t, err)
	_, err = testService.StartCycle(ctx, other.ID)
	require.NoError(t, err)

	// Start второго цикла демотирует первый обратно в PLANNED
	started, err := testService.StartCycle(ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CycleStatusActive, started.Status)

	demoted, err := testService.GetCycle(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CycleStatusPlanned, demoted.Status)

	active, err := testService.ListCycles(ctx, 1, domain.CycleStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1, "Exactly one active cycle per project")
	assert.Equal(t, c2.ID, active[0].ID)

	// Активный цикл другого проекта остался на месте
	otherActive, err := testService.ListCycles(ctx, 2, domain.CycleStatusActive)
	require.NoError(t, err)
	assert.Len(t, otherActive, 1)
}

func TestCompleteComputesVelocity(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	cycle := createTestCycle(t, 1, "Sprint 1", date(2024, 1, 1), date(2024, 1, 14))
	_, err := testService.StartCycle(ctx, cycle.ID)
	require.NoError(t, err)

	// 10 задач: 4 done с суммой поинтов 13 (одна - с null-поинтами), 6 в работе
	seedIssue(t, 1, &cycle.ID, domain.IssueStatusDone, intPtr(3))
	seedIssue(t, 1, &cycle.ID, domain.IssueStatusDone, intPtr(4))
	seedIssue(t, 1, &cycle.ID, domain.IssueStatusDone, intPtr(6))
	seedIssue(t, 1, &cycle.ID, domain.IssueStatusDone, nil)
	for i := 0; i < 6; i++ {
		seedIssue(t, 1, &cycle.ID, "in_progress", intPtr(2))
	}

	completed, err := testService.CompleteCycle(ctx, cycle.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.Velocity)
	require.NotNil(t, completed.StoryPointsCompleted)
	assert.Equal(t, 4, *completed.Velocity, "Velocity counts done issues only")
	assert.Equal(t, 13, *completed.StoryPointsCompleted, "Null story points count as zero")
}

func TestUpdateCycle(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	cycle := createTestCycle(t, 1, "Sprint 1", date(2024, 1, 1), date(2024, 1, 14))

	updated, err := testService.UpdateCycle(ctx, cycle.ID, domain.CycleUpdate{
		Name: strPtr("Sprint 1 (revised)"),
		Goal: strPtr("Ship the burndown chart"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Sprint 1 (revised)", updated.Name)
	assert.Equal(t, "Ship the burndown chart", updated.Goal)

	// Порядок дат перепроверяется на итоговой паре
	_, err = testService.UpdateCycle(ctx, cycle.ID, domain.CycleUpdate{
		EndDate: timePtr(date(2023, 12, 31)),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	updated, err = testService.UpdateCycle(ctx, cycle.ID, domain.CycleUpdate{
		StartDate: timePtr(date(2024, 1, 2)),
		EndDate:   timePtr(date(2024, 1, 16)),
	})
	require.NoError(t, err)
	assert.True(t, updated.StartDate.Equal(date(2024, 1, 2)), "Start date should be updated")

	_, err = testService.UpdateCycle(ctx, 99999, domain.CycleUpdate{Name: strPtr("ghost")})
	assert.ErrorIs(t, err, domain.ErrCycleNotFound)
}

func TestUpdateStatusGoesThroughStateMachine(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	cycle := createTestCycle(t, 1, "Sprint 1", date(2024, 1, 1), date(2024, 1, 14))

	// Update - не лазейка мимо стейт-машины: PLANNED -> COMPLETED запрещен
	_, err := testService.UpdateCycle(ctx, cycle.ID, domain.CycleUpdate{
		Status: strPtr(domain.CycleStatusCompleted),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// А валидный переход через Update работает как Start
	updated, err := testService.UpdateCycle(ctx, cycle.ID, domain.CycleUpdate{
		Status: strPtr(domain.CycleStatusActive),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CycleStatusActive, updated.Status)
	assert.NotNil(t, updated.ActualStartDate)

	// Обратный переход не существует
	_, err = testService.UpdateCycle(ctx, cycle.ID, domain.CycleUpdate{
		Status: strPtr(domain.CycleStatusPlanned),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Неизвестный статус - мусор на входе
	_, err = testService.UpdateCycle(ctx, cycle.ID, domain.CycleUpdate{
		Status: strPtr("PAUSED"),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateIsAtomicOnInvalidPayload(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	sibling := createTestCycle(t, 1, "Sprint 1", date(2024, 1, 1), date(2024, 1, 14))
	_, err := testService.StartCycle(ctx, sibling.ID)
	require.NoError(t, err)

	cycle := createTestCycle(t, 1, "Sprint 2", date(2024, 1, 15), date(2024, 1, 28))

	// Валидный переход вместе с битой датой: отказ должен быть целиком,
	// без частично примененного перехода
	_, err = testService.UpdateCycle(ctx, cycle.ID, domain.CycleUpdate{
		Status:  strPtr(domain.CycleStatusActive),
		EndDate: timePtr(date(2023, 12, 31)),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	reloaded, err := testService.GetCycle(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CycleStatusPlanned, reloaded.Status, "Rejected update must not apply the transition")
	assert.Nil(t, reloaded.ActualStartDate)
	assert.True(t, reloaded.EndDate.Equal(date(2024, 1, 28)), "Rejected update must not touch dates")

	// Соседний активный цикл не демотирован откаченным переходом
	active, err := testService.ListCycles(ctx, 1, domain.CycleStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, sibling.ID, active[0].ID)
}
