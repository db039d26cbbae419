package service

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/Shishlyannikovvv/sprint-service/internal/domain"
)

// RecordSnapshot сохраняет дневной замер цикла. Ключ - пара (цикл, день):
// повторный замер за тот же день перезаписывает предыдущий.
// Фильтрация "снимаем только активные циклы" - забота продюсера снапшотов.
func (s *Manager) RecordSnapshot(ctx context.Context, cycleID int, date time.Time, stats domain.SnapshotStats) error {
	snapshot := &domain.CycleSnapshot{
		CycleID:          cycleID,
		SnapshotDate:     truncateToDay(date),
		TotalIssues:      stats.TotalIssues,
		CompletedIssues:  stats.CompletedIssues,
		InProgressIssues: stats.InProgressIssues,
		TotalPoints:      stats.TotalPoints,
		RemainingPoints:  stats.RemainingPoints,
		CompletedPoints:  stats.CompletedPoints,
	}
	return s.repo.UpsertSnapshot(ctx, snapshot)
}

// ComputeBurndown строит идеальную и фактическую серии. Серии независимы:
// длины и даты могут не совпадать, выравнивает их клиент.
func (s *Manager) ComputeBurndown(ctx context.Context, cycleID int) (*domain.BurndownReport, error) {
	cycle, err := s.repo.GetCycleByID(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	totalIssues, err := s.repo.CountCycleIssues(ctx, cycle.ID)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.repo.ListSnapshots(ctx, cycle.ID)
	if err != nil {
		return nil, err
	}

	actual := make([]domain.BurndownPoint, 0, len(snapshots))
	for _, snap := range snapshots {
		actual = append(actual, domain.BurndownPoint{
			Date:       snap.SnapshotDate,
			Remaining:  snap.TotalIssues - snap.CompletedIssues,
			Completed:  snap.CompletedIssues,
			InProgress: snap.InProgressIssues,
		})
	}

	return &domain.BurndownReport{
		Cycle:          cycle,
		IdealBurndown:  idealBurndown(cycle.StartDate, cycle.EndDate, totalIssues),
		ActualBurndown: actual,
	}, nil
}

// RecordDailySnapshots - ежедневный тик продюсера: по одному замеру на каждый
// активный цикл. Сбой на одном цикле не останавливает остальные.
func (s *Manager) RecordDailySnapshots(ctx context.Context, date time.Time) (int, error) {
	cycles, err := s.repo.ListActiveCycles(ctx)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, cycle := range cycles {
		stats, err := s.collectSnapshotStats(ctx, cycle.ID)
		if err != nil {
			log.Printf("snapshot: failed to aggregate issues for cycle %d: %v", cycle.ID, err)
			continue
		}
		if err := s.RecordSnapshot(ctx, cycle.ID, date, stats); err != nil {
			log.Printf("snapshot: failed to record snapshot for cycle %d: %v", cycle.ID, err)
			continue
		}
		recorded++
	}
	return recorded, nil
}

func (s *Manager) collectSnapshotStats(ctx context.Context, cycleID int) (domain.SnapshotStats, error) {
	aggregates, err := s.repo.AggregateIssuesByStatus(ctx, cycleID)
	if err != nil {
		return domain.SnapshotStats{}, err
	}

	stats := domain.SnapshotStats{}
	for _, agg := range aggregates {
		stats.TotalIssues += agg.Count
		stats.TotalPoints += agg.StoryPoints
		if agg.Status == domain.IssueStatusDone {
			stats.CompletedIssues += agg.Count
			stats.CompletedPoints += agg.StoryPoints
		} else {
			stats.InProgressIssues += agg.Count
		}
	}
	stats.RemainingPoints = stats.TotalPoints - stats.CompletedPoints
	return stats, nil
}

// idealBurndown строит синтетическую линию от текущего числа задач цикла до
// нуля, по одной точке на календарный день от start до end включительно:
// remaining(i) = round(total * (1 - i/totalDays)).
// Линия считается в задачах, а не в поинтах - так исторически ведет себя
// продукт, фактическая серия при этом несет и поинтовые поля.
func idealBurndown(start, end time.Time, totalIssues int) []domain.BurndownPoint {
	start = truncateToDay(start)
	end = truncateToDay(end)

	totalDays := int(end.Sub(start).Hours() / 24)
	if totalDays < 1 {
		totalDays = 1
	}

	points := make([]domain.BurndownPoint, 0, totalDays+1)
	for i := 0; i <= totalDays; i++ {
		remaining := int(math.Round(float64(totalIssues) * (1 - float64(i)/float64(totalDays))))
		points = append(points, domain.BurndownPoint{
			Date:      start.AddDate(0, 0, i),
			Remaining: remaining,
		})
	}
	return points
}

// truncateToDay приводит момент к началу дня в UTC (гранулярность снапшотов - день)
func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
