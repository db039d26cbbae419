package service

import (
	"context"

	"github.com/Shishlyannikovvv/sprint-service/internal/domain"
)

// computeVelocity - чистая агрегация без побочных эффектов: количество
// завершенных задач цикла и сумма их стори-поинтов (null считаем нулем).
// Вызывается только из CompleteCycle внутри его транзакции.
func computeVelocity(ctx context.Context, repo domain.Repository, cycleID int) (*domain.VelocityReport, error) {
	aggregates, err := repo.AggregateIssuesByStatus(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	report := &domain.VelocityReport{}
	for _, agg := range aggregates {
		if agg.Status == domain.IssueStatusDone {
			report.Velocity = agg.Count
			report.StoryPointsCompleted = agg.StoryPoints
		}
	}
	return report, nil
}
