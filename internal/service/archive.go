package service

import (
	"context"
	"log"
	"time"

	"github.com/Shishlyannikovvv/sprint-service/internal/domain"
)

// Размер страницы архива по умолчанию
const defaultArchivePageSize = 50

// ArchiveCycle - мягкое удаление: цикл уходит в архив на 30 дней, его задачи
// возвращаются в бэклог. Сами задачи никогда не удаляются.
func (s *Manager) ArchiveCycle(ctx context.Context, cycleID int) error {
	return s.repo.Transaction(ctx, func(tx domain.Repository) error {
		// Уже архивный цикл для этого лукапа не существует
		cycle, err := tx.GetCycleByID(ctx, cycleID)
		if err != nil {
			return err
		}

		if _, err := tx.DetachIssuesFromCycle(ctx, cycle.ID); err != nil {
			return err
		}

		now := time.Now().UTC()
		purgeAt := now.AddDate(0, 0, domain.ArchiveRetentionDays)
		return tx.UpdateCycleFields(ctx, cycle.ID, map[string]interface{}{
			"deleted_at":          now,
			"archived_at":         now,
			"permanent_delete_at": purgeAt,
		})
	})
}

// ListArchived возвращает неистекшие архивные циклы проекта,
// свежие сверху, с пагинацией
func (s *Manager) ListArchived(ctx context.Context, projectID, limit, offset int) ([]domain.Cycle, error) {
	if limit <= 0 {
		limit = defaultArchivePageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListArchivedCycles(ctx, projectID, time.Now().UTC(), limit, offset)
}

// RestoreCycle возвращает цикл из архива в его прежний статус.
// Истекший архив считается уже удаленным, даже если purge до него не дошел.
// Задачи обратно в цикл автоматически не возвращаются.
func (s *Manager) RestoreCycle(ctx context.Context, cycleID int) (*domain.Cycle, error) {
	restored, err := s.repo.RestoreCycle(ctx, cycleID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !restored {
		return nil, domain.ErrCycleNotFound
	}
	return s.repo.GetCycleByID(ctx, cycleID)
}

// PurgeExpired окончательно удаляет истекшие архивные циклы вместе со
// снапшотами. Идемпотентен: без новых истечений повторный запуск вернет 0.
// Каждый цикл удаляется своей под-транзакцией, чтобы одна битая строка
// не блокировала чистку остальных; число сбоев отдаем вызывающему,
// не превращая их в ошибку всего прогона.
func (s *Manager) PurgeExpired(ctx context.Context) (int, int, error) {
	ids, err := s.repo.ListExpiredCycleIDs(ctx, time.Now().UTC())
	if err != nil {
		return 0, 0, err
	}

	purged := 0
	failed := 0
	for _, id := range ids {
		deleted, err := s.repo.HardDeleteExpiredCycle(ctx, id, time.Now().UTC())
		if err != nil {
			log.Printf("purge: failed to delete cycle %d: %v", id, err)
			failed++
			continue
		}
		// deleted == false значит цикл успели восстановить - пропускаем молча
		if deleted {
			purged++
		}
	}

	if failed > 0 {
		log.Printf("purge: %d of %d expired cycle(s) failed to delete", failed, len(ids))
	}
	return purged, failed, nil
}
