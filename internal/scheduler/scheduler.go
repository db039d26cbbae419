package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job - одна периодическая фоновая задача. Ошибки запуска логируются,
// планировщик продолжает работать: ретраи - не его забота.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler гоняет фоновые джобы (чистка архива, дневные снапшоты) по
// таймеру вне пути запроса. Явный тип вместо разбросанных по коду таймеров.
type Scheduler struct {
	jobs []Job
	wg   sync.WaitGroup
}

func New(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Start запускает по горутине на джобу. Возврат немедленный,
// остановка - через отмену ctx и Wait.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}
}

// Wait блокируется до завершения всех джоб после отмены контекста
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	log.Printf("scheduler: job %q started, interval %s", job.Name, job.Interval)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: job %q stopped", job.Name)
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				log.Printf("scheduler: job %q failed: %v", job.Name, err)
			}
		}
	}
}
