package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shishlyannikovvv/sprint-service/internal/api"
	"github.com/Shishlyannikovvv/sprint-service/internal/config"
	"github.com/Shishlyannikovvv/sprint-service/internal/scheduler"
	"github.com/Shishlyannikovvv/sprint-service/internal/service"
	"github.com/Shishlyannikovvv/sprint-service/internal/storage"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "sprint-service",
		Short:        "Cycle (sprint) lifecycle service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.AddCommand(serveCmd(), purgeCmd(), snapshotCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newManager собирает слои: конфиг -> storage -> service
func newManager() (*service.Manager, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DB.Host == "" {
		return nil, nil, errors.New("database host is not configured (set DB_HOST or db.host in config)")
	}

	db, err := storage.NewPostgresDB(cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port)
	if err != nil {
		return nil, nil, err
	}

	repo := storage.NewRepository(db)
	return service.NewManager(repo), cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server with background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cfg, err := newManager()
			if err != nil {
				return err
			}

			purgeEvery, err := cfg.PurgeInterval()
			if err != nil {
				return err
			}
			snapshotEvery, err := cfg.SnapshotInterval()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Фоновые джобы живут вне пути запроса
			jobs := scheduler.New(
				scheduler.Job{
					Name:     "purge-expired",
					Interval: purgeEvery,
					Run: func(ctx context.Context) error {
						purged, failed, err := manager.PurgeExpired(ctx)
						if err == nil && (purged > 0 || failed > 0) {
							log.Printf("purge: removed %d expired cycle(s), %d failed", purged, failed)
						}
						return err
					},
				},
				scheduler.Job{
					Name:     "daily-snapshots",
					Interval: snapshotEvery,
					Run: func(ctx context.Context) error {
						recorded, err := manager.RecordDailySnapshots(ctx, time.Now().UTC())
						if err == nil {
							log.Printf("snapshot: recorded %d snapshot(s)", recorded)
						}
						return err
					},
				},
			)
			jobs.Start(ctx)

			handler := api.NewHandler(manager)
			router := api.SetupRouter(handler)

			srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}
			go func() {
				log.Printf("Starting server on :%s", cfg.Server.Port)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()

			<-ctx.Done()
			log.Println("Shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Server shutdown error: %v", err)
			}

			jobs.Wait()
			return nil
		},
	}
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Permanently delete expired archived cycles and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, _, err := newManager()
			if err != nil {
				return err
			}

			purged, failed, err := manager.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("purge: removed %d expired cycle(s), %d failed", purged, failed)
			if failed > 0 {
				return fmt.Errorf("purge: %d cycle(s) failed to delete", failed)
			}
			return nil
		},
	}
}

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Record today's burndown snapshot for every active cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, _, err := newManager()
			if err != nil {
				return err
			}

			recorded, err := manager.RecordDailySnapshots(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			log.Printf("snapshot: recorded %d snapshot(s)", recorded)
			return nil
		},
	}
}
