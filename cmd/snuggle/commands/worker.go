package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/snuggle-app/snuggle-core/pkg/logger"
)

func workerCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:         "worker",
		Short:       "Run scheduled jobs until interrupted",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{asyncEvents: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appCtx.Config
			log := logger.FromContext(cmd.Context()).With(logger.Component("worker"))

			s, err := appCtx.Scheduler()
			if err != nil {
				return err
			}

			if once {
				for _, job := range s.ListJobs() {
					if _, err := s.RunNow(cmd.Context(), job.Name); err != nil {
						return fmt.Errorf("%s: %w", job.Name, err)
					}
				}
				logBusStats(log)
				return nil
			}

			if !cfg.Scheduler.Enabled {
				return errors.New("scheduler is disabled (SCHEDULER_ENABLED=false)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := s.Start(ctx); err != nil {
				return err
			}
			log.Info("worker is running",
				logger.String("timezone", cfg.App.Timezone),
				logger.String("deliver_cron", cfg.Scheduler.DeliverCron),
				logger.Bool("async_events", true),
			)

			<-ctx.Done()
			log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))
			err = stopWithin(s.Stop, cfg.App.ShutdownTimeout)
			logBusStats(log)
			return err
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run every job once and exit")
	return cmd
}

func logBusStats(log *logger.Logger) {
	m := appCtx.BusMetrics()
	if m == nil {
		return
	}
	snap := m.Snapshot()
	log.Info("event bus stats",
		logger.Int64("published", snap.TotalPublished),
		logger.Int64("handler_runs", snap.TotalHandlerExecs),
		logger.Int64("handler_failures", snap.HandlerFailures),
		logger.Float64("success_rate", snap.HandlerSuccessRate),
		logger.Duration("avg_handler", snap.AverageHandlerDuration),
	)
}

// stopWithin waits for stop to return, giving up after timeout.
func stopWithin(stop func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- stop() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}
