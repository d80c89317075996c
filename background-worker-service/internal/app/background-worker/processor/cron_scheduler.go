package processor

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"

	"storefront/background-worker-service/internal/app/background-worker/service"
	"storefront/pkg/logger"
)

// CronScheduler запускает сверку хранилища картинок по расписанию
type CronScheduler struct {
	cron         *cron.Cron
	reconcileSvc service.ReconcileServiceInterface
}

func NewCronScheduler(reconcileSvc service.ReconcileServiceInterface) *CronScheduler {
	cronLogger := cron.PrintfLogger(logger.Printf{Component: "cron"})
	c := cron.New(
		cron.WithLogger(cronLogger),
		// проход может длиться дольше интервала
		cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
	)

	return &CronScheduler{
		cron:         c,
		reconcileSvc: reconcileSvc,
	}
}

// Start регистрирует задачу сверки. runOnStart запускает первый проход сразу,
// через ту же цепочку SkipIfStillRunning
func (s *CronScheduler) Start(ctx context.Context, schedule string, runOnStart bool) error {
	logger.Info().Str("schedule", schedule).Msg("Starting cron scheduler")

	id, err := s.cron.AddFunc(schedule, func() { s.runReconcile(ctx) })
	if err != nil {
		return err
	}

	s.cron.Start()

	if runOnStart {
		go s.cron.Entry(id).WrappedJob.Run()
	}

	return nil
}

func (s *CronScheduler) runReconcile(ctx context.Context) {
	logger.Info().Msg("Cron job triggered: reconciling product images")

	report, err := s.reconcileSvc.Reconcile(ctx)
	switch {
	case errors.Is(err, service.ErrReconcileInProgress):
		return
	case err != nil:
		logger.Error().Err(err).Msg("Image reconcile failed")
	default:
		logger.Info().Int("removed", report.Removed).Msg("Cron job completed: image reconcile finished")
	}
}

func (s *CronScheduler) Stop() {
	logger.Info().Msg("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Cron scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
