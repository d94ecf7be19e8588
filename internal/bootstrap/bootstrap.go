package bootstrap

import (
	"context"
	"fmt"

	"github.com/lendware/docflow/internal/config"
	"github.com/lendware/docflow/internal/core/ports"
	"github.com/lendware/docflow/internal/core/usecase"
	"github.com/lendware/docflow/internal/infrastructure/extractor/excerpt"
	"github.com/lendware/docflow/internal/infrastructure/llm/together"
	"github.com/lendware/docflow/internal/infrastructure/queue/nats"
	"github.com/lendware/docflow/internal/infrastructure/repository/postgres"
	"github.com/lendware/docflow/internal/infrastructure/resilience"
	"github.com/lendware/docflow/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Staged   ports.StagedUploadRepository
	Taxonomy ports.TaxonomyRepository

	IntakeUC  ports.UploadIntake
	PromoteUC ports.StagedPromoter
	ReviewUC  ports.ReviewWorkflow
	LoanUC    ports.LoanService

	// Classifier is the raw adapter; the worker wraps it with
	// instrumentation before promotion starts.
	Classifier ports.DocumentClassifier

	closeFn func()
}

// Options lets a binary decorate dependencies before the use cases are
// assembled. Nil fields keep the defaults built from config.
type Options struct {
	// ClassifierWrapper receives the configured classifier and returns the
	// one the promotion pipeline should use. The worker uses this to add
	// instrumentation.
	ClassifierWrapper func(ports.DocumentClassifier) ports.DocumentClassifier
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	return NewWithOptions(ctx, cfg, Options{})
}

func NewWithOptions(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	sqlDB, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db := postgres.NewDB(sqlDB)
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	stagedRepo := postgres.NewStagedUploadRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	logRepo := postgres.NewProcessingLogRepository(db)
	loanRepo := postgres.NewLoanRepository(db)
	taxonomyRepo := postgres.NewTaxonomyRepository(db)

	if cfg.TaxonomyAutoseed && cfg.TaxonomySeedTenantID != "" {
		if err := taxonomyRepo.SeedDefaults(ctx, cfg.TaxonomySeedTenantID); err != nil {
			return nil, fmt.Errorf("seed taxonomy: %w", err)
		}
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	// Classification and letter composition share one chat-completions client.
	llmClient := together.New(cfg.ClassifierURL, cfg.ClassifierModel, cfg.ClassifierAPIKey, cfg.ClassifierTimeout)
	var classifier ports.DocumentClassifier = together.NewClassifier(llmClient, executor)
	if opts.ClassifierWrapper != nil {
		classifier = opts.ClassifierWrapper(classifier)
	}
	composer := together.NewComposer(llmClient, executor)

	extractor := excerpt.New(storage)

	recalc := usecase.NewReadinessRecalculator(taxonomyRepo, ledgerRepo, loanRepo)
	intakeUC := usecase.NewUploadIntakeUseCase(loanRepo, stagedRepo, storage, queue, cfg.MaxUploadBytes)
	promoteUC := usecase.NewPromoteStagedUseCase(
		stagedRepo, ledgerRepo, logRepo, loanRepo, taxonomyRepo,
		extractor, classifier, db, recalc,
	)
	reviewUC := usecase.NewReviewWorkflowUseCase(
		ledgerRepo, logRepo, loanRepo, taxonomyRepo, storage, db, recalc,
	)
	loanUC := usecase.NewLoanServiceUseCase(loanRepo, ledgerRepo, taxonomyRepo, composer)

	return &App{
		Config: cfg,

		Queue:    queue,
		Staged:   stagedRepo,
		Taxonomy: taxonomyRepo,

		IntakeUC:  intakeUC,
		PromoteUC: promoteUC,
		ReviewUC:  reviewUC,
		LoanUC:    loanUC,

		Classifier: classifier,

		closeFn: func() {
			queue.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
