package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreschagin/jenkins-collector/internal/application/port"
	"github.com/dreschagin/jenkins-collector/internal/domain/entity"
	"github.com/dreschagin/jenkins-collector/internal/domain/service"
	"github.com/dreschagin/jenkins-collector/pkg/logger"
)

// IngestConfig — параметры прогона оркестратора
type IngestConfig struct {
	// ServerTag — идентификатор CI-инстанса; пустой вне
	// multi-instance профиля
	ServerTag string

	// ExcludedViews — имена view, исключённые из обработки
	// (сравнение без учёта регистра)
	ExcludedViews []string

	// MaxConcurrentJobs ограничивает число одновременно
	// обрабатываемых джобов
	MaxConcurrentJobs int

	// EventSubject — тема для публикации событий об успешной записи
	EventSubject string
}

// IngestBuildsUseCase координирует обход view -> job -> build:
// классификацию триггера, проверку дубликата, кодирование и запись.
// Проверка дубликата для каждой сборки строго предшествует записи.
type IngestBuildsUseCase struct {
	reader    port.CIReader
	writer    port.RecordWriter
	checker   port.DuplicateChecker
	extractor *service.CauseExtractor
	cache     port.DedupCache     // может быть nil
	events    port.EventPublisher // может быть nil
	config    IngestConfig
	logger    *logger.Logger
}

// buildIngestedEvent — событие об успешно записанной сборке
type buildIngestedEvent struct {
	RunID       string `json:"run_id"`
	Project     string `json:"project"`
	View        string `json:"view"`
	Server      string `json:"server,omitempty"`
	BuildNumber int    `json:"build_number"`
	TriggerType string `json:"trigger_type"`
	Actor       string `json:"actor"`
}

// NewIngestBuildsUseCase создает новый use case
func NewIngestBuildsUseCase(
	reader port.CIReader,
	writer port.RecordWriter,
	checker port.DuplicateChecker,
	extractor *service.CauseExtractor,
	cache port.DedupCache,
	events port.EventPublisher,
	config IngestConfig,
	logger *logger.Logger,
) *IngestBuildsUseCase {
	if config.MaxConcurrentJobs < 1 {
		config.MaxConcurrentJobs = 1
	}

	return &IngestBuildsUseCase{
		reader:    reader,
		writer:    writer,
		checker:   checker,
		extractor: extractor,
		cache:     cache,
		events:    events,
		config:    config,
		logger:    logger,
	}
}

// Execute выполняет один прогон обхода. Сбои отдельных джобов и сборок
// учитываются в статистике и не прерывают прогон; ошибка возвращается
// только когда список view получить не удалось вовсе.
func (uc *IngestBuildsUseCase) Execute(ctx context.Context) (*RunSummary, error) {
	summary := NewRunSummary()

	views, err := uc.reader.ListViews(ctx)
	if err != nil {
		summary.Duration = time.Since(summary.StartedAt)
		return summary, fmt.Errorf("failed to list views: %w", err)
	}

	uc.logger.Info("Views discovered", "run_id", summary.RunID, "count", len(views))

	for _, view := range views {
		if uc.skipView(view.Name, len(views)) {
			continue
		}

		uc.logger.Info("Processing view", "view", view.Name, "jobs", len(view.Jobs))

		// Ограниченный параллелизм по джобам; сборки внутри джоба
		// обрабатываются последовательно
		g := new(errgroup.Group)
		g.SetLimit(uc.config.MaxConcurrentJobs)

		for _, job := range view.Jobs {
			if job.IsFolder() {
				uc.logger.Info("Skipping folder job", "job", job.Name)
				continue
			}

			job := job
			g.Go(func() error {
				uc.processJob(ctx, view.Name, job, summary)
				return nil
			})
		}

		_ = g.Wait()
	}

	summary.Duration = time.Since(summary.StartedAt)
	uc.logSummary(summary)

	return summary, nil
}

// skipView решает, нужно ли пропустить view. Синтетический агрегат "All"
// пропускается только когда он не единственный.
func (uc *IngestBuildsUseCase) skipView(name string, totalViews int) bool {
	if strings.EqualFold(name, "All") && totalViews > 1 {
		uc.logger.Info("Skipping 'All' view (other views exist)")
		return true
	}

	for _, excluded := range uc.config.ExcludedViews {
		if strings.EqualFold(name, excluded) {
			uc.logger.Info("Skipping excluded view", "view", name)
			return true
		}
	}

	return false
}

func (uc *IngestBuildsUseCase) processJob(ctx context.Context, viewName string, job entity.Job, summary *RunSummary) {
	summary.addJob()

	builds, err := uc.reader.ListBuilds(ctx, job.Path())
	if err != nil {
		uc.logger.Warn("Failed to fetch builds for job", "job", job.Path(), "error", err.Error())
		return
	}

	if len(builds) == 0 {
		uc.logger.Debug("No builds found for job", "job", job.Path())
		return
	}

	for _, build := range builds {
		detailed := uc.fetchDetail(ctx, job, build, summary)

		record := entity.BuildRecord{
			ProjectName: job.Name,
			ProjectPath: job.Path(),
			View:        viewName,
			Server:      uc.config.ServerTag,
			Build:       detailed,
		}

		uc.ingestBuild(ctx, record, summary)
	}
}

// fetchDetail дополняет сводную сборку деталями (actions с причинами).
// Сбой запроса деталей деградирует до сводных полей с Unknown-триггером
// и не мешает соседним сборкам того же джоба.
func (uc *IngestBuildsUseCase) fetchDetail(ctx context.Context, job entity.Job, build entity.Build, summary *RunSummary) entity.Build {
	detail, err := uc.reader.BuildDetail(ctx, job.Path(), build.Number)
	if err != nil {
		summary.addDetailFailure()
		uc.logger.Warn("Failed to fetch build details, using summary fields",
			"job", job.Path(), "build", build.Number, "error", err.Error())

		build.Trigger = entity.UnknownTriggerWithReason("Failed to get details")
		return build
	}

	// Недостающие детали замещаем сводными значениями
	if detail.Number == 0 {
		detail.Number = build.Number
	}
	if detail.Timestamp == 0 {
		detail.Timestamp = build.Timestamp
	}
	if detail.Duration == 0 {
		detail.Duration = build.Duration
	}
	if detail.URL == "" {
		detail.URL = build.URL
	}

	detail.Trigger = uc.extractor.ExtractTrigger(detail.Actions)
	return detail
}

func (uc *IngestBuildsUseCase) ingestBuild(ctx context.Context, record entity.BuildRecord, summary *RunSummary) {
	summary.countActor(record.Build.Trigger.Actor)

	identity := record.Identity()
	cacheKey := identity.Key()

	if uc.cache != nil && uc.cache.Seen(ctx, cacheKey) {
		summary.addSkipped()
		return
	}

	recorded, err := uc.checker.AlreadyRecorded(ctx, identity)
	if err != nil {
		// Fail-open: при сбое проверки пишем, рискуя дубликатом,
		// но не теряя сборку
		summary.addCheckFailure()
		uc.logger.Warn("Duplicate check failed, writing anyway",
			"project", record.ProjectName, "build", record.Build.Number, "error", err.Error())
	}

	if recorded {
		summary.addSkipped()
		if uc.cache != nil {
			uc.cache.MarkSeen(ctx, cacheKey)
		}
		return
	}

	if err := uc.writer.WriteRecord(ctx, record); err != nil {
		summary.addWriteFailure()
		uc.logger.Error("Failed to insert build", err,
			"project", record.ProjectName, "build", record.Build.Number)
		return
	}

	summary.addWritten()
	uc.logger.Info("Build inserted",
		"project", record.ProjectName,
		"build", record.Build.Number,
		"triggered_by", record.Build.Trigger.DisplayName)

	if uc.cache != nil {
		uc.cache.MarkSeen(ctx, cacheKey)
	}

	uc.publishEvent(ctx, record, summary.RunID)
}

func (uc *IngestBuildsUseCase) publishEvent(ctx context.Context, record entity.BuildRecord, runID string) {
	if uc.events == nil {
		return
	}

	event := buildIngestedEvent{
		RunID:       runID,
		Project:     record.ProjectName,
		View:        record.View,
		Server:      record.Server,
		BuildNumber: record.Build.Number,
		TriggerType: record.Build.Trigger.Category.String(),
		Actor:       record.Build.Trigger.Actor,
	}

	if err := uc.events.PublishEvent(ctx, uc.config.EventSubject, event); err != nil {
		uc.logger.Warn("Failed to publish ingestion event",
			"project", record.ProjectName, "build", record.Build.Number, "error", err.Error())
	}
}

func (uc *IngestBuildsUseCase) logSummary(summary *RunSummary) {
	uc.logger.Info("Run completed",
		"run_id", summary.RunID,
		"duration", summary.Duration.String(),
		"jobs_processed", summary.JobsProcessed,
		"builds_inserted", summary.BuildsWritten,
		"builds_skipped", summary.BuildsSkipped,
		"check_failures", summary.CheckFailures,
		"detail_failures", summary.DetailFailures,
		"write_failures", summary.WriteFailures,
	)

	for _, count := range summary.ActorCounts() {
		uc.logger.Info("User activity", "actor", count.Actor, "builds", count.Builds)
	}
}
