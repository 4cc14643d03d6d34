package port

import (
	"context"

	"github.com/dreschagin/jenkins-collector/internal/domain/entity"
)

// CIReader определяет интерфейс чтения иерархии view/job/build
// с CI-сервера (Port). Реализация будет в Infrastructure слое.
type CIReader interface {
	// ListViews возвращает все view с вложенными джобами
	ListViews(ctx context.Context) ([]entity.View, error)

	// ListBuilds возвращает сводный список сборок джоба
	// (номер, время, длительность, результат — без actions)
	ListBuilds(ctx context.Context, jobPath string) ([]entity.Build, error)

	// BuildDetail возвращает полные детали одной сборки,
	// включая список actions с причинами запуска
	BuildDetail(ctx context.Context, jobPath string, number int) (entity.Build, error)
}
