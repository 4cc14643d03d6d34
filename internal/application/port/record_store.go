package port

import (
	"context"

	"github.com/dreschagin/jenkins-collector/internal/domain/entity"
)

// RecordWriter пишет одну запись о сборке в хранилище метрик (Port)
type RecordWriter interface {
	WriteRecord(ctx context.Context, record entity.BuildRecord) error
}

// DuplicateChecker отвечает на вопрос, записана ли уже сборка с данной
// идентичностью. Ошибка проверки означает «считаем, что не записана»:
// политика fail-open, лишняя запись лучше молча потерянной сборки.
// Вызывающая сторона обязана учитывать такие ошибки отдельно от
// настоящих дубликатов.
type DuplicateChecker interface {
	AlreadyRecorded(ctx context.Context, identity entity.RecordIdentity) (bool, error)
}
