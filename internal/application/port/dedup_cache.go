package port

import "context"

// DedupCache — опциональный кэш уже записанных идентичностей перед
// обращением к хранилищу метрик (Port). Ошибки кэша не различаются:
// промах и сбой одинаково ведут к честной проверке в хранилище.
type DedupCache interface {
	// Seen сообщает, встречался ли ключ идентичности ранее
	Seen(ctx context.Context, key string) bool

	// MarkSeen помечает ключ идентичности как записанный
	MarkSeen(ctx context.Context, key string)

	// Close закрывает соединение с кэшем
	Close() error
}
