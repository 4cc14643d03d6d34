package valueobject

import "errors"

// Profile определяет состав записи в хранилище метрик (Value Object).
// Профиль влияет только на набор опциональных тегов/полей при кодировании
// и на учёт тега server при проверке дубликатов.
type Profile string

const (
	// ProfileBasic — только идентификация проекта и числовые поля сборки
	ProfileBasic Profile = "basic"

	// ProfileUserDetail — дополнительно теги триггера и текстовые поля
	// о пользователе, запустившем сборку
	ProfileUserDetail Profile = "user-detail"

	// ProfileMultiInstance — дополнительно тег server для различения
	// нескольких CI-инстансов, пишущих в одно хранилище
	ProfileMultiInstance Profile = "multi-instance"
)

// Validate проверяет валидность профиля
func (p Profile) Validate() error {
	switch p {
	case ProfileBasic, ProfileUserDetail, ProfileMultiInstance:
		return nil
	default:
		return errors.New("invalid collector profile")
	}
}

// String возвращает строковое представление профиля
func (p Profile) String() string {
	return string(p)
}
