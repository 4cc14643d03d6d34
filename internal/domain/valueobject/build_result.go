package valueobject

// BuildResult представляет итоговый статус сборки (Value Object)
type BuildResult string

const (
	ResultSuccess  BuildResult = "SUCCESS"
	ResultFailure  BuildResult = "FAILURE"
	ResultUnstable BuildResult = "UNSTABLE"
	ResultAborted  BuildResult = "ABORTED"
	ResultUnknown  BuildResult = "UNKNOWN"
)

// ParseBuildResult приводит сырую строку CI-сервера к известному статусу.
// Пустая строка (сборка ещё идёт) и нераспознанные значения дают UNKNOWN.
func ParseBuildResult(raw string) BuildResult {
	switch BuildResult(raw) {
	case ResultSuccess, ResultFailure, ResultUnstable, ResultAborted:
		return BuildResult(raw)
	default:
		return ResultUnknown
	}
}

// String возвращает строковое представление статуса
func (r BuildResult) String() string {
	return string(r)
}
