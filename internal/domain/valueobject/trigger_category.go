package valueobject

// TriggerCategory представляет категорию причины запуска сборки (Value Object)
type TriggerCategory string

const (
	TriggerManual    TriggerCategory = "Manual"
	TriggerTimer     TriggerCategory = "Timer"
	TriggerSCM       TriggerCategory = "SCM"
	TriggerUpstream  TriggerCategory = "Upstream"
	TriggerRemoteAPI TriggerCategory = "Remote-API"
	TriggerGitHub    TriggerCategory = "GitHub"
	TriggerUnknown   TriggerCategory = "Unknown"
)

// String возвращает строковое представление категории
func (c TriggerCategory) String() string {
	return string(c)
}
