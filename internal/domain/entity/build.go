package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/jenkins-collector/internal/domain/valueobject"
)

// UnknownSentinel — явное значение «неизвестно» для производных полей.
// Производные строковые поля никогда не остаются пустыми.
const UnknownSentinel = "Unknown"

// View представляет именованную группу джобов на CI-сервере.
// Перестраивается при каждом прогоне, никогда не сохраняется локально.
type View struct {
	Name string
	Jobs []Job
}

// Job представляет независимо собираемую единицу на CI-сервере
type Job struct {
	Name     string
	FullName string
	Class    string
}

// IsFolder сообщает, является ли джоб папкой-контейнером.
// Папки владеют дочерними джобами, но не имеют собственных сборок.
func (j Job) IsFolder() bool {
	return strings.Contains(j.Class, "Folder")
}

// Path возвращает полный путь джоба (для вложенных в папки джобов
// он отличается от имени)
func (j Job) Path() string {
	if j.FullName != "" {
		return j.FullName
	}
	return j.Name
}

// BuildAction — один элемент слабоструктурированного списка actions сборки.
// Причины запуска хранятся как произвольные JSON-объекты: их форма
// контролируется плагинами CI-сервера, а не нами.
type BuildAction struct {
	Causes []map[string]interface{}
}

// Build представляет одно выполнение джоба
type Build struct {
	Number    int
	Timestamp int64 // миллисекунды с начала эпохи
	Duration  int64 // миллисекунды; ноль если сборка идёт или не записано
	Result    valueobject.BuildResult
	URL       string
	Actions   []BuildAction
	Trigger   TriggerInfo
}

// StartTime возвращает время старта сборки в UTC
func (b Build) StartTime() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// TriggerInfo — производные (не авторитетные) сведения о том, кто или что
// запустило сборку. Вычисляется один раз и дальше не мутирует.
type TriggerInfo struct {
	Actor           string
	DisplayName     string
	Category        valueobject.TriggerCategory
	Description     string
	RemoteAddress   string
	UpstreamProject string
	UpstreamBuild   string
}

// UnknownTrigger возвращает TriggerInfo со всеми полями в значении Unknown
func UnknownTrigger() TriggerInfo {
	return TriggerInfo{
		Actor:       UnknownSentinel,
		DisplayName: UnknownSentinel,
		Category:    valueobject.TriggerUnknown,
		Description: UnknownSentinel,
	}
}

// UnknownTriggerWithReason возвращает Unknown-триггер с пояснением,
// почему данные недоступны (например, не удалось получить детали сборки)
func UnknownTriggerWithReason(reason string) TriggerInfo {
	trigger := UnknownTrigger()
	trigger.Description = reason
	return trigger
}

// BuildRecord — готовая к записи единица: идентификация проекта плюс сборка.
// Создаётся непосредственно перед кодированием и не переживает попытку записи.
type BuildRecord struct {
	ProjectName string
	ProjectPath string
	View        string
	Server      string
	Build       Build
}

// Identity возвращает идентификационный кортеж записи для проверки дубликатов
func (r BuildRecord) Identity() RecordIdentity {
	return RecordIdentity{
		ProjectName: r.ProjectName,
		ProjectPath: r.ProjectPath,
		View:        r.View,
		Server:      r.Server,
		BuildNumber: r.Build.Number,
	}
}

// RecordIdentity — кортеж, по которому запись считается уникальной
// на всё время жизни хранилища
type RecordIdentity struct {
	ProjectName string
	ProjectPath string
	View        string
	Server      string
	BuildNumber int
}

// Key возвращает строковый ключ идентичности (для кэша дубликатов)
func (id RecordIdentity) Key() string {
	return fmt.Sprintf("builds:seen:%s|%s|%s|%s|%d",
		id.ProjectName, id.ProjectPath, id.View, id.Server, id.BuildNumber)
}
