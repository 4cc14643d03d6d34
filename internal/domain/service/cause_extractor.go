package service

import (
	"fmt"
	"strings"

	"github.com/dreschagin/jenkins-collector/internal/domain/entity"
	"github.com/dreschagin/jenkins-collector/internal/domain/valueobject"
)

// Классы причин, которые CI-сервер присылает в поле _class
const (
	timerCauseClass    = "hudson.triggers.TimerTrigger$TimerTriggerCause"
	scmCauseClass      = "hudson.triggers.SCMTrigger$SCMTriggerCause"
	upstreamCauseClass = "org.jenkinsci.plugins.workflow.support.steps.build.BuildUpstreamCause"
	remoteCauseClass   = "hudson.model.Cause$RemoteCause"
	githubCauseMarker  = "GitHubPushCause"

	startedByUserPrefix = "Started by user "
)

// causeClassifier распознаёт одну форму причины запуска сборки.
// Возвращает false, если причина не этой формы.
type causeClassifier interface {
	Classify(cause map[string]interface{}) (entity.TriggerInfo, bool)
}

// CauseExtractor классифицирует причину запуска сборки по списку actions.
// Классификаторы упорядочены по приоритету: у сборки предполагается одна
// доминирующая причина, и формы с более высоким приоритетом выигрывают
// независимо от порядка причин в списке.
type CauseExtractor struct {
	classifiers []causeClassifier
}

// NewCauseExtractor создает экстрактор с фиксированной цепочкой форм
func NewCauseExtractor() *CauseExtractor {
	return &CauseExtractor{
		classifiers: []causeClassifier{
			userIDClassifier{},
			classMarkerClassifier{class: timerCauseClass, trigger: entity.TriggerInfo{
				Actor:       "System-Timer",
				DisplayName: "Jenkins Timer",
				Category:    valueobject.TriggerTimer,
				Description: "Scheduled/Cron trigger",
			}},
			classMarkerClassifier{class: scmCauseClass, trigger: entity.TriggerInfo{
				Actor:       "System-SCM",
				DisplayName: "Git/SCM Change",
				Category:    valueobject.TriggerSCM,
				Description: "Source code change detected",
			}},
			upstreamClassifier{},
			remoteClassifier{},
			webhookClassifier{},
			descriptionClassifier{},
		},
	}
}

// ExtractTrigger возвращает производные сведения о триггере сборки.
// Никогда не завершается ошибкой: если ни одна форма не распознана,
// все поля остаются в значении Unknown. Некорректные элементы причин
// (неожиданные типы, отсутствующие ключи) пропускаются.
func (e *CauseExtractor) ExtractTrigger(actions []entity.BuildAction) entity.TriggerInfo {
	for _, classifier := range e.classifiers {
		for _, action := range actions {
			for _, cause := range action.Causes {
				if cause == nil {
					continue
				}
				if trigger, ok := classifier.Classify(cause); ok {
					return trigger
				}
			}
		}
	}

	return entity.UnknownTrigger()
}

// userIDClassifier: причина несёт идентификатор пользователя — ручной запуск
type userIDClassifier struct{}

func (userIDClassifier) Classify(cause map[string]interface{}) (entity.TriggerInfo, bool) {
	userID, ok := stringField(cause, "userId")
	if !ok || userID == "" {
		return entity.TriggerInfo{}, false
	}

	displayName := userID
	if userName, ok := stringField(cause, "userName"); ok && userName != "" {
		displayName = userName
	}

	return entity.TriggerInfo{
		Actor:       userID,
		DisplayName: displayName,
		Category:    valueobject.TriggerManual,
		Description: fmt.Sprintf("Manually triggered by %s", displayName),
	}, true
}

// classMarkerClassifier: причина распознаётся по точному значению _class
// и даёт фиксированный системный TriggerInfo
type classMarkerClassifier struct {
	class   string
	trigger entity.TriggerInfo
}

func (c classMarkerClassifier) Classify(cause map[string]interface{}) (entity.TriggerInfo, bool) {
	if class, ok := stringField(cause, "_class"); ok && class == c.class {
		return c.trigger, true
	}
	return entity.TriggerInfo{}, false
}

// upstreamClassifier: сборку запустил вышестоящий джоб
type upstreamClassifier struct{}

func (upstreamClassifier) Classify(cause map[string]interface{}) (entity.TriggerInfo, bool) {
	class, _ := stringField(cause, "_class")
	upstreamProject, hasProject := stringField(cause, "upstreamProject")

	if class != upstreamCauseClass && !hasProject {
		return entity.TriggerInfo{}, false
	}
	if upstreamProject == "" {
		upstreamProject = entity.UnknownSentinel
	}

	upstreamBuild := scalarField(cause, "upstreamBuild")

	return entity.TriggerInfo{
		Actor:           "System-Upstream",
		DisplayName:     fmt.Sprintf("Upstream: %s", upstreamProject),
		Category:        valueobject.TriggerUpstream,
		Description:     fmt.Sprintf("Triggered by upstream job %s#%s", upstreamProject, upstreamBuild),
		UpstreamProject: upstreamProject,
		UpstreamBuild:   upstreamBuild,
	}, true
}

// remoteClassifier: сборка запущена удалённым вызовом API
type remoteClassifier struct{}

func (remoteClassifier) Classify(cause map[string]interface{}) (entity.TriggerInfo, bool) {
	class, ok := stringField(cause, "_class")
	if !ok || class != remoteCauseClass {
		return entity.TriggerInfo{}, false
	}

	addr, ok := stringField(cause, "addr")
	if !ok || addr == "" {
		addr = entity.UnknownSentinel
	}

	return entity.TriggerInfo{
		Actor:         "API-Remote",
		DisplayName:   fmt.Sprintf("Remote API (%s)", addr),
		Category:      valueobject.TriggerRemoteAPI,
		Description:   fmt.Sprintf("Remote API call from %s", addr),
		RemoteAddress: addr,
	}, true
}

// webhookClassifier: тип причины содержит маркер внешнего вебхука
// (проверка подстроки — точный класс зависит от версии плагина)
type webhookClassifier struct{}

func (webhookClassifier) Classify(cause map[string]interface{}) (entity.TriggerInfo, bool) {
	class, ok := stringField(cause, "_class")
	if !ok || !strings.Contains(class, githubCauseMarker) {
		return entity.TriggerInfo{}, false
	}

	return entity.TriggerInfo{
		Actor:       "GitHub-Webhook",
		DisplayName: "GitHub Push",
		Category:    valueobject.TriggerGitHub,
		Description: "GitHub webhook trigger",
	}, true
}

// descriptionClassifier — запасной вариант: разбор человекочитаемого
// описания. Хрупкая эвристика, привязанная к строкам CI-сервера,
// поэтому стоит последней в цепочке.
type descriptionClassifier struct{}

func (descriptionClassifier) Classify(cause map[string]interface{}) (entity.TriggerInfo, bool) {
	description, ok := stringField(cause, "shortDescription")
	if !ok {
		return entity.TriggerInfo{}, false
	}

	_, after, found := strings.Cut(description, startedByUserPrefix)
	if !found {
		return entity.TriggerInfo{}, false
	}

	actor := strings.TrimSpace(after)
	if actor == "" {
		return entity.TriggerInfo{}, false
	}

	return entity.TriggerInfo{
		Actor:       actor,
		DisplayName: actor,
		Category:    valueobject.TriggerManual,
		Description: description,
	}, true
}

func stringField(cause map[string]interface{}, key string) (string, bool) {
	value, ok := cause[key]
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// scalarField приводит строку или число к строке; JSON-декодер отдаёт
// числа как float64
func scalarField(cause map[string]interface{}, key string) string {
	switch value := cause[key].(type) {
	case string:
		return value
	case float64:
		return fmt.Sprintf("%d", int64(value))
	case int:
		return fmt.Sprintf("%d", value)
	default:
		return ""
	}
}
