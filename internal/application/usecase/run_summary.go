package usecase

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunSummary — накопленная статистика одного прогона. Счётчики живут
// только внутри прогона и возвращаются вызывающей стороне значением,
// а не через состояние процесса.
type RunSummary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	mu             sync.Mutex
	JobsProcessed  int
	BuildsWritten  int
	BuildsSkipped  int
	CheckFailures  int
	DetailFailures int
	WriteFailures  int
	PerActor       map[string]int
}

// ActorCount — число сборок, запущенных одним актором
type ActorCount struct {
	Actor  string
	Builds int
}

// NewRunSummary создает пустую статистику с новым идентификатором прогона
func NewRunSummary() *RunSummary {
	return &RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		PerActor:  make(map[string]int),
	}
}

// Success сообщает итог прогона: успех — это хотя бы один обработанный
// джоб; прогон, где все сборки оказались дубликатами, тоже успешен.
func (s *RunSummary) Success() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.JobsProcessed > 0
}

// ActorCounts возвращает статистику по акторам, отсортированную
// по убыванию числа сборок
func (s *RunSummary) ActorCounts() []ActorCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make([]ActorCount, 0, len(s.PerActor))
	for actor, builds := range s.PerActor {
		counts = append(counts, ActorCount{Actor: actor, Builds: builds})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Builds != counts[j].Builds {
			return counts[i].Builds > counts[j].Builds
		}
		return counts[i].Actor < counts[j].Actor
	})

	return counts
}

func (s *RunSummary) addJob() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.JobsProcessed++
}

func (s *RunSummary) addWritten() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BuildsWritten++
}

func (s *RunSummary) addSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BuildsSkipped++
}

func (s *RunSummary) addCheckFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CheckFailures++
}

func (s *RunSummary) addDetailFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DetailFailures++
}

func (s *RunSummary) addWriteFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WriteFailures++
}

func (s *RunSummary) countActor(actor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PerActor[actor]++
}
