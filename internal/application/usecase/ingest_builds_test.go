package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dreschagin/jenkins-collector/internal/domain/entity"
	"github.com/dreschagin/jenkins-collector/internal/domain/service"
	"github.com/dreschagin/jenkins-collector/internal/domain/valueobject"
	"github.com/dreschagin/jenkins-collector/pkg/logger"
)

type mockReader struct {
	views      []entity.View
	builds     map[string][]entity.Build
	details    map[string]entity.Build
	detailErr  map[string]error
	listErr    map[string]error
	listViewsE error
}

func detailKey(jobPath string, number int) string {
	return fmt.Sprintf("%s#%d", jobPath, number)
}

func (m *mockReader) ListViews(_ context.Context) ([]entity.View, error) {
	if m.listViewsE != nil {
		return nil, m.listViewsE
	}
	return m.views, nil
}

func (m *mockReader) ListBuilds(_ context.Context, jobPath string) ([]entity.Build, error) {
	if err, ok := m.listErr[jobPath]; ok {
		return nil, err
	}
	return m.builds[jobPath], nil
}

func (m *mockReader) BuildDetail(_ context.Context, jobPath string, number int) (entity.Build, error) {
	key := detailKey(jobPath, number)
	if err, ok := m.detailErr[key]; ok {
		return entity.Build{}, err
	}
	if detail, ok := m.details[key]; ok {
		return detail, nil
	}
	return entity.Build{Number: number}, nil
}

// mockStore implements both RecordWriter and DuplicateChecker; a write
// makes the identity observable to subsequent duplicate checks, the way
// the real store behaves.
type mockStore struct {
	mu         sync.Mutex
	written    []entity.BuildRecord
	recorded   map[entity.RecordIdentity]bool
	checkErr   error
	writeErr   error
	checkCalls int
}

func newMockStore() *mockStore {
	return &mockStore{recorded: make(map[entity.RecordIdentity]bool)}
}

func (s *mockStore) AlreadyRecorded(_ context.Context, identity entity.RecordIdentity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkCalls++
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.recorded[identity], nil
}

func (s *mockStore) WriteRecord(_ context.Context, record entity.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written = append(s.written, record)
	s.recorded[record.Identity()] = true
	return nil
}

type mockCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMockCache() *mockCache {
	return &mockCache{seen: make(map[string]bool)}
}

func (c *mockCache) Seen(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[key]
}

func (c *mockCache) MarkSeen(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[key] = true
}

func (c *mockCache) Close() error { return nil }

func newIngestUC(reader *mockReader, store *mockStore, cfg IngestConfig) *IngestBuildsUseCase {
	return NewIngestBuildsUseCase(
		reader, store, store,
		service.NewCauseExtractor(),
		nil, nil,
		cfg,
		logger.New("error"),
	)
}

func summaryBuild(number int) entity.Build {
	return entity.Build{
		Number:    number,
		Timestamp: 1700000000000,
		Duration:  1500,
		Result:    valueobject.ResultSuccess,
	}
}

func detailBuild(number int, causes ...map[string]interface{}) entity.Build {
	build := summaryBuild(number)
	build.Actions = []entity.BuildAction{{Causes: causes}}
	return build
}

func singleJobReader(viewName, jobName string, builds []entity.Build) *mockReader {
	return &mockReader{
		views: []entity.View{{
			Name: viewName,
			Jobs: []entity.Job{{Name: jobName, FullName: jobName, Class: "hudson.model.FreeStyleProject"}},
		}},
		builds:  map[string][]entity.Build{jobName: builds},
		details: map[string]entity.Build{},
	}
}

func TestExecute_IngestTwiceWritesOnce(t *testing.T) {
	reader := singleJobReader("CI", "app", []entity.Build{summaryBuild(42)})
	reader.details[detailKey("app", 42)] = detailBuild(42, map[string]interface{}{"userId": "alice"})
	store := newMockStore()

	uc := newIngestUC(reader, store, IngestConfig{})

	first, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	second, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}

	if len(store.written) != 1 {
		t.Fatalf("expected exactly one write across both runs, got %d", len(store.written))
	}
	if first.BuildsWritten != 1 {
		t.Errorf("first run BuildsWritten = %d, want 1", first.BuildsWritten)
	}
	if second.BuildsWritten != 0 || second.BuildsSkipped != 1 {
		t.Errorf("second run written=%d skipped=%d, want 0/1", second.BuildsWritten, second.BuildsSkipped)
	}
	if !second.Success() {
		t.Error("fully deduplicated run must still be a success")
	}
}

func TestExecute_AllViewSkippedOnlyWhenOthersExist(t *testing.T) {
	tests := []struct {
		name     string
		views    []entity.View
		wantJobs int
	}{
		{
			name: "All among others is skipped",
			views: []entity.View{
				{Name: "All", Jobs: []entity.Job{{Name: "a"}, {Name: "b"}}},
				{Name: "CI", Jobs: []entity.Job{{Name: "a"}}},
			},
			wantJobs: 1,
		},
		{
			name: "case-insensitive",
			views: []entity.View{
				{Name: "ALL", Jobs: []entity.Job{{Name: "a"}}},
				{Name: "CI", Jobs: []entity.Job{{Name: "a"}}},
			},
			wantJobs: 1,
		},
		{
			name:     "single All view is processed",
			views:    []entity.View{{Name: "All", Jobs: []entity.Job{{Name: "a"}, {Name: "b"}}}},
			wantJobs: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reader := &mockReader{views: tc.views}
			store := newMockStore()

			summary, err := newIngestUC(reader, store, IngestConfig{}).Execute(context.Background())
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			if summary.JobsProcessed != tc.wantJobs {
				t.Errorf("JobsProcessed = %d, want %d", summary.JobsProcessed, tc.wantJobs)
			}
		})
	}
}

func TestExecute_ExcludedViewSkipped(t *testing.T) {
	reader := &mockReader{
		views: []entity.View{
			{Name: "Monitoring", Jobs: []entity.Job{{Name: "probe"}}},
			{Name: "CI", Jobs: []entity.Job{{Name: "app"}}},
		},
	}
	store := newMockStore()

	summary, err := newIngestUC(reader, store, IngestConfig{
		ExcludedViews: []string{"monitoring"},
	}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if summary.JobsProcessed != 1 {
		t.Errorf("JobsProcessed = %d, want 1 (monitoring view excluded)", summary.JobsProcessed)
	}
}

func TestExecute_FolderJobsExcluded(t *testing.T) {
	reader := &mockReader{
		views: []entity.View{{
			Name: "CI",
			Jobs: []entity.Job{
				{Name: "team", FullName: "team", Class: "com.cloudbees.hudson.plugins.folder.Folder"},
				{Name: "app", FullName: "app", Class: "hudson.model.FreeStyleProject"},
			},
		}},
		builds: map[string][]entity.Build{"app": {summaryBuild(1)}},
	}
	store := newMockStore()

	summary, err := newIngestUC(reader, store, IngestConfig{}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if summary.JobsProcessed != 1 {
		t.Errorf("JobsProcessed = %d, want 1 (folder excluded)", summary.JobsProcessed)
	}
	for _, record := range store.written {
		if record.ProjectName == "team" {
			t.Error("folder job must yield zero fetched builds")
		}
	}
}

func TestExecute_DetailFailureDoesNotBlockSiblings(t *testing.T) {
	reader := singleJobReader("CI", "app", []entity.Build{summaryBuild(1), summaryBuild(2), summaryBuild(3)})
	reader.details[detailKey("app", 1)] = detailBuild(1, map[string]interface{}{"userId": "alice"})
	reader.details[detailKey("app", 3)] = detailBuild(3, map[string]interface{}{"userId": "bob"})
	reader.detailErr = map[string]error{detailKey("app", 2): errors.New("boom")}
	store := newMockStore()

	summary, err := newIngestUC(reader, store, IngestConfig{}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(store.written) != 3 {
		t.Fatalf("expected all 3 builds written, got %d", len(store.written))
	}
	if summary.DetailFailures != 1 {
		t.Errorf("DetailFailures = %d, want 1", summary.DetailFailures)
	}

	var degraded *entity.BuildRecord
	for i := range store.written {
		if store.written[i].Build.Number == 2 {
			degraded = &store.written[i]
		}
	}
	if degraded == nil {
		t.Fatal("build 2 was not written")
	}
	if degraded.Build.Trigger.Actor != entity.UnknownSentinel {
		t.Errorf("degraded build actor = %q, want Unknown", degraded.Build.Trigger.Actor)
	}
	if degraded.Build.Trigger.Description != "Failed to get details" {
		t.Errorf("degraded build description = %q", degraded.Build.Trigger.Description)
	}
	if degraded.Build.Timestamp != 1700000000000 {
		t.Errorf("degraded build must keep summary timestamp, got %d", degraded.Build.Timestamp)
	}
}

func TestExecute_DuplicateCheckFailureFailsOpen(t *testing.T) {
	reader := singleJobReader("CI", "app", []entity.Build{summaryBuild(7)})
	store := newMockStore()
	store.checkErr = errors.New("influx unreachable")

	summary, err := newIngestUC(reader, store, IngestConfig{}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(store.written) != 1 {
		t.Fatalf("fail-open check must not block the write, written = %d", len(store.written))
	}
	if summary.CheckFailures != 1 {
		t.Errorf("CheckFailures = %d, want 1", summary.CheckFailures)
	}
	if summary.BuildsSkipped != 0 {
		t.Errorf("check failure must not be counted as a duplicate, skipped = %d", summary.BuildsSkipped)
	}
}

func TestExecute_WriteFailureIsContained(t *testing.T) {
	reader := singleJobReader("CI", "app", []entity.Build{summaryBuild(7)})
	store := newMockStore()
	store.writeErr = errors.New("write refused")

	summary, err := newIngestUC(reader, store, IngestConfig{}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if summary.WriteFailures != 1 {
		t.Errorf("WriteFailures = %d, want 1", summary.WriteFailures)
	}
	if !summary.Success() {
		t.Error("run with a failed write still processed a job, must be success")
	}
}

func TestExecute_PerActorCountsAccumulate(t *testing.T) {
	reader := singleJobReader("CI", "app", []entity.Build{summaryBuild(1), summaryBuild(2), summaryBuild(3)})
	reader.details[detailKey("app", 1)] = detailBuild(1, map[string]interface{}{"userId": "alice"})
	reader.details[detailKey("app", 2)] = detailBuild(2, map[string]interface{}{"userId": "alice"})
	reader.details[detailKey("app", 3)] = detailBuild(3, map[string]interface{}{
		"_class": "hudson.triggers.TimerTrigger$TimerTriggerCause",
	})
	store := newMockStore()

	summary, err := newIngestUC(reader, store, IngestConfig{}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	counts := summary.ActorCounts()
	if len(counts) != 2 {
		t.Fatalf("expected 2 actors, got %d: %+v", len(counts), counts)
	}
	if counts[0].Actor != "alice" || counts[0].Builds != 2 {
		t.Errorf("top actor = %+v, want alice with 2 builds", counts[0])
	}
	if counts[1].Actor != "System-Timer" || counts[1].Builds != 1 {
		t.Errorf("second actor = %+v, want System-Timer with 1 build", counts[1])
	}
}

func TestExecute_DedupCacheShortCircuitsChecker(t *testing.T) {
	reader := singleJobReader("CI", "app", []entity.Build{summaryBuild(42)})
	store := newMockStore()
	cache := newMockCache()

	uc := NewIngestBuildsUseCase(
		reader, store, store,
		service.NewCauseExtractor(),
		cache, nil,
		IngestConfig{},
		logger.New("error"),
	)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	checksAfterFirst := store.checkCalls

	summary, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}

	if store.checkCalls != checksAfterFirst {
		t.Errorf("cached identity must skip the store lookup, checks = %d", store.checkCalls)
	}
	if summary.BuildsSkipped != 1 {
		t.Errorf("BuildsSkipped = %d, want 1", summary.BuildsSkipped)
	}
}

func TestExecute_ListViewsFailureReturnsError(t *testing.T) {
	reader := &mockReader{listViewsE: errors.New("jenkins down")}
	store := newMockStore()

	summary, err := newIngestUC(reader, store, IngestConfig{}).Execute(context.Background())
	if err == nil {
		t.Fatal("expected error when views cannot be listed")
	}
	if summary.Success() {
		t.Error("run without processed jobs must not be a success")
	}
}

func TestExecute_ServerTagAppliedToRecords(t *testing.T) {
	reader := singleJobReader("CI", "app", []entity.Build{summaryBuild(1)})
	store := newMockStore()

	_, err := newIngestUC(reader, store, IngestConfig{ServerTag: "jenkins-prod"}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(store.written) != 1 {
		t.Fatalf("expected 1 write, got %d", len(store.written))
	}
	if store.written[0].Server != "jenkins-prod" {
		t.Errorf("record server = %q, want jenkins-prod", store.written[0].Server)
	}
	if store.written[0].Identity().Server != "jenkins-prod" {
		t.Error("identity must carry the server tag for the duplicate check")
	}
}
