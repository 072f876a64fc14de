package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/events"
	"github.com/civicpulse/issue-service/internal/policy"
	"github.com/civicpulse/issue-service/internal/repository/repotest"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

// recordingDispatcher captures published events synchronously.
type recordingDispatcher struct {
	mu         sync.Mutex
	events     []events.Event
	publishErr error
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return d.publishErr
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store      *repotest.Store
	dispatcher *recordingDispatcher
	issues     *IssueService
	comments   *CommentService
	users      *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	dispatcher := &recordingDispatcher{}
	return &fixture{
		store:      store,
		dispatcher: dispatcher,
		issues: NewIssueService(IssueDependencies{
			IssueRepo:   store.Issues(),
			CommentRepo: store.Comments(),
			HistoryRepo: store.History(),
			UserRepo:    store.Users(),
			Dispatcher:  dispatcher,
		}),
		comments: NewCommentService(CommentDependencies{IssueRepo: store.Issues(), CommentRepo: store.Comments()}),
		users:    NewUserService(UserDependencies{UserRepo: store.Users()}),
	}
}

func (f *fixture) user(t *testing.T, name string, role domain.Role) policy.Actor {
	t.Helper()
	u := &domain.User{Name: name, Email: name + "@example.com", Role: role}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return policy.Actor{ID: u.ID, Role: u.Role}
}

func (f *fixture) issue(t *testing.T, reporter policy.Actor, status domain.IssueStatus) *domain.Issue {
	t.Helper()
	issue, err := f.issues.Create(context.Background(), reporter, IssueCreateInput{
		Title:       "Pothole",
		Description: "Big pothole on 5th",
		Location:    "5th Ave",
		Category:    domain.CategoryRoads,
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if status != domain.IssueStatusReported {
		admin := policy.Actor{ID: "system", Role: domain.RoleAdmin}
		if _, err := f.issues.Update(context.Background(), admin, issue.ID, IssueUpdateInput{Status: &status}); err != nil {
			t.Fatalf("set status: %v", err)
		}
	}
	return issue
}

// steppingClock returns strictly increasing timestamps.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func ptr[T any](v T) *T { return &v }

var errBoom = errors.New("boom")

func actorOf(u *domain.User) policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role}
}

func mustCreate(t *testing.T, svc *IssueService, reporter *domain.User) *domain.Issue {
	t.Helper()
	issue, err := svc.Create(context.Background(), actorOf(reporter), IssueCreateInput{
		Title:       "Streetlight out",
		Description: "Dark corner",
		Location:    "Main St",
		Category:    domain.CategoryElectricity,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return issue
}
