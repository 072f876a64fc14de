package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/api/dto"
	"github.com/civicpulse/issue-service/internal/api/http/handlers"
	"github.com/civicpulse/issue-service/internal/auth"
	"github.com/civicpulse/issue-service/internal/config"
	"github.com/civicpulse/issue-service/internal/domain"
	"github.com/civicpulse/issue-service/internal/events"
	"github.com/civicpulse/issue-service/internal/observability"
	"github.com/civicpulse/issue-service/internal/ratelimit"
	"github.com/civicpulse/issue-service/internal/repository/repotest"
	"github.com/civicpulse/issue-service/internal/service"
	"github.com/civicpulse/issue-service/internal/storage"
)

type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) ofType(t events.EventType) []events.Event {
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

type fakeImageStore struct{ uploads int }

func (s *fakeImageStore) Upload(_ context.Context, contentType string, body io.Reader, size int64) (string, error) {
	s.uploads++
	return "https://cdn.example.com/issues/test.png", nil
}

type testEnv struct {
	app        *fiber.App
	store      *repotest.Store
	auth       *service.AuthService
	dispatcher *captureDispatcher
}

type envOptions struct {
	quota *ratelimit.Limiter
	store storage.ImageStore
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	store := repotest.NewStore()
	dispatcher := &captureDispatcher{}
	authSvc := service.NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
		service.AuthDependencies{UserRepo: store.Users()})
	issueSvc := service.NewIssueService(service.IssueDependencies{
		IssueRepo:   store.Issues(),
		CommentRepo: store.Comments(),
		HistoryRepo: store.History(),
		UserRepo:    store.Users(),
		Dispatcher:  dispatcher,
	})
	commentSvc := service.NewCommentService(service.CommentDependencies{IssueRepo: store.Issues(), CommentRepo: store.Comments()})
	userSvc := service.NewUserService(service.UserDependencies{UserRepo: store.Users()})

	validator := dto.NewValidator()
	metrics := observability.NewMetrics()
	app := NewApp(config.AppConfig{Name: "test", CORSAllowOrigins: "*"}, 1<<20, zap.NewNop(), metrics)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", nil, nil),
		Auth:           handlers.NewAuthHandler(authSvc, validator),
		Issues:         handlers.NewIssuesHandler(issueSvc, validator),
		Comments:       handlers.NewCommentsHandler(commentSvc, validator),
		Users:          handlers.NewUsersHandler(userSvc, issueSvc, validator),
		Uploads:        handlers.NewUploadsHandler(opts.store, 1<<20),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager(), store.Users()),
		IssueQuota:     opts.quota,
		Metrics:        metrics,
	})
	return &testEnv{app: app, store: store, auth: authSvc, dispatcher: dispatcher}
}

// login creates a user with the given role directly in the store and returns its id and token.
func (e *testEnv) login(t *testing.T, name string, role domain.Role) (string, string) {
	t.Helper()
	user := &domain.User{Name: name, Email: name + "@example.com", Role: role}
	if err := e.store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _, err := e.auth.TokenManager().GenerateToken(user)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return user.ID, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *nethttp.Request) (int, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func dataOf(t *testing.T, body map[string]any, key string) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data in %v", body)
	}
	if key == "" {
		return data
	}
	obj, ok := data[key].(map[string]any)
	if !ok {
		t.Fatalf("missing data.%s in %v", key, body)
	}
	return obj
}

func listOf(t *testing.T, body map[string]any, key string) []any {
	t.Helper()
	items, ok := dataOf(t, body, "")[key].([]any)
	if !ok {
		t.Fatalf("missing data.%s list in %v", key, body)
	}
	return items
}

func expectError(t *testing.T, status int, body map[string]any, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status = %d, want %d (body %v)", status, wantStatus, body)
	}
	if body["status"] != "error" || body["code"] != wantCode {
		t.Fatalf("expected error envelope with %s, got %v", wantCode, body)
	}
}

var pothole = map[string]any{
	"title":       "Pothole",
	"description": "Big pothole on 5th",
	"location":    "5th Ave",
	"category":    "ROADS",
}

func (e *testEnv) createIssue(t *testing.T, token string) string {
	t.Helper()
	status, body := e.do(t, fiber.MethodPost, "/api/issues", token, pothole)
	if status != fiber.StatusCreated {
		t.Fatalf("create issue: %d %v", status, body)
	}
	return dataOf(t, body, "issue")["id"].(string)
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	status, body := env.do(t, fiber.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Avery", "email": "avery@example.com", "password": "secret1",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("register: %d %v", status, body)
	}
	data := dataOf(t, body, "")
	user := data["user"].(map[string]any)
	if user["role"] != "CITIZEN" || data["token"] == "" {
		t.Fatalf("unexpected register payload: %v", data)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatal("password hash leaked")
	}
	token := data["token"].(string)

	status, body = env.do(t, fiber.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Again", "email": "AVERY@example.com", "password": "secret1",
	})
	expectError(t, status, body, fiber.StatusConflict, "CONFLICT")

	status, body = env.do(t, fiber.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "", "email": "bad", "password": "1",
	})
	expectError(t, status, body, fiber.StatusBadRequest, "VALIDATION_FAILED")
	if errs, ok := body["errors"].(map[string]any); !ok || errs["email"] == nil || errs["password"] == nil {
		t.Fatalf("expected per-field errors, got %v", body)
	}

	status, body = env.do(t, fiber.MethodPost, "/api/auth/login", "", map[string]any{"email": "avery@example.com", "password": "wrong"})
	expectError(t, status, body, fiber.StatusUnauthorized, "UNAUTHENTICATED")

	status, _ = env.do(t, fiber.MethodPost, "/api/auth/login", "", map[string]any{"email": "avery@example.com", "password": "secret1"})
	if status != fiber.StatusOK {
		t.Fatalf("login status = %d", status)
	}

	status, body = env.do(t, fiber.MethodGet, "/api/auth/me", token, nil)
	if status != fiber.StatusOK || dataOf(t, body, "user")["email"] != "avery@example.com" {
		t.Fatalf("me: %d %v", status, body)
	}

	status, body = env.do(t, fiber.MethodGet, "/api/auth/me", "", nil)
	expectError(t, status, body, fiber.StatusUnauthorized, "UNAUTHENTICATED")
	status, body = env.do(t, fiber.MethodGet, "/api/auth/me", "garbage", nil)
	expectError(t, status, body, fiber.StatusUnauthorized, "INVALID_TOKEN")
}

func TestCreateIssueEndpoint(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	citizenID, token := env.login(t, "citizen", domain.RoleCitizen)

	status, body := env.do(t, fiber.MethodPost, "/api/issues", token, pothole)
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, body %v", status, body)
	}
	issue := dataOf(t, body, "issue")
	if issue["status"] != "REPORTED" || issue["reporterId"] != citizenID || issue["category"] != "ROADS" {
		t.Fatalf("unexpected issue: %v", issue)
	}
	if n := len(env.dispatcher.ofType(events.EventIssueCreated)); n != 1 {
		t.Fatalf("expected one IssueCreated event, got %d", n)
	}

	status, body = env.do(t, fiber.MethodPost, "/api/issues", "", pothole)
	expectError(t, status, body, fiber.StatusUnauthorized, "UNAUTHENTICATED")

	status, body = env.do(t, fiber.MethodPost, "/api/issues", token, map[string]any{
		"title": "  ", "description": "d", "location": "l", "category": "POTHOLES",
	})
	expectError(t, status, body, fiber.StatusBadRequest, "VALIDATION_FAILED")
	errs := body["errors"].(map[string]any)
	if errs["title"] == nil || errs["category"] == nil {
		t.Fatalf("expected title and category errors, got %v", errs)
	}
}

func TestGetIssueIsPublicAndIdempotent(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, token := env.login(t, "citizen", domain.RoleCitizen)
	id := env.createIssue(t, token)
	env.do(t, fiber.MethodPost, "/api/issues/"+id+"/comments", token, map[string]any{"content": "me too"})

	status, first := env.do(t, fiber.MethodGet, "/api/issues/"+id, "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	_, second := env.do(t, fiber.MethodGet, "/api/issues/"+id, "", nil)
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Fatalf("repeated GET differs:\n%s\n%s", a, b)
	}
	issue := dataOf(t, first, "issue")
	if issue["reporter"] == nil || len(issue["comments"].([]any)) != 1 {
		t.Fatalf("expected reporter and comments, got %v", issue)
	}

	status, body := env.do(t, fiber.MethodGet, "/api/issues/does-not-exist", "", nil)
	expectError(t, status, body, fiber.StatusNotFound, "NOT_FOUND")
}

func TestUpdateIssueStatusByOfficial(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, reporterToken := env.login(t, "reporter", domain.RoleCitizen)
	_, officialToken := env.login(t, "official", domain.RoleOfficial)
	_, otherToken := env.login(t, "other", domain.RoleCitizen)
	id := env.createIssue(t, reporterToken)

	status, body := env.do(t, fiber.MethodPut, "/api/issues/"+id, officialToken, map[string]any{"status": "RESOLVED"})
	if status != fiber.StatusOK || dataOf(t, body, "issue")["status"] != "RESOLVED" {
		t.Fatalf("update: %d %v", status, body)
	}
	changed := env.dispatcher.ofType(events.EventIssueStatusChanged)
	if len(changed) != 1 {
		t.Fatalf("expected exactly one status notification, got %d", len(changed))
	}
	payload := changed[0].Payload.(events.IssueStatusChangedPayload)
	if payload.OldStatus != domain.IssueStatusReported || payload.NewStatus != domain.IssueStatusResolved {
		t.Fatalf("unexpected transition %s -> %s", payload.OldStatus, payload.NewStatus)
	}

	status, body = env.do(t, fiber.MethodGet, "/api/issues/"+id+"/history", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	if entries := listOf(t, body, "history"); len(entries) != 1 || entries[0].(map[string]any)["newValue"] != "RESOLVED" {
		t.Fatalf("unexpected history: %v", entries)
	}

	status, body = env.do(t, fiber.MethodPut, "/api/issues/"+id, otherToken, map[string]any{"status": "CLOSED"})
	expectError(t, status, body, fiber.StatusForbidden, "FORBIDDEN")

	status, body = env.do(t, fiber.MethodPut, "/api/issues/"+id, officialToken, map[string]any{"status": "DONE"})
	expectError(t, status, body, fiber.StatusBadRequest, "VALIDATION_FAILED")

	status, body = env.do(t, fiber.MethodPut, "/api/issues/missing", otherToken, map[string]any{"title": "x"})
	expectError(t, status, body, fiber.StatusNotFound, "NOT_FOUND")
}

func TestDeleteIssueEndpoint(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, reporterToken := env.login(t, "reporter", domain.RoleCitizen)
	_, otherToken := env.login(t, "other", domain.RoleCitizen)
	_, officialToken := env.login(t, "official", domain.RoleOfficial)
	id := env.createIssue(t, reporterToken)
	for i := 0; i < 3; i++ {
		env.do(t, fiber.MethodPost, "/api/issues/"+id+"/comments", otherToken, map[string]any{"content": "comment"})
	}

	status, body := env.do(t, fiber.MethodDelete, "/api/issues/"+id, otherToken, nil)
	expectError(t, status, body, fiber.StatusForbidden, "FORBIDDEN")
	status, body = env.do(t, fiber.MethodDelete, "/api/issues/"+id, officialToken, nil)
	expectError(t, status, body, fiber.StatusForbidden, "FORBIDDEN")
	if status, _ := env.do(t, fiber.MethodGet, "/api/issues/"+id, "", nil); status != fiber.StatusOK {
		t.Fatalf("issue should remain after forbidden delete, got %d", status)
	}

	status, _ = env.do(t, fiber.MethodDelete, "/api/issues/"+id, reporterToken, nil)
	if status != fiber.StatusOK {
		t.Fatalf("reporter delete status = %d", status)
	}
	if n := env.store.CommentCount(id); n != 0 {
		t.Fatalf("%d comments outlived their issue", n)
	}
	status, body = env.do(t, fiber.MethodGet, "/api/issues/"+id+"/comments", "", nil)
	expectError(t, status, body, fiber.StatusNotFound, "NOT_FOUND")
}

func TestListIssuesPagination(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	reporterID, _ := env.login(t, "reporter", domain.RoleCitizen)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		status := domain.IssueStatusResolved
		if i%5 == 4 {
			status = domain.IssueStatusReported
		}
		issue := &domain.Issue{
			Title: "Issue", Description: "d", Location: "l",
			Category: domain.CategoryWater, Status: status, ReporterID: reporterID,
		}
		if err := env.store.Issues().Create(ctx, issue); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	status, body := env.do(t, fiber.MethodGet, "/api/issues?status=RESOLVED&page=2&limit=5", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if got := len(listOf(t, body, "issues")); got != 5 {
		t.Fatalf("items = %d, want 5", got)
	}
	if body["results"] != float64(5) {
		t.Fatalf("results = %v", body["results"])
	}
	want := map[string]any{"total": float64(12), "page": float64(2), "limit": float64(5), "pages": float64(3)}
	pagination := body["pagination"].(map[string]any)
	for k, v := range want {
		if pagination[k] != v {
			t.Fatalf("pagination.%s = %v, want %v", k, pagination[k], v)
		}
	}

	_, body = env.do(t, fiber.MethodGet, "/api/issues?status=RESOLVED&page=9&limit=5", "", nil)
	if len(listOf(t, body, "issues")) != 0 || body["pagination"].(map[string]any)["total"] != float64(12) {
		t.Fatalf("beyond last page: %v", body)
	}

	_, body = env.do(t, fiber.MethodGet, "/api/issues?limit=0", "", nil)
	if body["pagination"].(map[string]any)["limit"] != float64(1) {
		t.Fatalf("limit=0 should clamp to 1, got %v", body["pagination"])
	}

	status, body = env.do(t, fiber.MethodGet, "/api/issues?category=LAVA", "", nil)
	expectError(t, status, body, fiber.StatusBadRequest, "VALIDATION_FAILED")
}

func TestCommentsAndUpvotes(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, reporterToken := env.login(t, "reporter", domain.RoleCitizen)
	_, otherToken := env.login(t, "other", domain.RoleCitizen)
	_, adminToken := env.login(t, "admin", domain.RoleAdmin)
	id := env.createIssue(t, reporterToken)

	for i := 0; i < 3; i++ {
		status, _ := env.do(t, fiber.MethodPost, "/api/issues/"+id+"/upvote", otherToken, nil)
		if status != fiber.StatusOK {
			t.Fatalf("upvote status = %d", status)
		}
	}
	_, body := env.do(t, fiber.MethodGet, "/api/issues/"+id, "", nil)
	if dataOf(t, body, "issue")["upvotes"] != float64(3) {
		t.Fatalf("upvotes = %v", dataOf(t, body, "issue")["upvotes"])
	}
	status, body := env.do(t, fiber.MethodPost, "/api/issues/"+id+"/upvote", "", nil)
	expectError(t, status, body, fiber.StatusUnauthorized, "UNAUTHENTICATED")

	status, body = env.do(t, fiber.MethodPost, "/api/issues/"+id+"/comments", otherToken, map[string]any{"content": "  "})
	expectError(t, status, body, fiber.StatusBadRequest, "VALIDATION_FAILED")

	status, body = env.do(t, fiber.MethodPost, "/api/issues/"+id+"/comments", otherToken, map[string]any{"content": "Seen it too"})
	if status != fiber.StatusCreated {
		t.Fatalf("comment status = %d %v", status, body)
	}
	comment := dataOf(t, body, "comment")
	author := comment["author"].(map[string]any)
	if author["name"] != "other" {
		t.Fatalf("author projection missing: %v", comment)
	}
	commentID := comment["id"].(string)

	status, body = env.do(t, fiber.MethodGet, "/api/issues/"+id+"/comments", "", nil)
	if status != fiber.StatusOK || len(listOf(t, body, "comments")) != 1 {
		t.Fatalf("list comments: %d %v", status, body)
	}

	status, body = env.do(t, fiber.MethodDelete, "/api/issues/"+id+"/comments/"+commentID, reporterToken, nil)
	expectError(t, status, body, fiber.StatusForbidden, "FORBIDDEN")
	status, _ = env.do(t, fiber.MethodDelete, "/api/issues/"+id+"/comments/"+commentID, adminToken, nil)
	if status != fiber.StatusOK {
		t.Fatalf("admin delete comment status = %d", status)
	}
	if status, _ := env.do(t, fiber.MethodGet, "/api/issues/"+id, "", nil); status != fiber.StatusOK {
		t.Fatal("deleting a comment must not affect the issue")
	}
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	citizenID, citizenToken := env.login(t, "citizen", domain.RoleCitizen)
	_, otherToken := env.login(t, "other", domain.RoleCitizen)
	officialID, officialToken := env.login(t, "official", domain.RoleOfficial)
	_, adminToken := env.login(t, "admin", domain.RoleAdmin)
	env.createIssue(t, citizenToken)
	env.createIssue(t, citizenToken)

	status, body := env.do(t, fiber.MethodGet, "/api/users", citizenToken, nil)
	expectError(t, status, body, fiber.StatusForbidden, "FORBIDDEN")

	status, body = env.do(t, fiber.MethodGet, "/api/users?role=CITIZEN", adminToken, nil)
	if status != fiber.StatusOK {
		t.Fatalf("list users: %d %v", status, body)
	}
	users := listOf(t, body, "users")
	if len(users) != 2 {
		t.Fatalf("expected 2 citizens, got %d", len(users))
	}
	for _, raw := range users {
		u := raw.(map[string]any)
		if u["id"] == citizenID && u["issueCount"] != float64(2) {
			t.Fatalf("issueCount = %v", u["issueCount"])
		}
	}

	status, body = env.do(t, fiber.MethodGet, "/api/users/"+citizenID, otherToken, nil)
	expectError(t, status, body, fiber.StatusForbidden, "FORBIDDEN")
	if status, _ := env.do(t, fiber.MethodGet, "/api/users/"+citizenID, citizenToken, nil); status != fiber.StatusOK {
		t.Fatalf("self view status = %d", status)
	}
	status, body = env.do(t, fiber.MethodGet, "/api/users/missing", otherToken, nil)
	expectError(t, status, body, fiber.StatusNotFound, "NOT_FOUND")

	status, body = env.do(t, fiber.MethodPut, "/api/users/"+citizenID, citizenToken, map[string]any{"name": "Renamed"})
	if status != fiber.StatusOK || dataOf(t, body, "user")["name"] != "Renamed" {
		t.Fatalf("update self: %d %v", status, body)
	}

	status, body = env.do(t, fiber.MethodGet, "/api/users/"+citizenID+"/issues", officialToken, nil)
	if status != fiber.StatusOK || len(listOf(t, body, "issues")) != 2 {
		t.Fatalf("official listing user issues: %d %v", status, body)
	}
	status, body = env.do(t, fiber.MethodGet, "/api/users/"+citizenID+"/issues", otherToken, nil)
	expectError(t, status, body, fiber.StatusForbidden, "FORBIDDEN")

	status, body = env.do(t, fiber.MethodPut, "/api/users/"+citizenID+"/role", officialToken, map[string]any{"role": "ADMIN"})
	expectError(t, status, body, fiber.StatusForbidden, "FORBIDDEN")
	status, body = env.do(t, fiber.MethodPut, "/api/users/"+citizenID+"/role", adminToken, map[string]any{"role": "ROOT"})
	expectError(t, status, body, fiber.StatusBadRequest, "VALIDATION_FAILED")

	status, body = env.do(t, fiber.MethodPut, "/api/users/"+officialID+"/role", adminToken, map[string]any{"role": "ADMIN"})
	if status != fiber.StatusOK || dataOf(t, body, "user")["role"] != "ADMIN" {
		t.Fatalf("change role: %d %v", status, body)
	}
	// The existing token picks up the new role on the next request.
	if status, _ := env.do(t, fiber.MethodGet, "/api/users", officialToken, nil); status != fiber.StatusOK {
		t.Fatalf("promoted user listing users: %d", status)
	}
}

func TestUnmatchedRouteUsesErrorEnvelope(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	status, body := env.do(t, fiber.MethodGet, "/api/nothing-here", "", nil)
	expectError(t, status, body, fiber.StatusNotFound, "NOT_FOUND")
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	if status, body := env.do(t, fiber.MethodGet, "/health/live", "", nil); status != fiber.StatusOK || body["status"] != "alive" {
		t.Fatalf("live: %d %v", status, body)
	}
	status, body := env.do(t, fiber.MethodGet, "/health/ready", "", nil)
	expectError(t, status, body, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(raw), "http_requests_total") {
		t.Fatalf("metrics output missing request counter: %d", resp.StatusCode)
	}
}

func TestIssueQuota(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := newTestEnv(t, envOptions{quota: ratelimit.New(client, "issues", 2, 24*time.Hour)})
	_, token := env.login(t, "citizen", domain.RoleCitizen)
	_, otherToken := env.login(t, "other", domain.RoleCitizen)

	env.createIssue(t, token)
	env.createIssue(t, token)

	req := httptest.NewRequest(fiber.MethodPost, "/api/issues", bytes.NewReader(mustJSON(t, pothole)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusTooManyRequests || resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", resp.StatusCode)
	}

	// Quotas are per user.
	env.createIssue(t, otherToken)

	// Redis outage fails open.
	mr.Close()
	env.createIssue(t, token)
}

func TestUploadEndpoint(t *testing.T) {
	multipartRequest := func(t *testing.T, token, contentType string, payload []byte) *nethttp.Request {
		t.Helper()
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write(payload)
		_ = w.Close()
		req := httptest.NewRequest(fiber.MethodPost, "/api/uploads", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req
	}

	t.Run("storage not configured", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		_, token := env.login(t, "citizen", domain.RoleCitizen)
		status, body := env.send(t, multipartRequest(t, token, "image/png", []byte("png")))
		expectError(t, status, body, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
	})

	t.Run("stores image", func(t *testing.T) {
		store := &fakeImageStore{}
		env := newTestEnv(t, envOptions{store: store})
		_, token := env.login(t, "citizen", domain.RoleCitizen)

		status, body := env.send(t, multipartRequest(t, token, "image/png", []byte("png-bytes")))
		if status != fiber.StatusCreated || dataOf(t, body, "")["url"] == "" || store.uploads != 1 {
			t.Fatalf("upload: %d %v", status, body)
		}

		status, body = env.send(t, multipartRequest(t, token, "application/pdf", []byte("%PDF")))
		expectError(t, status, body, fiber.StatusBadRequest, "VALIDATION_FAILED")

		status, body = env.send(t, multipartRequest(t, "", "image/png", []byte("png")))
		expectError(t, status, body, fiber.StatusUnauthorized, "UNAUTHENTICATED")
	})
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
