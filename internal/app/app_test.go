package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"teamtasks/internal/config"
)

type testApp struct {
	t   *testing.T
	app *App
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Database.Driver = config.DriverMemory
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = time.Hour

	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	a, err := Build(cfg, store)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Dispatcher.Wait)
	return &testApp{t: t, app: a}
}

func (ta *testApp) do(method, path, token string, body any) (int, map[string]any) {
	ta.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ta.app.Router.ServeHTTP(w, req)

	out := map[string]any{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			ta.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

func (ta *testApp) register(name, email string) (string, int64) {
	ta.t.Helper()
	code, body := ta.do(http.MethodPost, "/api/auth/user/register", "", map[string]string{
		"name": name, "email": email, "password": "secret1",
	})
	if code != http.StatusCreated {
		ta.t.Fatalf("register %s: %d %v", email, code, body)
	}
	user := body["user"].(map[string]any)
	return body["token"].(string), int64(user["id"].(float64))
}

func (ta *testApp) adminToken() string {
	ta.t.Helper()
	if _, err := ta.app.Users.CreateAdmin(context.Background(), "Ada", "ada@team.io", "secret1"); err != nil {
		ta.t.Fatal(err)
	}
	code, body := ta.do(http.MethodPost, "/api/auth/admin/login", "", map[string]string{
		"email": "ada@team.io", "password": "secret1",
	})
	if code != http.StatusOK {
		ta.t.Fatalf("admin login: %d %v", code, body)
	}
	return body["token"].(string)
}

func (ta *testApp) createTask(admin string, assignee int64, title string) int64 {
	ta.t.Helper()
	code, body := ta.do(http.MethodPost, "/api/tasks", admin, map[string]any{
		"title": title, "description": "details", "assignedTo": assignee,
		"priority": "High", "dueDate": "2030-01-02",
	})
	if code != http.StatusCreated {
		ta.t.Fatalf("create task: %d %v", code, body)
	}
	return int64(body["task"].(map[string]any)["id"].(float64))
}

func message(body map[string]any) string {
	s, _ := body["message"].(string)
	return s
}

func TestCredentialGate(t *testing.T) {
	ta := newTestApp(t)

	code, body := ta.do(http.MethodGet, "/api/tasks/my", "", nil)
	if code != http.StatusUnauthorized || message(body) != "token required" {
		t.Fatalf("no token: %d %v", code, body)
	}
	code, body = ta.do(http.MethodGet, "/api/tasks/my", "garbage", nil)
	if code != http.StatusForbidden || message(body) != "invalid token" {
		t.Fatalf("bad token: %d %v", code, body)
	}
	code, _ = ta.do(http.MethodGet, "/api/health", "", nil)
	if code != http.StatusOK {
		t.Fatalf("health: %d", code)
	}
}

func TestAuthFlow(t *testing.T) {
	ta := newTestApp(t)
	token, _ := ta.register("Bob", "bob@team.io")

	code, body := ta.do(http.MethodGet, "/api/auth/me", token, nil)
	if code != http.StatusOK || body["user"].(map[string]any)["email"] != "bob@team.io" {
		t.Fatalf("me: %d %v", code, body)
	}
	if _, leaked := body["user"].(map[string]any)["passwordHash"]; leaked {
		t.Fatal("password hash leaked")
	}

	code, body = ta.do(http.MethodPost, "/api/auth/user/register", "", map[string]string{
		"name": "Bob", "email": "bob@team.io", "password": "secret1",
	})
	if code != http.StatusBadRequest || message(body) != "user already exists" {
		t.Fatalf("duplicate: %d %v", code, body)
	}

	code, body = ta.do(http.MethodPost, "/api/auth/admin/login", "", map[string]string{
		"email": "bob@team.io", "password": "secret1",
	})
	if code != http.StatusUnauthorized || message(body) != "invalid credentials" {
		t.Fatalf("role mismatch: %d %v", code, body)
	}

	code, _ = ta.do(http.MethodPost, "/api/auth/admin/register", "", map[string]string{
		"name": "Eve", "email": "eve@team.io", "password": "secret1",
	})
	if code != http.StatusForbidden {
		t.Fatalf("admin register without key: %d", code)
	}

	code, _ = ta.do(http.MethodPost, "/api/auth/root/login", "", map[string]string{
		"email": "bob@team.io", "password": "secret1",
	})
	if code != http.StatusNotFound {
		t.Fatalf("unknown role: %d", code)
	}

	code, _ = ta.do(http.MethodPut, "/api/auth/password", token, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret2",
	})
	if code != http.StatusOK {
		t.Fatalf("change password: %d", code)
	}
	code, _ = ta.do(http.MethodPost, "/api/auth/user/login", "", map[string]string{
		"email": "bob@team.io", "password": "secret2",
	})
	if code != http.StatusOK {
		t.Fatalf("login with new password: %d", code)
	}
}

func TestTaskLifecycle(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.adminToken()
	bob, bobID := ta.register("Bob", "bob@team.io")
	carol, _ := ta.register("Carol", "carol@team.io")

	id := ta.createTask(admin, bobID, "Ship it")
	taskPath := fmt.Sprintf("/api/tasks/%d", id)

	code, body := ta.do(http.MethodGet, taskPath, bob, nil)
	if code != http.StatusOK {
		t.Fatalf("assignee get: %d %v", code, body)
	}
	task := body["task"].(map[string]any)
	if task["status"] != "To Do" || task["assignedTo"].(map[string]any)["name"] != "Bob" || task["createdBy"].(map[string]any)["name"] != "Ada" {
		t.Fatalf("task = %v", task)
	}

	code, _ = ta.do(http.MethodGet, taskPath, carol, nil)
	if code != http.StatusForbidden {
		t.Fatalf("stranger get: %d", code)
	}
	code, _ = ta.do(http.MethodGet, "/api/tasks/999", carol, nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing get: %d", code)
	}
	code, _ = ta.do(http.MethodGet, "/api/tasks/not-an-id", admin, nil)
	if code != http.StatusNotFound {
		t.Fatalf("malformed id: %d", code)
	}

	code, body = ta.do(http.MethodPut, taskPath, bob, map[string]string{"title": "x", "status": "Done"})
	if code != http.StatusOK {
		t.Fatalf("assignee update: %d %v", code, body)
	}
	task = body["task"].(map[string]any)
	if task["title"] != "Ship it" || task["status"] != "Done" {
		t.Fatalf("assignee update wrote %v", task)
	}

	code, body = ta.do(http.MethodPut, taskPath, bob, map[string]string{"title": "x"})
	if code != http.StatusBadRequest || message(body) != "no fields to update" {
		t.Fatalf("empty update: %d %v", code, body)
	}
	code, _ = ta.do(http.MethodPut, taskPath, carol, map[string]string{"status": "To Do"})
	if code != http.StatusForbidden {
		t.Fatalf("stranger update: %d", code)
	}
	code, body = ta.do(http.MethodPut, taskPath, admin, map[string]any{"assignedTo": 4242})
	if code != http.StatusBadRequest || message(body) != "assigned user not found" {
		t.Fatalf("bad reassignment: %d %v", code, body)
	}

	code, _ = ta.do(http.MethodDelete, taskPath, bob, nil)
	if code != http.StatusForbidden {
		t.Fatalf("user delete: %d", code)
	}
	code, _ = ta.do(http.MethodDelete, taskPath, admin, nil)
	if code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	code, _ = ta.do(http.MethodDelete, taskPath, admin, nil)
	if code != http.StatusNotFound {
		t.Fatalf("second delete: %d", code)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.adminToken()
	bob, bobID := ta.register("Bob", "bob@team.io")

	code, _ := ta.do(http.MethodPost, "/api/tasks", bob, map[string]any{
		"title": "t", "description": "d", "assignedTo": bobID, "dueDate": "2030-01-01",
	})
	if code != http.StatusForbidden {
		t.Fatalf("user create: %d", code)
	}

	cases := []struct {
		name string
		body map[string]any
		msg  string
	}{
		{"unknown assignee", map[string]any{"title": "t", "description": "d", "assignedTo": 999, "dueDate": "2030-01-01"}, "assigned user not found"},
		{"bad date", map[string]any{"title": "t", "description": "d", "assignedTo": bobID, "dueDate": "tomorrow"}, "valid due date is required"},
		{"no title", map[string]any{"description": "d", "assignedTo": bobID, "dueDate": "2030-01-01"}, "title is required"},
		{"bad priority", map[string]any{"title": "t", "description": "d", "assignedTo": bobID, "dueDate": "2030-01-01", "priority": "Urgent"}, "priority must be Low, Medium, or High"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := ta.do(http.MethodPost, "/api/tasks", admin, tc.body)
			if code != http.StatusBadRequest || message(body) != tc.msg {
				t.Fatalf("got %d %v, want 400 %q", code, body, tc.msg)
			}
		})
	}

	code, body := ta.do(http.MethodGet, "/api/tasks", admin, nil)
	if code != http.StatusOK || len(body["tasks"].([]any)) != 0 {
		t.Fatalf("failed creates must not persist: %d %v", code, body)
	}

	dates := []struct{ in, want string }{
		{"2030-06-01T14:30", "2030-06-01T14:30:00Z"},
		{"2030-06-01T14:30:00", "2030-06-01T14:30:00Z"},
		{"2030-06-01T14:30:00.000Z", "2030-06-01T14:30:00Z"},
		{"2030-06-01", "2030-06-01T00:00:00Z"},
	}
	for _, tc := range dates {
		t.Run("due "+tc.in, func(t *testing.T) {
			code, body := ta.do(http.MethodPost, "/api/tasks", admin, map[string]any{
				"title": "t", "description": "d", "assignedTo": bobID, "dueDate": tc.in,
			})
			if code != http.StatusCreated {
				t.Fatalf("got %d %v", code, body)
			}
			task := body["task"].(map[string]any)
			if task["dueDate"] != tc.want {
				t.Fatalf("dueDate = %v, want %s", task["dueDate"], tc.want)
			}

			id := int64(task["id"].(float64))
			code, body = ta.do(http.MethodPut, fmt.Sprintf("/api/tasks/%d", id), admin, map[string]string{"dueDate": "2031-02-03T09:15"})
			if code != http.StatusOK || body["task"].(map[string]any)["dueDate"] != "2031-02-03T09:15:00Z" {
				t.Fatalf("update due date: %d %v", code, body)
			}
		})
	}
}

func TestListFiltersAndScope(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.adminToken()
	bob, bobID := ta.register("Bob", "bob@team.io")
	_, carolID := ta.register("Carol", "carol@team.io")

	first := ta.createTask(admin, bobID, "first")
	ta.createTask(admin, carolID, "second")
	third := ta.createTask(admin, bobID, "third")
	ta.do(http.MethodPut, fmt.Sprintf("/api/tasks/%d", first), bob, map[string]string{"status": "Done"})

	code, _ := ta.do(http.MethodGet, "/api/tasks", bob, nil)
	if code != http.StatusForbidden {
		t.Fatalf("user list all: %d", code)
	}

	ids := func(body map[string]any) []int64 {
		var out []int64
		for _, v := range body["tasks"].([]any) {
			out = append(out, int64(v.(map[string]any)["id"].(float64)))
		}
		return out
	}

	_, body := ta.do(http.MethodGet, "/api/tasks", admin, nil)
	if got := ids(body); len(got) != 3 || got[0] != third {
		t.Fatalf("admin list = %v", got)
	}
	_, body = ta.do(http.MethodGet, "/api/tasks?status=Done&priority=", admin, nil)
	if got := ids(body); len(got) != 1 || got[0] != first {
		t.Fatalf("status filter = %v", got)
	}
	_, body = ta.do(http.MethodGet, fmt.Sprintf("/api/tasks?assignedTo=%d", carolID), admin, nil)
	if got := ids(body); len(got) != 1 {
		t.Fatalf("assignee filter = %v", got)
	}
	code, _ = ta.do(http.MethodGet, "/api/tasks?assignedTo=bob", admin, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad assignee filter: %d", code)
	}

	_, body = ta.do(http.MethodGet, fmt.Sprintf("/api/tasks/my?assignedTo=%d", carolID), bob, nil)
	if got := ids(body); len(got) != 2 || got[0] != third || got[1] != first {
		t.Fatalf("my list = %v", got)
	}
	_, body = ta.do(http.MethodGet, "/api/tasks/my?status=To%20Do", bob, nil)
	if got := ids(body); len(got) != 1 || got[0] != third {
		t.Fatalf("my list filtered = %v", got)
	}
}

func TestNotificationsEndpoints(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.adminToken()
	bob, bobID := ta.register("Bob", "bob@team.io")
	id := ta.createTask(admin, bobID, "Read the docs")

	code, body := ta.do(http.MethodGet, "/api/users/notifications", bob, nil)
	if code != http.StatusOK {
		t.Fatalf("notifications: %d", code)
	}
	list := body["notifications"].([]any)
	if len(list) != 1 {
		t.Fatalf("notifications = %v", list)
	}
	n := list[0].(map[string]any)
	if n["title"] != "new task assigned" || n["link"] != fmt.Sprintf("/tasks/%d", id) || n["read"] != false {
		t.Fatalf("notification = %v", n)
	}
	if !strings.Contains(n["message"].(string), "Read the docs") {
		t.Fatalf("message = %v", n["message"])
	}

	code, _ = ta.do(http.MethodPatch, "/api/users/notifications/0/read", bob, nil)
	if code != http.StatusOK {
		t.Fatalf("mark read: %d", code)
	}
	_, body = ta.do(http.MethodGet, "/api/users/notifications", bob, nil)
	if body["notifications"].([]any)[0].(map[string]any)["read"] != true {
		t.Fatalf("notification not marked read: %v", body)
	}

	code, body = ta.do(http.MethodPatch, "/api/users/notifications/abc/read", bob, nil)
	if code != http.StatusBadRequest || message(body) != "invalid index" {
		t.Fatalf("bad index: %d %v", code, body)
	}
	code, _ = ta.do(http.MethodPatch, "/api/users/notifications/7/read", bob, nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing index: %d", code)
	}

	code, body = ta.do(http.MethodGet, "/api/users", admin, nil)
	if code != http.StatusOK || len(body["users"].([]any)) != 1 {
		t.Fatalf("users: %d %v", code, body)
	}
	code, _ = ta.do(http.MethodGet, "/api/users", bob, nil)
	if code != http.StatusForbidden {
		t.Fatalf("user list users: %d", code)
	}

	code, _ = ta.do(http.MethodPut, "/api/users/me/telegram", bob, map[string]any{"chatId": 12345})
	if code != http.StatusOK {
		t.Fatalf("link telegram: %d", code)
	}
}

func TestReportEndpoint(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.adminToken()
	bob, bobID := ta.register("Bob", "bob@team.io")
	ta.createTask(admin, bobID, "Report me")

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/report", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	ta.app.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("report: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("report is not a PDF")
	}

	code, _ := ta.do(http.MethodGet, "/api/tasks/report", bob, nil)
	if code != http.StatusForbidden {
		t.Fatalf("user report: %d", code)
	}
}

func TestTelegramLinkOverWebhook(t *testing.T) {
	ta := newTestApp(t)
	token, _ := ta.register("Bob", "bob@team.io")

	code, body := ta.do(http.MethodPost, "/api/users/me/telegram/link", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("link without token: %d %v", code, body)
	}
	code, body = ta.do(http.MethodPost, "/api/users/me/telegram/link", token, nil)
	if code != http.StatusOK {
		t.Fatalf("request link: %d %v", code, body)
	}
	linkCode, _ := body["code"].(string)
	if len(linkCode) != 32 {
		t.Fatalf("code = %q", linkCode)
	}

	update := map[string]any{
		"update_id": 1,
		"message": map[string]any{
			"message_id": 1,
			"date":       time.Now().Unix(),
			"chat":       map[string]any{"id": 777, "type": "private"},
			"text":       fmt.Sprintf("/link %s", linkCode),
		},
	}
	if code, _ = ta.do(http.MethodPost, "/api/integrations/telegram/webhook", "", update); code != http.StatusOK {
		t.Fatalf("webhook: %d", code)
	}

	code, body = ta.do(http.MethodGet, "/api/auth/me", token, nil)
	if code != http.StatusOK {
		t.Fatalf("me: %d %v", code, body)
	}
	user := body["user"].(map[string]any)
	if user["telegramChatId"] != float64(777) {
		t.Fatalf("chat not linked: %v", user)
	}

	// garbage is acknowledged so Telegram stops retrying
	if code, _ = ta.do(http.MethodPost, "/api/integrations/telegram/webhook", "", "not an update"); code != http.StatusOK {
		t.Fatalf("garbage webhook: %d", code)
	}
}

func TestDeleteChecksRoleBeforeExistence(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.adminToken()
	bob, _ := ta.register("Bob", "bob@team.io")

	code, body := ta.do(http.MethodDelete, "/api/tasks/99999", bob, nil)
	if code != http.StatusForbidden || message(body) != "admin access required" {
		t.Fatalf("user delete of missing task: %d %v", code, body)
	}
	code, body = ta.do(http.MethodDelete, "/api/tasks/99999", admin, nil)
	if code != http.StatusNotFound || message(body) != "task not found" {
		t.Fatalf("admin delete of missing task: %d %v", code, body)
	}
}

func TestUpdateRejectsMistypedFieldsBeforeStripping(t *testing.T) {
	ta := newTestApp(t)
	admin := ta.adminToken()
	bob, bobID := ta.register("Bob", "bob@team.io")
	id := ta.createTask(admin, bobID, "typed")
	path := fmt.Sprintf("/api/tasks/%d", id)

	code, body := ta.do(http.MethodPut, path, bob, map[string]any{"assignedTo": "x", "status": "Done"})
	if code != http.StatusBadRequest || message(body) != "invalid request body" {
		t.Fatalf("mistyped body: %d %v", code, body)
	}

	// well-typed but non-writable fields are dropped
	code, body = ta.do(http.MethodPut, path, bob, map[string]any{"assignedTo": 12345, "title": "renamed", "status": "Done"})
	if code != http.StatusOK {
		t.Fatalf("user update: %d %v", code, body)
	}
	task := body["task"].(map[string]any)
	if task["status"] != "Done" || task["title"] != "typed" {
		t.Fatalf("task = %v", task)
	}
	if got := task["assignedTo"].(map[string]any)["id"]; got != float64(bobID) {
		t.Fatalf("assignee changed to %v", got)
	}
}
