package routes_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"collections-console/internal/adapters/http/middleware"
	"collections-console/internal/adapters/http/routes"
	"collections-console/internal/adapters/persistence/kvstore"
	"collections-console/internal/adapters/persistence/repositories"
	"collections-console/internal/adapters/upstream"
	"collections-console/internal/config"
	"collections-console/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// fakeUpstream plays the collections API
type fakeUpstream struct {
	mu       sync.Mutex
	revoked  bool
	down     bool
	comments []map[string]interface{}
}

func (f *fakeUpstream) set(fn func(f *fakeUpstream)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/api/auth/login" {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		switch body["username"] {
		case "agent":
			ok(w, map[string]interface{}{"token": "up-agent", "user": map[string]string{"id": "U1", "name": "Agent A", "role": "AGENT"}})
		case "boss":
			ok(w, map[string]interface{}{"token": "up-boss", "user": map[string]string{"id": "U2", "name": "Boss B", "role": "SUPERVISOR"}})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "bad credentials"})
		}
		return
	}

	if f.revoked {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "token expired"})
		return
	}
	if f.down {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	switch {
	case r.URL.Path == "/api/dashboard/stats":
		ok(w, map[string]interface{}{"totalCustomers": 12})
	case r.URL.Path == "/api/transactions":
		ok(w, map[string]interface{}{"items": []interface{}{}, "total": 0, "page": 1, "limit": 10})
	case r.URL.Path == "/api/customers/C1/comments" && r.Method == http.MethodPost:
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		c := map[string]interface{}{
			"id":         fmt.Sprintf("srv-%d", len(f.comments)+1),
			"customerId": "C1",
			"text":       body["text"],
			"authorName": body["authorName"],
			"type":       body["type"],
			"createdAt":  time.Now().UTC().Format(time.RFC3339),
		}
		f.comments = append(f.comments, c)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": c})
	case strings.HasPrefix(r.URL.Path, "/api/customers/") && strings.HasSuffix(r.URL.Path, "/comments"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/customers/"), "/comments")
		out := []map[string]interface{}{}
		for _, c := range f.comments {
			if c["customerId"] == id {
				out = append(out, c)
			}
		}
		ok(w, out)
	case r.URL.Path == "/api/reports/export":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="collections.csv"`)
		io.WriteString(w, "id,amount\n1,100\n")
	default:
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "message": "not found"})
	}
}

type console struct {
	app      *fiber.App
	upstream *fakeUpstream
	comments *services.CommentService
}

func newConsole(t *testing.T) *console {
	t.Helper()

	up := &fakeUpstream{}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		AppMode:   "dev",
		Upstream:  config.UpstreamConfig{BaseURL: srv.URL, Timeout: 2 * time.Second},
		Store:     config.StoreConfig{SealSecret: "seal-secret"},
		JWT:       config.JWTConfig{Secret: "test-secret", SessionMinutes: 60},
		Reconcile: config.ReconcileConfig{NoticeTTL: time.Second},
	}

	store, err := kvstore.Open(filepath.Join(t.TempDir(), "console.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	api := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	sessions := services.NewSessionService(api, kvstore.NewSessionStore(store), cfg)
	comments := services.NewCommentService(api, kvstore.NewCommentCache(store), 0, cfg.Reconcile.NoticeTTL)
	notifications := services.NewNotificationService(cfg.WhatsApp, repositories.NewMemoryNotificationLogRepository())
	sessions.OnEnd(func(sessionID string) { comments.DropSession(sessionID) })

	app := fiber.New(fiber.Config{ErrorHandler: middleware.NewErrorHandler(sessions, cfg)})
	routes.Setup(app, &routes.Services{
		Sessions:      sessions,
		Dashboard:     services.NewDashboardService(api),
		Customers:     services.NewCustomerService(api, comments),
		Transactions:  services.NewTransactionService(api),
		Reports:       services.NewReportService(api),
		Payments:      services.NewPaymentService(api, notifications, time.Second),
		Notifications: notifications,
		Store:         store,
	}, cfg)

	return &console{app: app, upstream: up, comments: comments}
}

type envelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
	Redirect string          `json:"redirect"`
	Data     json.RawMessage `json:"data"`
}

func (c *console) do(t *testing.T, method, path, token, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	} else {
		env.Data = raw
	}
	return resp, env
}

func (c *console) login(t *testing.T, username string) string {
	t.Helper()
	resp, env := c.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username":"`+username+`","password":"pw"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d (%s)", username, resp.StatusCode, env.Error)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login %s: no token in %s", username, env.Data)
	}
	return data.Token
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	c := newConsole(t)

	resp, env := c.do(t, http.MethodGet, "/api/v1/dashboard", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if env.Redirect != "/login" {
		t.Fatalf("redirect = %q, want /login", env.Redirect)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	c := newConsole(t)

	resp, env := c.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username":"mallory","password":"pw"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if env.Error != "Invalid username or password" {
		t.Fatalf("error = %q", env.Error)
	}

	resp, _ = c.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username":"","password":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty credentials status = %d, want 400", resp.StatusCode)
	}
}

func TestLoginSetsCookieAndMe(t *testing.T) {
	c := newConsole(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"agent","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.SessionCookie {
			cookie = ck
		}
	}
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("session cookie not set: %+v", resp.Cookies())
	}

	me := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	me.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: cookie.Value})
	resp, err = c.app.Test(me, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	var env struct {
		Data struct {
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&env)
	if env.Data.Name != "Agent A" || env.Data.Role != "AGENT" {
		t.Fatalf("me = %+v", env.Data)
	}
}

func TestUpstreamRejectionEndsSession(t *testing.T) {
	c := newConsole(t)
	token := c.login(t, "agent")

	resp, _ := c.do(t, http.MethodGet, "/api/v1/dashboard", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200", resp.StatusCode)
	}

	c.upstream.set(func(f *fakeUpstream) { f.revoked = true })

	resp, env := c.do(t, http.MethodGet, "/api/v1/dashboard", token, "")
	if resp.StatusCode != http.StatusUnauthorized || env.Redirect != "/login" {
		t.Fatalf("status = %d redirect = %q, want 401 to /login", resp.StatusCode, env.Redirect)
	}
	cleared := false
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.SessionCookie && ck.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("session cookie was not cleared")
	}

	// the console session is gone even once the upstream recovers
	c.upstream.set(func(f *fakeUpstream) { f.revoked = false })
	resp, _ = c.do(t, http.MethodGet, "/api/v1/auth/me", token, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after teardown status = %d, want 401", resp.StatusCode)
	}
}

func TestReportExportRequiresSupervisor(t *testing.T) {
	c := newConsole(t)

	agent := c.login(t, "agent")
	resp, _ := c.do(t, http.MethodGet, "/api/v1/reports/export?type=collections", agent, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("agent status = %d, want 403", resp.StatusCode)
	}

	boss := c.login(t, "boss")
	resp, env := c.do(t, http.MethodGet, "/api/v1/reports/export?type=collections&format=csv", boss, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("supervisor status = %d (%s)", resp.StatusCode, env.Error)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "collections.csv") {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if string(env.Data) != "id,amount\n1,100\n" {
		t.Fatalf("body = %q", env.Data)
	}
}

func TestAddCommentConfirmedThenPending(t *testing.T) {
	c := newConsole(t)
	token := c.login(t, "agent")

	resp, env := c.do(t, http.MethodPost, "/api/v1/customers/C1/comments", token, `{"text":"Promised to pay Friday"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d (%s), want 201", resp.StatusCode, env.Error)
	}

	c.upstream.set(func(f *fakeUpstream) { f.down = true })

	resp, env = c.do(t, http.MethodPost, "/api/v1/customers/C1/comments", token, `{"text":"No answer"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d (%s), want 202", resp.StatusCode, env.Error)
	}
	if env.Message != services.NoticeSavedLocally {
		t.Fatalf("message = %q", env.Message)
	}
	var data struct {
		Comment struct {
			ID               string `json:"id"`
			LocallyPersisted bool   `json:"locallyPersisted"`
		} `json:"comment"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(data.Comment.ID, "local-") || !data.Comment.LocallyPersisted {
		t.Fatalf("comment = %+v, want a locally persisted local- entry", data.Comment)
	}

	// once the server is back the pending note is pushed
	c.upstream.set(func(f *fakeUpstream) { f.down = false })
	resp, env = c.do(t, http.MethodPost, "/api/v1/customers/C1/comments/reconcile", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reconcile status = %d (%s)", resp.StatusCode, env.Error)
	}
	var rec struct {
		Result struct {
			Synced int `json:"synced"`
		} `json:"result"`
	}
	json.Unmarshal(env.Data, &rec)
	if rec.Result.Synced != 1 {
		t.Fatalf("synced = %d, want 1", rec.Result.Synced)
	}
	c.upstream.set(func(f *fakeUpstream) {
		if len(f.comments) != 2 {
			t.Fatalf("server has %d comments, want 2", len(f.comments))
		}
	})
}

func TestValidationErrorsAreBadRequests(t *testing.T) {
	c := newConsole(t)
	token := c.login(t, "agent")

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   string
	}{
		{"empty comment", http.MethodPost, "/api/v1/customers/C1/comments", `{"text":"   "}`, "comment text is required"},
		{"bad phone", http.MethodPost, "/api/v1/payments/initiate", `{"customerId":"C1","phoneNumber":"0712","amount":100}`, "phone number must be 12 digits starting with 254"},
		{"zero amount", http.MethodPost, "/api/v1/payments/initiate", `{"customerId":"C1","phoneNumber":"254712345678","amount":0}`, "amount must be greater than zero"},
		{"bad status", http.MethodGet, "/api/v1/transactions?status=lost", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := c.do(t, tc.method, tc.path, token, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if tc.want != "" && env.Error != tc.want {
				t.Fatalf("error = %q, want %q", env.Error, tc.want)
			}
		})
	}
}

func TestUnreachableUpstreamIsServiceUnavailable(t *testing.T) {
	c := newConsole(t)
	token := c.login(t, "agent")
	c.upstream.set(func(f *fakeUpstream) { f.down = true })

	resp, _ := c.do(t, http.MethodGet, "/api/v1/transactions", token, "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("Retry-After not set")
	}
}

// viewCustomer fetches the comment view of id and returns the customer it reports
func (c *console) viewCustomer(token, id string) (string, error) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+id+"/comments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.app.Test(req, -1)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var env struct {
		Data struct {
			CustomerID string `json:"customerId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", err
	}
	return env.Data.CustomerID, nil
}

func TestInterleavedCustomerViewsKeepTheirCustomer(t *testing.T) {
	c := newConsole(t)
	token := c.login(t, "agent")

	ids := []string{"C1", "XY"}
	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		errs := make(chan error, len(ids)*4)
		for i := 0; i < 4; i++ {
			for _, id := range ids {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					got, err := c.viewCustomer(token, id)
					if err != nil {
						errs <- fmt.Errorf("%s: %w", id, err)
						return
					}
					if got != id {
						errs <- fmt.Errorf("view of %s reported customer %q", id, got)
					}
				}(id)
			}
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("round %d: %v", round, err)
		}
	}

	// sequential reuse of the same request buffers
	for i := 0; i < 10; i++ {
		for _, id := range ids {
			got, err := c.viewCustomer(token, id)
			if err != nil {
				t.Fatal(err)
			}
			if got != id {
				t.Fatalf("view of %s reported customer %q", id, got)
			}
		}
	}
}

func TestLogoutDropsCommentViews(t *testing.T) {
	c := newConsole(t)
	token := c.login(t, "agent")

	for _, id := range []string{"C1", "XY"} {
		if _, err := c.viewCustomer(token, id); err != nil {
			t.Fatal(err)
		}
	}

	resp, _ := c.do(t, http.MethodPost, "/api/v1/auth/logout", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	// a negative idle window sweeps every view still held
	if n := c.comments.Prune(-time.Hour); n != 0 {
		t.Fatalf("%d comment views survived logout", n)
	}
}
