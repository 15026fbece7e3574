package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/compiler"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/testutil"
)

var refTime = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

// testEnv sets up a history DB, compile service and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*compiler.Service, http.Handler) {
	t.Helper()
	db := testutil.TestDB(t)
	svc := compiler.NewService(
		compiler.WithHistory(db),
		compiler.WithClock(func() time.Time { return refTime }),
	)
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rdr)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func criterion(category, subcategory string, subject any, operator string) map[string]any {
	return map[string]any{
		"category":    category,
		"subcategory": subcategory,
		"subject":     subject,
		"operator":    operator,
	}
}

func TestCompileAndGet(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/compile", map[string]any{
		"query": "approved pdfs I created",
		"criteria": []any{
			criterion("workflow_status", "approval_state", "Approved", "="),
			criterion("file_identification", "extension", "pdf", "="),
			criterion("personal_context", "my_created", "", "="),
		},
		"context": map[string]any{"current_user": "jdoe"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("compile status = %d, body = %s", w.Code, w.Body.String())
	}
	var res CompileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	want := "(status:Approved OR approvalState:Approved OR cf_Status:Approved) AND extension:pdf AND assetCreator:jdoe"
	if res.Query != want {
		t.Errorf("query = %q, want %q", res.Query, want)
	}
	if res.ID == "" || res.Checksum == "" {
		t.Errorf("missing id or checksum: %+v", res)
	}
	if res.Context.User != "jdoe" || res.Context.Folder != "/" {
		t.Errorf("context = %+v", res.Context)
	}

	w = do(t, router, http.MethodGet, "/history/"+res.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var c models.Compilation
	_ = json.Unmarshal(w.Body.Bytes(), &c)
	if c.Query != want {
		t.Errorf("recorded query = %q", c.Query)
	}
	if c.Title != "approved pdfs I created" {
		t.Errorf("recorded title = %q", c.Title)
	}
	if c.Source != compiler.SourceAPI {
		t.Errorf("source = %q", c.Source)
	}
}

func TestCompile_ReferenceFromContext(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/compile", map[string]any{
		"criteria": []any{criterion("date_operations", "created", "yesterday", "=")},
		"context":  map[string]any{"current_date": "2024-03-10T09:00:00Z"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res CompileResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Query != "assetCreated:[2024-03-09T00:00:00 TO 2024-03-09T23:59:59]" {
		t.Errorf("query = %q", res.Query)
	}
}

func TestCompile_ValidationError(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/compile", map[string]any{
		"criteria": []any{
			criterion("workflow_status", "status", "Open", "="),
			map[string]any{"category": "workflow_status", "subcategory": "status", "subject": "Open"},
		},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var body errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Index == nil || *body.Index != 1 {
		t.Errorf("index = %v, want 1", body.Index)
	}
	if body.Field != "operator" {
		t.Errorf("field = %q, want operator", body.Field)
	}
}

func TestCompile_MissingCriteria(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/compile", map[string]any{"query": "nothing"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var body errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Index != nil {
		t.Errorf("index should be omitted for document-level errors")
	}
}

func TestCompile_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/compile", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCompile_DateParseError(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/compile", map[string]any{
		"criteria": []any{criterion("date_operations", "due_date", "whenever", "=")},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "dueDate") {
		t.Errorf("error should name the field: %s", w.Body.String())
	}
}

func TestCompile_BadReference(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/compile", map[string]any{
		"criteria": []any{criterion("workflow_status", "status", "Open", "=")},
		"context":  map[string]any{"current_date": "not a date"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestValidate(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/validate", map[string]any{
		"criteria": []any{criterion("folder_navigation", "folder_path", "/Projects/Alpha", "=")},
	})
	if w.Code != http.StatusNoContent {
		t.Errorf("valid status = %d, want 204", w.Code)
	}

	w = do(t, router, http.MethodPost, "/validate", map[string]any{
		"criteria": []any{criterion("file_identification", "extension", []any{}, "=")},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid status = %d, want 422", w.Code)
	}

	// Validation alone is not recorded.
	w = do(t, router, http.MethodGet, "/history", nil)
	var list HistoryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 0 {
		t.Errorf("history total = %d, want 0", list.Total)
	}
}

func TestResolve(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/resolve", ResolveRequest{
		Expression: "today",
		Reference:  "2024-06-15T12:00:00Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res ResolveResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Kind != compiler.KindRange {
		t.Errorf("kind = %q", res.Kind)
	}
	if res.Value != "[2024-06-15T00:00:00 TO 2024-06-15T23:59:59]" {
		t.Errorf("value = %q", res.Value)
	}
	if res.Start != "2024-06-15T00:00:00" || res.End != "2024-06-15T23:59:59" {
		t.Errorf("bounds = %q .. %q", res.Start, res.End)
	}

	w = do(t, router, http.MethodPost, "/resolve", ResolveRequest{Expression: "March 1st", Reference: "2024-06-15T12:00:00Z"})
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Kind != compiler.KindInstant || res.Value != "2024-03-01T00:00:00" {
		t.Errorf("instant = %+v", res)
	}
}

func TestResolve_Range(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/resolve", ResolveRequest{
		Start:     "January 1st 2024",
		End:       "March 1st 2024",
		Reference: "2024-06-15T12:00:00Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res ResolveResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Value != "[2024-01-01T00:00:00 TO 2024-03-01T00:00:00]" {
		t.Errorf("value = %q", res.Value)
	}

	w = do(t, router, http.MethodPost, "/resolve", ResolveRequest{Start: "today"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("half range status = %d, want 400", w.Code)
	}
}

func TestResolve_Errors(t *testing.T) {
	_, router := testEnv(t, "")

	for name, body := range map[string]any{
		"empty":         ResolveRequest{},
		"unparseable":   ResolveRequest{Expression: "the day after never"},
		"bad reference": ResolveRequest{Expression: "today", Reference: "soon"},
		"bad json":      "[",
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/resolve", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestListHistory(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/compile", map[string]any{
		"criteria": []any{criterion("workflow_status", "status", "Open", "=")},
	})
	do(t, router, http.MethodPost, "/compile", map[string]any{
		"criteria": []any{criterion("date_operations", "created", "gibberish", "=")},
	})

	w := do(t, router, http.MethodGet, "/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list HistoryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 2 {
		t.Errorf("total = %d, want 2", list.Total)
	}

	w = do(t, router, http.MethodGet, "/history?status=failed", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || list.Compilations[0].Error == "" {
		t.Errorf("failed filter = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/history?category=workflow_status", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || list.Compilations[0].Query == "" {
		t.Errorf("category filter = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/history?sort=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad sort status = %d, want 400", w.Code)
	}
}

func TestGetCompilation_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/history/does-not-exist", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSearchHistory(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/compile", map[string]any{
		"query":    "documents tutored by Smith",
		"criteria": []any{criterion("person_reference", "tutor", "Smith", "=")},
	})

	w := do(t, router, http.MethodGet, "/history/search?q=Smith", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Results) == 0 {
		t.Error("expected at least one search result")
	}

	w = do(t, router, http.MethodGet, "/history/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
}

func TestHistoryDisabled(t *testing.T) {
	svc := compiler.NewService()
	router := NewRouter(svc, false, "", nil)

	w := do(t, router, http.MethodPost, "/compile", map[string]any{
		"criteria": []any{criterion("workflow_status", "status", "Open", "=")},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("compile without history status = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/history", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/history", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/history", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no-auth status = %d, want 200", w.Code)
	}
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	broker := sse.NewBroker(100 * time.Millisecond)
	t.Cleanup(broker.Close)
	svc := compiler.NewService(
		compiler.WithHistory(testutil.TestDB(t)),
		compiler.WithEvents(broker),
	)
	return NewRouter(svc, authEnabled, token, broker)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ReceivesCompileEvent(t *testing.T) {
	router := testEnvWithSSE(t, false, "")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	do(t, router, http.MethodPost, "/compile", map[string]any{
		"criteria": []any{criterion("workflow_status", "status", "Open", "=")},
	})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: "+sse.TypeCompileSucceeded) {
		t.Errorf("SSE output missing compile event: %q", body)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("content-type = %q", w.Header().Get("Content-Type"))
	}
}
