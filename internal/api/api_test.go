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

	"github.com/go-chi/chi/v5"

	"github.com/starford/recall/internal/credential"
	"github.com/starford/recall/internal/gateway"
	"github.com/starford/recall/internal/models"
	"github.com/starford/recall/internal/noteservice"
	"github.com/starford/recall/internal/session"
	"github.com/starford/recall/internal/testutil"
	"github.com/starford/recall/internal/tools"
)

const testCookie = "recall_session"

type testEnv struct {
	router chi.Router
	emb    *testutil.Embedder
	keys   *credential.Store
	alice  string
	bob    string
}

// newTestEnv wires a temp SQLite DB, test embedder, and the full gateway.
func newTestEnv(t *testing.T, opts ...gateway.Option) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	emb := testutil.NewEmbedder()
	svc := noteservice.NewService(db, db, emb)

	iss, err := session.NewIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	keys := credential.NewStore(db, nil)
	t.Cleanup(keys.Flush)
	gw := gateway.New([]gateway.Resolver{
		gateway.SessionResolver{Sessions: iss},
		gateway.KeyResolver{Keys: keys},
	}, opts...)

	defaults := tools.SearchDefaults{Threshold: 0.3, Count: 5}
	router := NewRouter(Deps{
		Notes:      svc,
		Keys:       keys,
		Gateway:    gw,
		Tools:      tools.NewSurface(svc, defaults),
		Search:     defaults,
		CookieName: testCookie,
	})

	alice, _ := iss.Mint("alice")
	bob, _ := iss.Mint("bob")
	return &testEnv{router: router, emb: emb, keys: keys, alice: alice, bob: bob}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) issueKey(t *testing.T, scopes ...models.Scope) string {
	t.Helper()
	issued, err := e.keys.Issue(context.Background(), "alice", "test key", scopes)
	if err != nil {
		t.Fatal(err)
	}
	return issued.Secret
}

func (e *testEnv) createNote(t *testing.T, token, title, body string) models.Note {
	t.Helper()
	w := e.do(t, http.MethodPost, "/notes", token, NoteRequest{Title: title, Body: body})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var n models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	return n
}

func TestNoCredentials(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/notes", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}
}

func TestSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: env.alice})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestNoteCRUD(t *testing.T) {
	env := newTestEnv(t)
	n := env.createNote(t, env.alice, "Groceries", "milk\n\neggs")
	if n.ID == "" || n.Source != models.SourceLocal {
		t.Fatalf("created = %+v", n)
	}

	w := env.do(t, http.MethodGet, "/notes/"+n.ID, env.alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = env.do(t, http.MethodPut, "/notes/"+n.ID, env.alice, NoteRequest{Title: "Shopping", Body: "bread"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Title != "Shopping" || updated.Body != "bread" {
		t.Errorf("updated = %+v", updated)
	}

	w = env.do(t, http.MethodGet, "/notes", env.alice, nil)
	var list NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 {
		t.Errorf("total = %d, want 1", list.Total)
	}

	w = env.do(t, http.MethodDelete, "/notes/"+n.ID, env.alice, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/notes/"+n.ID, env.alice, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestOtherOwnerSeesNotFound(t *testing.T) {
	env := newTestEnv(t)
	n := env.createNote(t, env.alice, "Secret", "for alice only")

	for _, tc := range []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPut, NoteRequest{Title: "pwned"}},
		{http.MethodDelete, nil},
	} {
		w := env.do(t, tc.method, "/notes/"+n.ID, env.bob, tc.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s as bob = %d, want 404", tc.method, w.Code)
		}
	}

	w := env.do(t, http.MethodGet, "/notes/"+n.ID, env.alice, nil)
	var got models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Secret" {
		t.Errorf("title = %q, want Secret", got.Title)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/notes", env.alice, NoteRequest{Title: "  ", Body: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank note = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+env.alice)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", rec.Code)
	}
}

func TestEmbeddingOutage(t *testing.T) {
	env := newTestEnv(t)
	env.emb.SetFail(true)
	w := env.do(t, http.MethodPost, "/notes", env.alice, NoteRequest{Title: "x", Body: "y"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	env.createNote(t, env.alice, "Groceries", "milk\n\neggs")
	env.createNote(t, env.bob, "Bob", "milk")

	w := env.do(t, http.MethodGet, "/search?q=milk", env.alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	if resp.Results[0].ChunkContent != "milk" || resp.Results[0].Title != "Groceries" {
		t.Errorf("top hit = %+v", resp.Results[0])
	}

	w = env.do(t, http.MethodGet, "/search?q=milk&count=1&threshold=0.99", env.alice, nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Errorf("results = %d, want 1", len(resp.Results))
	}

	for _, q := range []string{"/search?q=", "/search?q=milk&count=0", "/search?q=milk&count=abc", "/search?q=milk&threshold=2"} {
		if w := env.do(t, http.MethodGet, q, env.alice, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", q, w.Code)
		}
	}
}

func TestScopedKey(t *testing.T) {
	env := newTestEnv(t)
	n := env.createNote(t, env.alice, "Groceries", "milk")
	read := env.issueKey(t, models.ScopeNotesRead)

	if w := env.do(t, http.MethodGet, "/notes/"+n.ID, read, nil); w.Code != http.StatusOK {
		t.Errorf("read get = %d, want 200", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/search?q=milk", read, nil); w.Code != http.StatusOK {
		t.Errorf("read search = %d, want 200", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/notes", read, NoteRequest{Title: "x"}); w.Code != http.StatusForbidden {
		t.Errorf("read create = %d, want 403", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/notes/"+n.ID, read, nil); w.Code != http.StatusForbidden {
		t.Errorf("read delete = %d, want 403", w.Code)
	}
}

func TestKeyManagementIsSessionOnly(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/keys", env.alice, IssueKeyRequest{Name: "agent", Scopes: []models.Scope{models.ScopeNotesRead}})
	if w.Code != http.StatusCreated {
		t.Fatalf("issue = %d, body = %s", w.Code, w.Body.String())
	}
	var issued IssueKeyResponse
	_ = json.Unmarshal(w.Body.Bytes(), &issued)
	if !strings.HasPrefix(issued.Secret, credential.KeyPrefix) {
		t.Fatalf("secret = %q", issued.Secret)
	}
	if strings.Contains(w.Body.String(), "secret_hash") {
		t.Error("hash leaked in response")
	}

	full := env.issueKey(t, models.AllScopes...)
	if w := env.do(t, http.MethodGet, "/keys", full, nil); w.Code != http.StatusForbidden {
		t.Errorf("key lists keys = %d, want 403", w.Code)
	}

	w = env.do(t, http.MethodGet, "/keys", env.alice, nil)
	var list KeyListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Keys) != 2 {
		t.Errorf("keys = %d, want 2", len(list.Keys))
	}

	if w := env.do(t, http.MethodGet, "/notes", issued.Secret, nil); w.Code != http.StatusOK {
		t.Errorf("fresh key = %d, want 200", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/keys/"+issued.Credential.ID, env.bob, nil); w.Code != http.StatusNotFound {
		t.Errorf("bob revokes alice key = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/keys/"+issued.Credential.ID, env.alice, nil); w.Code != http.StatusNoContent {
		t.Fatalf("revoke = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/notes", issued.Secret, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("revoked key = %d, want 401", w.Code)
	}
}

func TestScopeCatalog(t *testing.T) {
	env := newTestEnv(t)

	full := env.issueKey(t, models.AllScopes...)
	if w := env.do(t, http.MethodGet, "/keys/scopes", full, nil); w.Code != http.StatusForbidden {
		t.Errorf("key reads catalog = %d, want 403", w.Code)
	}

	w := env.do(t, http.MethodGet, "/keys/scopes", env.alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("catalog = %d, body = %s", w.Code, w.Body.String())
	}
	var cat ScopeCatalogResponse
	if err := json.Unmarshal(w.Body.Bytes(), &cat); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cat.Scopes) != len(models.AllScopes) {
		t.Fatalf("scopes = %d, want %d", len(cat.Scopes), len(models.AllScopes))
	}
	for _, s := range cat.Scopes {
		if s.Description == "" {
			t.Errorf("%s has no description", s.Scope)
		}
	}
	if len(cat.Presets) != 3 || cat.Presets[0].Name != models.PresetReadOnly {
		t.Errorf("presets = %+v", cat.Presets)
	}
}

func TestIssueKeyFromPreset(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/keys", env.alice, IssueKeyRequest{Name: "capture", Preset: models.PresetCaptureOnly})
	if w.Code != http.StatusCreated {
		t.Fatalf("issue = %d, body = %s", w.Code, w.Body.String())
	}
	var issued IssueKeyResponse
	_ = json.Unmarshal(w.Body.Bytes(), &issued)
	if got := issued.Credential.Scopes; len(got) != 2 || got[0] != models.ScopeNotesRead || got[1] != models.ScopeNotesCreate {
		t.Errorf("scopes = %v, want [notes:read notes:create]", got)
	}
	if w := env.do(t, http.MethodPost, "/notes", issued.Secret, NoteRequest{Title: "captured", Body: "inbox"}); w.Code != http.StatusCreated {
		t.Errorf("capture create = %d, want 201", w.Code)
	}

	w = env.do(t, http.MethodPost, "/keys", env.alice, IssueKeyRequest{Name: "bad", Preset: "everything"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown preset = %d, want 400", w.Code)
	}
}

func TestKeyRateLimit(t *testing.T) {
	env := newTestEnv(t, gateway.WithKeyRate(1))
	key := env.issueKey(t, models.ScopeNotesRead)

	if w := env.do(t, http.MethodGet, "/notes", key, nil); w.Code != http.StatusOK {
		t.Fatalf("first = %d, want 200", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/notes", key, nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("second = %d, want 429", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/notes", env.alice, nil); w.Code != http.StatusOK {
		t.Errorf("session = %d, want 200", w.Code)
	}
}

func TestTools(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/tools", env.alice, nil)
	var list ToolListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Tools) != len(tools.Descriptors()) {
		t.Errorf("tools = %d", len(list.Tools))
	}

	w = env.do(t, http.MethodPost, "/tools/create_note", env.alice, map[string]any{"title": "Groceries", "body": "milk"})
	var res tools.Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if w.Code != http.StatusOK || !res.Success {
		t.Fatalf("create_note = %d %+v", w.Code, res)
	}

	read := env.issueKey(t, models.ScopeNotesRead)
	w = env.do(t, http.MethodPost, "/tools/create_note", read, map[string]any{"title": "x", "body": "y"})
	res = tools.Result{}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Success || !strings.HasPrefix(res.Error, "Permission denied") {
		t.Errorf("read key create_note = %+v", res)
	}

	w = env.do(t, http.MethodPost, "/tools/search_notes", read, map[string]any{"query": "milk"})
	res = tools.Result{}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Success {
		t.Errorf("search_notes = %+v", res)
	}

	if w := env.do(t, http.MethodPost, "/tools/drop_tables", env.alice, nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown tool = %d, want 404", w.Code)
	}
}
