package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsorter/internal/model"
	"mailsorter/pkg/util"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFetcher struct {
	token string
	max   *int
	out   []model.Email
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, accessToken string, maxResults *int) ([]model.Email, error) {
	f.token, f.max = accessToken, maxResults
	if accessToken == "" {
		return nil, util.ErrUnauthorized
	}
	return f.out, f.err
}

type fakeClassifier struct {
	calls int
	err   error
}

func (f *fakeClassifier) Classify(ctx context.Context, emails []model.Email, apiKey string) ([]model.Email, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Email, len(emails))
	for i, e := range emails {
		e.Category, e.IsClassified = model.CategorySpam, true
		out[i] = e
	}
	return out, nil
}

type fakeAuth struct {
	claims   *util.SessionClaims
	exchange func(code string) (string, error)
}

func (f *fakeAuth) Session(token string) (*util.SessionClaims, error) {
	if token == "good-session" && f.claims != nil {
		return f.claims, nil
	}
	return nil, util.ErrUnauthorized
}
func (f *fakeAuth) NewState() string             { return "state-1" }
func (f *fakeAuth) LoginURL(state string) string { return "https://accounts.example.com/auth?state=" + state }
func (f *fakeAuth) Exchange(ctx context.Context, code string) (string, error) {
	return f.exchange(code)
}

func do(r *gin.Engine, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return m
}

func emailRouter(f *fakeFetcher, a *fakeAuth) *gin.Engine {
	r := gin.New()
	r.POST("/api/emails", NewEmailHandler(f, a, zap.NewNop()).FetchEmails)
	return r
}

func TestFetchEmails_OK(t *testing.T) {
	f := &fakeFetcher{out: []model.Email{{ID: "1", Subject: "s", From: "f", Date: "d"}}}
	w := do(emailRouter(f, &fakeAuth{}), http.MethodPost, "/api/emails", `{"accessToken":"tok","maxResults":3}`)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", w.Code, w.Body.String())
	}
	if f.token != "tok" || f.max == nil || *f.max != 3 {
		t.Fatalf("unexpected call: %q %v", f.token, f.max)
	}
	var resp struct {
		Emails []map[string]interface{} `json:"emails"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Emails) != 1 || resp.Emails[0]["isClassified"] != false {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if _, ok := resp.Emails[0]["category"]; ok {
		t.Fatalf("unclassified email must not carry a category: %s", w.Body.String())
	}
}

func TestFetchEmails_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"no token", `{}`, nil, http.StatusUnauthorized},
		{"malformed json", `{"accessToken":`, nil, http.StatusBadRequest},
		{"empty body", ``, nil, http.StatusBadRequest},
		{"wrong type", `{"accessToken":"tok","maxResults":"ten"}`, nil, http.StatusBadRequest},
		{"invalid limit", `{"accessToken":"tok"}`, util.ErrInvalidInput, http.StatusBadRequest},
		{"provider down", `{"accessToken":"tok"}`, errors.New("backend unavailable"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := do(emailRouter(&fakeFetcher{err: tc.err}, &fakeAuth{}), http.MethodPost, "/api/emails", tc.body)
		if w.Code != tc.want {
			t.Fatalf("%s: want %d got %d", tc.name, tc.want, w.Code)
		}
		if _, ok := decodeBody(t, w)["error"]; !ok {
			t.Fatalf("%s: missing error field: %s", tc.name, w.Body.String())
		}
	}
}

func TestFetchEmails_ServerErrorCarriesMessage(t *testing.T) {
	w := do(emailRouter(&fakeFetcher{err: errors.New("backend unavailable")}, &fakeAuth{}), http.MethodPost, "/api/emails", `{"accessToken":"tok"}`)
	if !strings.Contains(w.Body.String(), "backend unavailable") {
		t.Fatalf("500 should carry the underlying message: %s", w.Body.String())
	}
}

func TestFetchEmails_FallsBackToSessionCookie(t *testing.T) {
	f := &fakeFetcher{}
	a := &fakeAuth{claims: &util.SessionClaims{AccessToken: "from-session"}}
	w := do(emailRouter(f, a), http.MethodPost, "/api/emails", `{}`, &http.Cookie{Name: SessionCookie, Value: "good-session"})

	if w.Code != http.StatusOK || f.token != "from-session" {
		t.Fatalf("want session token used, got %d %q", w.Code, f.token)
	}
}

func classifyRouter(c *fakeClassifier) *gin.Engine {
	r := gin.New()
	r.POST("/api/classify", NewClassifyHandler(c, zap.NewNop()).Classify)
	return r
}

func TestClassify_ValidationOrder(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"key checked before emails", `{}`, http.StatusUnauthorized},
		{"empty key with emails", `{"emails":[{"id":"1"}],"openaiKey":""}`, http.StatusUnauthorized},
		{"missing emails", `{"openaiKey":"sk"}`, http.StatusBadRequest},
		{"null emails", `{"emails":null,"openaiKey":"sk"}`, http.StatusBadRequest},
		{"emails not array", `{"emails":"x","openaiKey":"sk"}`, http.StatusBadRequest},
		{"email without id", `{"emails":[{"subject":"s"}],"openaiKey":"sk"}`, http.StatusBadRequest},
		{"malformed json", `{"emails":[`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
	}
	for _, tc := range cases {
		c := &fakeClassifier{}
		w := do(classifyRouter(c), http.MethodPost, "/api/classify", tc.body)
		if w.Code != tc.want {
			t.Fatalf("%s: want %d got %d (%s)", tc.name, tc.want, w.Code, w.Body.String())
		}
		if c.calls != 0 {
			t.Fatalf("%s: classifier must not run", tc.name)
		}
	}
}

func TestClassify_OK(t *testing.T) {
	c := &fakeClassifier{}
	w := do(classifyRouter(c), http.MethodPost, "/api/classify", `{"emails":[{"id":"1","subject":"s"},{"id":"2"}],"openaiKey":"sk"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Emails []model.Email `json:"emails"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Emails) != 2 || resp.Emails[1].ID != "2" || !resp.Emails[0].IsClassified {
		t.Fatalf("unexpected emails: %+v", resp.Emails)
	}
}

func TestClassify_EmptyListIsOK(t *testing.T) {
	w := do(classifyRouter(&fakeClassifier{}), http.MethodPost, "/api/classify", `{"emails":[],"openaiKey":"sk"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d", w.Code)
	}
}

func TestClassify_UnexpectedFailureIs500(t *testing.T) {
	w := do(classifyRouter(&fakeClassifier{err: errors.New("boom")}), http.MethodPost, "/api/classify", `{"emails":[{"id":"1"}],"openaiKey":"sk"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500 got %d", w.Code)
	}
}

func authRouter(a *fakeAuth) *gin.Engine {
	r := gin.New()
	h := NewAuthHandler(a, false, zap.NewNop())
	r.GET("/api/auth/login", h.Login)
	r.GET("/api/auth/callback", h.Callback)
	r.GET("/api/auth/session", h.Session)
	r.POST("/api/auth/logout", h.Logout)
	return r
}

func TestAuth_LoginRedirectsWithState(t *testing.T) {
	w := do(authRouter(&fakeAuth{}), http.MethodGet, "/api/auth/login", "")
	if w.Code != http.StatusFound {
		t.Fatalf("want 302 got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.HasSuffix(loc, "state=state-1") {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), stateCookie+"=state-1") {
		t.Fatalf("state cookie not set: %q", w.Header().Get("Set-Cookie"))
	}
}

func TestAuth_CallbackSetsSession(t *testing.T) {
	a := &fakeAuth{exchange: func(code string) (string, error) {
		if code != "c1" {
			return "", util.ErrUnauthorized
		}
		return "signed-session", nil
	}}
	r := authRouter(a)
	state := &http.Cookie{Name: stateCookie, Value: "state-1"}

	w := do(r, http.MethodGet, "/api/auth/callback?code=c1&state=state-1", "", state)
	if w.Code != http.StatusFound {
		t.Fatalf("want 302 got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(strings.Join(w.Header().Values("Set-Cookie"), ";"), SessionCookie+"=signed-session") {
		t.Fatalf("session cookie missing: %v", w.Header().Values("Set-Cookie"))
	}

	if w := do(r, http.MethodGet, "/api/auth/callback?code=c1&state=other", "", state); w.Code != http.StatusBadRequest {
		t.Fatalf("state mismatch want 400 got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/auth/callback?code=bad&state=state-1", "", state); w.Code != http.StatusUnauthorized {
		t.Fatalf("rejected code want 401 got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/auth/callback?error=access_denied", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("denied consent want 401 got %d", w.Code)
	}
}

func TestAuth_Session(t *testing.T) {
	r := authRouter(&fakeAuth{claims: &util.SessionClaims{AccessToken: "at", Email: "u@example.com"}})

	w := do(r, http.MethodGet, "/api/auth/session", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no session want 401 got %d", w.Code)
	}
	var e map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e["error"] != "Not authenticated" {
		t.Fatalf("unexpected error body %s", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer good-session")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bearer session want 200 got %d", w.Code)
	}
	var s map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &s)
	if s["accessToken"] != "at" || s["email"] != "u@example.com" {
		t.Fatalf("unexpected session body %s", w.Body.String())
	}
}

func TestAuth_LogoutClearsCookie(t *testing.T) {
	w := do(authRouter(&fakeAuth{}), http.MethodPost, "/api/auth/logout", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("logout should expire the cookie: %d %q", w.Code, w.Header().Get("Set-Cookie"))
	}
}
