package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
)

type fakeServer struct {
	*httptest.Server
	classifyCalls atomic.Int32
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sess" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Not authenticated"}`))
			return
		}
		_, _ = w.Write([]byte(`{"accessToken":"at","email":"me@example.com","expires":"2030-01-01T00:00:00Z"}`))
	})
	mux.HandleFunc("/api/emails", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["accessToken"] != "at" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Not authenticated"}`))
			return
		}
		_, _ = w.Write([]byte(`{"emails":[
			{"id":"1","subject":"Big sale","from":"shop@example.com","snippet":"","date":"2023-11-14T22:13:20.000Z","body":"Sale","isClassified":false},
			{"id":"2","subject":"Standup","from":"boss@example.com","snippet":"","date":"2023-11-14T22:13:20.000Z","body":"9am","isClassified":false}
		]}`))
	})
	mux.HandleFunc("/api/classify", func(w http.ResponseWriter, r *http.Request) {
		fs.classifyCalls.Add(1)
		var body struct {
			Emails    []map[string]interface{} `json:"emails"`
			OpenAIKey string                   `json:"openaiKey"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.OpenAIKey != "sk-test-123456" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"OpenAI API key is required"}`))
			return
		}
		labels := []string{"Promotions", "Important"}
		for i := range body.Emails {
			body.Emails[i]["category"] = labels[i%2]
			body.Emails[i]["isClassified"] = true
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"emails": body.Emails})
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

// run executes one inboxctl invocation against the shared storage dir.
func run(t *testing.T, srv *fakeServer, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--server", srv.URL,
		"--storage-path", filepath.Join(dir, "state.db"),
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_FetchClassifyList(t *testing.T) {
	srv := newFakeServer(t)
	dir := t.TempDir()

	out, err := run(t, srv, dir, "--session", "sess", "fetch")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(out, "Big sale") || !strings.Contains(out, "boss@example.com") {
		t.Fatalf("fetch output missing emails:\n%s", out)
	}

	if _, err := run(t, srv, dir, "classify"); err == nil || !strings.Contains(err.Error(), "key set") {
		t.Fatalf("classify without key should point at `key set`, got %v", err)
	}
	if srv.classifyCalls.Load() != 0 {
		t.Fatalf("no classify request without a key")
	}

	if _, err := run(t, srv, dir, "key", "set", "sk-test-123456"); err != nil {
		t.Fatalf("key set: %v", err)
	}
	out, err = run(t, srv, dir, "key", "show")
	if err != nil || strings.TrimSpace(out) != "sk-...3456" {
		t.Fatalf("key show want masked key, got %q %v", out, err)
	}

	out, err = run(t, srv, dir, "classify")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !strings.Contains(out, "Promotions: 1") || !strings.Contains(out, "Important: 1") {
		t.Fatalf("classify output missing counts:\n%s", out)
	}

	// 新进程从存储中恢复分类结果
	out, err = run(t, srv, dir, "list", "--category", "Important")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Standup") || strings.Contains(out, "Big sale") {
		t.Fatalf("filtered list wrong:\n%s", out)
	}

	if _, err := run(t, srv, dir, "list", "--category", "important"); err == nil {
		t.Fatalf("unknown category should fail")
	}
}

func TestCLI_FetchRequiresSession(t *testing.T) {
	srv := newFakeServer(t)
	dir := t.TempDir()

	if _, err := run(t, srv, dir, "fetch"); err == nil || !strings.Contains(err.Error(), "Not authenticated") {
		t.Fatalf("want Not authenticated, got %v", err)
	}
	if _, err := run(t, srv, dir, "--session", "wrong", "fetch"); err == nil {
		t.Fatalf("rejected session should fail")
	}
}

func TestCLI_Session(t *testing.T) {
	srv := newFakeServer(t)
	out, err := run(t, srv, t.TempDir(), "--session", "sess", "session")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if !strings.Contains(out, "me@example.com") || !strings.Contains(out, "2030-01-01") {
		t.Fatalf("unexpected session output %q", out)
	}
}

func TestCLI_ListEmptyStore(t *testing.T) {
	srv := newFakeServer(t)
	out, err := run(t, srv, t.TempDir(), "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No emails.") || !strings.Contains(out, "All: 0") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLoadConfig_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inboxctl.yaml")
	content := "server: http://from-file\nmax_results: 30\nstorage:\n  driver: redis\n  key_prefix: \"me:\"\nredis:\n  addr: cache:6379\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("INBOXCTL_SESSION", "from-env")

	cfg, err := LoadConfig(path, func(v *viper.Viper) error {
		v.Set("storage.path", "/override/state.db")
		return nil
	})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server != "http://from-file" || cfg.MaxResults != 30 || cfg.Session != "from-env" {
		t.Fatalf("unexpected top-level config %+v", cfg)
	}
	if cfg.Storage.Driver != "redis" || cfg.Storage.KeyPrefix != "me:" || cfg.Storage.Path != "/override/state.db" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Redis.Addr != "cache:6379" || cfg.Log.Level != "warn" {
		t.Fatalf("unexpected redis/log config %+v %+v", cfg.Redis, cfg.Log)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server != "http://localhost:8080" || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestMaskKey(t *testing.T) {
	cases := map[string]string{
		"sk-abcdefghijkl": "sk-...ijkl",
		"short":           "*****",
		"":                "",
	}
	for in, want := range cases {
		if got := maskKey(in); got != want {
			t.Fatalf("maskKey(%q) = %q want %q", in, got, want)
		}
	}
}
