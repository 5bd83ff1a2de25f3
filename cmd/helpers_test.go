package cmd

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/atelier"
	"github.com/iksnae/studio-bridge/testutil"
)

const demoProxyURL = "http://localhost:52773/csp/user/EnsPortal.BPLEditor.zen?BP=Demo.Order.BPL"

// fakeServer answers the API calls the commands make.
type fakeServer struct {
	*httptest.Server
	tokens atomic.Int32
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeServer) reply(w http.ResponseWriter, result any) {
	data, _ := sonic.Marshal(map[string]any{
		"status":  map[string]any{"errors": []any{}, "summary": ""},
		"console": []string{},
		"result":  result,
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/atelier/":
		f.reply(w, map[string]any{"content": map[string]any{"version": "IRIS 2025.1", "api": 8}})

	case r.URL.Path == "/api/atelier/v1/USER/action/query":
		body, _ := io.ReadAll(r.Body)
		var req atelier.QueryRequest
		_ = sonic.Unmarshal(body, &req)
		switch req.Query {
		case atelier.ClassSupersQuery:
			supers := ""
			if len(req.Parameters) == 1 && req.Parameters[0] == "Demo.Order" {
				supers = "Ens.BusinessProcessBPL~Ens.BusinessProcess~Ens.Host"
			}
			f.reply(w, map[string]any{"content": []map[string]any{{"PrimarySuper": supers}}})
		default:
			n := f.tokens.Add(1)
			f.reply(w, map[string]any{"content": []map[string]any{{"csptoken": "tok-" + strconv.Itoa(int(n))}}})
		}

	case r.URL.Path == "/api/atelier/v1/%SYS/cspapps/USER":
		f.reply(w, map[string]any{"content": []map[string]any{{"name": "/csp/user", "default": true, "enabled": true}}})

	case r.URL.Path == "/api/atelier/v1/USER/action/index":
		f.reply(w, map[string]any{"content": []map[string]any{{"name": "Demo.Order.bpl", "others": []string{"Demo.Order.cls"}}}})

	case strings.HasPrefix(r.URL.Path, "/api/atelier/v1/USER/doc/"):
		name := strings.TrimPrefix(r.URL.Path, "/api/atelier/v1/USER/doc/")
		content := []string{"Class " + strings.TrimSuffix(name, ".cls") + " Extends Ens.BusinessProcessBPL", "{", "}"}
		switch {
		case strings.HasPrefix(name, "Broken.") && strings.HasSuffix(name, ".bpl"):
			content = []string{"::not a url::", "<process/>"}
		case strings.HasSuffix(name, ".bpl"):
			content = []string{demoProxyURL, "<process/>"}
		}
		f.reply(w, map[string]any{"name": name, "cat": "OTH", "ts": "2026-01-01 00:00:00", "content": content})

	default:
		http.NotFound(w, r)
	}
}

// configFor writes a config pointing at f and returns its path.
func (f *fakeServer) configFor(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(f.URL)
	if err != nil {
		t.Fatalf("bad server URL: %v", err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("bad server address: %v", err)
	}
	return testutil.CreateConfigFixture(t, testutil.CreateTempDir(t), `connection:
  host: `+host+`
  port: `+port+`
  namespace: USER
  username: _SYSTEM
  password: SYS
`)
}

// resetFlags restores command flag variables between runs of rootCmd.
func resetFlags() {
	verbose = false
	configPath = ""
	namespaceFlag = ""
	urlShowToken = false
	urlFile = ""
	openVariant = "custom"
	openListen = ""
	openMirror = ""
	othersMirror = ""
	othersPreview = 10
	sessionsListen = ""
	sessionsFormat = "json"
	sessionsOut = ""
	internal.SetVerbose(false)
}

// notifyWriter hands every write to a channel.
type notifyWriter struct {
	ch chan string
}

func (w *notifyWriter) Write(p []byte) (int, error) {
	select {
	case w.ch <- string(p):
	default:
	}
	return len(p), nil
}
