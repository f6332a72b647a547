package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandlerServesEmbeddedDashboard(t *testing.T) {
	handler := Handler("")

	w := get(t, handler, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<title>growctl</title>") {
		t.Error("GET /: embedded index.html not served")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}

	w = get(t, handler, "/app.js")
	if w.Code != http.StatusOK {
		t.Errorf("GET /app.js: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "device_control") {
		t.Error("GET /app.js: unexpected body")
	}
}

func TestHandlerSPAFallback(t *testing.T) {
	handler := Handler("")

	for _, target := range []string{"/nonexistent", "/some/deep/route"} {
		w := get(t, handler, target)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200", target, w.Code)
		}
		if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
			t.Errorf("GET %s: fallback didn't serve index.html", target)
		}
	}
}

func TestHandlerFilesystemMode(t *testing.T) {
	dir := t.TempDir()
	index := `<!DOCTYPE html><html><body>custom dashboard</body></html>`
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "chart.js"), []byte("console.log('chart')"), 0o644); err != nil {
		t.Fatal(err)
	}

	handler := Handler(dir)

	if w := get(t, handler, "/"); !strings.Contains(w.Body.String(), "custom dashboard") {
		t.Errorf("GET /: expected filesystem content, got %q", w.Body.String())
	}
	if w := get(t, handler, "/chart.js"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "chart") {
		t.Errorf("GET /chart.js: status %d body %q", w.Code, w.Body.String())
	}
	if w := get(t, handler, "/history/day"); !strings.Contains(w.Body.String(), "custom dashboard") {
		t.Error("filesystem fallback didn't serve index.html")
	}
}

func TestHandlerMissingDirFallsBackToEmbed(t *testing.T) {
	handler := Handler("/nonexistent/dir/that/does/not/exist")

	w := get(t, handler, "/")
	if w.Code != http.StatusOK {
		t.Errorf("GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<title>growctl</title>") {
		t.Error("missing dir: didn't fall back to embedded index.html")
	}
}
