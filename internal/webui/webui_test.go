package webui

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
)

func TestFSContainsDashboard(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"index.html", "app.js", "style.css"} {
		if _, err := fs.Stat(FS(), name); err != nil {
			t.Fatalf("Stat(%s): %v", name, err)
		}
	}
}

func TestRegisterServesIndex(t *testing.T) {
	t.Parallel()
	e := echo.New()
	Register(e)

	for path, want := range map[string]string{
		"/":              "<title>copyconf</title>",
		"/static/app.js": "/v1/runs/live",
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("GET %s: body missing %q", path, want)
		}
	}
}
