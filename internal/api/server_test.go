package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/samcharles93/copyconf/internal/backend/sim"
	"github.com/samcharles93/copyconf/internal/history"
	"github.com/samcharles93/copyconf/pkg/memcpy"
	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

const roundTripRun = `{"backend":"sim","elements":4096,"groups":["round-trip"]}`

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *echo.Echo) {
	t.Helper()
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := Config{
		Backend: "sim",
		Store:   store,
		Open: func(string) (memcpy.Runtime, error) {
			return sim.New(sim.Options{}), nil
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s := NewServer(cfg)
	t.Cleanup(s.Close)
	e := echo.New()
	s.Register(e)
	return s, e
}

func do(t *testing.T, e *echo.Echo, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestListCases(t *testing.T) {
	t.Parallel()
	_, e := newTestServer(t, nil)

	rec := do(t, e, http.MethodGet, "/v1/cases", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[struct{ Data []CaseInfo }](t, rec)
	require.Len(t, all.Data, len(memcpytest.Cases()))

	rec = do(t, e, http.MethodGet, "/v1/cases?group=copy-too-big", "")
	require.Equal(t, http.StatusOK, rec.Code)
	some := decode[struct{ Data []CaseInfo }](t, rec)
	require.Len(t, some.Data, 4)
	require.True(t, some.Data[0].Hazardous)

	rec = do(t, e, http.MethodGet, "/v1/cases?group=bogus", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackends(t *testing.T) {
	t.Parallel()
	_, e := newTestServer(t, nil)
	rec := do(t, e, http.MethodGet, "/v1/backends", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[struct {
		Default string
		Data    []BackendInfo
	}](t, rec)
	require.Equal(t, "sim", out.Default)
	require.Contains(t, out.Data, BackendInfo{Name: "sim", Available: true})
}

func TestRunLifecycle(t *testing.T) {
	t.Parallel()
	_, e := newTestServer(t, nil)

	rec := do(t, e, http.MethodPost, "/v1/runs", roundTripRun)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rep := decode[memcpytest.Report](t, rec)
	require.Equal(t, memcpytest.Totals{Pass: 5}, rep.Totals)
	require.Equal(t, "sim", rep.Runtime)

	rec = do(t, e, http.MethodGet, "/v1/runs?runtime=sim", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct{ Data []history.Summary }](t, rec)
	require.Len(t, list.Data, 1)
	require.Equal(t, rep.ID, list.Data[0].ID)

	rec = do(t, e, http.MethodGet, "/v1/runs/"+rep.ID[:8], "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, rep.ID, decode[memcpytest.Report](t, rec).ID)

	rec = do(t, e, http.MethodGet, "/v1/runs/"+rep.ID+"/export?format=junit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/xml", rec.Header().Get(echo.HeaderContentType))
	require.Contains(t, rec.Header().Get("Content-Disposition"), ".xml")
	require.Contains(t, rec.Body.String(), `<testsuite name="round-trip"`)

	rec = do(t, e, http.MethodGet, "/v1/runs/"+rep.ID+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"totals"`)

	rec = do(t, e, http.MethodGet, "/v1/runs/"+rep.ID+"/export?format=pdf", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodDelete, "/v1/runs/"+rep.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"deleted":true`)

	rec = do(t, e, http.MethodGet, "/v1/runs/"+rep.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found_error", decode[ErrorBody](t, rec).Error.Type)
}

func TestRunReportsFailures(t *testing.T) {
	t.Parallel()
	_, e := newTestServer(t, func(cfg *Config) {
		cfg.Open = func(string) (memcpy.Runtime, error) {
			return sim.New(sim.Options{Faults: sim.Faults{AcceptNull: true}}), nil
		}
	})
	rec := do(t, e, http.MethodPost, "/v1/runs", `{"elements":4096,"cases":["negative/MemcpyHtoD/*"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rep := decode[memcpytest.Report](t, rec)
	require.Equal(t, 3, rep.Totals.Fail)

	rec = do(t, e, http.MethodGet, "/v1/runs?failed=true&limit=5", "")
	require.Len(t, decode[struct{ Data []history.Summary }](t, rec).Data, 1)
}

func TestCreateRunValidation(t *testing.T) {
	t.Parallel()
	_, e := newTestServer(t, nil)
	for _, body := range []string{
		`{"backend":"opencl"}`,
		`{"groups":["bogus"]}`,
		`{"cases":["negative/["]}`,
		`{"elements":3}`,
		`{"device":-1}`,
		`{"threads":4}`,
		`{`,
	} {
		rec := do(t, e, http.MethodPost, "/v1/runs", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.Equal(t, "invalid_request_error", decode[ErrorBody](t, rec).Error.Type, body)
	}
	rec := do(t, e, http.MethodGet, "/v1/runs?limit=x", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	_, e := newTestServer(t, func(cfg *Config) { cfg.TokenHash = string(hash) })

	rec := do(t, e, http.MethodGet, "/v1/cases", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = do(t, e, http.MethodGet, "/v1/cases", "", "Authorization", "Bearer wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodGet, "/v1/cases", "", "Authorization", "bearer s3cret")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/v1/cases?access_token=s3cret", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHashToken(t *testing.T) {
	t.Parallel()
	hash, err := HashToken("token")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("token")))
	require.Equal(t, "abc", bearerToken("Bearer  abc "))
	require.Empty(t, bearerToken("Basic abc"))
}

func TestRunThrottle(t *testing.T) {
	t.Parallel()
	_, e := newTestServer(t, func(cfg *Config) {
		cfg.RunRate = rate.Every(time.Hour)
		cfg.RunBurst = 1
	})
	rec := do(t, e, http.MethodPost, "/v1/runs", roundTripRun)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, e, http.MethodPost, "/v1/runs", roundTripRun)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(t, e, http.MethodGet, "/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLiveStream(t *testing.T) {
	t.Parallel()
	s, e := newTestServer(t, nil)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/runs/live", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/v1/runs", echo.MIMEApplicationJSON, bytes.NewBufferString(roundTripRun))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var events []liveEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for len(events) < 7 {
		var evt liveEvent
		require.NoError(t, conn.ReadJSON(&evt))
		events = append(events, evt)
	}
	require.Equal(t, "start", events[0].Type)
	for _, evt := range events[1:6] {
		require.Equal(t, "result", evt.Type)
		require.Equal(t, events[0].RunID, evt.RunID)
		require.Equal(t, memcpytest.Pass, evt.Result.Outcome)
	}
	require.Equal(t, "summary", events[6].Type)
	require.Equal(t, 5, events[6].Totals.Pass)
}
