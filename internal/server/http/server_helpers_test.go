package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/limiter"
	"github.com/and161185/universal-api/internal/metrics"
	"github.com/and161185/universal-api/internal/model"
	"github.com/and161185/universal-api/internal/repository/memory"
	"github.com/and161185/universal-api/internal/service"
)

const (
	tokU1    = "tok-u1"
	tokU2    = "tok-u2"
	tokAdmin = "tok-admin"
)

type fakeAuth map[string]model.Identity

func (f fakeAuth) Identify(token string) (model.Identity, error) {
	id, ok := f[token]
	if !ok {
		return model.Identity{}, errs.ErrUnauthenticated
	}
	return id, nil
}

func testAuth() fakeAuth {
	return fakeAuth{
		tokU1:    {Subject: "u1", Roles: []string{}, Groups: []string{}},
		tokU2:    {Subject: "u2", Roles: []string{"user"}, Groups: []string{}},
		tokAdmin: {Subject: "root", Roles: []string{model.AdminRole}, Groups: []string{}},
	}
}

type fakeHealth struct{ status model.HealthStatus }

func (f fakeHealth) Check(_ context.Context) model.HealthCheck {
	return model.HealthCheck{Status: f.status, Details: map[string]string{"database": string(f.status)}}
}

type harness struct {
	h       http.Handler
	metrics *metrics.Metrics
	store   *memory.Store
}

func newHarness(t *testing.T, mod ...func(*Deps)) *harness {
	t.Helper()
	store := memory.New()
	m := metrics.New()
	d := Deps{
		Log:        zaptest.NewLogger(t),
		ServiceTag: "Universal API@0.1.0",
		Messages:   service.NewMessageService(store.Messages()),
		MapStates:  service.NewMapStateService(store.MapStates()),
		Health:     fakeHealth{status: model.HealthHealthy},
		Auth:       testAuth(),
		Lockout:    limiter.NewMemory(limiter.Settings{Window: time.Minute, MaxFails: 3, BlockFor: time.Minute}),
		Metrics:    m,
	}
	for _, f := range mod {
		f(&d)
	}
	return &harness{h: NewRouter(d), metrics: m, store: store}
}

func (hs *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	require.Equal(t, code, body.Error)
	return body
}
