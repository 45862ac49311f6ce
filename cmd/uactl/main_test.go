package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/universal-api/internal/identity"
	"github.com/and161185/universal-api/internal/limiter"
	"github.com/and161185/universal-api/internal/metrics"
	"github.com/and161185/universal-api/internal/model"
	"github.com/and161185/universal-api/internal/repository/memory"
	httpserver "github.com/and161185/universal-api/internal/server/http"
	"github.com/and161185/universal-api/internal/service"
)

var testSecret = []byte("cli-test-secret")

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "universal-api")
}

func mint(t *testing.T, sub string, roles []string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"roles": roles,
		"exp":   exp.Unix(),
	})
	s, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	v, err := identity.NewVerifier(identity.VerifierConfig{HMACSecret: testSecret})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	store := memory.New()
	h := httpserver.NewRouter(httpserver.Deps{
		Log:        zap.NewNop(),
		ServiceTag: "Universal API@test",
		Messages:   service.NewMessageService(store.Messages()),
		MapStates:  service.NewMapStateService(store.MapStates()),
		Health:     service.NewHealthService(store, time.Second),
		Auth:       v,
		Lockout:    limiter.Nop{},
		Metrics:    metrics.New(),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

// cli runs one command and returns exit code, stdout and stderr.
func cli(t *testing.T, addr, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(append([]string{"-addr", addr}, args...), strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func Test_cfgDir_And_Paths(t *testing.T) {
	base := withTmpConfig(t)
	if got := cfgDir(); got != base {
		t.Fatalf("cfgDir=%q, want %q", got, base)
	}
	if !strings.HasPrefix(tokenPath(), base) || !strings.HasSuffix(tokenPath(), "token.json") {
		t.Fatalf("tokenPath unexpected: %s", tokenPath())
	}
}

func Test_token_SaveLoad(t *testing.T) {
	_ = withTmpConfig(t)

	if _, err := loadToken(); err == nil {
		t.Fatalf("expected error when token file missing")
	}
	if err := saveToken("tok", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	tok, err := loadToken()
	if err != nil || tok != "tok" {
		t.Fatalf("loadToken: tok=%q err=%v", tok, err)
	}
	fi, err := os.Stat(tokenPath())
	if err != nil || fi.Mode().Perm() != 0o600 {
		t.Fatalf("token file mode: %v %v", fi, err)
	}
	if err := saveToken("tok2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("saveToken expired: %v", err)
	}
	if _, err := loadToken(); err == nil {
		t.Fatalf("want error for expired token")
	}
}

func Test_tokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, err := tokenExpiry(mint(t, "u1", nil, exp))
	if err != nil || !got.Equal(exp) {
		t.Fatalf("tokenExpiry=%v err=%v, want %v", got, err, exp)
	}
	if _, err := tokenExpiry("not-a-jwt"); err == nil {
		t.Fatalf("want parse error")
	}
}

func Test_loadTLS(t *testing.T) {
	tc, err := loadTLS("", true)
	if err != nil || tc == nil || !tc.InsecureSkipVerify {
		t.Fatalf("insecure: %v %v", tc, err)
	}
	tc, err = loadTLS("", false)
	if err != nil || tc != nil {
		t.Fatalf("default: %v %v", tc, err)
	}
	bad := filepath.Join(t.TempDir(), "ca.pem")
	_ = os.WriteFile(bad, []byte("junk"), 0o600)
	if _, err := loadTLS(bad, false); err == nil {
		t.Fatalf("want bad CA error")
	}
	if _, err := loadTLS(filepath.Join(t.TempDir(), "missing.pem"), false); err == nil {
		t.Fatalf("want missing file error")
	}
}

func Test_apiError_Format(t *testing.T) {
	e := &apiError{Status: 400, Code: "validation", Message: "invalid input", Fields: map[string]string{"name": "is required", "content": "is required"}}
	want := "http 400: validation: invalid input\n  content: is required\n  name: is required"
	if e.Error() != want {
		t.Fatalf("got %q", e.Error())
	}
}

func Test_Usage(t *testing.T) {
	if code, _, _ := cli(t, "http://127.0.0.1:1", ""); code != 2 {
		t.Fatalf("no command: code=%d", code)
	}
	if code, _, _ := cli(t, "http://127.0.0.1:1", "", "bogus"); code != 2 {
		t.Fatalf("unknown command: code=%d", code)
	}
	code, out, _ := cli(t, "http://127.0.0.1:1", "", "version")
	if code != 0 || !strings.HasPrefix(out, "uactl ") {
		t.Fatalf("version: code=%d out=%q", code, out)
	}
}

func Test_EndToEnd(t *testing.T) {
	_ = withTmpConfig(t)
	srv := newAPI(t)

	code, out, _ := cli(t, srv.URL, "", "health")
	if code != 0 || !strings.Contains(out, `"healthy"`) {
		t.Fatalf("health: code=%d out=%s", code, out)
	}

	// not logged in yet
	if code, _, errOut := cli(t, srv.URL, "", "whoami"); code != 1 || !strings.Contains(errOut, "login required") {
		t.Fatalf("whoami before login: code=%d err=%s", code, errOut)
	}

	u1 := mint(t, "u1", nil, time.Now().Add(time.Hour))
	if code, _, errOut := cli(t, srv.URL, u1+"\n", "login", "-file", "-"); code != 0 {
		t.Fatalf("login: code=%d err=%s", code, errOut)
	}

	code, out, _ = cli(t, srv.URL, "", "whoami")
	var me caller
	if code != 0 || json.Unmarshal([]byte(out), &me) != nil || me.Subject != "u1" {
		t.Fatalf("whoami: code=%d out=%s", code, out)
	}

	code, out, _ = cli(t, srv.URL, "", "msg", "add", "-content", "hello")
	var created viewed[message]
	if code != 0 || json.Unmarshal([]byte(out), &created) != nil {
		t.Fatalf("add: code=%d out=%s", code, out)
	}
	if created.Record.ID != 1 || created.Record.UserID != "u1" || created.ViewedBy.Subject != "u1" {
		t.Fatalf("add: %+v", created)
	}

	code, _, errOut := cli(t, srv.URL, "", "msg", "add")
	if code != 1 || !strings.Contains(errOut, "validation") || !strings.Contains(errOut, "content: is required") {
		t.Fatalf("add empty: code=%d err=%s", code, errOut)
	}

	code, out, _ = cli(t, srv.URL, "", "msg", "edit", "-id", "1", "-content", "hi")
	if code != 0 || !strings.Contains(out, `"content": "hi"`) {
		t.Fatalf("edit: code=%d out=%s", code, out)
	}

	code, out, _ = cli(t, srv.URL, "", "msg", "mine")
	var mine []viewed[message]
	if code != 0 || json.Unmarshal([]byte(out), &mine) != nil || len(mine) != 1 {
		t.Fatalf("mine: code=%d out=%s", code, out)
	}

	// list_all needs admin
	if code, _, errOut := cli(t, srv.URL, "", "msg", "list"); code != 1 || !strings.Contains(errOut, "http 403") {
		t.Fatalf("list as user: code=%d err=%s", code, errOut)
	}

	code, out, _ = cli(t, srv.URL, `{"zoom":3}`+"\n", "map", "add", "-name", "My Map", "-state", "-")
	var ms viewed[mapState]
	if code != 0 || json.Unmarshal([]byte(out), &ms) != nil || ms.Record.State != `{"zoom":3}` {
		t.Fatalf("map add: code=%d out=%s", code, out)
	}

	// another user cannot read u1's map state
	u2 := mint(t, "u2", nil, time.Now().Add(time.Hour))
	if code, _, _ := cli(t, srv.URL, "", "login", "-token", u2); code != 0 {
		t.Fatalf("login u2")
	}
	if code, _, errOut := cli(t, srv.URL, "", "map", "get", "-id", "1"); code != 1 || !strings.Contains(errOut, "forbidden") {
		t.Fatalf("map get as u2: code=%d err=%s", code, errOut)
	}

	admin := mint(t, "root", []string{model.AdminRole}, time.Now().Add(time.Hour))
	if code, _, _ := cli(t, srv.URL, "", "login", "-token", admin); code != 0 {
		t.Fatalf("login admin")
	}
	code, out, _ = cli(t, srv.URL, "", "msg", "by", "-user", "u1")
	var byU1 []viewed[message]
	if code != 0 || json.Unmarshal([]byte(out), &byU1) != nil || len(byU1) != 1 || byU1[0].ViewedBy.Subject != "root" {
		t.Fatalf("by: code=%d out=%s", code, out)
	}
	if code, _, _ := cli(t, srv.URL, "", "msg", "rm", "-id", "1"); code != 0 {
		t.Fatalf("rm as admin: code=%d", code)
	}
	if code, _, errOut := cli(t, srv.URL, "", "msg", "get", "-id", "1"); code != 1 || !strings.Contains(errOut, "not_found") {
		t.Fatalf("get deleted: code=%d err=%s", code, errOut)
	}

	if code, _, _ := cli(t, srv.URL, "", "logout"); code != 0 {
		t.Fatalf("logout")
	}
	if _, err := os.Stat(tokenPath()); !os.IsNotExist(err) {
		t.Fatalf("token not removed: %v", err)
	}
}

func Test_Login_Rejects(t *testing.T) {
	_ = withTmpConfig(t)
	if code, _, _ := cli(t, "http://127.0.0.1:1", "", "login"); code != 2 {
		t.Fatalf("missing token: code=%d", code)
	}
	old := mint(t, "u1", nil, time.Now().Add(-time.Hour))
	if code, _, errOut := cli(t, "http://127.0.0.1:1", "", "login", "-token", old); code != 1 || !strings.Contains(errOut, "expired") {
		t.Fatalf("expired: code=%d err=%s", code, errOut)
	}
}
