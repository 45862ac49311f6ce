// Command uactl is a CLI client for the Universal API HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "universal-api")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "universal-api")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

// tokenExpiry reads exp without verifying the signature; the server does that.
func tokenExpiry(tok string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Now().Add(15 * time.Minute), nil
	}
	return claims.ExpiresAt.Time, nil
}

// ---- utils ----

func readAll(stdin io.Reader, p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `uactl CLI
Usage:
  uactl -addr URL [-cacert file | -insecure] <cmd> [args]

Commands:
  version
  health
  login      -token <jwt> | -file <path|->          (saves token)
  logout
  whoami
  msg|map    list | mine | by -user <id>
  msg|map    get  -id <n>
  msg        add  -content <text>
  msg        edit -id <n> -content <text>
  map        add  -name <name> -state <file|->
  map        edit -id <n> -name <name> -state <file|->
  msg|map    rm   -id <n>
`)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type globals struct {
	addr     string
	caPath   string
	insecure bool
	stdin    io.Reader
	stdout   io.Writer
}

// run parses global flags and dispatches a subcommand. It returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("uactl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	g := globals{stdin: stdin, stdout: stdout}
	fs.StringVar(&g.addr, "addr", envOr("UA_ADDR", "http://localhost:8080"), "server base URL")
	fs.StringVar(&g.caPath, "cacert", "", "CA cert (PEM)")
	fs.BoolVar(&g.insecure, "insecure", false, "skip cert verify (dev)")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := dispatch(ctx, g, fs.Arg(0), fs.Args()[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, ue.msg)
			return 2
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func dispatch(ctx context.Context, g globals, cmd string, args []string) error {
	switch cmd {
	case "version":
		fmt.Fprintf(g.stdout, "uactl %s (%s)\n", version, buildDate)
		return nil

	case "health":
		c, err := newClient(g.addr, g.caPath, g.insecure, "")
		if err != nil {
			return err
		}
		h, err := c.health(ctx)
		if err != nil {
			return err
		}
		printJSON(g.stdout, h)
		if h.Status == "unhealthy" {
			return errors.New("server unhealthy")
		}
		return nil

	case "login":
		return cmdLogin(g, args)

	case "logout":
		if err := os.Remove(tokenPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		fmt.Fprintln(g.stdout, "ok")
		return nil

	case "whoami":
		c, err := authed(g)
		if err != nil {
			return err
		}
		id, err := c.whoami(ctx)
		if err != nil {
			return err
		}
		printJSON(g.stdout, id)
		return nil

	case "msg", "messages", "map", "map-states":
		if len(args) < 1 {
			return usageError{msg: "need a subcommand: list|mine|by|get|add|edit|rm"}
		}
		c, err := authed(g)
		if err != nil {
			return err
		}
		collection, _ := resourcePath(cmd)
		if strings.HasPrefix(cmd, "msg") || cmd == "messages" {
			return cmdMessages(ctx, g, c, collection, args[0], args[1:])
		}
		return cmdMapStates(ctx, g, c, collection, args[0], args[1:])
	}
	return usageError{msg: "unknown command " + cmd + " (see -h)"}
}

func authed(g globals) (*apiClient, error) {
	token, err := loadToken()
	if err != nil {
		return nil, err
	}
	return newClient(g.addr, g.caPath, g.insecure, token)
}

func cmdLogin(g globals, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	tok := fs.String("token", "", "bearer token (JWT)")
	file := fs.String("file", "", "read token from file ('-'=stdin)")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if *tok == "" && *file != "" {
		b, err := readAll(g.stdin, *file)
		if err != nil {
			return err
		}
		*tok = strings.TrimSpace(string(b))
	}
	if *tok == "" {
		return usageError{msg: "need -token or -file"}
	}
	exp, err := tokenExpiry(*tok)
	if err != nil {
		return err
	}
	if time.Now().After(exp) {
		return errors.New("token already expired")
	}
	if err := saveToken(*tok, exp); err != nil {
		return err
	}
	fmt.Fprintln(g.stdout, "ok")
	return nil
}
