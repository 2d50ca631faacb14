package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/dtroode/privenote-server/pkg/noteclient"
	"github.com/dtroode/privenote-server/pkg/notelink"
)

type clientConfig struct {
	APIURL string        `env:"API_URL" envDefault:"http://localhost:5000"`
	Token  string        `env:"TOKEN"`
	Origin string        `env:"ORIGIN"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// stdinIsTerminal and readSecret are seams for the no-echo prompt.
	stdinIsTerminal func() bool
	readSecret      func() ([]byte, error)
	runVerify       func(ctx context.Context, command string) (bool, error)
	httpClient      *http.Client
	now             func() time.Time
}

func newApp() *app {
	fd := int(os.Stdin.Fd())
	return &app{
		stdin:           os.Stdin,
		stdout:          os.Stdout,
		stderr:          os.Stderr,
		stdinIsTerminal: func() bool { return term.IsTerminal(fd) },
		readSecret:      func() ([]byte, error) { return term.ReadPassword(fd) },
		runVerify:       runVerifyCommand,
		now:             time.Now,
	}
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.usage()
		return 2
	}

	var cfg clientConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "NOTECTL_"}); err != nil {
		fmt.Fprintf(a.stderr, "notectl: invalid environment: %v\n", err)
		return 1
	}

	hc := a.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	client := noteclient.New(cfg.APIURL,
		noteclient.WithHTTPClient(hc),
		noteclient.WithToken(cfg.Token),
		noteclient.WithOrigin(cfg.Origin),
	)

	var err error
	switch args[0] {
	case "create":
		err = a.create(ctx, client, args[1:])
	case "open":
		err = a.open(ctx, client, args[1:])
	case "delete":
		err = a.delete(ctx, client, args[1:])
	default:
		a.usage()
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(a.stderr, "notectl: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) usage() {
	fmt.Fprintln(a.stderr, "usage: notectl create|open|delete [flags]")
}

func (a *app) create(ctx context.Context, client *noteclient.Client, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	ttl := fs.Duration("ttl", 10*time.Minute, "note lifetime")
	viewOnce := fs.Bool("view-once", false, "destroy the note after it is read")
	attempts := fs.Int("attempts", 0, "failed identity checks allowed, 0 for unlimited")
	requestID := fs.String("request-id", "", "idempotency key for retries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := noteclient.CreateOptions{TTL: *ttl, ViewOnce: *viewOnce}
	if *attempts > 0 {
		opts.AttemptLimit = attempts
	}
	if *requestID != "" {
		id, err := uuid.Parse(*requestID)
		if err != nil {
			return fmt.Errorf("invalid -request-id: %w", err)
		}
		opts.RequestID = id
	}

	plaintext, err := a.readNote()
	if err != nil {
		return err
	}
	if len(plaintext) == 0 {
		return errors.New("note is empty")
	}

	created, err := client.Create(ctx, plaintext, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, created.Link)
	fmt.Fprintf(a.stderr, "expires in %s\n", notelink.FormatTTL(int(ttl.Minutes()), a.now().Add(*ttl)))
	if *viewOnce {
		fmt.Fprintln(a.stderr, "the note is destroyed after it is read")
	}
	return nil
}

func (a *app) readNote() ([]byte, error) {
	if a.stdinIsTerminal() {
		fmt.Fprint(a.stderr, "Note (hidden): ")
		b, err := a.readSecret()
		fmt.Fprintln(a.stderr)
		if err != nil {
			return nil, fmt.Errorf("read note: %w", err)
		}
		return b, nil
	}

	b, err := io.ReadAll(a.stdin)
	if err != nil {
		return nil, fmt.Errorf("read note: %w", err)
	}
	return []byte(strings.TrimRight(string(b), "\r\n")), nil
}

func (a *app) open(ctx context.Context, client *noteclient.Client, args []string) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	verifyCmd := fs.String("verify-cmd", "", "shell command that exits 0 when the viewer is verified")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("open needs exactly one link")
	}

	var verify noteclient.Verifier
	if *verifyCmd != "" {
		verify = func(ctx context.Context) (bool, error) {
			return a.runVerify(ctx, *verifyCmd)
		}
	}

	opened, err := client.Open(ctx, fs.Arg(0), verify)
	if err != nil {
		return err
	}

	_, _ = a.stdout.Write(opened.Plaintext)
	fmt.Fprintln(a.stdout)
	if opened.ViewOnce {
		fmt.Fprintln(a.stderr, "this note has been destroyed")
	} else {
		fmt.Fprintf(a.stderr, "expires in %s\n", notelink.FormatCountdown(a.now(), opened.ExpiresAt))
	}
	return nil
}

func (a *app) delete(ctx context.Context, client *noteclient.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("delete needs exactly one note id")
	}
	if err := client.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.stderr, "note deleted")
	return nil
}

// runVerifyCommand treats a zero exit status as a successful identity check
// and any other exit status as a failed one.
func runVerifyCommand(ctx context.Context, command string) (bool, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &exitErr):
		return false, nil
	default:
		return false, err
	}
}
