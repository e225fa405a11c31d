package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ppiankov/ghitriage/internal/api"
	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/render"
	"github.com/ppiankov/ghitriage/internal/session"
)

// errNotLoggedIn is returned by commands that need a session when none exists
var errNotLoggedIn = fmt.Errorf("not logged in: %w", api.ErrUnauthenticated)

// app wires the session, client and logger for one command invocation
type app struct {
	cfg     *model.Config
	logger  *slog.Logger
	session *session.Session
	client  *api.Client
	release func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	switch outFormat {
	case render.FormatTable, render.FormatJSON, render.FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported output format %q (want table, json or yaml)", outFormat)
	}

	logger := newLogger(cfg.Log, os.Stderr)

	store, closeStore, err := session.OpenStore(cfg.Session)
	if err != nil {
		return nil, err
	}
	sess := session.New(store, cfg.Session.TokenKey, logger)

	opts := api.OptionsFromConfig(cfg)
	opts.Logger = logger
	client, err := api.New(opts, sess)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	// A stored token that cannot be resolved right now is not fatal; the
	// command fails later with a clearer error if it needs the session
	if err := sess.Restore(ctx, client); err != nil {
		logger.Warn("could not restore session", "error", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		session: sess,
		client:  client,
		release: closeStore,
	}, nil
}

// requireSession fails unless the restored session is authenticated
func (a *app) requireSession() error {
	if !a.session.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

// withApp runs fn with a wired app and releases it afterwards
func withApp(ctx context.Context, needSession bool, fn func(a *app) error) (err error) {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.release(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if needSession {
		if err := a.requireSession(); err != nil {
			return err
		}
	}
	return fn(a)
}

// emit renders v in the selected structured format, or calls table
func emit(v any, table func()) error {
	if outFormat == render.FormatTable {
		table()
		return nil
	}
	return render.Structured(os.Stdout, outFormat, v)
}

// LoginHint reports whether err should be followed by a prompt to log in
func LoginHint(err error) bool {
	if !errors.Is(err, api.ErrUnauthenticated) {
		return false
	}
	var authErr *api.AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind == api.SessionExpired
	}
	return true
}
