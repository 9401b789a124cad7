package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/activitymap"
	"github.com/goliatone/go-auth-client/config"
	"github.com/goliatone/go-auth-client/storage/bunstore"
	"github.com/goliatone/go-auth-client/storage/redisstore"
	"github.com/goliatone/go-errors"
)

// app holds the wired client stack for one CLI invocation
type app struct {
	cfg     *config.Config
	logger  authclient.Logger
	session *authclient.SessionManager
	guard   *authclient.RouteGuard
	api     *authclient.APIClient
	out     io.Writer
	closers []func() error
}

// newApp wires storage, session, guard and API clients from cfg. transport
// overrides the base http transport, nil means http.DefaultTransport.
func newApp(ctx context.Context, cfg *config.Config, transport http.RoundTripper, out, logOut io.Writer) (*app, error) {
	logger := newLogger(logOut, cfg.LogLevel)
	a := &app{
		cfg:    cfg,
		logger: logger,
		out:    out,
	}

	storage, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}
	store := authclient.NewTokenStore(storage, cfg.GetStorageKeys())

	base := &http.Client{Timeout: cfg.Timeout, Transport: transport}

	// login requests go out unsigned so a rejected login never ends the
	// current session
	loginAPI, err := authclient.NewAPIClient(cfg.GetBaseURL(), base)
	if err != nil {
		a.Close()
		return nil, err
	}
	loginAPI.WithLogger(logger)

	loginClient := authclient.NewHTTPLoginClient(loginAPI).
		WithPath(cfg.GetLoginPath()).
		WithPhoneRegion(cfg.GetPhoneRegion()).
		WithFields(cfg.GetLoginFields())

	sink, err := a.activitySink()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.session = authclient.NewSessionManager(loginClient, store).
		WithLogger(logger).
		WithActivitySink(sink)

	if cfg.JWKSURL != "" {
		kf, stop, err := authclient.NewJWKSKeyfunc(cfg.JWKSURL, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { stop(); return nil })
		a.session.WithDecoder(authclient.NewCredentialDecoder(kf))
	}

	signed := authclient.NewAuthenticatedHTTPClient(a.session, base)
	if ra, ok := signed.Transport.(*authclient.RequestAuthenticator); ok {
		ra.WithLogger(logger).WithAuthScheme(cfg.GetAuthScheme())
	}

	a.api, err = authclient.NewAPIClient(cfg.GetBaseURL(), signed)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.api.WithLogger(logger)

	rules, err := cfg.Rules()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.guard = authclient.NewRouteGuard(a.session, authclient.NewAccessPolicy(rules)).
		WithLogger(logger).
		WithRoutes(cfg.GetLoginRoute(), cfg.GetDefaultRoute())

	if err := a.session.Start(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) openStorage(ctx context.Context) (authclient.Storage, error) {
	sc := a.cfg.Storage
	switch sc.Driver {
	case config.DriverMemory:
		return authclient.NewMemoryStorage(), nil
	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, sc.RedisAddr, sc.RedisPassword, sc.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return redisstore.New(client,
			redisstore.WithPrefix(sc.RedisPrefix),
			redisstore.WithTTL(sc.TTL),
		), nil
	case config.DriverSQLite, "":
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0o700); err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create session directory")
		}
		storage, closeDB, err := bunstore.Open(ctx, sc.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeDB)
		return storage, nil
	default:
		return nil, errors.New("unknown storage driver", errors.CategoryValidation).
			WithMetadata(map[string]any{"driver": sc.Driver})
	}
}

// activitySink logs every session event and, when log.audit_path is set,
// appends a normalized JSON line per event to that file
func (a *app) activitySink() (authclient.ActivitySink, error) {
	logSink := authclient.LoggerActivitySink(a.logger)
	if a.cfg.AuditPath == "" {
		return logSink, nil
	}

	if err := os.MkdirAll(filepath.Dir(a.cfg.AuditPath), 0o700); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create audit directory")
	}
	f, err := os.OpenFile(a.cfg.AuditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open audit log").
			WithMetadata(map[string]any{"path": a.cfg.AuditPath})
	}
	a.closers = append(a.closers, f.Close)

	return activitymap.Fanout(logSink, activitymap.JSONLinesSink(f, activitymap.WithChannel(a.cfg.AuditChannel))), nil
}

// Close releases storage connections
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
