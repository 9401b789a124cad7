package authclient

import (
	"context"
	"time"
)

// ActivityEventType names a session transition worth auditing
type ActivityEventType string

const (
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventLogout               ActivityEventType = "auth.logout"
	ActivityEventSessionExpired       ActivityEventType = "auth.session.expired"
	ActivityEventSessionDenied        ActivityEventType = "auth.session.denied"
	ActivityEventSessionRehydrated    ActivityEventType = "auth.session.rehydrated"
	ActivityEventSessionRehydrateFail ActivityEventType = "auth.session.rehydrate_failed"
)

// ActivityEvent is emitted by the SessionManager and RouteGuard on every
// transition an operator may want to audit.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Username   string
	Role       UserRole
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives activity events. Errors are logged by the caller
// and never fail the transition that produced the event.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc lets a plain function act as an ActivitySink
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type discardSink struct{}

func (discardSink) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(sink ActivitySink) ActivitySink {
	if sink == nil {
		return discardSink{}
	}
	return sink
}

// LoggerActivitySink writes every event to a Logger
func LoggerActivitySink(logger Logger) ActivitySink {
	logger = normalizeLogger(logger)
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		logger.Info("activity",
			"event", event.EventType,
			"user_id", event.UserID,
			"username", event.Username,
			"role", event.Role,
			"metadata", event.Metadata,
		)
		return nil
	})
}
