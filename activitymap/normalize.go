// Package activitymap flattens session activity events into audit records
// and writes them as JSON lines.
package activitymap

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-errors"
)

const (
	MetadataKeyRole     = "role"
	MetadataKeyUsername = "username"

	// DefaultChannel tags records when no channel is configured
	DefaultChannel = "backoffice"

	sessionObject  = "session"
	anonymousActor = "anonymous"
)

// Normalized is one audit record
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type settings struct {
	channel string
}

// Option configures Normalize and JSONLinesSink
type Option func(*settings)

// WithChannel tags records with channel. A blank channel keeps
// DefaultChannel.
func WithChannel(channel string) Option {
	return func(s *settings) {
		if channel = strings.TrimSpace(channel); channel != "" {
			s.channel = channel
		}
	}
}

// Normalize builds the audit record for event. The actor is the user id,
// then the username, then "anonymous". Role and username are copied into
// the metadata unless the event already carries those keys.
func Normalize(event authclient.ActivityEvent, opts ...Option) Normalized {
	s := settings{channel: DefaultChannel}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	userID := strings.TrimSpace(event.UserID)
	username := strings.TrimSpace(event.Username)

	actor := userID
	if actor == "" {
		actor = username
	}
	if actor == "" {
		actor = anonymousActor
	}

	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actor,
		Verb:       string(event.EventType),
		ObjectType: sessionObject,
		ObjectID:   userID,
		Channel:    s.channel,
		Metadata:   recordMetadata(event.Metadata, string(event.Role), username),
		OccurredAt: at,
	}
}

func recordMetadata(src map[string]any, role, username string) map[string]any {
	out := make(map[string]any, len(src)+2)
	for k, v := range src {
		out[k] = v
	}
	setIfMissing(out, MetadataKeyRole, strings.TrimSpace(role))
	setIfMissing(out, MetadataKeyUsername, username)
	if len(out) == 0 {
		return nil
	}
	return out
}

func setIfMissing(m map[string]any, key, value string) {
	if value == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

// JSONLinesSink returns an ActivitySink that writes one normalized JSON
// record per line to w. Writes are serialized.
func JSONLinesSink(w io.Writer, opts ...Option) authclient.ActivitySink {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return authclient.ActivitySinkFunc(func(_ context.Context, event authclient.ActivityEvent) error {
		record := Normalize(event, opts...)

		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(record); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to write activity record").
				WithMetadata(map[string]any{"verb": record.Verb})
		}
		return nil
	})
}

// Fanout records each event on every sink and returns the first error.
func Fanout(sinks ...authclient.ActivitySink) authclient.ActivitySink {
	return authclient.ActivitySinkFunc(func(ctx context.Context, event authclient.ActivityEvent) error {
		var first error
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
