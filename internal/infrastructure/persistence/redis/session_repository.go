package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/session"
	"github.com/vhm24/taskflow/internal/domain/repository"
)

const (
	sessionKeyPrefix = "taskflow:session:"
	actorsSetKey     = "taskflow:sessions"
)

// SessionRepository is the Redis-backed session store used when several
// transport workers share one engine deployment. Sessions carry no TTL on
// purpose: idle expiry must go through the sweep so the bound task is
// reverted, not silently dropped.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository connects to Redis and verifies the connection
func NewSessionRepository(redisURL string) (*SessionRepository, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &SessionRepository{client: client}, nil
}

// NewSessionRepositoryWithClient wraps an existing client; used by tests
func NewSessionRepositoryWithClient(client *redis.Client) repository.SessionRepository {
	return &SessionRepository{client: client}
}

// Disconnect releases the underlying client
func (r *SessionRepository) Disconnect() error {
	return r.client.Close()
}

type sessionRecord struct {
	ActorID        string    `json:"actor_id"`
	TaskInstanceID string    `json:"task_instance_id"`
	OpenedAt       time.Time `json:"opened_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Open stores a new session. SETNX enforces one session per actor.
func (r *SessionRepository) Open(ctx context.Context, s *session.Session) error {
	record := sessionRecord{
		ActorID:        s.ActorID().String(),
		TaskInstanceID: s.TaskInstanceID().String(),
		OpenedAt:       s.OpenedAt().Value(),
		LastActivityAt: s.LastActivityAt().Value(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, sessionKeyPrefix+record.ActorID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("actor %s: %w", record.ActorID, model.ErrActorBusy)
	}
	if err := r.client.SAdd(ctx, actorsSetKey, record.ActorID).Err(); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

// Find retrieves the actor's session
func (r *SessionRepository) Find(ctx context.Context, actorID model.ActorID) (*session.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+actorID.String()).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("session for actor %s: %w", actorID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	return decodeSession(data)
}

// Touch updates lastActivityAt for the actor's session
func (r *SessionRepository) Touch(ctx context.Context, actorID model.ActorID, at time.Time) error {
	key := sessionKeyPrefix + actorID.String()
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return fmt.Errorf("session for actor %s: %w", actorID, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("fetch session: %w", err)
	}
	var record sessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("unmarshal session: %w", err)
	}
	record.LastActivityAt = at
	updated, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Close removes the actor's session; absent sessions are ignored
func (r *SessionRepository) Close(ctx context.Context, actorID model.ActorID) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, sessionKeyPrefix+actorID.String())
	pipe.SRem(ctx, actorsSetKey, actorID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListIdleSince retrieves sessions idle past the cutoff
func (r *SessionRepository) ListIdleSince(ctx context.Context, cutoff time.Time) ([]*session.Session, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var idle []*session.Session
	for _, s := range all {
		if s.LastActivityAt().Value().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	return idle, nil
}

// List retrieves all open sessions
func (r *SessionRepository) List(ctx context.Context) ([]*session.Session, error) {
	actorIDs, err := r.client.SMembers(ctx, actorsSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []*session.Session
	for _, id := range actorIDs {
		data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
		if err == redis.Nil {
			// Index entry outlived its session; drop it.
			r.client.SRem(ctx, actorsSetKey, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch session %s: %w", id, err)
		}
		s, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func decodeSession(data []byte) (*session.Session, error) {
	var record sessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	actorID, err := model.NewActorID(record.ActorID)
	if err != nil {
		return nil, fmt.Errorf("invalid actor ID: %w", err)
	}
	taskID, err := model.NewTaskInstanceIDFromString(record.TaskInstanceID)
	if err != nil {
		return nil, fmt.Errorf("invalid task instance ID: %w", err)
	}
	return session.Reconstruct(actorID, taskID, record.OpenedAt, record.LastActivityAt), nil
}
