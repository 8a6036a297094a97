package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"applicant-intake/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")
	ErrConflict        = errors.New("SESSION_UPDATE_CONFLICT")
)

const maxUpdateAttempts = 5

// Store keeps sessions as JSON under "<prefix>:session:<bookingID>".
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *Store) key(bookingID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, bookingID)
}

// Get returns ErrSessionNotFound when no session is stored for the booking.
func (s *Store) Get(ctx context.Context, bookingID string) (Session, error) {
	raw, err := s.client.Get(ctx, s.key(bookingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, bookingID)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return decode(raw)
}

// Put overwrites the stored session and refreshes its TTL.
func (s *Store) Put(ctx context.Context, sess Session) (Session, error) {
	sess.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.BookingID), raw, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("put session: %w", err)
	}
	return sess, nil
}

// Update applies fn to the stored session inside WATCH/MULTI and retries when
// another writer changed the key in between. An error from fn aborts without
// writing and is returned as is.
func (s *Store) Update(ctx context.Context, bookingID string, fn func(*Session) error) (Session, error) {
	key := s.key(bookingID)
	var out Session

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, bookingID)
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		sess, err := decode(raw)
		if err != nil {
			return err
		}
		if err := fn(&sess); err != nil {
			return err
		}
		sess.UpdatedAt = s.now().UTC()
		encoded, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err == nil {
			out = sess
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return out, err
	}
	return Session{}, fmt.Errorf("%w: %s", ErrConflict, bookingID)
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, bookingID string) error {
	if err := s.client.Del(ctx, s.key(bookingID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func decode(raw []byte) (Session, error) {
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if sess.Files == nil {
		sess.Files = models.FileBuckets{}
	}
	if sess.PersistedIDs == nil {
		sess.PersistedIDs = map[string]string{}
	}
	return sess, nil
}
