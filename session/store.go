package session

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when a looked-up token has no active row,
// i.e. it was revoked or never issued.
var ErrTokenNotFound = errors.New("active token not found")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const recordVersionV1 = 1

// Record is one ActiveToken row: the binding of a user to the single bearer
// token currently valid for that user.
type Record struct {
	UserID    string
	CreatedAt int64
}

// deleteTokenScript removes a token row and, when the user index still
// points at that literal token, the index entry as well. Returns the user
// id the row belonged to, or an empty string when no row existed, so
// callers can keep revocation idempotent and still attribute it.
const deleteTokenScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return ""
end
redis.call("DEL", KEYS[1])
local len = string.byte(data, 2)
local user_id = ""
if len and #data >= 10 + len then
  user_id = string.sub(data, 3, 2 + len)
  local user_key = ARGV[1] .. user_id
  local current = redis.call("GET", user_key)
  if current == ARGV[2] then
    redis.call("DEL", user_key)
  end
end
return user_id
`

var deleteTokenLua = redis.NewScript(deleteTokenScript)

// Store is the Redis-backed ActiveToken table. It maintains the invariant
// of at most one row per user: Save removes every prior row for the user
// before inserting the new binding.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a Store using prefix as the Redis key namespace.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "at"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) tokenKey(token string) string {
	return s.prefix + ":t:" + token
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + ":u:"
}

func (s *Store) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

// Save binds userID to token for ttl. Any existing token row for the user
// is deleted first, then exactly one new row is inserted; this ordering is
// what invalidates prior sessions on a new login. Two concurrent saves for
// the same user race last-write-wins, which the engine accepts for the low
// per-user login rates it is designed for.
func (s *Store) Save(ctx context.Context, userID, token string, ttl time.Duration) error {
	record := &Record{
		UserID:    userID,
		CreatedAt: time.Now().Unix(),
	}
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	previous, err := s.redis.Get(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" {
			pipe.Del(ctx, s.tokenKey(previous))
		}
		pipe.Set(ctx, s.tokenKey(token), data, ttl)
		pipe.Set(ctx, s.userKey(userID), token, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Find looks up the literal token string and returns its row. A missing
// row means the token was revoked or superseded, regardless of whether its
// signature would still verify.
func (s *Store) Find(ctx context.Context, token string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return decodeRecord(data)
}

// Delete removes the row matching the literal token string and reports
// the user id the row was bound to. Deleting an absent token is not an
// error; the returned id is empty in that case.
func (s *Store) Delete(ctx context.Context, token string) (string, error) {
	userID, err := deleteTokenLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(token)},
		s.userKeyPrefix(),
		token,
	).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return userID, nil
}

// DeleteAllForUser removes the user's current row, if any.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	token, err := s.redis.Get(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.tokenKey(token))
		pipe.Del(ctx, s.userKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func encodeRecord(record *Record) ([]byte, error) {
	if len(record.UserID) > 255 {
		return nil, errors.New("user id too long")
	}

	var buf bytes.Buffer
	buf.WriteByte(recordVersionV1)
	buf.WriteByte(byte(len(record.UserID)))
	buf.WriteString(record.UserID)
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersionV1 {
		return nil, errors.New("invalid active token record version")
	}

	userIDLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userIDLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}

	record := &Record{UserID: string(userID)}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}

	return record, nil
}
