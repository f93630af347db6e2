package authcore

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
)

const verificationRecordVersionV1 = 1

var (
	errCodeRowNotFound       = errors.New("verification code row not found")
	errCodeMismatch          = errors.New("verification code mismatch")
	errCodeRowExpired        = errors.New("verification code row expired")
	errResendExhausted       = errors.New("verification resend limit reached")
	errVerificationRedisDown = errors.New("verification redis unavailable")
)

// verificationRecord is the per-user singleton VerificationCode row.
// SendCount counts resends beyond the initial issuance and is never reset
// by expiry: only a fresh issue (possible solely when no row exists)
// restarts it.
type verificationRecord struct {
	Code      string
	ExpiresAt int64
	SendCount uint8
}

// verificationStore keeps VerificationCode rows in Redis, keyed by user ID
// to enforce the at-most-one-live-code-per-user invariant. Rows carry no
// Redis TTL on purpose: an expired row must stay observable so resends keep
// counting against it until a verify call detects the staleness.
type verificationStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newVerificationStore(client redis.UniversalClient, prefix string) *verificationStore {
	if prefix == "" {
		prefix = "avc"
	}
	return &verificationStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *verificationStore) key(userID string) string {
	return s.prefix + ":" + userID
}

// Create replaces any existing row for the user with a fresh one at
// SendCount zero. Delete-then-insert, matching the issue semantics.
func (s *verificationStore) Create(ctx context.Context, userID string, record *verificationRecord) error {
	encoded, err := encodeVerificationRecord(record)
	if err != nil {
		return err
	}

	key := s.key(userID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Set(ctx, key, encoded, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errVerificationRedisDown, err)
	}

	return nil
}

// Get returns the user's current row, or errCodeRowNotFound.
func (s *verificationStore) Get(ctx context.Context, userID string) (*verificationRecord, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errCodeRowNotFound
		}
		return nil, fmt.Errorf("%w: %v", errVerificationRedisDown, err)
	}

	return decodeVerificationRecord(data)
}

// IssueOrResend installs code for the user: like Create when no row exists,
// otherwise a resend that replaces the code, resets the expiry, and
// increments SendCount by exactly one — unless the resend budget is
// already spent, which is a hard stop. The read-modify-write runs under
// WATCH so concurrent resends never lose an increment.
func (s *verificationStore) IssueOrResend(
	ctx context.Context,
	userID, code string,
	expiresAt int64,
	maxResends int,
) (*verificationRecord, error) {
	const maxRetries = 4
	key := s.key(userID)

	for i := 0; i < maxRetries; i++ {
		var result *verificationRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			next := &verificationRecord{
				Code:      code,
				ExpiresAt: expiresAt,
			}
			if err == nil {
				record, decodeErr := decodeVerificationRecord(data)
				if decodeErr != nil {
					return decodeErr
				}
				if int(record.SendCount) >= maxResends {
					return errResendExhausted
				}
				next.SendCount = record.SendCount + 1
			}

			encoded, err := encodeVerificationRecord(next)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			if err != nil {
				return err
			}

			result = next
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, errResendExhausted) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", errVerificationRedisDown, err)
		}

		return result, nil
	}

	return nil, fmt.Errorf("%w: transaction retries exhausted", errVerificationRedisDown)
}

// Consume validates the user+code pair and deletes the row on a decisive
// outcome. A mismatching code leaves the row untouched; an expired row is
// deleted on detection; a match before expiry deletes the row and
// succeeds. Codes are one-shot either way.
func (s *verificationStore) Consume(ctx context.Context, userID, code string, nowUnix int64) error {
	const maxRetries = 4
	key := s.key(userID)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeVerificationRecord(data)
			if err != nil {
				return err
			}

			if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
				return errCodeMismatch
			}

			if nowUnix > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errCodeRowExpired
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return errCodeRowNotFound
			case errors.Is(err, errCodeMismatch), errors.Is(err, errCodeRowExpired):
				return err
			default:
				return fmt.Errorf("%w: %v", errVerificationRedisDown, err)
			}
		}

		return nil
	}

	return fmt.Errorf("%w: transaction retries exhausted", errVerificationRedisDown)
}

func encodeVerificationRecord(record *verificationRecord) ([]byte, error) {
	if len(record.Code) > 255 {
		return nil, errors.New("verification code too long")
	}

	var buf bytes.Buffer
	buf.WriteByte(verificationRecordVersionV1)
	buf.WriteByte(record.SendCount)
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(len(record.Code)))
	buf.WriteString(record.Code)

	return buf.Bytes(), nil
}

func decodeVerificationRecord(data []byte) (*verificationRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != verificationRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	record := &verificationRecord{}
	if record.SendCount, err = reader.ReadByte(); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	codeLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(reader, code); err != nil {
		return nil, err
	}
	record.Code = string(code)

	return record, nil
}
