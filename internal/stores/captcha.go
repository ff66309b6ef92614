package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	captchaKeyPrefix       = "cch"
	captchaRecordVersionV1 = 1
)

// CaptchaRecord is the stored half of a challenge. The answer is held in
// plaintext because comparison is case-insensitive over trimmed input; the
// record never crosses the API boundary.
type CaptchaRecord struct {
	Kind      uint8
	Answer    string
	CreatedAt int64 // unix milli
	Attempts  uint16
}

// CaptchaStore persists challenge records keyed by their opaque ID.
type CaptchaStore struct {
	redis       redis.UniversalClient
	now         func() time.Time
	ttl         time.Duration
	maxAttempts int
}

// NewCaptchaStore creates a [CaptchaStore].
func NewCaptchaStore(redisClient redis.UniversalClient, now func() time.Time, ttl time.Duration, maxAttempts int) *CaptchaStore {
	if now == nil {
		now = time.Now
	}
	return &CaptchaStore{
		redis:       redisClient,
		now:         now,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

func captchaKey(challengeID string) string {
	return captchaKeyPrefix + ":" + challengeID
}

// Save persists a freshly issued challenge with attempts zeroed. The key TTL
// doubles as the garbage-collection sweep for abandoned challenges.
func (s *CaptchaStore) Save(ctx context.Context, challengeID string, kind uint8, answer string) error {
	record := &CaptchaRecord{
		Kind:      kind,
		Answer:    answer,
		CreatedAt: s.now().UnixMilli(),
	}

	encoded, err := encodeCaptchaRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, captchaKey(challengeID), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Verify evaluates an answer against the stored challenge. Ordering is part of
// the contract: missing record, then expiry (which always wins over the
// attempt budget), then budget, then comparison. A match consumes the
// challenge; a mismatch costs one attempt.
func (s *CaptchaStore) Verify(ctx context.Context, challengeID, answer string) error {
	const maxRetries = 4
	key := captchaKey(challengeID)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeCaptchaRecord(data)
			if err != nil {
				return err
			}

			now := s.now()
			if now.After(time.UnixMilli(record.CreatedAt).Add(s.ttl)) {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrExpired
			}

			if int(record.Attempts) >= s.maxAttempts {
				return ErrExhausted
			}

			if !answersEqual(record.Answer, answer) {
				record.Attempts++

				updated, err := encodeCaptchaRecord(record)
				if err != nil {
					return err
				}

				remaining := time.UnixMilli(record.CreatedAt).Add(s.ttl).Sub(now)
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, remaining)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrMismatch
			}

			// One-time use: a solved challenge cannot be replayed.
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
				return ErrNotFound
			case errors.Is(err, ErrExpired), errors.Is(err, ErrExhausted), errors.Is(err, ErrMismatch):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}

		return nil
	}

	return fmt.Errorf("%w: transaction contention", ErrUnavailable)
}

func answersEqual(expected, provided string) bool {
	a := strings.ToLower(strings.TrimSpace(expected))
	b := strings.ToLower(strings.TrimSpace(provided))
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func encodeCaptchaRecord(record *CaptchaRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(captchaRecordVersionV1)
	buf.WriteByte(record.Kind)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}

	if len(record.Answer) > 65535 {
		return nil, errors.New("captcha answer too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Answer))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Answer)

	return buf.Bytes(), nil
}

func decodeCaptchaRecord(data []byte) (*CaptchaRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != captchaRecordVersionV1 {
		return nil, errors.New("invalid captcha record version")
	}

	record := &CaptchaRecord{}

	if record.Kind, err = reader.ReadByte(); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}

	var answerLen uint16
	if err := binary.Read(reader, binary.BigEndian, &answerLen); err != nil {
		return nil, err
	}

	answer := make([]byte, answerLen)
	if _, err := io.ReadFull(reader, answer); err != nil {
		return nil, err
	}
	record.Answer = string(answer)

	return record, nil
}
