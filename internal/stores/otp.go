package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpKeyPrefix       = "otp"
	otpRecordVersionV1 = 1

	// otpHistoryDepth bounds how many superseded records stay behind the
	// active one, so a reissued-then-resubmitted code still reports
	// already-used instead of a bare mismatch.
	otpHistoryDepth = 4
)

// OTPRecord is one issued code for a (user, purpose) pair. At most one record
// per pair is unused at any time; older ones are retained, marked used, purely
// to classify stale submissions.
type OTPRecord struct {
	Code      string
	CreatedAt int64 // unix milli
	ExpiresAt int64 // unix milli
	Attempts  uint16
	Used      bool
}

// OTPStore persists the record history for each (user, purpose) pair under a
// single key, so supersession and verification are one atomic unit.
type OTPStore struct {
	redis       redis.UniversalClient
	now         func() time.Time
	ttl         time.Duration
	maxAttempts int
}

// NewOTPStore creates an [OTPStore].
func NewOTPStore(redisClient redis.UniversalClient, now func() time.Time, ttl time.Duration, maxAttempts int) *OTPStore {
	if now == nil {
		now = time.Now
	}
	return &OTPStore{
		redis:       redisClient,
		now:         now,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

func otpKey(userID, purpose string) string {
	return otpKeyPrefix + ":" + userID + ":" + purpose
}

// Issue supersedes every prior unused record for the pair and appends a fresh
// one with the given code, expiring after the configured TTL.
func (s *OTPStore) Issue(ctx context.Context, userID, purpose, code string) (OTPRecord, error) {
	const maxRetries = 4
	key := otpKey(userID, purpose)

	var issued OTPRecord

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			records, err := s.load(ctx, tx, key)
			if err != nil {
				return err
			}

			for j := range records {
				records[j].Used = true
			}

			now := s.now()
			issued = OTPRecord{
				Code:      code,
				CreatedAt: now.UnixMilli(),
				ExpiresAt: now.Add(s.ttl).UnixMilli(),
			}
			records = append(records, issued)

			if len(records) > otpHistoryDepth+1 {
				records = records[len(records)-(otpHistoryDepth+1):]
			}

			encoded, err := encodeOTPRecords(records)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, s.ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return OTPRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		return issued, nil
	}

	return OTPRecord{}, fmt.Errorf("%w: transaction contention", ErrUnavailable)
}

// Verify evaluates a submitted code against the most recently issued record.
// The check order is a contract: expiry first, then the attempt budget, then
// used-state, then comparison — a record both expired and exhausted reports
// expired. A mismatching code that equals a superseded record reports
// already-used without costing an attempt.
func (s *OTPStore) Verify(ctx context.Context, userID, purpose, code string) error {
	const maxRetries = 4
	key := otpKey(userID, purpose)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			records, err := s.load(ctx, tx, key)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return ErrNotFound
			}

			current := &records[len(records)-1]
			now := s.now()

			switch {
			case now.After(time.UnixMilli(current.ExpiresAt)):
				return ErrExpired
			case int(current.Attempts) >= s.maxAttempts:
				return ErrExhausted
			case current.Used:
				return ErrAlreadyUsed
			case !codesEqual(current.Code, code):
				for j := 0; j < len(records)-1; j++ {
					if codesEqual(records[j].Code, code) {
						return ErrAlreadyUsed
					}
				}

				current.Attempts++
				if err := s.persist(ctx, tx, key, records, now); err != nil {
					return err
				}
				return ErrMismatch
			default:
				current.Used = true
				if err := s.persist(ctx, tx, key, records, now); err != nil {
					return err
				}
				return nil
			}
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrNotFound
			case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired),
				errors.Is(err, ErrExhausted), errors.Is(err, ErrAlreadyUsed),
				errors.Is(err, ErrMismatch):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}

		return nil
	}

	return fmt.Errorf("%w: transaction contention", ErrUnavailable)
}

// Active returns the current unused, unexpired record for the pair, if any.
func (s *OTPStore) Active(ctx context.Context, userID, purpose string) (OTPRecord, bool, error) {
	data, err := s.redis.Get(ctx, otpKey(userID, purpose)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return OTPRecord{}, false, nil
		}
		return OTPRecord{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	records, err := decodeOTPRecords(data)
	if err != nil {
		return OTPRecord{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(records) == 0 {
		return OTPRecord{}, false, nil
	}

	current := records[len(records)-1]
	if current.Used || s.now().After(time.UnixMilli(current.ExpiresAt)) {
		return OTPRecord{}, false, nil
	}
	return current, true, nil
}

func (s *OTPStore) load(ctx context.Context, tx *redis.Tx, key string) ([]OTPRecord, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decodeOTPRecords(data)
}

// persist rewrites the record list keeping the active record's remaining
// lifetime as the key TTL.
func (s *OTPStore) persist(ctx context.Context, tx *redis.Tx, key string, records []OTPRecord, now time.Time) error {
	encoded, err := encodeOTPRecords(records)
	if err != nil {
		return err
	}

	remaining := time.UnixMilli(records[len(records)-1].ExpiresAt).Sub(now)
	if remaining <= 0 {
		remaining = time.Second
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, encoded, remaining)
		return nil
	})
	return err
}

func codesEqual(expected, provided string) bool {
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func encodeOTPRecords(records []OTPRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(otpRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(records))); err != nil {
		return nil, err
	}

	for i := range records {
		r := &records[i]
		if len(r.Code) > 255 {
			return nil, errors.New("otp code too long")
		}
		buf.WriteByte(byte(len(r.Code)))
		buf.WriteString(r.Code)
		if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, r.Attempts); err != nil {
			return nil, err
		}
		if r.Used {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}

	return buf.Bytes(), nil
}

func decodeOTPRecords(data []byte) ([]OTPRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != otpRecordVersionV1 {
		return nil, errors.New("invalid otp record version")
	}

	var count uint16
	if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
		return nil, err
	}

	records := make([]OTPRecord, 0, count)
	for i := 0; i < int(count); i++ {
		var r OTPRecord

		codeLen, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		code := make([]byte, codeLen)
		if _, err := io.ReadFull(reader, code); err != nil {
			return nil, err
		}
		r.Code = string(code)

		if err := binary.Read(reader, binary.BigEndian, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
			return nil, err
		}
		if err := binary.Read(reader, binary.BigEndian, &r.Attempts); err != nil {
			return nil, err
		}

		used, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		r.Used = used == 1

		records = append(records, r)
	}

	return records, nil
}
