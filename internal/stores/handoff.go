package stores

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

const (
	handoffRecordVersionV1 = 1
)

var (
	ErrHandoffNotFound         = errors.New("handoff record not found")
	ErrHandoffExists           = errors.New("handoff record already exists")
	ErrHandoffRedisUnavailable = errors.New("handoff redis unavailable")
)

// HandoffRecord is a lookup performed on a server, waiting to be resumed by
// a client. Lookup is the gateway response as JSON.
type HandoffRecord struct {
	ReferenceID string
	CreatedAt   int64
	Lookup      []byte
}

// HandoffStore keeps single-use lookup handoffs in Redis.
type HandoffStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewHandoffStore(redisClient redis.UniversalClient, prefix string) *HandoffStore {
	if prefix == "" {
		prefix = "3dsh"
	}
	return &HandoffStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *HandoffStore) key(handoffID string) string {
	return s.prefix + ":" + handoffID
}

// Save stores record under handoffID. An existing record is never replaced.
func (s *HandoffStore) Save(ctx context.Context, handoffID string, record *HandoffRecord, ttl time.Duration) error {
	encoded, err := encodeHandoffRecord(record)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, s.key(handoffID), encoded, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandoffRedisUnavailable, err)
	}
	if !ok {
		return ErrHandoffExists
	}
	return nil
}

// Consume returns the record and deletes it atomically. A second Consume of
// the same id reports ErrHandoffNotFound.
func (s *HandoffStore) Consume(ctx context.Context, handoffID string) (*HandoffRecord, error) {
	data, err := s.redis.GetDel(ctx, s.key(handoffID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrHandoffNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrHandoffRedisUnavailable, err)
	}
	return decodeHandoffRecord(data)
}

// Exists reports whether an unconsumed record is stored under handoffID.
func (s *HandoffStore) Exists(ctx context.Context, handoffID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(handoffID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrHandoffRedisUnavailable, err)
	}
	return n == 1, nil
}

func encodeHandoffRecord(record *HandoffRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(handoffRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}

	if len(record.ReferenceID) > 65535 {
		return nil, errors.New("handoff record reference id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.ReferenceID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.ReferenceID)
	buf.Write(record.Lookup)

	return buf.Bytes(), nil
}

func decodeHandoffRecord(data []byte) (*HandoffRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != handoffRecordVersionV1 {
		return nil, errors.New("invalid handoff record version")
	}

	record := &HandoffRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}

	var refLen uint16
	if err := binary.Read(reader, binary.BigEndian, &refLen); err != nil {
		return nil, err
	}
	ref := make([]byte, refLen)
	if _, err := io.ReadFull(reader, ref); err != nil {
		return nil, err
	}
	record.ReferenceID = string(ref)

	lookup, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	record.Lookup = lookup

	return record, nil
}
