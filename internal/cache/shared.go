package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Store is a byte-oriented key/value store with expiry. It matches the
// Get/Set/Delete methods of the gofiber storage drivers; Get returns nil
// without an error for a missing key.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
}

const sharedPrefix = "leaddash:"

type envelope struct {
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

func sharedKey(key Key) string {
	return sharedPrefix + key.String()
}

func (c *Cache[T]) getShared(key Key) (entry[T], bool) {
	if c.shared == nil {
		return entry[T]{}, false
	}
	raw, err := c.shared.Get(sharedKey(key))
	if err != nil {
		c.logger.Warn("shared cache read failed", "key", key.String(), "error", err)
		return entry[T]{}, false
	}
	if len(raw) == 0 {
		return entry[T]{}, false
	}

	e, err := decodeEntry[T](raw)
	if err != nil {
		c.logger.Warn("discarding unreadable shared cache entry", "key", key.String(), "error", err)
		return entry[T]{}, false
	}
	return e, true
}

func (c *Cache[T]) setShared(key Key, e entry[T]) {
	if c.shared == nil {
		return
	}
	raw, err := encodeEntry(e)
	if err != nil {
		c.logger.Warn("shared cache encode failed", "key", key.String(), "error", err)
		return
	}
	if err := c.shared.Set(sharedKey(key), raw, c.maxStale); err != nil {
		c.logger.Warn("shared cache write failed", "key", key.String(), "error", err)
	}
}

func (c *Cache[T]) deleteShared(key Key) {
	if c.shared == nil {
		return
	}
	if err := c.shared.Delete(sharedKey(key)); err != nil {
		c.logger.Warn("shared cache delete failed", "key", key.String(), "error", err)
	}
}

func encodeEntry[T any](e entry[T]) ([]byte, error) {
	payload, err := json.Marshal(e.data)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	raw, err := json.Marshal(envelope{CreatedAt: e.createdAt, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return compress(raw)
}

func decodeEntry[T any](raw []byte) (entry[T], error) {
	plain, err := decompress(raw)
	if err != nil {
		return entry[T]{}, err
	}
	var env envelope
	if err := json.Unmarshal(plain, &env); err != nil {
		return entry[T]{}, fmt.Errorf("decode envelope: %w", err)
	}
	var data T
	if err := json.Unmarshal(env.Payload, &data); err != nil {
		return entry[T]{}, fmt.Errorf("decode payload: %w", err)
	}
	return entry[T]{data: data, createdAt: env.CreatedAt}, nil
}

// compress compresses data using zstd.
func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// decompress decompresses zstd-compressed data.
func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
