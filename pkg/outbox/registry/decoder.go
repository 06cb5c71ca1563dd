package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/estore-backend/pkg/enums"
)

type decodeFunc func(json.RawMessage) (any, error)

type schema struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps an event type and envelope version to the payload
// struct consumers decode into.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[schema]decodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[schema]decodeFunc)}
}

// RegisterJSON binds eventType@version to the JSON form of T.
func RegisterJSON[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[schema{eventType, version}] = func(raw json.RawMessage) (any, error) {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("decode %s@v%d: %w", eventType, version, err)
		}
		return payload, nil
	}
}

// Decode returns the payload for eventType@version. Version 0 is read as 1,
// which is what envelopes written before versioning carry.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, raw json.RawMessage) (any, error) {
	version = max(version, 1)
	r.mu.RLock()
	decode, ok := r.decoders[schema{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s@v%d", eventType, version)
	}
	return decode(raw)
}

// DecodeAs decodes and asserts the payload type in one step.
func DecodeAs[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int, raw json.RawMessage) (T, error) {
	var zero T
	decoded, err := r.Decode(eventType, version, raw)
	if err != nil {
		return zero, err
	}
	payload, ok := decoded.(T)
	if !ok {
		return zero, fmt.Errorf("%s@v%d decodes to %T", eventType, max(version, 1), decoded)
	}
	return payload, nil
}
