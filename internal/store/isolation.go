package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
)

// IsolationStore durably keeps the latest IsolationRecord per agent.
// Records are overwritten, not appended.
type IsolationStore interface {
	Put(record model.IsolationRecord) error
	Get(agentID string) (*model.IsolationRecord, error)
	All() ([]model.IsolationRecord, error)
}

// KVIsolationStore backs the isolation map with a NATS JetStream key/value
// bucket so records survive monitor restarts.
type KVIsolationStore struct {
	kv nats.KeyValue
}

// IsolationBucket is the JetStream KV bucket name.
const IsolationBucket = "ueba_isolations"

// NewKVIsolationStore opens (or creates) the isolation bucket and validates
// every persisted record. A record that fails to decode means the store is
// corrupted; the caller must treat that as fatal rather than run degraded.
func NewKVIsolationStore(js nats.JetStreamContext) (*KVIsolationStore, error) {
	kv, err := js.KeyValue(IsolationBucket)
	if err == nats.ErrBucketNotFound {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      IsolationBucket,
			Description: "Latest isolation record per agent",
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open isolation bucket: %w", err)
	}

	s := &KVIsolationStore{kv: kv}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// validate decodes every persisted record once at startup.
func (s *KVIsolationStore) validate() error {
	keys, err := s.kv.Keys()
	if err == nats.ErrNoKeysFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list isolation records: %w", err)
	}

	for _, key := range keys {
		entry, err := s.kv.Get(key)
		if err != nil {
			return fmt.Errorf("failed to read isolation record %s: %w", key, err)
		}
		var record model.IsolationRecord
		if err := json.Unmarshal(entry.Value(), &record); err != nil {
			return fmt.Errorf("corrupted isolation record %s: %w", key, err)
		}
	}
	return nil
}

// Put stores the record under its agent ID, replacing any previous record.
func (s *KVIsolationStore) Put(record model.IsolationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal isolation record: %w", err)
	}
	if _, err := s.kv.Put(record.AgentID, data); err != nil {
		return fmt.Errorf("failed to store isolation record: %w", err)
	}
	return nil
}

// Get returns the record for agentID, or nil when the agent was never isolated.
func (s *KVIsolationStore) Get(agentID string) (*model.IsolationRecord, error) {
	entry, err := s.kv.Get(agentID)
	if err == nats.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read isolation record: %w", err)
	}

	var record model.IsolationRecord
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return nil, fmt.Errorf("corrupted isolation record %s: %w", agentID, err)
	}
	return &record, nil
}

// All returns every stored isolation record.
func (s *KVIsolationStore) All() ([]model.IsolationRecord, error) {
	keys, err := s.kv.Keys()
	if err == nats.ErrNoKeysFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list isolation records: %w", err)
	}

	records := make([]model.IsolationRecord, 0, len(keys))
	for _, key := range keys {
		record, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, *record)
		}
	}
	return records, nil
}

// MemoryIsolationStore is an in-memory IsolationStore for tests and for
// running without JetStream.
type MemoryIsolationStore struct {
	mu      sync.RWMutex
	records map[string]model.IsolationRecord
}

// NewMemoryIsolationStore creates an empty in-memory store.
func NewMemoryIsolationStore() *MemoryIsolationStore {
	return &MemoryIsolationStore{
		records: make(map[string]model.IsolationRecord),
	}
}

// Put stores the record, replacing any previous record for the agent.
func (s *MemoryIsolationStore) Put(record model.IsolationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.AgentID] = record
	return nil
}

// Get returns the record for agentID, or nil when absent.
func (s *MemoryIsolationStore) Get(agentID string) (*model.IsolationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[agentID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// All returns every stored record.
func (s *MemoryIsolationStore) All() ([]model.IsolationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]model.IsolationRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	return records, nil
}
