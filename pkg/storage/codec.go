package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator hands out snowflake IDs for new records.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for the given snowflake node (0-1023).
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("NewIDGenerator: %w", err)
	}
	return &IDGenerator{node: node}, nil
}

var (
	defaultIDsOnce sync.Once
	defaultIDs     *IDGenerator
)

// DefaultIDGenerator returns a process-wide generator on node 1.
func DefaultIDGenerator() *IDGenerator {
	defaultIDsOnce.Do(func() {
		// node 1 is always within range
		defaultIDs, _ = NewIDGenerator(1)
	})
	return defaultIDs
}

// Next returns a new unique ID.
func (g *IDGenerator) Next() int64 {
	return g.node.Generate().Int64()
}

// PrepareCreate fills in the ID and timestamps of a record about to be inserted.
func PrepareCreate(record *Record, ids *IDGenerator, now time.Time) {
	if record.ID == 0 {
		if ids == nil {
			ids = DefaultIDGenerator()
		}
		record.ID = ids.Next()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}

// EncodeColumns serializes the JSON side channels for storage in text columns.
func EncodeColumns(record *Record) (structured string, metadata string, err error) {
	if len(record.Structured) > 0 {
		if !json.Valid(record.Structured) {
			return "", "", fmt.Errorf("structured payload is not valid JSON")
		}
		structured = string(record.Structured)
	}

	meta := record.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", "", fmt.Errorf("marshal metadata: %w", err)
	}
	return structured, string(metaJSON), nil
}

// DecodeColumns parses the stored side channels back into the record.
func DecodeColumns(record *Record, structured, metadata string) error {
	if structured != "" {
		record.Structured = json.RawMessage(structured)
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &record.Metadata); err != nil {
			return fmt.Errorf("parse metadata: %w", err)
		}
	}
	return nil
}
