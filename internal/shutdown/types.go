// Package shutdown stops tagged compute instances and records an audit entry per instance.
package shutdown

import "context"

// StateRunning is the only lifecycle state the workflow acts on.
const StateRunning = "running"

// Tag is a key/value pair as returned by the inventory. Either side may be absent.
type Tag struct {
	Key   *string
	Value *string
}

// Instance is a single compute instance returned by discovery.
type Instance struct {
	ID    string
	State string
	Tags  []Tag
}

// TagMatch requires tag Key to equal Value.
type TagMatch struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Filter selects the instances to stop. All predicates are ANDed.
type Filter struct {
	State string     `yaml:"state"`
	Tags  []TagMatch `yaml:"tags"`
}

// DefaultFilter matches running Dev instances opted into auto shutdown.
func DefaultFilter() Filter {
	return Filter{
		State: StateRunning,
		Tags: []TagMatch{
			{Key: "Environment", Value: "Dev"},
			{Key: "AutoShutdown", Value: "True"},
		},
	}
}

// LogEntry is the audit record written for each stopped instance.
type LogEntry struct {
	ExecutionID       string            `json:"ExecutionId" dynamodbav:"ExecutionId"`
	InstanceID        string            `json:"InstanceId" dynamodbav:"InstanceId"`
	ShutdownTimestamp int64             `json:"ShutdownTimestamp" dynamodbav:"ShutdownTimestamp"`
	Tags              map[string]string `json:"Tags" dynamodbav:"Tags"`
}

// Result summarizes one invocation. Timestamp and execution id are only
// set when at least one instance was stopped.
type Result struct {
	Stopped           []string `json:"stopped"`
	ShutdownTimestamp int64    `json:"shutdown_timestamp,omitempty"`
	ExecutionID       string   `json:"execution_id,omitempty"`
}

// Inventory discovers and stops compute instances.
type Inventory interface {
	DescribeRunning(ctx context.Context, filter Filter) ([]Instance, error)
	Stop(ctx context.Context, instanceIDs []string) error
}

// AuditStore persists log entries. The destination table is fixed at construction.
type AuditStore interface {
	BatchPut(ctx context.Context, entries []LogEntry) error
}

// MultiStore writes to each store in order and stops at the first error.
type MultiStore []AuditStore

// BatchPut implements AuditStore.
func (m MultiStore) BatchPut(ctx context.Context, entries []LogEntry) error {
	for _, s := range m {
		if err := s.BatchPut(ctx, entries); err != nil {
			return err
		}
	}
	return nil
}
