package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/autoshutdown/internal/shutdown"
)

const (
	// maxBatchWriteItems is DynamoDB's per-request limit for BatchWriteItem.
	maxBatchWriteItems = 25

	initialResendDelay = 50 * time.Millisecond
	maxResendDelay     = 5 * time.Second
)

// ErrMissingTable is returned when no table name was configured.
var ErrMissingTable = errors.New("dynamodb table name is required")

// AuditTable implements shutdown.AuditStore on a DynamoDB table.
type AuditTable struct {
	client      DynamoDBAPI
	table       string
	resendDelay time.Duration
}

// NewAuditTable creates an audit store writing to table.
func NewAuditTable(client DynamoDBAPI, table string) *AuditTable {
	return &AuditTable{client: client, table: table, resendDelay: initialResendDelay}
}

// BatchPut writes entries in chunks of 25. Items DynamoDB hands back as
// unprocessed are resent with backoff until accepted. A request error or a
// cancelled context aborts the write; earlier chunks stay written.
func (t *AuditTable) BatchPut(ctx context.Context, entries []shutdown.LogEntry) error {
	if t.table == "" {
		return ErrMissingTable
	}

	for start := 0; start < len(entries); start += maxBatchWriteItems {
		end := min(start+maxBatchWriteItems, len(entries))

		requests, err := putRequests(entries[start:end])
		if err != nil {
			return err
		}

		if err := t.writeChunk(ctx, requests); err != nil {
			return err
		}
	}

	return nil
}

func (t *AuditTable) writeChunk(ctx context.Context, requests []ddbtypes.WriteRequest) error {
	delay := t.resendDelay
	for {
		output, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]ddbtypes.WriteRequest{t.table: requests},
		})
		if err != nil {
			return fmt.Errorf("batch write item: %w", err)
		}

		requests = output.UnprocessedItems[t.table]
		if len(requests) == 0 {
			return nil
		}

		log.Debug().
			Str("table", t.table).
			Int("unprocessed", len(requests)).
			Dur("delay", delay).
			Msg("resending unprocessed items")

		select {
		case <-ctx.Done():
			return fmt.Errorf("resend %d unprocessed items to %s: %w", len(requests), t.table, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, maxResendDelay)
	}
}

func putRequests(entries []shutdown.LogEntry) ([]ddbtypes.WriteRequest, error) {
	requests := make([]ddbtypes.WriteRequest, 0, len(entries))
	for _, entry := range entries {
		item, err := attributevalue.MarshalMap(entry)
		if err != nil {
			return nil, fmt.Errorf("marshal entry %s: %w", entry.InstanceID, err)
		}
		requests = append(requests, ddbtypes.WriteRequest{
			PutRequest: &ddbtypes.PutRequest{Item: item},
		})
	}
	return requests, nil
}
