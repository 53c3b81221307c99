package aws

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/autoshutdown/internal/shutdown"
)

// mockDynamoDBClient implements DynamoDBAPI for testing.
type mockDynamoDBClient struct {
	BatchWriteItemFunc func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)

	calls []*dynamodb.BatchWriteItemInput
}

func (m *mockDynamoDBClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	m.calls = append(m.calls, params)
	if m.BatchWriteItemFunc != nil {
		return m.BatchWriteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func testEntries(n int) []shutdown.LogEntry {
	entries := make([]shutdown.LogEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, shutdown.LogEntry{
			ExecutionID:       "exec-77",
			InstanceID:        fmt.Sprintf("i-%04d", i),
			ShutdownTimestamp: 1700000000,
			Tags:              map[string]string{"Environment": "Dev"},
		})
	}
	return entries
}

func TestBatchPut_ItemShape(t *testing.T) {
	mock := &mockDynamoDBClient{}
	table := NewAuditTable(mock, "TestTable")

	entry := shutdown.LogEntry{
		ExecutionID:       "exec-77",
		InstanceID:        "i-1234",
		ShutdownTimestamp: 1700000000,
		Tags:              map[string]string{"Environment": "Dev", "AutoShutdown": "True", "Extra": "Val"},
	}
	require.NoError(t, table.BatchPut(context.Background(), []shutdown.LogEntry{entry}))

	require.Len(t, mock.calls, 1)
	requests := mock.calls[0].RequestItems["TestTable"]
	require.Len(t, requests, 1)
	item := requests[0].PutRequest.Item

	assert.Equal(t, &ddbtypes.AttributeValueMemberS{Value: "exec-77"}, item["ExecutionId"])
	assert.Equal(t, &ddbtypes.AttributeValueMemberS{Value: "i-1234"}, item["InstanceId"])
	assert.Equal(t, &ddbtypes.AttributeValueMemberN{Value: "1700000000"}, item["ShutdownTimestamp"])
	require.IsType(t, &ddbtypes.AttributeValueMemberM{}, item["Tags"])

	var decoded shutdown.LogEntry
	require.NoError(t, attributevalue.UnmarshalMap(item, &decoded))
	assert.Equal(t, entry, decoded)
}

func TestBatchPut_Chunks(t *testing.T) {
	mock := &mockDynamoDBClient{}
	table := NewAuditTable(mock, "TestTable")

	require.NoError(t, table.BatchPut(context.Background(), testEntries(60)))

	require.Len(t, mock.calls, 3)
	assert.Len(t, mock.calls[0].RequestItems["TestTable"], 25)
	assert.Len(t, mock.calls[1].RequestItems["TestTable"], 25)
	assert.Len(t, mock.calls[2].RequestItems["TestTable"], 10)

	first := mock.calls[0].RequestItems["TestTable"][0].PutRequest.Item["InstanceId"]
	last := mock.calls[2].RequestItems["TestTable"][9].PutRequest.Item["InstanceId"]
	assert.Equal(t, &ddbtypes.AttributeValueMemberS{Value: "i-0000"}, first)
	assert.Equal(t, &ddbtypes.AttributeValueMemberS{Value: "i-0059"}, last)
}

func TestBatchPut_Empty(t *testing.T) {
	mock := &mockDynamoDBClient{}

	require.NoError(t, NewAuditTable(mock, "TestTable").BatchPut(context.Background(), nil))
	assert.Empty(t, mock.calls)
}

func TestBatchPut_MissingTable(t *testing.T) {
	mock := &mockDynamoDBClient{}

	err := NewAuditTable(mock, "").BatchPut(context.Background(), testEntries(1))

	assert.ErrorIs(t, err, ErrMissingTable)
	assert.Empty(t, mock.calls)
}

func TestBatchPut_ErrorAbortsRemainingChunks(t *testing.T) {
	boom := errors.New("Dynamo write failed")
	mock := &mockDynamoDBClient{
		BatchWriteItemFunc: func(_ context.Context, _ *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			return nil, boom
		},
	}

	err := NewAuditTable(mock, "TestTable").BatchPut(context.Background(), testEntries(30))

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Dynamo write failed")
	assert.Len(t, mock.calls, 1)
}

func TestBatchPut_ResendsUnprocessed(t *testing.T) {
	mock := &mockDynamoDBClient{}
	mock.BatchWriteItemFunc = func(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
		if len(mock.calls) == 1 {
			return &dynamodb.BatchWriteItemOutput{
				UnprocessedItems: map[string][]ddbtypes.WriteRequest{"TestTable": params.RequestItems["TestTable"][:1]},
			}, nil
		}
		return &dynamodb.BatchWriteItemOutput{}, nil
	}
	table := &AuditTable{client: mock, table: "TestTable"}

	require.NoError(t, table.BatchPut(context.Background(), testEntries(3)))

	require.Len(t, mock.calls, 2)
	assert.Len(t, mock.calls[0].RequestItems["TestTable"], 3)
	resent := mock.calls[1].RequestItems["TestTable"]
	require.Len(t, resent, 1)
	assert.Equal(t, &ddbtypes.AttributeValueMemberS{Value: "i-0000"}, resent[0].PutRequest.Item["InstanceId"])
}

func TestBatchPut_ResendStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := &mockDynamoDBClient{
		BatchWriteItemFunc: func(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			cancel()
			return &dynamodb.BatchWriteItemOutput{
				UnprocessedItems: map[string][]ddbtypes.WriteRequest{"TestTable": params.RequestItems["TestTable"]},
			}, nil
		},
	}

	err := NewAuditTable(mock, "TestTable").BatchPut(ctx, testEntries(2))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "resend 2 unprocessed items to TestTable")
	assert.Len(t, mock.calls, 1)
}
