package dynamodb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	batchWriteLimit       = 25
	maxUnprocessedRetries = 5
)

func joinClauses(clauses []string) string {
	return strings.Join(clauses, ", ")
}

// batchDelete removes keys in chunks of 25, resubmitting unprocessed items.
// It returns how many deletes DynamoDB accepted.
func batchDelete(ctx context.Context, client *dynamodb.Client, tableName string, keys []map[string]types.AttributeValue) (int, error) {
	deleted := 0

	for start := 0; start < len(keys); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(keys))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}

		pending := map[string][]types.WriteRequest{tableName: requests}
		for attempt := 0; len(pending[tableName]) > 0; attempt++ {
			if attempt >= maxUnprocessedRetries {
				return deleted, fmt.Errorf("%w: %d remaining", ErrUnprocessedItems, len(pending[tableName]))
			}

			submitted := len(pending[tableName])
			result, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return deleted, fmt.Errorf("failed to batch write: %w", err)
			}

			pending = result.UnprocessedItems
			deleted += submitted - len(pending[tableName])
		}
	}

	return deleted, nil
}
