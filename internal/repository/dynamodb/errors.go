package dynamodb

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrUnprocessedItems indicates DynamoDB kept returning unprocessed batch items
var ErrUnprocessedItems = errors.New("batch write left unprocessed items")

// IsConditionalCheckFailed reports whether a conditional write was rejected
func IsConditionalCheckFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

// IsUnprocessedItemsError checks if a batch write gave up on unprocessed items
func IsUnprocessedItemsError(err error) bool {
	return errors.Is(err, ErrUnprocessedItems)
}
