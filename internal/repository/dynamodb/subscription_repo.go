package dynamodb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/repository"
	repositoryIface "jobsync/internal/repository/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// deviceTokenIndex is a GSI with partition key device_token
const deviceTokenIndex = "device_token_index"

type subscriptionRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    logger.Logger
}

// NewSubscriptionRepository creates a new DynamoDB subscription repository
func NewSubscriptionRepository(client *dynamodb.Client, tableName string, log logger.Logger) repositoryIface.SubscriptionRepository {
	return &subscriptionRepository{
		client:    client,
		tableName: tableName,
		logger:    log.With(logger.String("component", "subscription_repository")),
	}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.AlertSubscription) error {
	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		r.logger.Error("failed to marshal subscription", logger.Error(err))
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return fmt.Errorf("subscription already exists: %s", sub.ID)
		}
		r.logger.Error("failed to create subscription", logger.Error(err))
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

func (r *subscriptionRepository) ListActive(ctx context.Context) ([]*domain.AlertSubscription, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("active = :active"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberBOOL{Value: true},
		},
	})

	var subs []*domain.AlertSubscription
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to scan subscriptions", logger.Error(err))
			return nil, fmt.Errorf("failed to scan subscriptions: %w", err)
		}
		for _, item := range page.Items {
			var sub domain.AlertSubscription
			if err := attributevalue.UnmarshalMap(item, &sub); err != nil {
				r.logger.Warn("failed to unmarshal subscription", logger.Error(err))
				continue
			}
			subs = append(subs, &sub)
		}
	}

	r.logger.Debug("active subscriptions loaded", logger.Int("count", len(subs)))

	return subs, nil
}

func (r *subscriptionRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET last_notified_at = :at ADD notification_count :one"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at":  &types.AttributeValueMemberN{Value: strconv.FormatInt(at.UnixMilli(), 10)},
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return fmt.Errorf("%w: subscription %s", repository.ErrNotFound, id)
		}
		r.logger.Error("failed to mark subscription notified",
			logger.String("subscription_id", id),
			logger.Error(err))
		return fmt.Errorf("failed to mark subscription notified: %w", err)
	}

	return nil
}

func (r *subscriptionRepository) DeactivateDevice(ctx context.Context, deviceToken string) (int, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(deviceTokenIndex),
		KeyConditionExpression: aws.String("device_token = :token"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":token": &types.AttributeValueMemberS{Value: deviceToken},
		},
		ProjectionExpression: aws.String("id"),
	})

	deactivated := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to query subscriptions by device", logger.Error(err))
			return deactivated, fmt.Errorf("failed to query subscriptions: %w", err)
		}

		for _, item := range page.Items {
			_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:        aws.String(r.tableName),
				Key:              map[string]types.AttributeValue{"id": item["id"]},
				UpdateExpression: aws.String("SET active = :inactive"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":inactive": &types.AttributeValueMemberBOOL{Value: false},
				},
			})
			if err != nil {
				r.logger.Error("failed to deactivate subscription", logger.Error(err))
				return deactivated, fmt.Errorf("failed to deactivate subscription: %w", err)
			}
			deactivated++
		}
	}

	r.logger.Info("device subscriptions deactivated",
		logger.Int("count", deactivated))

	return deactivated, nil
}
