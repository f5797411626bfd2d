package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

const (
	// sourceIndex is a GSI with partition key source and sort key created_at
	sourceIndex = "source_created_index"

	batchGetLimit = 100
)

// attributes owned by the store, never copied from the incoming record
var storeManaged = map[string]struct{}{
	"job_key":    {},
	"created_at": {},
	"updated_at": {},
}

// optional attributes removed when the incoming record leaves them unset
var optionalJobAttributes = []string{"salary", "closing_at"}

type jobRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    logger.Logger
}

// NewJobRepository creates a new DynamoDB job repository
func NewJobRepository(client *dynamodb.Client, tableName string, log logger.Logger) repositoryIface.JobRepository {
	return &jobRepository{
		client:    client,
		tableName: tableName,
		logger:    log.With(logger.String("component", "job_repository")),
	}
}

// Upsert writes every descriptive attribute and keeps created_at through if_not_exists.
// One UpdateItem call, so the find-or-create is atomic on the item.
func (r *jobRepository) Upsert(ctx context.Context, job *domain.Job, now time.Time) (*domain.Job, error) {
	key := job.Key()

	item, err := attributevalue.MarshalMap(job)
	if err != nil {
		r.logger.Error("failed to marshal job", logger.String("job_key", key), logger.Error(err))
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	names := map[string]string{"#created_at": "created_at", "#updated_at": "updated_at"}
	values := map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
	}
	sets := []string{"#created_at = if_not_exists(#created_at, :now)", "#updated_at = :now"}

	attrs := make([]string, 0, len(item))
	for attr := range item {
		if _, managed := storeManaged[attr]; !managed {
			attrs = append(attrs, attr)
		}
	}
	sort.Strings(attrs)

	for i, attr := range attrs {
		name := fmt.Sprintf("#a%d", i)
		value := fmt.Sprintf(":v%d", i)
		names[name] = attr
		values[value] = item[attr]
		sets = append(sets, fmt.Sprintf("%s = %s", name, value))
	}

	expr := "SET " + joinClauses(sets)
	var removes []string
	for i, attr := range optionalJobAttributes {
		if _, present := item[attr]; present {
			continue
		}
		name := fmt.Sprintf("#r%d", i)
		names[name] = attr
		removes = append(removes, name)
	}
	if len(removes) > 0 {
		expr += " REMOVE " + joinClauses(removes)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"job_key": &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression: aws.String(expr),
		// an update must land strictly after created_at
		ConditionExpression:                 aws.String("attribute_not_exists(#created_at) OR #created_at < :now"),
		ExpressionAttributeNames:            names,
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}

	result, err := r.client.UpdateItem(ctx, input)
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		createdAt, parseErr := createdAtOf(condErr.Item)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to read created_at of %s: %w", key, parseErr)
		}
		values[":now"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(createdAt+1, 10)}
		result, err = r.client.UpdateItem(ctx, input)
	}
	if err != nil {
		r.logger.Error("failed to upsert job", logger.String("job_key", key), logger.Error(err))
		return nil, fmt.Errorf("failed to upsert job: %w", err)
	}

	var stored domain.Job
	if err := attributevalue.UnmarshalMap(result.Attributes, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &stored, nil
}

func (r *jobRepository) GetByKey(ctx context.Context, source, sourceID string) (*domain.Job, error) {
	key := domain.JobKey(source, sourceID)

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"job_key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		r.logger.Error("failed to get job", logger.String("job_key", key), logger.Error(err))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("%w: job %s", repository.ErrNotFound, key)
	}

	var job domain.Job
	if err := attributevalue.UnmarshalMap(result.Item, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (r *jobRepository) GetByKeys(ctx context.Context, keys []string) ([]*domain.Job, error) {
	jobs := make([]*domain.Job, 0, len(keys))

	for start := 0; start < len(keys); start += batchGetLimit {
		end := min(start+batchGetLimit, len(keys))

		requestKeys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, k := range keys[start:end] {
			requestKeys = append(requestKeys, map[string]types.AttributeValue{
				"job_key": &types.AttributeValueMemberS{Value: k},
			})
		}

		request := map[string]types.KeysAndAttributes{
			r.tableName: {Keys: requestKeys},
		}

		for attempt := 0; len(request) > 0 && attempt < maxUnprocessedRetries; attempt++ {
			result, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				r.logger.Error("failed to batch get jobs", logger.Error(err))
				return nil, fmt.Errorf("failed to batch get jobs: %w", err)
			}

			for _, item := range result.Responses[r.tableName] {
				var job domain.Job
				if err := attributevalue.UnmarshalMap(item, &job); err != nil {
					r.logger.Warn("failed to unmarshal job", logger.Error(err))
					continue
				}
				jobs = append(jobs, &job)
			}

			request = result.UnprocessedKeys
		}
	}

	return jobs, nil
}

func (r *jobRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return r.deleteMatching(ctx,
		"attribute_exists(closing_at) AND closing_at < :now",
		map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		})
}

func (r *jobRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int, error) {
	return r.deleteMatching(ctx,
		"attribute_not_exists(closing_at) AND created_at < :cutoff",
		map[string]types.AttributeValue{
			":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff.UnixMilli(), 10)},
		})
}

// deleteMatching scans the keys matching filter and removes them in batches of 25
func (r *jobRepository) deleteMatching(ctx context.Context, filter string, values map[string]types.AttributeValue) (int, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
		ProjectionExpression:      aws.String("job_key"),
	})

	var keys []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to scan jobs for deletion", logger.Error(err))
			return 0, fmt.Errorf("failed to scan jobs: %w", err)
		}
		keys = append(keys, page.Items...)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := batchDelete(ctx, r.client, r.tableName, keys)
	if err != nil {
		r.logger.Error("failed to delete jobs",
			logger.Int("matched", len(keys)),
			logger.Int("deleted", deleted),
			logger.Error(err))
		return deleted, fmt.Errorf("failed to delete jobs: %w", err)
	}

	r.logger.Debug("jobs deleted",
		logger.String("filter", filter),
		logger.Int("count", deleted))

	return deleted, nil
}

func (r *jobRepository) CountBySource(ctx context.Context, source string) (int, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(sourceIndex),
		KeyConditionExpression: aws.String("#source = :source"),
		ExpressionAttributeNames: map[string]string{
			"#source": "source",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":source": &types.AttributeValueMemberS{Value: source},
		},
		Select: types.SelectCount,
	})

	total := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to count jobs", logger.String("source", source), logger.Error(err))
			return 0, fmt.Errorf("failed to count jobs: %w", err)
		}
		total += int(page.Count)
	}

	return total, nil
}

func (r *jobRepository) Count(ctx context.Context) (int, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Select:    types.SelectCount,
	})

	total := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to count jobs", logger.Error(err))
			return 0, fmt.Errorf("failed to count jobs: %w", err)
		}
		total += int(page.Count)
	}

	return total, nil
}

func (r *jobRepository) ListRecent(ctx context.Context, source string, limit int) ([]*domain.Job, error) {
	if source != "" {
		return r.listBySource(ctx, source, limit)
	}

	// Whole-table listing has no index to sort on, so scan and sort client-side
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})

	var jobs []*domain.Job
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to scan jobs", logger.Error(err))
			return nil, fmt.Errorf("failed to scan jobs: %w", err)
		}
		for _, item := range page.Items {
			var job domain.Job
			if err := attributevalue.UnmarshalMap(item, &job); err != nil {
				r.logger.Warn("failed to unmarshal job", logger.Error(err))
				continue
			}
			jobs = append(jobs, &job)
		}
	}

	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt > jobs[k].CreatedAt })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	return jobs, nil
}

func (r *jobRepository) listBySource(ctx context.Context, source string, limit int) ([]*domain.Job, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(sourceIndex),
		KeyConditionExpression: aws.String("#source = :source"),
		ExpressionAttributeNames: map[string]string{
			"#source": "source",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":source": &types.AttributeValueMemberS{Value: source},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		r.logger.Error("failed to query jobs", logger.String("source", source), logger.Error(err))
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(result.Items))
	for _, item := range result.Items {
		var job domain.Job
		if err := attributevalue.UnmarshalMap(item, &job); err != nil {
			r.logger.Warn("failed to unmarshal job", logger.Error(err))
			continue
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}

func createdAtOf(item map[string]types.AttributeValue) (int64, error) {
	n, ok := item["created_at"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("created_at missing")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}
