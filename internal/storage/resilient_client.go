package storage

import (
	"context"

	"innerworld-backend/internal/resilience"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// resilientDynamoClient wraps a DynamoDBClient with retry-with-backoff,
// the repository-side counterpart to llm.ResilientClient: DynamoDB
// throttling and throughput-exceeded errors are exactly the
// transient-backend case spec.md §7 calls out.
type resilientDynamoClient struct {
	inner DynamoDBClient
	retry resilience.RetryConfig
}

// NewResilientDynamoDBClient wraps client with retry tuning.
func NewResilientDynamoDBClient(client DynamoDBClient, retry resilience.RetryConfig) DynamoDBClient {
	return &resilientDynamoClient{inner: client, retry: retry}
}

func (c *resilientDynamoClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return resilience.RetryWithBackoff(ctx, c.retry, resilience.RepositoryRetryableErrors, func(ctx context.Context, attempt int) (*dynamodb.PutItemOutput, error) {
		return c.inner.PutItem(ctx, params, optFns...)
	})
}

func (c *resilientDynamoClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return resilience.RetryWithBackoff(ctx, c.retry, resilience.RepositoryRetryableErrors, func(ctx context.Context, attempt int) (*dynamodb.GetItemOutput, error) {
		return c.inner.GetItem(ctx, params, optFns...)
	})
}

func (c *resilientDynamoClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return resilience.RetryWithBackoff(ctx, c.retry, resilience.RepositoryRetryableErrors, func(ctx context.Context, attempt int) (*dynamodb.QueryOutput, error) {
		return c.inner.Query(ctx, params, optFns...)
	})
}

func (c *resilientDynamoClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return resilience.RetryWithBackoff(ctx, c.retry, resilience.RepositoryRetryableErrors, func(ctx context.Context, attempt int) (*dynamodb.ScanOutput, error) {
		return c.inner.Scan(ctx, params, optFns...)
	})
}

func (c *resilientDynamoClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return resilience.RetryWithBackoff(ctx, c.retry, resilience.RepositoryRetryableErrors, func(ctx context.Context, attempt int) (*dynamodb.UpdateItemOutput, error) {
		return c.inner.UpdateItem(ctx, params, optFns...)
	})
}
