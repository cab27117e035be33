// Package dynamostore keeps graph documents as DynamoDB items with conditional writes.
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"kaybee/backend/internal/store"
	kberrors "kaybee/backend/pkg/errors"
	"kaybee/backend/pkg/logger"
)

// Client is the part of the DynamoDB API the store uses
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Config holds table and client settings
type Config struct {
	Table    string
	Region   string
	Endpoint string // optional, e.g. DynamoDB Local
}

type item struct {
	GraphKey  string `dynamodbav:"GraphKey"`
	Document  string `dynamodbav:"Document"`
	Version   string `dynamodbav:"Version"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// Store is a store.Store on a DynamoDB table keyed by the string attribute GraphKey
type Store struct {
	client Client
	table  string
	logger *zap.Logger
}

// Open builds a DynamoDB client from the default AWS credential chain
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, kberrors.NewConfigMissingRequired("KNOWLEDGE_GRAPH_TABLE")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, kberrors.NewStoreOperationFailed("open", cfg.Table, fmt.Errorf("failed to load AWS config: %w", err))
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg.Table), nil
}

// New wraps an existing client
func New(client Client, table string) *Store {
	return &Store{client: client, table: table, logger: logger.Named("dynamostore")}
}

// Get reads the document stored under key with a strongly consistent read
func (s *Store) Get(ctx context.Context, key string) (store.Object, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"GraphKey": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return store.Object{}, false, kberrors.NewStoreOperationFailed("get", key, err)
	}
	if len(out.Item) == 0 {
		return store.Object{}, false, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return store.Object{}, false, kberrors.NewStoreOperationFailed("get", key, fmt.Errorf("failed to unmarshal item: %w", err))
	}
	version := it.Version
	if version == "" {
		version = store.Version([]byte(it.Document))
	}
	return store.Object{Data: []byte(it.Document), Version: version}, true, nil
}

// Put replaces the document stored under key if expectedVersion is current
func (s *Store) Put(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	version := store.Version(data)
	av, err := attributevalue.MarshalMap(item{
		GraphKey:  key,
		Document:  string(data),
		Version:   version,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", kberrors.NewStoreOperationFailed("put", key, fmt.Errorf("failed to marshal item: %w", err))
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}
	if expectedVersion != store.AnyVersion {
		var condition expression.ConditionBuilder
		if expectedVersion == "" {
			condition = expression.Name("GraphKey").AttributeNotExists()
		} else {
			condition = expression.Name("Version").Equal(expression.Value(expectedVersion))
		}
		expr, err := expression.NewBuilder().WithCondition(condition).Build()
		if err != nil {
			return "", kberrors.NewStoreOperationFailed("put", key, fmt.Errorf("failed to build expression: %w", err))
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			s.logger.Debug("Conditional put rejected",
				zap.String("key", key),
				zap.String("expected_version", expectedVersion),
			)
			return "", kberrors.NewConflict(key, expectedVersion)
		}
		return "", kberrors.NewStoreOperationFailed("put", key, err)
	}
	return version, nil
}
