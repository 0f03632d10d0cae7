package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/yashrajoria/storefront-service/models"
)

// DynamoAPI is the subset of the DynamoDB client the cart needs.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type dynamoCart struct {
	Key       string            `dynamodbav:"cart_key"`
	Items     []models.CartItem `dynamodbav:"items"`
	UpdatedAt time.Time         `dynamodbav:"updated_at"`
	ExpiresAt int64             `dynamodbav:"expires_at,omitempty"`
}

// DynamoStorage stores carts in a table keyed by cart_key. expires_at is
// written for the table's TTL attribute when ttl is positive.
type DynamoStorage struct {
	client DynamoAPI
	table  string
	ttl    time.Duration
}

func NewDynamoStorage(client DynamoAPI, table string, ttl time.Duration) *DynamoStorage {
	return &DynamoStorage{client: client, table: table, ttl: ttl}
}

func (s *DynamoStorage) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"cart_key": &types.AttributeValueMemberS{Value: key},
	}
}

func (s *DynamoStorage) Load(ctx context.Context, key string) ([]models.CartItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get cart: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var rec dynamoCart
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return rec.Items, nil
}

func (s *DynamoStorage) Save(ctx context.Context, key string, items []models.CartItem) error {
	now := time.Now().UTC()
	rec := dynamoCart{Key: key, Items: items, UpdatedAt: now}
	if rec.Items == nil {
		rec.Items = []models.CartItem{}
	}
	if s.ttl > 0 {
		rec.ExpiresAt = now.Add(s.ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb put cart: %w", err)
	}
	return nil
}

func (s *DynamoStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.keyAttr(key),
	}); err != nil {
		return fmt.Errorf("dynamodb delete cart: %w", err)
	}
	return nil
}
