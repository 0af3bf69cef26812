package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/bozor-api/internal/domain"
)

// EphemeralStore is a TTL key-value store on a DynamoDB table with TTL
// enabled on expires_at. DynamoDB reaps expired items lazily, so reads also
// compare expires_at against the clock: an expired-but-not-yet-reaped item is
// observably absent.
type EphemeralStore struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

type ephemeralItem struct {
	CacheKey  string `dynamodbav:"cache_key"`
	Value     string `dynamodbav:"value"`
	ExpiresAt int64  `dynamodbav:"expires_at"` // TTL (Unix seconds)
}

func NewEphemeralStore(client *dynamodb.Client, tableName string) *EphemeralStore {
	return &EphemeralStore{client: client, tableName: tableName, now: time.Now}
}

// Set writes value under key with the given TTL, overwriting any prior item.
func (s *EphemeralStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	item, err := attributevalue.MarshalMap(ephemeralItem{
		CacheKey:  key,
		Value:     value,
		ExpiresAt: s.now().Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal ephemeral item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return err
}

// Get returns the stored value, or domain.ErrNotFound when the key is absent
// or past its expiry.
func (s *EphemeralStore) Get(ctx context.Context, key string) (string, error) {
	item, err := s.get(ctx, key)
	if err != nil {
		return "", err
	}
	return item.Value, nil
}

func (s *EphemeralStore) Del(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       strKey("cache_key", key),
	})
	return err
}

// TTL returns the whole seconds remaining before key expires, or -1 when the
// key is absent or already expired.
func (s *EphemeralStore) TTL(ctx context.Context, key string) (int64, error) {
	item, err := s.get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return -1, nil
		}
		return -1, err
	}
	return item.ExpiresAt - s.now().Unix(), nil
}

func (s *EphemeralStore) get(ctx context.Context, key string) (*ephemeralItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            strKey("cache_key", key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	var item ephemeralItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	if item.ExpiresAt <= s.now().Unix() {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	return &item, nil
}
