package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-otp/internal/domain"
)

const (
	condAbsentOrLapsed = "attribute_not_exists(#k) OR #t <= :now"
	condUnchanged      = "#v = :old AND #t > :now"
)

// passcodeItem is one cache entry. TTL is a unix-seconds DynamoDB TTL attribute.
type passcodeItem struct {
	CacheKey string `dynamodbav:"cache_key"`
	Value    string `dynamodbav:"value"`
	TTL      int64  `dynamodbav:"ttl"`
}

// PasscodeKV is a TTL cache on a DynamoDB table. DynamoDB removes lapsed items
// lazily, so reads and conditions compare the ttl attribute against the clock.
type PasscodeKV struct {
	client    api
	tableName string
	now       func() time.Time
}

func NewPasscodeKV(client api, tableName string) *PasscodeKV {
	return &PasscodeKV{client: client, tableName: tableName, now: time.Now}
}

func (k *PasscodeKV) Get(ctx context.Context, key string) (string, error) {
	out, err := k.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(k.tableName),
		Key:            strKey(fieldCacheKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("dynamo get passcode: %w", err)
	}
	if out.Item == nil {
		return "", fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
	}
	var it passcodeItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return "", fmt.Errorf("unmarshal passcode item: %w", err)
	}
	if it.TTL <= k.now().Unix() {
		return "", fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
	}
	return it.Value, nil
}

func (k *PasscodeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := k.put(ctx, key, value, ttl, nil)
	return err
}

func (k *PasscodeKV) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return k.put(ctx, key, value, ttl, &condition{
		expr:  condAbsentOrLapsed,
		names: map[string]string{"#k": fieldCacheKey, "#t": fieldTTL},
		values: map[string]types.AttributeValue{
			":now": nowValue(k.now()),
		},
	})
}

func (k *PasscodeKV) CompareAndSwap(ctx context.Context, key, old, value string, ttl time.Duration) (bool, error) {
	return k.put(ctx, key, value, ttl, &condition{
		expr:  condUnchanged,
		names: map[string]string{"#v": fieldValue, "#t": fieldTTL},
		values: map[string]types.AttributeValue{
			":old": &types.AttributeValueMemberS{Value: old},
			":now": nowValue(k.now()),
		},
	})
}

// CompareAndDelete removes the item only while it is live and still holds old.
func (k *PasscodeKV) CompareAndDelete(ctx context.Context, key, old string) (bool, error) {
	_, err := k.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(k.tableName),
		Key:                      strKey(fieldCacheKey, key),
		ConditionExpression:      aws.String(condUnchanged),
		ExpressionAttributeNames: map[string]string{"#v": fieldValue, "#t": fieldTTL},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":old": &types.AttributeValueMemberS{Value: old},
			":now": nowValue(k.now()),
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("dynamo delete passcode: %w", err)
	}
	return true, nil
}

func (k *PasscodeKV) Delete(ctx context.Context, key string) error {
	_, err := k.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(k.tableName),
		Key:       strKey(fieldCacheKey, key),
	})
	if err != nil {
		return fmt.Errorf("dynamo delete passcode: %w", err)
	}
	return nil
}

type condition struct {
	expr   string
	names  map[string]string
	values map[string]types.AttributeValue
}

// put writes the item, guarded by cond when non-nil. A failed condition is
// reported as (false, nil).
func (k *PasscodeKV) put(ctx context.Context, key, value string, ttl time.Duration, cond *condition) (bool, error) {
	item, err := attributevalue.MarshalMap(passcodeItem{
		CacheKey: key,
		Value:    value,
		TTL:      k.now().Add(ttl).Unix(),
	})
	if err != nil {
		return false, fmt.Errorf("marshal passcode item: %w", err)
	}
	in := &dynamodb.PutItemInput{
		TableName: aws.String(k.tableName),
		Item:      item,
	}
	if cond != nil {
		in.ConditionExpression = aws.String(cond.expr)
		in.ExpressionAttributeNames = cond.names
		in.ExpressionAttributeValues = cond.values
	}
	if _, err := k.client.PutItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("dynamo put passcode: %w", err)
	}
	return true, nil
}

func nowValue(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)}
}
