package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-otp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAccountRepo_GetByEmail_NotFound(t *testing.T) {
	m := &mockAPI{}
	m.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == emailIndex
	})).Return(&dynamodb.QueryOutput{}, nil)

	_, err := NewAccountRepo(m, "users").GetByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepo_GetByEmail_Found(t *testing.T) {
	m := &mockAPI{}
	m.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{
			fieldAccountID:  &types.AttributeValueMemberS{Value: "acc1"},
			fieldEmail:      &types.AttributeValueMemberS{Value: "a@x.com"},
			"password_hash": &types.AttributeValueMemberS{Value: "$2a$10$hash"},
		}},
	}, nil)

	a, err := NewAccountRepo(m, "users").GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "acc1", a.AccountID)
	assert.True(t, a.HasPassword())
}

func TestAccountRepo_Update_StampsUpdatedAt(t *testing.T) {
	m := &mockAPI{}
	m.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return aws.ToString(in.UpdateExpression) == "SET #f0 = :v0, #f1 = :v1" &&
			in.ExpressionAttributeNames["#f0"] == fieldEmailConfirmed &&
			in.ExpressionAttributeNames["#f1"] == fieldUpdatedAt
	})).Return(&dynamodb.UpdateItemOutput{}, nil)

	err := NewAccountRepo(m, "users").Update(context.Background(), "acc1", map[string]interface{}{fieldEmailConfirmed: true})
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestAccountRepo_Put(t *testing.T) {
	m := &mockAPI{}
	m.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		id, _ := in.Item[fieldAccountID].(*types.AttributeValueMemberS)
		confirmed, _ := in.Item[fieldEmailConfirmed].(*types.AttributeValueMemberBOOL)
		return aws.ToString(in.TableName) == "users" &&
			aws.ToString(in.ConditionExpression) == "attribute_not_exists(#id)" &&
			in.ExpressionAttributeNames["#id"] == fieldAccountID &&
			id != nil && id.Value == "acc1" &&
			confirmed != nil && confirmed.Value
	})).Return(&dynamodb.PutItemOutput{}, nil)

	err := NewAccountRepo(m, "users").Put(context.Background(), &domain.Account{
		AccountID:      "acc1",
		Email:          "a@x.com",
		EmailConfirmed: true,
	})
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestAccountRepo_Put_ExistingIDConflicts(t *testing.T) {
	m := &mockAPI{}
	m.On("PutItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")})

	err := NewAccountRepo(m, "users").Put(context.Background(), &domain.Account{AccountID: "acc1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAccountRepo_Update_KeepsCallerMapAndTimestamp(t *testing.T) {
	at := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	m := &mockAPI{}
	m.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		v, ok := in.ExpressionAttributeValues[":v1"].(*types.AttributeValueMemberS)
		return in.ExpressionAttributeNames["#f1"] == fieldUpdatedAt && ok && v.Value == "2023-11-14T22:13:20Z"
	})).Return(&dynamodb.UpdateItemOutput{}, nil)

	updates := map[string]interface{}{fieldEmailConfirmed: true, fieldUpdatedAt: at}
	err := NewAccountRepo(m, "users").Update(context.Background(), "acc1", updates)
	require.NoError(t, err)
	assert.Len(t, updates, 2)
	m.AssertExpectations(t)

	m2 := &mockAPI{}
	m2.On("UpdateItem", mock.Anything, mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil)
	only := map[string]interface{}{fieldEmailConfirmed: true}
	require.NoError(t, NewAccountRepo(m2, "users").Update(context.Background(), "acc1", only))
	assert.NotContains(t, only, fieldUpdatedAt)
}
