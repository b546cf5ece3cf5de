package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

type fakeTableAPI struct {
	describeErr error
	createErr   error
	created     *dynamodb.CreateTableInput
}

func (f *fakeTableAPI) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}}, nil
}

func (f *fakeTableAPI) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.created = in
	if f.createErr == nil {
		f.describeErr = nil
	}
	return &dynamodb.CreateTableOutput{}, f.createErr
}

func TestEnsureTable(t *testing.T) {
	t.Run("existing table is left alone", func(t *testing.T) {
		api := &fakeTableAPI{}
		assert.NoError(t, EnsureTable(context.Background(), api, "Products", "product_id"))
		assert.Nil(t, api.created)
	})

	t.Run("missing table is created on demand", func(t *testing.T) {
		api := &fakeTableAPI{describeErr: &types.ResourceNotFoundException{}}
		assert.NoError(t, EnsureTable(context.Background(), api, "Products", "product_id"))
		if assert.NotNil(t, api.created) {
			assert.Equal(t, "Products", *api.created.TableName)
			assert.Equal(t, types.BillingModePayPerRequest, api.created.BillingMode)
			assert.Equal(t, "product_id", *api.created.KeySchema[0].AttributeName)
		}
	})

	t.Run("concurrent creation is tolerated", func(t *testing.T) {
		api := &fakeTableAPI{describeErr: &types.ResourceNotFoundException{}, createErr: &types.ResourceInUseException{}}
		assert.NoError(t, EnsureTable(context.Background(), api, "Products", "product_id"))
	})

	t.Run("other describe errors surface", func(t *testing.T) {
		api := &fakeTableAPI{describeErr: errors.New("AccessDenied")}
		assert.ErrorContains(t, EnsureTable(context.Background(), api, "Products", "product_id"), "describe table Products")
	})
}
