package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/dailykart/dailykart/services/catalog-service/models"
	"go.uber.org/zap"
)

// HashKey is the partition key of the products table.
const HashKey = "product_id"

const batchSize = 25

// DynamoAPI is the subset of the DynamoDB client used by DynamoAdapter.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoAdapter is a DynamoDB-backed ProductRepo. Products live in one table
// keyed by `product_id`.
type DynamoAdapter struct {
	client        DynamoAPI
	table         string
	retryInterval time.Duration
}

func NewDynamoAdapter(client DynamoAPI, table string) *DynamoAdapter {
	return &DynamoAdapter{client: client, table: table, retryInterval: 300 * time.Millisecond}
}

type ddbProduct struct {
	ProductID string `dynamodbav:"product_id"`
	Name      string `dynamodbav:"name"`
	Category  string `dynamodbav:"category"`
	Image     string `dynamodbav:"image"`
	Price     int64  `dynamodbav:"price"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func toDDB(p *models.Product) ddbProduct {
	return ddbProduct{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  string(p.Category),
		Image:     p.Image,
		Price:     p.Price,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (dp ddbProduct) toModel() models.Product {
	p := models.Product{
		ID:       dp.ProductID,
		Name:     dp.Name,
		Category: models.Category(dp.Category),
		Image:    dp.Image,
		Price:    dp.Price,
	}
	if t, err := time.Parse(time.RFC3339Nano, dp.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, dp.UpdatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p
}

func (d *DynamoAdapter) key(id string) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(map[string]string{HashKey: id})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return key, nil
}

func (d *DynamoAdapter) FindByID(ctx context.Context, id string) (*models.Product, error) {
	key, err := d.key(id)
	if err != nil {
		return nil, err
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &d.table, Key: key})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var dp ddbProduct
	if err := attributevalue.UnmarshalMap(out.Item, &dp); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	p := dp.toModel()
	return &p, nil
}

// FindAll scans the table. DynamoDB returns items in hash order, so results
// are sorted by creation time afterwards.
func (d *DynamoAdapter) FindAll(ctx context.Context, category models.Category) ([]models.Product, error) {
	input := &dynamodb.ScanInput{TableName: &d.table}
	if category != "" {
		input.FilterExpression = stringPtr("#category = :category")
		input.ExpressionAttributeNames = map[string]string{"#category": "category"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":category": &types.AttributeValueMemberS{Value: string(category)},
		}
	}

	results := []models.Product{}
	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan page failed: %w", err)
		}
		var items []ddbProduct
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		for _, dp := range items {
			results = append(results, dp.toModel())
		}
	}
	sortByCreation(results)
	return results, nil
}

func (d *DynamoAdapter) Count(ctx context.Context) (int64, error) {
	input := &dynamodb.ScanInput{TableName: &d.table, Select: types.SelectCount}
	paginator := dynamodb.NewScanPaginator(d.client, input)
	var total int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("scan count failed: %w", err)
		}
		total += int64(page.Count)
	}
	return total, nil
}

func (d *DynamoAdapter) put(ctx context.Context, p *models.Product, condition string) error {
	item, err := attributevalue.MarshalMap(toDDB(p))
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	in := &dynamodb.PutItemInput{TableName: &d.table, Item: item}
	if condition != "" {
		in.ConditionExpression = &condition
	}
	if _, err := d.client.PutItem(ctx, in); err != nil {
		var failed *types.ConditionalCheckFailedException
		if errors.As(err, &failed) {
			return ErrNotFound
		}
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (d *DynamoAdapter) Create(ctx context.Context, product *models.Product) error {
	return d.put(ctx, product, "")
}

// Update replaces an existing item; a missing item yields ErrNotFound.
func (d *DynamoAdapter) Update(ctx context.Context, product *models.Product) error {
	return d.put(ctx, product, "attribute_exists(product_id)")
}

func (d *DynamoAdapter) Delete(ctx context.Context, id string) error {
	key, err := d.key(id)
	if err != nil {
		return err
	}
	_, err = d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           &d.table,
		Key:                 key,
		ConditionExpression: stringPtr("attribute_exists(product_id)"),
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if errors.As(err, &failed) {
			return ErrNotFound
		}
		return fmt.Errorf("delete item failed: %w", err)
	}
	return nil
}

var errUnprocessed = errors.New("batch write left unprocessed items")

// CreateMany writes in chunks of 25, retrying unprocessed items with
// exponential backoff.
func (d *DynamoAdapter) CreateMany(ctx context.Context, products []models.Product) error {
	for i := 0; i < len(products); i += batchSize {
		end := min(i+batchSize, len(products))
		writeReqs := make([]types.WriteRequest, 0, end-i)
		for j := range products[i:end] {
			item, err := attributevalue.MarshalMap(toDDB(&products[i+j]))
			if err != nil {
				return fmt.Errorf("marshal batch item: %w", err)
			}
			writeReqs = append(writeReqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		req := &dynamodb.BatchWriteItemInput{RequestItems: map[string][]types.WriteRequest{d.table: writeReqs}}

		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = d.retryInterval
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			out, err := d.client.BatchWriteItem(ctx, req)
			if err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("batch write failed: %w", err))
			}
			unprocessed := out.UnprocessedItems[d.table]
			if len(unprocessed) == 0 {
				return struct{}{}, nil
			}
			req.RequestItems[d.table] = unprocessed
			return struct{}{}, errUnprocessed
		}, backoff.WithBackOff(eb), backoff.WithMaxTries(4), backoff.WithNotify(func(err error, next time.Duration) {
			zap.L().Warn("Retrying batch write", zap.Int("pending", len(req.RequestItems[d.table])), zap.Duration("next", next))
		}))
		if err != nil {
			return err
		}
	}
	return nil
}

func sortByCreation(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.Before(products[j].CreatedAt)
		}
		return products[i].ID < products[j].ID
	})
}

func stringPtr(s string) *string { return &s }
