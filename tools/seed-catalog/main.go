package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	awspkg "github.com/dailykart/dailykart/pkg/aws"
	ddbpkg "github.com/dailykart/dailykart/pkg/dynamodb"
	"github.com/dailykart/dailykart/services/catalog-service/repository"
	"github.com/dailykart/dailykart/services/catalog-service/seed"
	"github.com/dailykart/dailykart/services/catalog-service/services"
	"github.com/dailykart/dailykart/services/common/logger"
	"go.uber.org/zap"
)

func main() {
	var file, table string
	var timeout time.Duration
	flag.StringVar(&file, "file", os.Getenv("SEED_FILE"), "YAML catalog file (defaults to the embedded catalog)")
	flag.StringVar(&table, "table", os.Getenv("DDB_TABLE_PRODUCTS"), "DynamoDB table name")
	flag.DurationVar(&timeout, "timeout", time.Minute, "overall timeout")
	flag.Parse()

	if table == "" {
		table = "Products"
	}

	flush := logger.Initialize(os.Getenv("ENVIRONMENT"), nil)
	defer flush()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	opts := awspkg.OptionsFromEnv()
	awsCfg, err := awspkg.LoadAWSConfig(ctx, opts)
	if err != nil {
		zap.L().Fatal("AWS config init failed", zap.Error(err))
	}
	ddb := ddbpkg.NewClientFromConfig(awsCfg, opts.Endpoint)
	if err := ddbpkg.EnsureTable(ctx, ddb, table, repository.HashKey); err != nil {
		zap.L().Fatal("Failed to ensure products table", zap.Error(err))
	}

	n, err := run(ctx, repository.NewDynamoAdapter(ddb, table), file)
	if err != nil {
		zap.L().Fatal("Seeding failed", zap.Error(err))
	}
	fmt.Printf("Seeding complete. inserted=%d table=%s\n", n, table)
}

// run loads the catalog file and inserts it into repo if repo is empty.
func run(ctx context.Context, repo repository.ProductRepo, file string) (int, error) {
	inputs, err := seed.Load(file)
	if err != nil {
		return 0, err
	}
	n, err := services.NewProductService(repo).SeedIfEmpty(ctx, inputs)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		zap.L().Info("Table already holds products, nothing inserted")
	}
	return n, nil
}
