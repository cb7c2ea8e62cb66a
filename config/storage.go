package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// StorageClients bundles the AWS-backed storage clients.
type StorageClients struct {
	Dynamo *dynamodb.Client
	S3     *s3.Client
}

// NewStorageClients initializes the DynamoDB and S3 clients from the
// shared AWS configuration.
func NewStorageClients(ctx context.Context, cfg *Config) (*StorageClients, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}

	return &StorageClients{
		Dynamo: dynamodb.NewFromConfig(awsCfg),
		S3:     s3.NewFromConfig(awsCfg),
	}, nil
}
