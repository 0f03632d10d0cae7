package main

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/yashrajoria/storefront-service/config"
	"github.com/yashrajoria/storefront-service/logger"
	awspkg "github.com/yashrajoria/storefront-service/pkg/aws"
	"go.uber.org/zap"
)

type runtime struct {
	cfg    *config.Config
	aws    sdkaws.Config
	logger *zap.Logger
}

// bootstrap loads AWS and service configuration and builds the logger every
// command shares.
func bootstrap(ctx context.Context) (*runtime, error) {
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(ctx, awspkg.NewSecretsClient(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var log *zap.Logger
	if cfg.CloudWatchEnabled {
		sink, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, "/storefront/"+cfg.ServiceName, cfg.ServiceName, true)
		if err != nil {
			return nil, fmt.Errorf("cloudwatch logs: %w", err)
		}
		log, err = logger.New(cfg.Env, sink)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	} else {
		log, err = logger.New(cfg.Env, nil)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	return &runtime{cfg: cfg, aws: awsCfg, logger: log}, nil
}
