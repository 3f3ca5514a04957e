package main

import (
	"context"
	"fmt"

	"github.com/turtacn/ligandscope/internal/infrastructure/database/postgres"
	"github.com/turtacn/ligandscope/internal/infrastructure/database/redis"
	"github.com/turtacn/ligandscope/internal/infrastructure/storage/minio"
)

// Adapters for HealthHandler
type postgresHealthAdapter struct {
	conn *postgres.Connection
}

func (a *postgresHealthAdapter) Name() string {
	return "postgres"
}

func (a *postgresHealthAdapter) Check(ctx context.Context) error {
	return a.conn.HealthCheck(ctx)
}

type redisHealthAdapter struct {
	client *redis.Client
}

func (a *redisHealthAdapter) Name() string {
	return "redis"
}

func (a *redisHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type minioHealthAdapter struct {
	client *minio.Client
}

func (a *minioHealthAdapter) Name() string {
	return "minio"
}

func (a *minioHealthAdapter) Check(ctx context.Context) error {
	status := a.client.HealthCheck(ctx)
	if !status.Healthy {
		return fmt.Errorf("minio unhealthy: %s", status.Error)
	}
	return nil
}
