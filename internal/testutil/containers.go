// Package testutil starts the backing services used by integration tests.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Service is a running container and the address clients should use.
type Service struct {
	Container testcontainers.Container
	Host      string
	Port      string
	URL       string
}

// Terminate stops the container
func (s *Service) Terminate(ctx context.Context) error {
	if s.Container == nil {
		return nil
	}
	return s.Container.Terminate(ctx)
}

// StartPostgres starts a PostgreSQL container with a "baas" database.
func StartPostgres(ctx context.Context) (*Service, error) {
	ctr, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("baas"),
		postgres.WithUsername("baas"),
		postgres.WithPassword("baas"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	svc, err := describe(ctx, ctr, "5432/tcp")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, err
	}
	svc.URL = fmt.Sprintf("postgres://baas:baas@%s:%s/baas?sslmode=disable", svc.Host, svc.Port)
	return svc, nil
}

// StartRedis starts a Redis container.
func StartRedis(ctx context.Context) (*Service, error) {
	ctr, err := redis.Run(ctx, "redis:7-alpine",
		redis.WithLogLevel(redis.LogLevelVerbose),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	svc, err := describe(ctx, ctr, "6379/tcp")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, err
	}
	svc.URL = fmt.Sprintf("redis://%s:%s", svc.Host, svc.Port)
	return svc, nil
}

func describe(ctx context.Context, ctr testcontainers.Container, port nat.Port) (*Service, error) {
	host, err := ctr.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := ctr.MappedPort(ctx, port)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapped port %s: %w", port, err)
	}

	return &Service{Container: ctr, Host: host, Port: mapped.Port()}, nil
}
