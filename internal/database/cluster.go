package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vk/expgridgo/internal/ctxlog"
)

// clusterSlots is the fixed Redis cluster keyspace size.
const clusterSlots = 16384

// CreateCluster joins the shards at the given addresses into one Redis
// cluster and spreads the keyspace evenly across them. The shards must
// already be running with cluster mode enabled.
func CreateCluster(ctx context.Context, addrs []string) error {
	logger := ctxlog.FromContext(ctx)
	if len(addrs) < 3 {
		return fmt.Errorf("%w: a cluster needs at least 3 nodes, got %d", ErrUnsupported, len(addrs))
	}

	first := redis.NewClient(&redis.Options{Addr: addrs[0]})
	defer first.Close()

	for _, addr := range addrs[1:] {
		host, portStr, ok := strings.Cut(addr, ":")
		if !ok {
			return fmt.Errorf("invalid shard address %q", addr)
		}
		if _, err := strconv.Atoi(portStr); err != nil {
			return fmt.Errorf("invalid shard address %q: %w", addr, err)
		}
		if err := first.ClusterMeet(ctx, host, portStr).Err(); err != nil {
			return fmt.Errorf("failed to join %s to the cluster: %w", addr, err)
		}
	}
	logger.Debug("Cluster meet complete.", "nodes", len(addrs))

	// Assign each shard an even, contiguous slot range.
	per := clusterSlots / len(addrs)
	for i, addr := range addrs {
		start := i * per
		end := start + per - 1
		if i == len(addrs)-1 {
			end = clusterSlots - 1
		}

		client := redis.NewClient(&redis.Options{Addr: addr})
		err := client.ClusterAddSlotsRange(ctx, start, end).Err()
		client.Close()
		if err != nil {
			return fmt.Errorf("failed to assign slots %d-%d to %s: %w", start, end, addr, err)
		}
	}
	logger.Info("Database cluster created.", "nodes", len(addrs))
	return nil
}

// CheckCluster verifies the cluster converged to a healthy state, retrying
// with a fixed backoff. It returns the last failure when the trials are
// exhausted.
func CheckCluster(ctx context.Context, addrs []string, trials int, backoff time.Duration) error {
	logger := ctxlog.FromContext(ctx)

	client := redis.NewClusterClient(&redis.ClusterOptions{Addrs: addrs})
	defer client.Close()

	var lastErr error
	for i := 0; i < trials; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		info, err := client.ClusterInfo(ctx).Result()
		if err != nil {
			lastErr = err
			logger.Debug("Cluster not reachable yet.", "trial", i+1, "error", err)
			continue
		}
		if !strings.Contains(info, "cluster_state:ok") {
			lastErr = fmt.Errorf("cluster state not ok")
			logger.Debug("Cluster not converged yet.", "trial", i+1)
			continue
		}
		if err := client.Ping(ctx).Err(); err != nil {
			lastErr = err
			continue
		}
		logger.Debug("Cluster healthy.", "trials", i+1)
		return nil
	}
	return fmt.Errorf("database cluster did not become healthy after %d trials: %w", trials, lastErr)
}

// CheckDatabase verifies a single standalone shard answers pings.
func CheckDatabase(ctx context.Context, addr string, trials int, backoff time.Duration) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	var lastErr error
	for i := 0; i < trials; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := client.Ping(ctx).Err(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("database at %s did not answer after %d trials: %w", addr, trials, lastErr)
}
