package config

import (
	"fmt"
	"path/filepath"

	"github.com/filegate/filegate/internal/ratelimiter"
	"github.com/filegate/filegate/pkg/gateway"
	"github.com/filegate/filegate/pkg/metrics"
	metricsProm "github.com/filegate/filegate/pkg/metrics/prometheus"
	"github.com/filegate/filegate/pkg/policy"
)

// CreateAccessPolicy builds the immutable access policy from configuration.
//
// Path rules are canonicalized here so that a root configured through a
// symlink confines operations to its real location. Rules naming paths
// that do not exist yet are kept as written; they still have to be
// absolute.
//
// Returns:
//   - *policy.AccessPolicy: Compiled policy
//   - error: Malformed rules (relative paths, bad extensions, a policy
//     where every allowed root is denied)
func CreateAccessPolicy(cfg *PolicyConfig) (*policy.AccessPolicy, error) {
	spec := policy.Spec{
		AllowedPaths:      canonicalizeRoots(cfg.AllowedPaths),
		DeniedPaths:       canonicalizeRoots(cfg.DeniedPaths),
		AllowedExtensions: cfg.AllowedExtensions,
		DeniedExtensions:  cfg.DeniedExtensions,
		MaxFileSize:       cfg.MaxFileSize,
		AllowSymlinks:     cfg.AllowSymlinks,
		AllowHiddenFiles:  cfg.AllowHiddenFiles,
		ReadOnly:          cfg.ReadOnly,
	}

	p, err := policy.New(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build access policy: %w", err)
	}
	return p, nil
}

// canonicalizeRoots resolves each configured root through the filesystem
// where possible, so policy comparisons run on the same canonical form
// the path resolver produces at request time.
func canonicalizeRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			out = append(out, resolved)
			continue
		}
		out = append(out, root)
	}
	return out
}

// CreateGateway builds the filesystem gateway from configuration.
func CreateGateway(cfg *PolicyConfig) (*gateway.Gateway, error) {
	p, err := CreateAccessPolicy(cfg)
	if err != nil {
		return nil, err
	}
	return gateway.New(p), nil
}

// CreateRateLimiter builds the admission limiter from configuration.
func CreateRateLimiter(cfg *RateLimitConfig) *ratelimiter.RateLimiter {
	return ratelimiter.New(cfg.RequestsPerSecond, cfg.Burst)
}

// CreateGatewayMetrics builds the metrics sink from configuration.
//
// When metrics are enabled, the global registry is initialized and a
// Prometheus-backed implementation is returned; otherwise the no-op
// implementation is used with zero overhead.
func CreateGatewayMetrics(cfg *MetricsConfig) metrics.GatewayMetrics {
	if !cfg.Enabled {
		return metrics.NewNoopGatewayMetrics()
	}
	metrics.InitRegistry()
	return metricsProm.NewGatewayMetrics()
}
