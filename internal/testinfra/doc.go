// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

// Package testinfra starts real PostgreSQL and Redis containers for
// integration tests of the platform components.
//
// Everything in this package is behind the integration build tag:
//
//	go test -tags integration ./internal/components/...
//
// Example:
//
//	func TestRedisRoundTrip(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    require.NoError(t, err)
//	    defer testinfra.CleanupContainer(t, ctx, rc)
//
//	    cache, err := components.NewRedis(components.RedisConfig{Addr: rc.Addr})
//	    // ...
//	}
//
// Tests skip when Docker is not reachable. The first run pulls the images.
package testinfra
