// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package components dumps and restores the parts of the platform.

Each Component writes its data into its own staging directory during a backup
and reads it back during a recovery:

  - database: PostgreSQL logical dump (pg_dump / psql), version via pgx
  - cache: Redis SCAN snapshot with type, TTL and value per key (go-redis)
  - search: snapshot through the search cluster's snapshot REST API
  - files, configuration: plain directory copies

Probers check a restored system: store connectivity (pgx), cache
connectivity (go-redis) and an application smoke check over HTTP.

The dump file names are fixed: database/database.sql,
cache/cache_snapshot.json and search/search_snapshot.json. Verification looks
for them by name.
*/
package components
