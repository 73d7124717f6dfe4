// Package history keeps a record of completed verification runs.
//
// Runs are recorded from CERTIFICATE_VERIFIED events (see Subscribe), so any code path that verifies a
// certificate through the store is recorded without knowing about this package.
// Two recorders are provided: MemoryStore, used when no DATABASE_URL is configured, and PostgresStore.
package history
