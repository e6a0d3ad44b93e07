// Package destination builds and sends repository migration requests to a
// Gitea-style API (POST /api/v1/repos/migrate).
//
// BuildMigrationRequest maps one source repository to a MigrationRequest.
// Dispatcher sends the requests in order, recording one MigrationOutcome per
// repository; a failed request never stops the remaining ones.
package destination
