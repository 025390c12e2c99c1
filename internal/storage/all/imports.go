// Package all registers every built-in storage backend with the storage
// factory. Import it for side effects:
//
//	import _ "csvpipe/internal/storage/all"
//
// After that storage.New accepts the kinds "sqlite", "postgres", "mssql" and
// "mysql". Binaries that need only a subset can import the backend packages
// directly instead.
package all

import (
	_ "csvpipe/internal/storage/mssql"
	_ "csvpipe/internal/storage/mysql"
	_ "csvpipe/internal/storage/postgres"
	_ "csvpipe/internal/storage/sqlite"
)
