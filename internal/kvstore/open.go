package kvstore

import "fmt"

const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the backend named by driver. path is used by the file-backed
// drivers, dsn by postgres.
func Open(driver, path, dsn string) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverBolt:
		return OpenBoltStore(path)
	case DriverSQLite:
		return OpenSQLiteStore(path)
	case DriverPostgres:
		return OpenPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("kvstore: unknown driver %q", driver)
	}
}
