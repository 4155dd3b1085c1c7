package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Open creates the KV backend named by driver at path.
func Open(driver, path string) (KV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(path)
	case DriverBolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
