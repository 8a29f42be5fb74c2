package store

import "fmt"

// Options selects and configures a backend.
type Options struct {
	Backend    string      `yaml:"backend"` // memory, file, sqlite, redis
	Dir        string      `yaml:"dir"`
	SQLitePath string      `yaml:"sqlite_path"`
	Redis      RedisConfig `yaml:"redis"`
}

// Open builds the configured backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(opts.Dir)
	case "sqlite":
		return NewSQLite(opts.SQLitePath)
	case "redis":
		return NewRedis(opts.Redis)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
