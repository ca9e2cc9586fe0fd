package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/checkoutdesk/internal/config"
	"github.com/mrlokans/checkoutdesk/internal/entrypoint"
)

// storageFlags selects the backend a command works on. Unset flags fall
// back to the environment configuration.
type storageFlags struct {
	Driver string
	Path   string
	DSN    string
}

func (s *storageFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.Driver, "driver", "", "Storage driver: sqlite, postgres or json (default: $DATABASE_DRIVER)")
	fs.StringVar(&s.Path, "db", "", "SQLite file or JSON document path (default: $DATABASE_PATH)")
	fs.StringVar(&s.DSN, "dsn", "", "PostgreSQL connection string (default: $DATABASE_DSN)")
}

func (s *storageFlags) config(base config.Database) config.Database {
	if s.Driver != "" {
		base.Driver = s.Driver
		if s.Path == "" {
			base.Path = ""
		}
	}
	if s.Path != "" {
		base.Path = s.Path
	}
	if s.DSN != "" {
		base.DSN = s.DSN
	}
	if base.Path == "" {
		switch base.Driver {
		case config.DriverJSON:
			base.Path = config.DefaultDocumentPath
		case config.DriverSQLite, "":
			base.Path = config.DefaultDatabasePath
		}
	}
	return base
}

func (s *storageFlags) open(base config.Database) (*entrypoint.Backend, error) {
	cfg := s.config(base)
	if cfg.Driver == config.DriverMemory {
		return nil, fmt.Errorf("the memory driver keeps nothing between runs; choose sqlite, postgres or json")
	}
	return entrypoint.OpenBackend(cfg)
}

func stdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
