package badger

import (
	"fmt"
	"os"
	"path/filepath"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// settingsValueLogSize keeps value log files small; the store holds one record
const settingsValueLogSize = 1 << 20

// BadgerDB wraps the badgerhold store backing the settings
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// NewBadgerDB opens the settings database at config.Path, or an in-memory
// database when config.InMemory is set
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	var dbOptions badgerdb.Options
	if config.InMemory {
		dbOptions = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := prepareDir(logger, config); err != nil {
			return nil, err
		}
		dbOptions = badgerdb.DefaultOptions(config.Path)
	}

	options := badgerhold.DefaultOptions
	options.Options = dbOptions.
		WithLogger(nil). // arbor logs instead
		WithValueLogFileSize(settingsValueLogSize)

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database %s: %w", config.Path, err)
	}

	logger.Debug().
		Str("path", config.Path).
		Bool("in_memory", config.InMemory).
		Msg("Settings database opened")

	return &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}, nil
}

func prepareDir(logger arbor.ILogger, config *common.BadgerConfig) error {
	if config.ResetOnStartup {
		logger.Debug().Str("path", config.Path).Msg("Deleting settings database (reset_on_startup=true)")
		if err := os.RemoveAll(config.Path); err != nil {
			logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete settings database")
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	return nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}
