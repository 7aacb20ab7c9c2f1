package datastore

import (
	"context"
	"fmt"

	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/kv/bbolt"
	"github.com/atasun/UltraDialer-sub011/internal/kv/firestore"
	"github.com/atasun/UltraDialer-sub011/internal/kv/sql"
	"github.com/spf13/viper"
)

// NewStore creates a new Store for the configured datastore type.
func NewStore(readOnly bool) (kv.Storer, error) {
	datastoreType := viper.GetString("datastore.type")
	switch datastoreType {
	case "", "bbolt":
		if path := viper.GetString("datastore.path"); path != "" {
			return bbolt.NewStoreAt(path)
		}
		if readOnly {
			return bbolt.NewReadOnlyStore()
		}
		return bbolt.NewReadWriteStore()
	case "firestore":
		projectID := viper.GetString("datastore.project_id")
		if projectID == "" {
			return nil, fmt.Errorf("datastore.project_id must be set when using firestore")
		}
		return firestore.NewStore(context.Background(), projectID)
	case "postgres":
		return sql.NewPostgresStore(viper.GetString("datastore.dsn"))
	case "sqlite":
		return sql.NewSQLiteStore(viper.GetString("datastore.path"))
	default:
		return nil, fmt.Errorf("unknown datastore type: %s", datastoreType)
	}
}
