package cmd

import (
	"github.com/atasun/UltraDialer-sub011/internal/datastore"
	"github.com/atasun/UltraDialer-sub011/internal/kv"
)

var datastoreNewStore = func(readOnly bool) (kv.Storer, error) {
	return datastore.NewStore(readOnly)
}
