package bbolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/adrg/xdg"
	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"go.etcd.io/bbolt"
)

var (
	campaignsBucket    = []byte("campaigns")
	callsBucket        = []byte("calls")
	pendingCallsBucket = []byte("pending_calls")
	metaBucket         = []byte("meta")
)

// Store manages the persistence of campaigns and call records.
type Store struct {
	db *bbolt.DB
}

// NewReadWriteStore creates a new read-write Store and initializes the database.
func NewReadWriteStore() (kv.Storer, error) {
	dbPath, err := xdg.DataFile("ultradialer/ultradialer.db")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get db path: %w", kv.ErrDBOperationFailed, err)
	}

	return newStore(dbPath, false)
}

// NewReadOnlyStore creates a new read-only Store.
func NewReadOnlyStore() (kv.Storer, error) {
	dbPath, err := xdg.DataFile("ultradialer/ultradialer.db")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get db path: %w", kv.ErrDBOperationFailed, err)
	}

	return newStore(dbPath, true)
}

// NewStoreAt opens a read-write Store at an explicit path.
func NewStoreAt(dbPath string) (kv.Storer, error) {
	return newStore(dbPath, false)
}

func newStore(dbPath string, readOnly bool) (kv.Storer, error) {
	options := &bbolt.Options{
		ReadOnly: readOnly,
		Timeout:  5 * time.Second,
	}
	db, err := bbolt.Open(dbPath, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open db: %w", kv.ErrDBOperationFailed, err)
	}

	if !readOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			for _, name := range [][]byte{campaignsBucket, callsBucket, pendingCallsBucket, metaBucket} {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return fmt.Errorf("%w: failed to create bucket '%s': %w", kv.ErrDBOperationFailed, name, err)
				}
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListCampaigns returns the campaigns matching the filter, ordered by ID.
func (s *Store) ListCampaigns(_ context.Context, filter kv.CampaignFilter) ([]*model.Campaign, error) {
	var campaigns []*model.Campaign
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(campaignsBucket)
		err := b.ForEach(func(k, v []byte) error {
			var c model.Campaign
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("%w: failed to unmarshal campaign: %w", kv.ErrSerializationFailed, err)
			}
			if filter.Matches(&c) {
				campaigns = append(campaigns, &c)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: failed to iterate over campaigns: %w", kv.ErrDBOperationFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

// GetCampaign retrieves a single campaign.
func (s *Store) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	var c *model.Campaign
	err := s.db.View(func(tx *bbolt.Tx) error {
		found, err := getCampaign(tx, id)
		c = found
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// PutCampaign creates or replaces a campaign.
func (s *Store) PutCampaign(_ context.Context, c *model.Campaign) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(campaignsBucket), c.ID, c)
	})
}

// UpdateCampaign overwrites the fields set in u.
func (s *Store) UpdateCampaign(_ context.Context, id string, u kv.CampaignUpdate) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		c, err := getCampaign(tx, id)
		if err != nil {
			return err
		}
		u.Apply(c)
		c.UpdatedAt = time.Now().UTC()
		return putJSON(tx.Bucket(campaignsBucket), c.ID, c)
	})
}

// FindPendingCall looks up a pending call through the pending index.
func (s *Store) FindPendingCall(_ context.Context, campaignID, phoneNumber string) (*model.CallRecord, error) {
	var r *model.CallRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := []byte(kv.CallKey(campaignID, phoneNumber) + "#")
		c := tx.Bucket(pendingCallsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			found, err := getCall(tx, string(v))
			if err != nil {
				return err
			}
			// The index key is not injective when ids contain its separators.
			if found.CampaignID != campaignID || found.PhoneNumber != phoneNumber {
				continue
			}
			if found.Status == model.CallPending {
				r = found
				return nil
			}
		}
		return fmt.Errorf("%w: pending call for '%s' in campaign '%s'", kv.ErrNotFound, phoneNumber, campaignID)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListCalls returns the calls of a campaign, or every call when campaignID is empty.
func (s *Store) ListCalls(_ context.Context, campaignID string) ([]*model.CallRecord, error) {
	var calls []*model.CallRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket(callsBucket).ForEach(func(k, v []byte) error {
			var r model.CallRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("%w: failed to unmarshal call: %w", kv.ErrSerializationFailed, err)
			}
			if campaignID == "" || r.CampaignID == campaignID {
				calls = append(calls, &r)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: failed to iterate over calls: %w", kv.ErrDBOperationFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].ID < calls[j].ID })
	return calls, nil
}

// PutCall creates or replaces a call record.
func (s *Store) PutCall(_ context.Context, r *model.CallRecord) error {
	r.UpdatedAt = time.Now().UTC()
	return s.db.Update(func(tx *bbolt.Tx) error {
		if old, err := getCall(tx, r.ID); err == nil {
			if err := unindex(tx, old); err != nil {
				return err
			}
		}
		return putCall(tx, r)
	})
}

// UpdateCall overwrites the fields set in u.
func (s *Store) UpdateCall(_ context.Context, id string, u kv.CallUpdate) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		r, err := getCall(tx, id)
		if err != nil {
			return err
		}
		if err := unindex(tx, r); err != nil {
			return err
		}
		u.Apply(r)
		r.UpdatedAt = time.Now().UTC()
		return putCall(tx, r)
	})
}

// GetSchemaVersion retrieves the current schema version from the store.
func (s *Store) GetSchemaVersion(_ context.Context) (int, error) {
	var version int
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(metaBucket).Get([]byte("schema_version"))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &version); err != nil {
			return fmt.Errorf("%w: failed to unmarshal schema version: %w", kv.ErrSerializationFailed, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// SetSchemaVersion sets the current schema version in the store.
func (s *Store) SetSchemaVersion(_ context.Context, version int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(metaBucket), "schema_version", version)
	})
}

func getCampaign(tx *bbolt.Tx, id string) (*model.Campaign, error) {
	v := tx.Bucket(campaignsBucket).Get([]byte(id))
	if v == nil {
		return nil, fmt.Errorf("%w: campaign with id '%s'", kv.ErrNotFound, id)
	}
	var c model.Campaign
	if err := json.Unmarshal(v, &c); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal campaign: %w", kv.ErrSerializationFailed, err)
	}
	return &c, nil
}

func getCall(tx *bbolt.Tx, id string) (*model.CallRecord, error) {
	v := tx.Bucket(callsBucket).Get([]byte(id))
	if v == nil {
		return nil, fmt.Errorf("%w: call with id '%s'", kv.ErrNotFound, id)
	}
	var r model.CallRecord
	if err := json.Unmarshal(v, &r); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal call: %w", kv.ErrSerializationFailed, err)
	}
	return &r, nil
}

func putCall(tx *bbolt.Tx, r *model.CallRecord) error {
	if err := putJSON(tx.Bucket(callsBucket), r.ID, r); err != nil {
		return err
	}
	if r.Status != model.CallPending {
		return nil
	}
	if err := tx.Bucket(pendingCallsBucket).Put(pendingKey(r), []byte(r.ID)); err != nil {
		return fmt.Errorf("%w: failed to index pending call: %w", kv.ErrDBOperationFailed, err)
	}
	return nil
}

func unindex(tx *bbolt.Tx, r *model.CallRecord) error {
	if err := tx.Bucket(pendingCallsBucket).Delete(pendingKey(r)); err != nil {
		return fmt.Errorf("%w: failed to unindex pending call: %w", kv.ErrDBOperationFailed, err)
	}
	return nil
}

func pendingKey(r *model.CallRecord) []byte {
	return []byte(kv.CallKey(r.CampaignID, r.PhoneNumber) + "#" + r.ID)
}

func putJSON(b *bbolt.Bucket, key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal '%s': %w", kv.ErrSerializationFailed, key, err)
	}
	if err := b.Put([]byte(key), buf); err != nil {
		return fmt.Errorf("%w: failed to put '%s': %w", kv.ErrDBOperationFailed, key, err)
	}
	return nil
}
