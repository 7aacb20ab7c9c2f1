package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	campaignsCollection = "campaigns"
	callsCollection     = "calls"
	metaCollection      = "meta"
)

// Store manages the persistence of campaigns and calls in Firestore.
type Store struct {
	client *firestore.Client
}

// NewStore creates a new Store and initializes the Firestore client.
func NewStore(ctx context.Context, projectID string) (kv.Storer, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close closes the Firestore client connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// ListCampaigns queries by status and applies the remaining filter client side.
func (s *Store) ListCampaigns(ctx context.Context, filter kv.CampaignFilter) ([]*model.Campaign, error) {
	q := s.client.Collection(campaignsCollection).Query
	if filter.Status != "" {
		q = q.Where("Status", "==", filter.Status)
	}
	if filter.ScheduleEnabled != nil {
		q = q.Where("ScheduleEnabled", "==", *filter.ScheduleEnabled)
	}

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list campaigns: %w", kv.ErrDBOperationFailed, err)
	}

	var campaigns []*model.Campaign
	for _, doc := range docs {
		var c model.Campaign
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("%w: failed to unmarshal campaign: %w", kv.ErrSerializationFailed, err)
		}
		if filter.Matches(&c) {
			campaigns = append(campaigns, &c)
		}
	}
	return campaigns, nil
}

// GetCampaign retrieves a single campaign.
func (s *Store) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	doc, err := s.client.Collection(campaignsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: campaign with id '%s'", kv.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to get campaign: %w", kv.ErrDBOperationFailed, err)
	}

	var c model.Campaign
	if err := doc.DataTo(&c); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal campaign: %w", kv.ErrSerializationFailed, err)
	}
	return &c, nil
}

// PutCampaign creates or replaces a campaign.
func (s *Store) PutCampaign(ctx context.Context, c *model.Campaign) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if _, err := s.client.Collection(campaignsCollection).Doc(c.ID).Set(ctx, c); err != nil {
		return fmt.Errorf("%w: failed to put campaign: %w", kv.ErrDBOperationFailed, err)
	}
	return nil
}

// UpdateCampaign overwrites the fields set in u.
func (s *Store) UpdateCampaign(ctx context.Context, id string, u kv.CampaignUpdate) error {
	updates := []firestore.Update{{Path: "UpdatedAt", Value: time.Now().UTC()}}
	if u.Status != nil {
		updates = append(updates, firestore.Update{Path: "Status", Value: *u.Status})
	}
	if u.Config != nil {
		updates = append(updates, firestore.Update{Path: "Config", Value: u.Config})
	}
	return s.update(ctx, campaignsCollection, id, updates)
}

// FindPendingCall queries for a pending call with an exact phone number match.
func (s *Store) FindPendingCall(ctx context.Context, campaignID, phoneNumber string) (*model.CallRecord, error) {
	docs, err := s.client.Collection(callsCollection).
		Where("CampaignID", "==", campaignID).
		Where("PhoneNumber", "==", phoneNumber).
		Where("Status", "==", model.CallPending).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query pending call: %w", kv.ErrDBOperationFailed, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: pending call for '%s' in campaign '%s'", kv.ErrNotFound, phoneNumber, campaignID)
	}

	var r model.CallRecord
	if err := docs[0].DataTo(&r); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal call: %w", kv.ErrSerializationFailed, err)
	}
	return &r, nil
}

// ListCalls returns the calls of a campaign, or every call when campaignID is empty.
func (s *Store) ListCalls(ctx context.Context, campaignID string) ([]*model.CallRecord, error) {
	q := s.client.Collection(callsCollection).Query
	if campaignID != "" {
		q = q.Where("CampaignID", "==", campaignID)
	}
	docs, err := q.OrderBy("ID", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list calls: %w", kv.ErrDBOperationFailed, err)
	}

	calls := make([]*model.CallRecord, 0, len(docs))
	for _, doc := range docs {
		var r model.CallRecord
		if err := doc.DataTo(&r); err != nil {
			return nil, fmt.Errorf("%w: failed to unmarshal call: %w", kv.ErrSerializationFailed, err)
		}
		calls = append(calls, &r)
	}
	return calls, nil
}

// PutCall creates or replaces a call record.
func (s *Store) PutCall(ctx context.Context, r *model.CallRecord) error {
	r.UpdatedAt = time.Now().UTC()
	if _, err := s.client.Collection(callsCollection).Doc(r.ID).Set(ctx, r); err != nil {
		return fmt.Errorf("%w: failed to put call: %w", kv.ErrDBOperationFailed, err)
	}
	return nil
}

// UpdateCall overwrites the fields set in u.
func (s *Store) UpdateCall(ctx context.Context, id string, u kv.CallUpdate) error {
	updates := []firestore.Update{{Path: "UpdatedAt", Value: time.Now().UTC()}}
	if u.Status != nil {
		updates = append(updates, firestore.Update{Path: "Status", Value: *u.Status})
	}
	if u.Duration != nil {
		updates = append(updates, firestore.Update{Path: "Duration", Value: *u.Duration})
	}
	if u.ExternalConversationID != nil {
		updates = append(updates, firestore.Update{Path: "ExternalConversationID", Value: *u.ExternalConversationID})
	}
	if u.Metadata != nil {
		updates = append(updates, firestore.Update{Path: "Metadata", Value: u.Metadata})
	}
	return s.update(ctx, callsCollection, id, updates)
}

type schemaDoc struct {
	Version int
}

// GetSchemaVersion retrieves the current schema version from the store.
func (s *Store) GetSchemaVersion(ctx context.Context) (int, error) {
	doc, err := s.client.Collection(metaCollection).Doc("schema").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: failed to get schema version: %w", kv.ErrDBOperationFailed, err)
	}
	var meta schemaDoc
	if err := doc.DataTo(&meta); err != nil {
		return 0, fmt.Errorf("%w: failed to unmarshal schema version: %w", kv.ErrSerializationFailed, err)
	}
	return meta.Version, nil
}

// SetSchemaVersion sets the current schema version in the store.
func (s *Store) SetSchemaVersion(ctx context.Context, version int) error {
	if _, err := s.client.Collection(metaCollection).Doc("schema").Set(ctx, schemaDoc{Version: version}); err != nil {
		return fmt.Errorf("%w: failed to set schema version: %w", kv.ErrDBOperationFailed, err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, collection, id string, updates []firestore.Update) error {
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s with id '%s'", kv.ErrNotFound, collection, id)
		}
		return fmt.Errorf("%w: failed to update %s: %w", kv.ErrDBOperationFailed, collection, err)
	}
	return nil
}
