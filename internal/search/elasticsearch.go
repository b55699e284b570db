package search

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bretthoffman/goteamgo/config"
	"github.com/bretthoffman/goteamgo/internal/models"
)

// ElasticClient indexes calendar events for the dashboard's search view
type ElasticClient struct {
	client  *elasticsearch.Client
	index   string
	enabled bool
}

// NewElasticClient creates a new Elasticsearch client; disabled in config
// means a no-op client.
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return &ElasticClient{enabled: false}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client:  client,
		index:   cfg.Index,
		enabled: true,
	}, nil
}

// IndexEvent indexes an event document, overwriting any previous version
func (c *ElasticClient) IndexEvent(ctx context.Context, event *models.CallEvent) error {
	if c == nil || !c.enabled {
		return nil
	}

	doc := map[string]interface{}{
		"id":                 event.ID.String(),
		"title":              event.Title,
		"call_type":          event.CallType,
		"start_at":           event.StartAt,
		"end_at":             event.EndAt,
		"kind":               event.Kind,
		"confirmed":          event.Confirmed,
		"post_event_enabled": event.PostEventEnabled,
	}
	if event.ParentEventID != nil {
		doc["parent_event_id"] = event.ParentEventID.String()
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event document")
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: event.ID.String(),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Debug().Str("event_id", event.ID.String()).Msg("event indexed")
	return nil
}

// DeleteEvent removes an event document from the index
func (c *ElasticClient) DeleteEvent(ctx context.Context, eventID string) error {
	if c == nil || !c.enabled {
		return nil
	}

	req := esapi.DeleteRequest{
		Index:      c.index,
		DocumentID: eventID,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return errors.Errorf("Elasticsearch delete error: %s", res.String())
	}

	return nil
}
