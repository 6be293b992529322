package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"studiobook/internal/config"
	"studiobook/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchClient indexes class sessions for schedule search. The index
// is a read model only; Postgres stays the source of truth and cmd/reindex
// can rebuild the index from it at any time.
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// sessionDocument is the indexed shape of a class session
type sessionDocument struct {
	ID        int64     `json:"id"`
	StudioID  int64     `json:"studio_id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	Capacity  int       `json:"capacity"`
	Cancelled bool      `json:"cancelled"`
}

func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	if err := client.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":        map[string]interface{}{"type": "long"},
				"studio_id": map[string]interface{}{"type": "long"},
				"title": map[string]interface{}{
					"type":     "text",
					"analyzer": "english",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{
							"type":         "keyword",
							"ignore_above": 256,
						},
					},
				},
				"starts_at": map[string]interface{}{
					"type":   "date",
					"format": "strict_date_optional_time||epoch_millis",
				},
				"capacity":  map[string]interface{}{"type": "integer"},
				"cancelled": map[string]interface{}{"type": "boolean"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(body),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("index creation returned status %d", createRes.StatusCode)
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// IndexSession upserts a session document. Called on create and on
// cancellation, so the search view follows status changes.
func (c *ElasticsearchClient) IndexSession(ctx context.Context, session *models.ClassSession) error {
	doc := sessionDocument{
		ID:        session.ID,
		StudioID:  session.StudioID,
		Title:     session.Title,
		StartsAt:  session.StartsAt,
		Capacity:  session.Capacity,
		Cancelled: session.Cancelled,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal session document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(session.ID, 10),
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing returned status %d", res.StatusCode)
	}

	return nil
}

// Search runs a full-text query over session titles, optionally filtered by
// calendar date (YYYY-MM-DD). Cancelled sessions are excluded.
func (c *ElasticsearchClient) Search(ctx context.Context, query, date string, page, pageSize int) ([]models.SessionResponseItem, error) {
	must := []map[string]interface{}{}

	if query != "" {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{
				"title": map[string]interface{}{
					"query":     query,
					"fuzziness": "AUTO",
				},
			},
		})
	}

	filter := []map[string]interface{}{
		{"term": map[string]interface{}{"cancelled": false}},
	}

	if date != "" {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{
				"starts_at": map[string]interface{}{
					"gte":    date,
					"lt":     date + "||+1d",
					"format": "yyyy-MM-dd",
				},
			},
		})
	}

	searchBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"sort": []map[string]interface{}{
			{"starts_at": map[string]interface{}{"order": "asc"}},
		},
		"from": (page - 1) * pageSize,
		"size": pageSize,
	}

	body, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search returned status %d", res.StatusCode)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source sessionDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]models.SessionResponseItem, len(parsed.Hits.Hits))
	for i, hit := range parsed.Hits.Hits {
		results[i] = models.SessionResponseItem{
			ID:        hit.Source.ID,
			Title:     hit.Source.Title,
			StartsAt:  hit.Source.StartsAt,
			Capacity:  hit.Source.Capacity,
			Cancelled: hit.Source.Cancelled,
		}
	}

	return results, nil
}
