// Package search writes saved applicants to the booking applicant index and
// reads them back by booking.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"applicant-intake/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrMissingIndex = errors.New("index name is required")
	ErrIndexFailed  = errors.New("SEARCH_INDEX_FAILED")
)

type Indexer struct {
	client *elasticsearch.Client
	index  string
}

func NewIndexer(client *elasticsearch.Client, index string) (*Indexer, error) {
	if index == "" {
		return nil, ErrMissingIndex
	}
	return &Indexer{client: client, index: index}, nil
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "bookingId":    {"type": "keyword"},
      "persistedId":  {"type": "keyword"},
      "applicantId":  {"type": "keyword"},
      "isPrimary":    {"type": "boolean"},
      "fullName":     {"type": "text"},
      "email":        {"type": "keyword"},
      "mobileNumber": {"type": "keyword"},
      "pan":          {"type": "keyword"},
      "city":         {"type": "keyword"},
      "state":        {"type": "keyword"},
      "savedAt":      {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with keyword mappings for the lookup fields
// when it does not exist yet. ByBooking needs bookingId to be a keyword.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	exists, err := esapi.IndicesExistsRequest{Index: []string{i.index}}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", i.index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	res, err := esapi.IndicesCreateRequest{
		Index: i.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", i.index, res.Status())
	}
	return nil
}

// DocumentID is stable per booking and record so a re-save overwrites.
func DocumentID(doc models.IndexedApplicant) string {
	return doc.BookingID + ":" + doc.PersistedID
}

// Index writes each document and returns how many were written. It keeps
// going after a failed document and reports every failure in the error.
func (i *Indexer) Index(ctx context.Context, docs []models.IndexedApplicant) (int, error) {
	var (
		written int
		errs    []error
	)
	for _, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", doc.PersistedID, err))
			continue
		}
		req := esapi.IndexRequest{
			Index:      i.index,
			DocumentID: DocumentID(doc),
			Body:       bytes.NewReader(body),
		}
		res, err := req.Do(ctx, i.client)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", doc.PersistedID, err))
			continue
		}
		if res.IsError() {
			errs = append(errs, fmt.Errorf("index %s: %s", doc.PersistedID, res.Status()))
		} else {
			written++
		}
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}
	if len(errs) > 0 {
		return written, fmt.Errorf("%w: %v", ErrIndexFailed, errors.Join(errs...))
	}
	return written, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.IndexedApplicant `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ByBooking returns the indexed applicants of one booking, primary first.
func (i *Indexer) ByBooking(ctx context.Context, bookingID string, size int) ([]models.IndexedApplicant, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"bookingId": bookingID},
		},
		"sort": []interface{}{
			map[string]interface{}{"isPrimary": map[string]string{"order": "desc"}},
			map[string]interface{}{"savedAt": map[string]string{"order": "asc"}},
		},
	}
	body, _ := json.Marshal(query)

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("search booking %s: %w", bookingID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search booking %s: %s", bookingID, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := make([]models.IndexedApplicant, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
