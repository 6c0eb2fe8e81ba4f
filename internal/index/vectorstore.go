package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

const (
	defaultVectorStoreURL = "http://localhost:6333"
	defaultCollection     = "opencode_index"
	vectorStoreTimeout    = 30 * time.Second
)

// pointIDNamespace is a fixed namespace UUID so that hashing a logical
// chunk id with uuid.NewSHA1 always produces the same backing point id.
var pointIDNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Point is a single vector with its payload, addressed by a
// caller-chosen logical id (hashed to a stable UUID before reaching
// the store).
type Point struct {
	ID      string
	Vector  []float64
	Payload map[string]any
}

// SearchHit is a single nearest-neighbour result.
type SearchHit struct {
	Chunk map[string]any
	Score float64
}

// CollectionInfo reports point count and vector dimension.
type CollectionInfo struct {
	PointsCount int
	VectorSize  int
}

// VectorStoreClient is a typed client for a local vector store
// speaking the Qdrant-style collections/points wire.
type VectorStoreClient struct {
	baseURL    string
	collection string
	client     *http.Client
}

// NewVectorStoreClient constructs a client pointed at baseURL for the
// named collection. Empty values fall back to local defaults.
func NewVectorStoreClient(baseURL, collection string) *VectorStoreClient {
	if baseURL == "" {
		baseURL = defaultVectorStoreURL
	}
	if collection == "" {
		collection = defaultCollection
	}
	return &VectorStoreClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		client:     &http.Client{Timeout: vectorStoreTimeout},
	}
}

// pointUUID hashes a logical id to a stable UUID via uuid.NewSHA1 over
// a fixed namespace, so repeated upserts of the same logical id never
// drift to a different backing point.
func pointUUID(logicalID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(logicalID)).String()
}

func (c *VectorStoreClient) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", c.baseURL, c.collection, suffix)
}

// do issues a request, retrying transport failures and 5xx responses
// with exponential backoff before surfacing the error; 4xx responses
// are returned to the caller without retry. The response body is read
// in full so each retry starts from a clean connection.
func (c *VectorStoreClient) do(ctx context.Context, method, url string, body any) (int, []byte, error) {
	var encoded []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, apperr.Wrap(apperr.Validation, err, "index: encode vector-store request")
		}
		encoded = b
	}

	var status int
	var payload []byte
	op := func() error {
		s, p, err := c.doOnce(ctx, method, url, encoded)
		if err != nil {
			return err
		}
		if s >= 500 {
			return apperr.New(apperr.Protocol, "index: vector store returned %d %s: %s",
				s, http.StatusText(s), snippet(p))
		}
		status, payload = s, p
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if apperr.IsKind(err, apperr.Protocol) || apperr.IsKind(err, apperr.Validation) {
			return 0, nil, err
		}
		return 0, nil, apperr.Wrap(apperr.Transport, err, "index: vector-store request to %s", url)
	}
	return status, payload, nil
}

func (c *VectorStoreClient) doOnce(ctx context.Context, method, url string, encoded []byte) (int, []byte, error) {
	var reader io.Reader
	if encoded != nil {
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, backoff.Permanent(apperr.Wrap(apperr.Validation, err, "index: build vector-store request"))
	}
	if encoded != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, apperr.Wrap(apperr.Transport, err, "index: vector-store request to %s", url)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, apperr.Wrap(apperr.Transport, err, "index: read vector-store response")
	}
	return resp.StatusCode, payload, nil
}

// snippet bounds a response body for inclusion in an error message.
func snippet(b []byte) string {
	if len(b) > 4096 {
		b = b[:4096]
	}
	return strings.TrimSpace(string(b))
}

// InitCollection probes whether the configured collection exists; if
// not, creates it with the given vector dimension and cosine distance.
func (c *VectorStoreClient) InitCollection(ctx context.Context, dim int) error {
	status, _, err := c.do(ctx, http.MethodGet, c.collectionURL(""), nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	createBody := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	createStatus, payload, err := c.do(ctx, http.MethodPut, c.collectionURL(""), createBody)
	if err != nil {
		return err
	}
	if createStatus < 200 || createStatus >= 300 {
		return apperr.New(apperr.Protocol, "index: create collection returned %d: %s",
			createStatus, snippet(payload))
	}
	return nil
}

// Upsert writes points into the collection, hashing each logical id to
// a deterministic backing UUID and folding the original id into the
// stored payload.
func (c *VectorStoreClient) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	wire := make([]map[string]any, 0, len(points))
	for _, p := range points {
		payload := map[string]any{"id": p.ID}
		for k, v := range p.Payload {
			payload[k] = v
		}
		wire = append(wire, map[string]any{
			"id":      pointUUID(p.ID),
			"vector":  p.Vector,
			"payload": payload,
		})
	}

	status, payload, err := c.do(ctx, http.MethodPut, c.collectionURL("/points"), map[string]any{"points": wire})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return apperr.New(apperr.Protocol, "index: upsert returned %d: %s", status, snippet(payload))
	}
	return nil
}

// Search runs a nearest-neighbours query and maps hits back to
// {chunk, score}.
func (c *VectorStoreClient) Search(ctx context.Context, vector []float64, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 5
	}
	status, payload, err := c.do(ctx, http.MethodPost, c.collectionURL("/points/search"), map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, apperr.New(apperr.Protocol, "index: search returned %d: %s", status, snippet(payload))
	}

	var out struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, apperr.Wrap(apperr.Protocol, err, "index: decode search response")
	}

	hits := make([]SearchHit, 0, len(out.Result))
	for _, r := range out.Result {
		hits = append(hits, SearchHit{Chunk: r.Payload, Score: r.Score})
	}
	return hits, nil
}

// DeleteByFilePath deletes every point whose payload's filePath
// matches path exactly.
func (c *VectorStoreClient) DeleteByFilePath(ctx context.Context, path string) error {
	filter := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "filePath", "match": map[string]any{"value": path}},
			},
		},
	}
	status, payload, err := c.do(ctx, http.MethodPost, c.collectionURL("/points/delete"), filter)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return apperr.New(apperr.Protocol, "index: delete returned %d: %s", status, snippet(payload))
	}
	return nil
}

// ClearCollection deletes the entire collection, tolerating a 404 (an
// already-absent collection is not an error).
func (c *VectorStoreClient) ClearCollection(ctx context.Context) error {
	status, payload, err := c.do(ctx, http.MethodDelete, c.collectionURL(""), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status < 200 || status >= 300 {
		return apperr.New(apperr.Protocol, "index: clear collection returned %d: %s", status, snippet(payload))
	}
	return nil
}

// GetCollectionInfo returns point count and vector size, or nil on any
// failure (network error, non-2xx, or decode error all collapse to
// "no info available" rather than propagating).
func (c *VectorStoreClient) GetCollectionInfo(ctx context.Context) *CollectionInfo {
	status, payload, err := c.do(ctx, http.MethodGet, c.collectionURL(""), nil)
	if err != nil {
		return nil
	}
	if status < 200 || status >= 300 {
		return nil
	}

	var out struct {
		Result struct {
			PointsCount int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil
	}
	return &CollectionInfo{
		PointsCount: out.Result.PointsCount,
		VectorSize:  out.Result.Config.Params.Vectors.Size,
	}
}
