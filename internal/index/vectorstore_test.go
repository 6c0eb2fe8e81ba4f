package index

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPointUUID_Deterministic(t *testing.T) {
	a := pointUUID("chunk-1")
	b := pointUUID("chunk-1")
	c := pointUUID("chunk-2")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestInitCollection_CreatesWhenMissing(t *testing.T) {
	var sawGet, sawPut bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sawGet = true
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			sawPut = true
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			vectors := body["vectors"].(map[string]any)
			require.Equal(t, float64(384), vectors["size"])
			require.Equal(t, "Cosine", vectors["distance"])
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := NewVectorStoreClient(srv.URL, "test")
	require.NoError(t, c.InitCollection(context.Background(), 384))
	require.True(t, sawGet)
	require.True(t, sawPut)
}

func TestInitCollection_SkipsCreateWhenPresent(t *testing.T) {
	var putCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			putCalled = true
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewVectorStoreClient(srv.URL, "test")
	require.NoError(t, c.InitCollection(context.Background(), 384))
	require.False(t, putCalled)
}

func TestUpsert_HashesLogicalIDAndPreservesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/test/points", r.URL.Path)
		var body struct {
			Points []map[string]any `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Points, 1)
		require.Equal(t, pointUUID("file.go#0"), body.Points[0]["id"])
		payload := body.Points[0]["payload"].(map[string]any)
		require.Equal(t, "file.go#0", payload["id"])
		require.Equal(t, "file.go", payload["filePath"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewVectorStoreClient(srv.URL, "test")
	err := c.Upsert(context.Background(), []Point{{
		ID:     "file.go#0",
		Vector: []float64{0.1, 0.2},
		Payload: map[string]any{
			"filePath": "file.go",
		},
	}})
	require.NoError(t, err)
}

func TestSearch_MapsHitsToChunkAndScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/test/points/search", r.URL.Path)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, true, body["with_payload"])
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.9, "payload": map[string]any{"filePath": "a.go"}},
			},
		})
	}))
	defer srv.Close()

	c := NewVectorStoreClient(srv.URL, "test")
	hits, err := c.Search(context.Background(), []float64{0.1}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, 0.9, hits[0].Score)
	require.Equal(t, "a.go", hits[0].Chunk["filePath"])
}

func TestUpsert_RetriesTransient5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewVectorStoreClient(srv.URL, "test")
	err := c.Upsert(context.Background(), []Point{{ID: "file.go#0", Vector: []float64{0.1}}})
	require.NoError(t, err, "a single transient 503 must be retried, not surfaced")
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestUpsert_DoesNotRetry4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewVectorStoreClient(srv.URL, "test")
	err := c.Upsert(context.Background(), []Point{{ID: "file.go#0", Vector: []float64{0.1}}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "400")
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are the caller's problem, not retryable")
}

func TestClearCollection_Tolerates404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewVectorStoreClient(srv.URL, "test")
	require.NoError(t, c.ClearCollection(context.Background()))
}

func TestGetCollectionInfo_NilOnFailure(t *testing.T) {
	// The short deadline also cuts the retry loop off instead of
	// letting it back off against a port nothing listens on.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	c := NewVectorStoreClient("http://127.0.0.1:1", "test")
	require.Nil(t, c.GetCollectionInfo(ctx))
}
