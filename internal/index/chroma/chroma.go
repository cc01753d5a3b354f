// Package chroma is a minimal REST client to a Chroma server implementing
// the index.Store contract. The server owns embedding and similarity search;
// this client only moves documents and page tags across the wire.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"paperdesk/internal/domain"
	"paperdesk/internal/index"
)

type Store struct {
	url    string
	client *http.Client

	mu  sync.Mutex
	ids map[string]string // collection name -> server-side collection id
}

type Config struct {
	URL     string
	Timeout time.Duration
}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	url := cfg.URL
	if url == "" {
		url = "http://localhost:8000"
	}
	return &Store{
		url:    url,
		client: &http.Client{Timeout: timeout},
		ids:    map[string]string{},
	}
}

func (s *Store) CreateCollection(ctx context.Context, name string) error {
	body := map[string]any{
		"name":          name,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/api/v1/collections", s.url), body, &resp); err != nil {
		return err
	}
	s.mu.Lock()
	s.ids[name] = resp.ID
	s.mu.Unlock()
	return nil
}

func (s *Store) AddBatch(ctx context.Context, name string, chunks []domain.Chunk) error {
	id, err := s.collectionID(ctx, name)
	if err != nil {
		return err
	}
	ids := make([]string, len(chunks))
	docs := make([]string, len(chunks))
	metas := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		docs[i] = ch.Text
		metas[i] = map[string]any{"page": ch.Page}
	}
	body := map[string]any{"ids": ids, "documents": docs, "metadatas": metas}
	return s.postJSON(ctx, fmt.Sprintf("%s/api/v1/collections/%s/add", s.url, id), body, nil)
}

func (s *Store) Query(ctx context.Context, name, text string, topK int) ([]index.Hit, error) {
	if topK <= 0 {
		topK = 8
	}
	id, err := s.collectionID(ctx, name)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"query_texts": []string{text},
		"n_results":   topK,
		"include":     []string{"documents", "metadatas"},
	}
	var resp struct {
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/api/v1/collections/%s/query", s.url, id), body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Documents) == 0 {
		return nil, nil
	}
	hits := make([]index.Hit, 0, len(resp.Documents[0]))
	for i, doc := range resp.Documents[0] {
		hit := index.Hit{Text: doc}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			if p, ok := resp.Metadatas[0][i]["page"].(float64); ok {
				hit.Page = int(p)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *Store) GetAll(ctx context.Context, name string) ([]domain.Chunk, error) {
	id, err := s.collectionID(ctx, name)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"include": []string{"documents", "metadatas"}}
	var resp struct {
		IDs       []string         `json:"ids"`
		Documents []string         `json:"documents"`
		Metadatas []map[string]any `json:"metadatas"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/api/v1/collections/%s/get", s.url, id), body, &resp); err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(resp.IDs))
	for i := range resp.IDs {
		ch := domain.Chunk{ID: resp.IDs[i]}
		if i < len(resp.Documents) {
			ch.Text = resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			if p, ok := resp.Metadatas[i]["page"].(float64); ok {
				ch.Page = int(p)
			}
		}
		chunks = append(chunks, ch)
	}
	return chunks, nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/api/v1/collections/%s", s.url, name), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chroma DELETE collection %s failed: %s", name, resp.Status)
	}
	s.mu.Lock()
	delete(s.ids, name)
	s.mu.Unlock()
	return nil
}

func (s *Store) collectionID(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	id, ok := s.ids[name]
	s.mu.Unlock()
	if ok {
		return id, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/collections/%s", s.url, name), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("chroma collection %s not found: %s", name, resp.Status)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.ids[name] = out.ID
	s.mu.Unlock()
	return out.ID, nil
}

func (s *Store) postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chroma POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
