package store

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kart-io/logger"

	storeopts "github.com/kart-io/sentinel-rag/pkg/options/store"
	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

// endeeHealthTimeout 健康检查使用独立的短超时，不重试。
const endeeHealthTimeout = 5 * time.Second

// EndeeStore 基于 Endee 向量服务 REST API 的实现。
type EndeeStore struct {
	baseURL string
	client  *httpclient.Client
	health  *httpclient.Client
}

var _ VectorStore = (*EndeeStore)(nil)

// NewEndeeStore 创建 Endee 客户端。AuthToken 非空时原样作为 Authorization 头发送。
func NewEndeeStore(opts *storeopts.EndeeOptions, clientOpts ...httpclient.Option) *EndeeStore {
	if opts.AuthToken != "" {
		clientOpts = append(clientOpts, httpclient.WithHeader("Authorization", opts.AuthToken))
	}

	retries := opts.MaxRetries - 1
	if retries < 0 {
		retries = 0
	}

	return &EndeeStore{
		baseURL: strings.TrimRight(opts.URL, "/"),
		client:  httpclient.NewClient(opts.Timeout, retries, clientOpts...),
		health:  httpclient.NewClient(endeeHealthTimeout, 0, clientOpts...),
	}
}

type endeeCreateRequest struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

type endeeInsertRequest struct {
	Vectors []StoredVector `json:"vectors"`
}

type endeeSearchRequest struct {
	Query  []float32      `json:"query"`
	K      int            `json:"k"`
	Filter map[string]any `json:"filter,omitempty"`
}

type endeeSearchResponse struct {
	Results []SearchResult `json:"results"`
}

type endeeListResponse struct {
	Indices []string `json:"indices"`
}

func (s *EndeeStore) indexURL(index, action string) string {
	return s.baseURL + "/api/v1/index/" + url.PathEscape(index) + "/" + action
}

// EnsureIndex 创建索引，409 表示已存在，视为成功。
func (s *EndeeStore) EnsureIndex(ctx context.Context, name string, dimension int, metric Metric) error {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, s.baseURL+"/api/v1/index/create", endeeCreateRequest{
		Name:      name,
		Dimension: dimension,
		Metric:    string(metric),
	})
	if err != nil {
		return storeError("create index", name, err)
	}

	err = s.client.DoJSON(req, nil)
	if httpclient.StatusCode(err) == http.StatusConflict {
		logger.Debugw("Index already exists", "index", name)
		return nil
	}
	if err != nil {
		return storeError("create index", name, err)
	}
	logger.Infow("Index created", "index", name, "dimension", dimension, "metric", string(metric))
	return nil
}

func (s *EndeeStore) Insert(ctx context.Context, index string, vectors []StoredVector) error {
	if len(vectors) == 0 {
		return nil
	}
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, s.indexURL(index, "insert"), endeeInsertRequest{Vectors: vectors})
	if err != nil {
		return storeError("insert into", index, err)
	}
	if err := s.client.DoJSON(req, nil); err != nil {
		return storeError("insert into", index, err)
	}
	return nil
}

func (s *EndeeStore) Search(ctx context.Context, index string, vector []float32, k int, filter map[string]any) ([]SearchResult, error) {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, s.indexURL(index, "search"), endeeSearchRequest{
		Query:  vector,
		K:      k,
		Filter: filter,
	})
	if err != nil {
		return nil, storeError("search", index, err)
	}

	var resp endeeSearchResponse
	if err := s.client.DoJSON(req, &resp); err != nil {
		return nil, storeError("search", index, err)
	}
	if resp.Results == nil {
		return []SearchResult{}, nil
	}
	return resp.Results, nil
}

func (s *EndeeStore) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, endeeHealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.health.DoRequest(req)
	if err != nil {
		logger.Debugw("Endee health check failed", "url", s.baseURL, "error", err.Error())
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (s *EndeeStore) Stats(ctx context.Context, index string) (map[string]any, error) {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodGet, s.indexURL(index, "stats"), nil)
	if err != nil {
		return nil, storeError("stats", index, err)
	}
	var stats map[string]any
	if err := s.client.DoJSON(req, &stats); err != nil {
		return nil, storeError("stats", index, err)
	}
	if stats == nil {
		stats = map[string]any{}
	}
	return stats, nil
}

func (s *EndeeStore) ListIndices(ctx context.Context) ([]string, error) {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodGet, s.baseURL+"/api/v1/index/list", nil)
	if err != nil {
		return nil, storeError("list indices", "", err)
	}
	var resp endeeListResponse
	if err := s.client.DoJSON(req, &resp); err != nil {
		return nil, storeError("list indices", "", err)
	}
	if resp.Indices == nil {
		return []string{}, nil
	}
	return resp.Indices, nil
}

func (s *EndeeStore) Close(context.Context) error {
	return nil
}
