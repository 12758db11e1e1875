// Package rerank 提供交叉编码重排序服务的 HTTP 客户端
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"knowledge-qa-api/internal/application/pipeline"
	"knowledge-qa-api/internal/config"
	"knowledge-qa-api/pkg/metrics"
)

// Client 调用 bge-reranker 风格的 /rerank 接口，
// 实现管道重排序阶段的 Reranker 接口
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float32 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

func NewClient(cfg *config.RerankConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "BAAI/bge-reranker-v2-m3"
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ pipeline.Reranker = (*Client)(nil)

// Rerank 按相关度重新排序候选块并覆盖 Score，topK>0 时截断。
// 返回结果的顺序由服务端决定
func (c *Client) Rerank(ctx context.Context, query string, results []pipeline.RetrievedChunk, topK int) ([]pipeline.RetrievedChunk, error) {
	if len(results) == 0 {
		return results, nil
	}

	docs := make([]string, len(results))
	for i := range results {
		docs[i] = results[i].Text
	}

	req := &rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: docs,
	}
	if topK > 0 {
		req.TopN = topK
	}

	start := time.Now()
	resp, err := c.doRerank(ctx, req)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RerankDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}

	out := make([]pipeline.RetrievedChunk, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(results) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d", r.Index)
		}
		chunk := results[r.Index]
		chunk.Score = r.RelevanceScore
		out = append(out, chunk)
	}

	// 服务端应已按 top_n 截断，这里兜底一次
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (c *Client) doRerank(ctx context.Context, req *rerankRequest) (*rerankResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	endpoint := strings.TrimRight(c.endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("rerank endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid rerank endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/rerank"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("rerank request failed: status=%d", httpResp.StatusCode)
	}

	var resp rerankResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	return &resp, nil
}
