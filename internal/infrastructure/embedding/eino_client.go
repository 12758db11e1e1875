package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"knowledge-qa-api/internal/config"
	"knowledge-qa-api/pkg/metrics"
)

// NewEmbedder 按配置创建 Embedder。
// provider 为 openai 时使用 Eino 的 OpenAI 适配器，
// 为 http 时使用自托管服务的 HTTP 客户端
func NewEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	var inner embedding.Embedder

	switch cfg.Provider {
	case "", "openai":
		embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create eino embedder: %w", err)
		}
		inner = embedder
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("embedding base_url is required for http provider")
		}
		inner = NewClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	return &measuredEmbedder{inner: inner}, nil
}

// measuredEmbedder 记录每次向量化调用的耗时指标
type measuredEmbedder struct {
	inner embedding.Embedder
}

func (m *measuredEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	start := time.Now()
	vectors, err := m.inner.EmbedStrings(ctx, texts, opts...)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.EmbeddingDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	return vectors, err
}
