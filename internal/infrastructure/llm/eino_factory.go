// Package llm 提供 LLM ChatModel 工厂
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"knowledge-qa-api/internal/application/conversation"
	"knowledge-qa-api/internal/config"
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
)

// EinoFactory 管理多个 Eino ChatModel 客户端实例。
// 提供方定义优先取数据库（管理员在线维护），
// 查不到时回退到静态配置，便于本地启动与自举
type EinoFactory struct {
	config    *config.LLMConfig
	providers repository.LLMProviderRepository
	models    map[string]model.BaseChatModel
	mu        sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂，providers 可为 nil
func NewEinoFactory(cfg *config.Config, providers repository.LLMProviderRepository) *EinoFactory {
	return &EinoFactory{
		config:    &cfg.LLM,
		providers: providers,
		models:    make(map[string]model.BaseChatModel),
	}
}

var _ conversation.ChatModelFactory = (*EinoFactory)(nil)

// Get 获取指定名称的 ChatModel，name 为空时等同于 Default
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		return f.Default(ctx)
	}
	return f.get(ctx, name)
}

// Default 返回默认 ChatModel，默认提供方不可用时按 fallback_chain 依次尝试
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	m, err := f.get(ctx, f.config.DefaultProvider)
	if err == nil {
		return m, nil
	}

	for _, name := range f.config.FallbackChain {
		if name == f.config.DefaultProvider {
			continue
		}
		if fm, ferr := f.get(ctx, name); ferr == nil {
			return fm, nil
		}
	}
	return nil, err
}

// Invalidate 移除缓存的 ChatModel 实例，提供方配置变更后调用
func (f *EinoFactory) Invalidate(name string) {
	f.mu.Lock()
	delete(f.models, name)
	f.mu.Unlock()
}

func (f *EinoFactory) get(ctx context.Context, name string) (model.BaseChatModel, error) {
	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	chatModel, err := f.build(ctx, name)
	if err != nil {
		return nil, err
	}

	f.models[name] = chatModel
	return chatModel, nil
}

func (f *EinoFactory) build(ctx context.Context, name string) (model.BaseChatModel, error) {
	if f.providers != nil {
		provider, err := f.providers.GetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load provider %s: %w", name, err)
		}
		if provider != nil {
			return buildFromEntity(ctx, provider)
		}
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}
	return buildFromConfig(ctx, name, &providerCfg)
}

func buildFromEntity(ctx context.Context, provider *entity.LLMProvider) (model.BaseChatModel, error) {
	if !provider.Usable() {
		return nil, fmt.Errorf("provider %s is disabled", provider.Name)
	}

	// 使用 Eino 的 OpenAI 适配器，openai_compatible 类型仅 BaseURL 不同
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  provider.APIKey,
		BaseURL: provider.BaseURL,
		Model:   provider.ChatModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", provider.Name, err)
	}
	return chatModel, nil
}

func buildFromConfig(ctx context.Context, name string, providerCfg *config.ProviderConfig) (model.BaseChatModel, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		MaxTokens:   &providerCfg.MaxTokens,
		Temperature: ptrFloat32(float32(providerCfg.Temperature)),
		Timeout:     providerCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}
	return chatModel, nil
}

func ptrFloat32(f float32) *float32 {
	return &f
}
