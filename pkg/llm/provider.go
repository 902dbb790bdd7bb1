// Package llm 提供 Embedding 与文本生成供应商的统一抽象层。
// Embedding 和 Generation 可以使用不同供应商，通过注册表按名称创建。
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为单个文本生成向量嵌入。
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// GenerationProvider 定义文本生成供应商接口。
type GenerationProvider interface {
	// Generate 根据完整提示生成回答文本。
	Generate(ctx context.Context, prompt string) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// EmbeddingProviderFactory Embedding 供应商工厂函数类型。
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// GenerationProviderFactory 生成供应商工厂函数类型。
type GenerationProviderFactory func(config map[string]any) (GenerationProvider, error)

// registry 供应商注册表。
var registry = &providerRegistry{
	embeddingProviders:  make(map[string]EmbeddingProviderFactory),
	generationProviders: make(map[string]GenerationProviderFactory),
}

type providerRegistry struct {
	mu                  sync.RWMutex
	embeddingProviders  map[string]EmbeddingProviderFactory
	generationProviders map[string]GenerationProviderFactory
}

// RegisterEmbeddingProvider 注册 Embedding 供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// RegisterGenerationProvider 注册生成供应商工厂。
func RegisterGenerationProvider(name string, factory GenerationProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.generationProviders[name] = factory
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.embeddingProviders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
	return factory(config)
}

// NewGenerationProvider 根据名称创建生成供应商实例。
func NewGenerationProvider(name string, config map[string]any) (GenerationProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.generationProviders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown generation provider: %s", name)
	}
	return factory(config)
}

// ListProviders 列出所有已注册的供应商名称（去重并排序）。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string

	for name := range registry.embeddingProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range registry.generationProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names
}
