package biz

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPassages 内置的导购语料，英文与阿拉伯文各三条。
var DefaultPassages = []string{
	"To add a product to your wishlist, click the heart icon next to the product.",
	`To visit a store, select the store from the list and click "Visit".`,
	"To navigate, use the search bar at the top or browse categories.",
	"لإضافة منتج إلى قائمة الرغبات، اضغط على أيقونة القلب بجوار المنتج.",
	`لزيارة متجر، اختر المتجر من القائمة واضغط على "زيارة".`,
	"للتصفح، استخدم شريط البحث في الأعلى أو تصفح الفئات.",
}

// corpusFile 语料文件格式：
//
//	passages:
//	  - "To add a product ..."
//	  - "لإضافة منتج ..."
type corpusFile struct {
	Passages []string `yaml:"passages"`
}

// LoadCorpusFile 读取 YAML 语料文件。空白条目被丢弃，重复条目只保留第一次出现。
func LoadCorpusFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var f corpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse corpus file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(f.Passages))
	passages := make([]string, 0, len(f.Passages))
	for _, p := range f.Passages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		passages = append(passages, p)
	}

	if len(passages) == 0 {
		return nil, fmt.Errorf("corpus file %s has no passages", path)
	}
	return passages, nil
}

// ResolvePassages 有语料文件时读取文件，否则返回内置语料。
func ResolvePassages(path string) ([]string, error) {
	if path == "" {
		out := make([]string, len(DefaultPassages))
		copy(out, DefaultPassages)
		return out, nil
	}
	return LoadCorpusFile(path)
}
