package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"moogla-chat/internal/domain"
)

// PluginCatalog lista los plugins que el usuario puede habilitar.
type PluginCatalog struct {
	plugins []domain.Plugin
	index   map[string]struct{}
}

func NewPluginCatalog(plugins []domain.Plugin) *PluginCatalog {
	c := &PluginCatalog{index: make(map[string]struct{})}
	for _, p := range plugins {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			continue
		}
		if _, dup := c.index[p.ID]; dup {
			continue
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		c.index[p.ID] = struct{}{}
		c.plugins = append(c.plugins, p)
	}
	return c
}

// LoadPluginCatalog lee el catálogo desde YAML (.yaml/.yml) o JSON.
// Acepta {plugins: [...]} o una lista suelta; cada entrada puede ser un id o un objeto.
// Si el archivo no existe devuelve un catálogo vacío.
func LoadPluginCatalog(path string) (*PluginCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return NewPluginCatalog(nil), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewPluginCatalog(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plugin catalog: %w", err)
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode plugin catalog: %w", err)
	}

	entries := doc
	if m, ok := doc.(map[string]any); ok {
		entries = m["plugins"]
	}
	list, _ := entries.([]any)

	plugins := make([]domain.Plugin, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			plugins = append(plugins, domain.Plugin{ID: v})
		case map[string]any:
			plugins = append(plugins, domain.Plugin{
				ID:          stringField(v, "id"),
				Name:        stringField(v, "name"),
				Description: stringField(v, "description"),
			})
		}
	}
	return NewPluginCatalog(plugins), nil
}

func (c *PluginCatalog) All() []domain.Plugin {
	if c == nil {
		return []domain.Plugin{}
	}
	out := make([]domain.Plugin, len(c.plugins))
	copy(out, c.plugins)
	return out
}

func (c *PluginCatalog) Has(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[strings.TrimSpace(id)]
	return ok
}

func (c *PluginCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.plugins)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
