package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"moogla-chat/internal/domain"
	"moogla-chat/internal/repository"
)

const (
	ModelKey   = "model"
	PluginsKey = "plugins"
)

var (
	ErrPreferencesNotConfigured = errors.New("preferences not configured")
	ErrUnknownPlugin            = errors.New("unknown plugin")
)

// PreferencesService persiste el modelo elegido y los plugins habilitados.
type PreferencesService struct {
	repo         repository.KVRepository
	defaultModel string
	catalog      *PluginCatalog
}

func NewPreferencesService(repo repository.KVRepository, defaultModel string, catalog *PluginCatalog) *PreferencesService {
	return &PreferencesService{
		repo:         repo,
		defaultModel: strings.TrimSpace(defaultModel),
		catalog:      catalog,
	}
}

// Model devuelve el último modelo elegido o el modelo por defecto.
func (s *PreferencesService) Model(ctx context.Context) string {
	if s == nil {
		return ""
	}
	if s.repo == nil {
		return s.defaultModel
	}
	v, err := s.repo.Get(ctx, ModelKey)
	if err != nil || strings.TrimSpace(v) == "" {
		return s.defaultModel
	}
	return strings.TrimSpace(v)
}

// SetModel guarda el modelo; un nombre vacío vuelve al modelo por defecto.
func (s *PreferencesService) SetModel(ctx context.Context, model string) error {
	if s == nil || s.repo == nil {
		return ErrPreferencesNotConfigured
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return s.repo.Delete(ctx, ModelKey)
	}
	return s.repo.Set(ctx, ModelKey, model)
}

func (s *PreferencesService) Plugins(ctx context.Context) []string {
	if s == nil || s.repo == nil {
		return []string{}
	}
	v, err := s.repo.Get(ctx, PluginsKey)
	if err != nil {
		return []string{}
	}
	return normalizePluginIDs(strings.Split(v, ","))
}

// SetPlugins guarda los plugins habilitados separados por coma.
// Con catálogo cargado, un id desconocido devuelve ErrUnknownPlugin.
func (s *PreferencesService) SetPlugins(ctx context.Context, ids []string) error {
	if s == nil || s.repo == nil {
		return ErrPreferencesNotConfigured
	}
	ids = normalizePluginIDs(ids)
	if s.catalog != nil && s.catalog.Len() > 0 {
		for _, id := range ids {
			if !s.catalog.Has(id) {
				return fmt.Errorf("%w: %s", ErrUnknownPlugin, id)
			}
		}
	}
	if len(ids) == 0 {
		return s.repo.Delete(ctx, PluginsKey)
	}
	return s.repo.Set(ctx, PluginsKey, strings.Join(ids, ","))
}

func (s *PreferencesService) Get(ctx context.Context) domain.Preferences {
	return domain.Preferences{
		Model:   s.Model(ctx),
		Plugins: s.Plugins(ctx),
	}
}

func normalizePluginIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
