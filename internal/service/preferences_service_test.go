package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"moogla-chat/internal/domain"
	"moogla-chat/internal/repository"
)

func TestPreferencesService_Model(t *testing.T) {
	repo := repository.NewMemoryKVRepository()
	svc := NewPreferencesService(repo, " gpt-3.5-turbo ", nil)
	ctx := context.Background()

	if got := svc.Model(ctx); got != "gpt-3.5-turbo" {
		t.Fatalf("expected default model, got %q", got)
	}
	if err := svc.SetModel(ctx, " llama3 "); err != nil {
		t.Fatalf("set model: %v", err)
	}
	if got := svc.Model(ctx); got != "llama3" {
		t.Fatalf("expected llama3, got %q", got)
	}
	if v, _ := repo.Get(ctx, ModelKey); v != "llama3" {
		t.Fatalf("expected model persisted under %q, got %q", ModelKey, v)
	}
	if err := svc.SetModel(ctx, "  "); err != nil {
		t.Fatalf("reset model: %v", err)
	}
	if got := svc.Model(ctx); got != "gpt-3.5-turbo" {
		t.Fatalf("expected fallback after reset, got %q", got)
	}
}

func TestPreferencesService_PluginsCommaJoined(t *testing.T) {
	repo := repository.NewMemoryKVRepository()
	svc := NewPreferencesService(repo, "m", nil)
	ctx := context.Background()

	if got := svc.Plugins(ctx); got == nil || len(got) != 0 {
		t.Fatalf("expected empty plugins, got %+v", got)
	}
	if err := svc.SetPlugins(ctx, []string{" echo ", "", "upper", "echo"}); err != nil {
		t.Fatalf("set plugins: %v", err)
	}
	if v, _ := repo.Get(ctx, PluginsKey); v != "echo,upper" {
		t.Fatalf("expected comma-joined plugins, got %q", v)
	}
	prefs := svc.Get(ctx)
	if prefs.Model != "m" || len(prefs.Plugins) != 2 || prefs.Plugins[1] != "upper" {
		t.Fatalf("unexpected preferences %+v", prefs)
	}
	if err := svc.SetPlugins(ctx, nil); err != nil {
		t.Fatalf("clear plugins: %v", err)
	}
	if _, err := repo.Get(ctx, PluginsKey); !errors.Is(err, repository.ErrKeyNotFound) {
		t.Fatalf("expected plugins key removed, got %v", err)
	}
}

func TestPreferencesService_UnknownPlugin(t *testing.T) {
	catalog := NewPluginCatalog([]domain.Plugin{{ID: "echo"}})
	svc := NewPreferencesService(repository.NewMemoryKVRepository(), "m", catalog)
	if err := svc.SetPlugins(context.Background(), []string{"echo", "nope"}); !errors.Is(err, ErrUnknownPlugin) {
		t.Fatalf("expected ErrUnknownPlugin, got %v", err)
	}
}

func TestPreferencesService_NotConfigured(t *testing.T) {
	var svc *PreferencesService
	if svc.Model(context.Background()) != "" || len(svc.Plugins(context.Background())) != 0 {
		t.Fatalf("expected zero values for nil service")
	}
	if err := svc.SetModel(context.Background(), "m"); !errors.Is(err, ErrPreferencesNotConfigured) {
		t.Fatalf("expected ErrPreferencesNotConfigured, got %v", err)
	}
}

func TestLoadPluginCatalog(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "plugins.yaml")
	os.WriteFile(yamlPath, []byte("plugins:\n  - echo\n  - id: upper\n    name: Upper\n    description: mayúsculas\n  - id: echo\n"), 0o600)
	c, err := LoadPluginCatalog(yamlPath)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	all := c.All()
	if c.Len() != 2 || all[0].Name != "echo" || all[1].Description != "mayúsculas" {
		t.Fatalf("unexpected yaml catalog %+v", all)
	}
	if !c.Has(" upper ") || c.Has("nope") {
		t.Fatalf("unexpected Has results")
	}

	jsonPath := filepath.Join(dir, "plugins.json")
	os.WriteFile(jsonPath, []byte(`["a", {"id": "b"}]`), 0o600)
	c, err = LoadPluginCatalog(jsonPath)
	if err != nil || c.Len() != 2 {
		t.Fatalf("expected 2 json plugins, got %v %v", c.All(), err)
	}

	c, err = LoadPluginCatalog(filepath.Join(dir, "missing.yaml"))
	if err != nil || c.Len() != 0 {
		t.Fatalf("expected empty catalog for missing file, got %v", err)
	}

	badPath := filepath.Join(dir, "bad.json")
	os.WriteFile(badPath, []byte("{"), 0o600)
	if _, err := LoadPluginCatalog(badPath); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPreferencesService_ModelWithoutRepoUsesDefault(t *testing.T) {
	svc := NewPreferencesService(nil, " llama3 ", nil)
	if got := svc.Model(context.Background()); got != "llama3" {
		t.Fatalf("expected default model without storage, got %q", got)
	}
	if err := svc.SetModel(context.Background(), "otro"); !errors.Is(err, ErrPreferencesNotConfigured) {
		t.Fatalf("expected ErrPreferencesNotConfigured, got %v", err)
	}
}
