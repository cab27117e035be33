package tools

import (
	"sync"

	"kaybee/backend/internal/adapter"
	kberrors "kaybee/backend/pkg/errors"
)

var (
	registryOnce sync.Once
	registry     map[string]adapter.Tool
)

func loadRegistry() {
	registry = make(map[string]adapter.Tool)
	for _, tool := range GetAllTools() {
		registry[tool.Function.Name] = tool
	}
}

// Lookup returns the definition of the named tool
func Lookup(name string) (adapter.Tool, error) {
	registryOnce.Do(loadRegistry)
	tool, ok := registry[name]
	if !ok {
		return adapter.Tool{}, kberrors.NewToolNotFound(name)
	}
	return tool, nil
}
