package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// DefaultName is the engine used when none is configured.
const DefaultName = "tiff"

// Factory creates an engine instance.
type Factory func(ctx context.Context, opts Options) (Engine, error)

// Info describes a registered engine.
type Info struct {
	// Name is the registry key, e.g. "tiff".
	Name string `json:"name"`

	// Description is a one-line summary shown by the engines command.
	Description string `json:"description"`

	factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Info)
)

// Register makes an engine available under name. It panics when name is
// empty, factory is nil, or name is already registered, since those are
// programming errors in an init function.
func Register(name, description string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || factory == nil {
		panic("engine: Register called with empty name or nil factory")
	}
	if _, dup := registry[name]; dup {
		panic("engine: Register called twice for " + name)
	}
	registry[name] = Info{Name: name, Description: description, factory: factory}
}

// Registered returns all registered engines sorted by name.
func Registered() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	infos := make([]Info, 0, len(registry))
	for _, info := range registry {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Names returns the names of all registered engines, sorted.
func Names() []string {
	infos := Registered()
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

// Open creates the engine registered under name. Unknown names and
// factory failures are reported as ExitEngineUnavailable.
func Open(ctx context.Context, name string, opts Options) (Engine, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultName
	}

	registryMu.RLock()
	info, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		return nil, model.NewCLIError(model.ExitEngineUnavailable,
			fmt.Sprintf("unknown engine %q (available: %s)", name, strings.Join(Names(), ", ")))
	}

	e, err := info.factory(ctx, opts)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitEngineUnavailable,
			fmt.Sprintf("failed to initialise engine %q", key), err)
	}
	opts.Logger.Debug().Str("engine", key).Msg("engine opened")
	return e, nil
}
