package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Factory opens a new device.
type Factory func() (Device, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	backendPriority = []string{NameWGPU, NameRecording}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	if factory == nil {
		panic("backend: Register factory is nil")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the sorted names of the registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens the backend registered under name.
func Open(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (forgotten import?)", ErrBackendNotAvailable, name)
	}
	d, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend: open %q: %w", name, err)
	}
	return d, nil
}

// Default opens the best available backend. Backends are tried in priority
// order, then the remaining ones by name; the first that opens wins.
func Default() (Device, string, error) {
	names := Available()
	order := make([]string, 0, len(names))
	for _, name := range backendPriority {
		if IsRegistered(name) {
			order = append(order, name)
		}
	}
	for _, name := range names {
		if !contains(backendPriority, name) {
			order = append(order, name)
		}
	}

	var errs []error
	for _, name := range order {
		d, err := Open(name)
		if err == nil {
			return d, name, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, "", ErrBackendNotAvailable
	}
	return nil, "", fmt.Errorf("%w: %v", ErrBackendNotAvailable, errs)
}

// MustOpen opens the named backend or panics.
func MustOpen(name string) Device {
	d, err := Open(name)
	if err != nil {
		panic(err)
	}
	return d
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
