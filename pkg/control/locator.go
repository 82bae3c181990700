package control

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"

	"brokerctl/pkg/utils"
)

// Locator resolves logical tool names to absolute executable paths.
// Configured overrides win over PATH lookup; successful resolutions are
// cached per name.
type Locator struct {
	mu        sync.Mutex
	overrides map[string]string
	cache     map[string]string
	logger    Logger
}

// NewLocator creates a new tool locator. The overrides map binds tool names
// to explicit paths, bypassing PATH lookup for those names.
func NewLocator(overrides map[string]string, logger Logger) *Locator {
	if logger == nil {
		logger = &noOpLogger{}
	}

	return &Locator{
		overrides: overrides,
		cache:     make(map[string]string),
		logger:    logger,
	}
}

// Resolve returns the absolute path for the named tool, or ErrToolNotFound.
func (l *Locator) Resolve(name string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if path, ok := l.cache[name]; ok {
		return path, nil
	}

	if path, ok := l.overrides[name]; ok && path != "" {
		if err := utils.ValidateExecutablePath(path); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrToolNotFound, name, err)
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrToolNotFound, name, err)
		}

		l.cache[name] = abs

		return abs, nil
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolNotFound, name, err)
	}

	l.logger.Debug("Resolved tool %s to %s", name, abs)
	l.cache[name] = abs

	return abs, nil
}
