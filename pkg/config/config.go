package config

import (
	"sync"
)

var (
	// globalManager is the process-wide configuration manager
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates the global manager on the file at configPath (or the
// default location when empty), registers the default sections and loads
// them. Call it once at startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)
	for _, section := range []Section{
		NewNavigationSection(),
		NewRulesSection(),
		NewPageLoadSection(),
	} {
		if err := manager.RegisterSection(section); err != nil {
			return err
		}
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func globalSection[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetNavigation returns the navigation section from global config.
// Returns nil if config is not initialized.
func GetNavigation() *NavigationSection {
	return globalSection[*NavigationSection](SectionIDNavigation)
}

// GetRules returns the navigation rules section from global config.
// Returns nil if config is not initialized.
func GetRules() *RulesSection {
	return globalSection[*RulesSection](SectionIDRules)
}

// GetPageLoad returns the page-load section from global config.
// Returns nil if config is not initialized.
func GetPageLoad() *PageLoadSection {
	return globalSection[*PageLoadSection](SectionIDPageLoad)
}
