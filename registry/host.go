package registry

import (
	"path/filepath"
	"plugin"
	"strings"

	log "github.com/sirupsen/logrus"
)

// openPlugin loads a shared object, running its init functions — which is
// where well-behaved plugins call the Register* hooks. Package variable so
// tests can substitute an in-process loader. Go plugins cannot be unloaded;
// a failed load only rolls back the registry entry.
var openPlugin = func(path string) error {
	_, err := plugin.Open(path)
	return err
}

// PluginName derives the registry name from a shared-object path:
// the base name with its .so extension stripped.
func PluginName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, ".so")
}

// Host performs dynamic loading and enforces registration completeness.
type Host struct {
	log *log.Entry
}

func NewHost() *Host {
	return &Host{log: log.WithField("component", "pluginhost")}
}

// LoadAlgorithm loads one algorithm plugin and commits or rolls back its
// registry entry.
func (h *Host) LoadAlgorithm(path string) (AlgorithmEntry, error) {
	name := PluginName(path)
	CreateAlgorithmEntry(name)
	if err := openPlugin(path); err != nil {
		RemoveLastAlgorithm()
		h.log.WithField("plugin", name).WithError(err).Warn("algorithm load failed")
		return AlgorithmEntry{}, &RegistrationError{Name: name, Reason: err.Error()}
	}
	if err := ValidateLastAlgorithm(); err != nil {
		RemoveLastAlgorithm()
		h.log.WithField("plugin", name).WithError(err).Warn("algorithm registration invalid")
		return AlgorithmEntry{}, err
	}
	entries := Algorithms()
	entry := entries[len(entries)-1]
	h.log.WithField("plugin", name).Debug("algorithm loaded")
	return entry, nil
}

// LoadGameManager loads one referee plugin and commits or rolls back its
// registry entry.
func (h *Host) LoadGameManager(path string) (GameManagerEntry, error) {
	name := PluginName(path)
	CreateGameManagerEntry(name)
	if err := openPlugin(path); err != nil {
		RemoveLastGameManager()
		h.log.WithField("plugin", name).WithError(err).Warn("game manager load failed")
		return GameManagerEntry{}, &RegistrationError{Name: name, Reason: err.Error()}
	}
	if err := ValidateLastGameManager(); err != nil {
		RemoveLastGameManager()
		h.log.WithField("plugin", name).WithError(err).Warn("game manager registration invalid")
		return GameManagerEntry{}, err
	}
	entries := GameManagers()
	entry := entries[len(entries)-1]
	h.log.WithField("plugin", name).Debug("game manager loaded")
	return entry, nil
}
