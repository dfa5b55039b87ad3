package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
	"github.com/custodia-labs/tasklift/internal/core/ports/driving"
)

// Ensure ConfigService implements the interface.
var _ driving.ConfigService = (*ConfigService)(nil)

// KeyKind is the stored type of a configuration key.
type KeyKind int

// Key kinds.
const (
	KindString KeyKind = iota
	KindInt
	KindList
)

// ConfigKey describes one accepted configuration key.
type ConfigKey struct {
	Name   string
	Kind   KeyKind
	Secret bool
}

// ConfigService manages individual configuration keys on top of a
// ConfigStore. Only keys in its schema are accepted.
type ConfigService struct {
	configStore driven.ConfigStore
	keys        []ConfigKey
	byName      map[string]ConfigKey
}

// NewConfigService creates a config service accepting the given keys.
func NewConfigService(configStore driven.ConfigStore, keys ...ConfigKey) *ConfigService {
	s := &ConfigService{
		configStore: configStore,
		keys:        keys,
		byName:      make(map[string]ConfigKey, len(keys)),
	}
	for _, k := range keys {
		s.byName[k.Name] = k
	}
	return s
}

// Get returns the stored value of key rendered as a string.
func (s *ConfigService) Get(key string) (string, bool) {
	if _, ok := s.configStore.Get(key); !ok {
		return "", false
	}

	switch s.byName[key].Kind {
	case KindInt:
		return strconv.Itoa(s.configStore.GetInt(key)), true
	case KindList:
		return strings.Join(s.configStore.GetStringSlice(key), ","), true
	default:
		return s.configStore.GetString(key), true
	}
}

// Set parses value according to the key's kind and persists it.
func (s *ConfigService) Set(key, value string) error {
	k, ok := s.byName[key]
	if !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrValidation, key)
	}

	switch k.Kind {
	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrValidation, key)
		}
		return s.configStore.Set(key, int64(n))
	case KindList:
		var items []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		if len(items) == 0 {
			return s.configStore.Unset(key)
		}
		return s.configStore.Set(key, items)
	default:
		return s.configStore.Set(key, strings.TrimSpace(value))
	}
}

// Unset removes key.
func (s *ConfigService) Unset(key string) error {
	if _, ok := s.byName[key]; !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrValidation, key)
	}
	return s.configStore.Unset(key)
}

// Keys lists the accepted keys in schema order.
func (s *ConfigService) Keys() []string {
	names := make([]string, len(s.keys))
	for i, k := range s.keys {
		names[i] = k.Name
	}
	return names
}

// IsSecret reports whether key holds a secret.
func (s *ConfigService) IsSecret(key string) bool {
	return s.byName[key].Secret
}

// Path returns the configuration file path.
func (s *ConfigService) Path() string {
	return s.configStore.Path()
}
