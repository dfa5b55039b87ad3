// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: User-editable generation prompts
//
// LoadSettings resolves a ConfigStore into domain.Settings.
package file
