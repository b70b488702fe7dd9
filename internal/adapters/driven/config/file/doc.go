// Package file provides file-backed configuration adapters.
//
// Adapters:
//   - ConfigStore: TOML configuration with dotted-key access
//   - PromptStore: user-editable LLM prompt templates
package file
