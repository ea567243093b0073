// Package ui renders the operator console: banner, menu, prompts and status lines.
package ui
