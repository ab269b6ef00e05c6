// Package configs holds the default prompt files copied into a new runtime
// directory.
package configs

import "embed"

//go:embed SYSTEM.md IDENTITY.md USER.md
var FS embed.FS
