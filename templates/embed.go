// Package templates embeds the default workspace files written by
// `structengine init`.
package templates

import "embed"

//go:embed config.yaml ruleset.yaml templates.yaml items.yaml rules.d
var FS embed.FS
