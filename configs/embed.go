// Package configs embeds the configuration templates shipped with amantmpl.
//
// UserConfigTemplate is written by `amantmpl config init` to
// $XDG_CONFIG_HOME/amantmpl/config.yaml. The defaults it documents must match
// internal/config NewConfig().
package configs

import _ "embed"

// UserConfigTemplate is the commented user configuration template.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
