// Package configassets embeds the annotated example configuration so
// "r2fm config init" works from an installed binary.
package configassets

import _ "embed"

// ExampleConfig is the annotated example config file.
//
//go:embed r2fm.example.yaml
var ExampleConfig []byte
