// Package configs embeds the configuration template shipped with
// docdex. Embedding at build time keeps `docdex init` working in every
// distribution, source builds and binary releases alike.
package configs

import _ "embed"

// ConfigTemplate is the annotated project configuration written by
// `docdex init` as .docdex.yaml.
//
//go:embed docdex.example.yaml
var ConfigTemplate string
