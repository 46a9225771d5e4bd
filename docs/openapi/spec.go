// Package openapi embeds the featureboard OpenAPI document for runtime distribution.
package openapi

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
)

// Document contains the OpenAPI description of the HTTP API.
//
//go:embed featureboard.yaml
var Document []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), Document...)
}

// Fingerprint identifies the embedded document revision.
func Fingerprint() string {
	sum := sha256.Sum256(Document)
	return hex.EncodeToString(sum[:6])
}
