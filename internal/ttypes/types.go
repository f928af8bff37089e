// Package ttypes contains shared types for the studio.
// This package is used to break import cycles between studio, provider, preset and voice packages.
package ttypes

import (
	"strings"
)

// ProviderKind identifies which TTS backend a studio page talks to.
type ProviderKind string

const (
	// ProviderEdge is the free streaming provider. It needs no credential.
	ProviderEdge ProviderKind = "edge"

	// ProviderAzure is the key-based cloud provider.
	ProviderAzure ProviderKind = "azure"

	// ProviderNone represents no provider selected
	ProviderNone ProviderKind = ""
)

// ParseProvider converts a user supplied provider name into a ProviderKind.
func ParseProvider(name string) (ProviderKind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "edge", "":
		return ProviderEdge, true
	case "azure":
		return ProviderAzure, true
	default:
		return ProviderNone, false
	}
}

// String returns the provider name.
func (p ProviderKind) String() string {
	return string(p)
}

// Voice describes a selectable synthetic speaker. Field names follow the
// backend's JSON so that both provider shapes decode into the same struct.
type Voice struct {
	Name         string   `json:"Name,omitempty"`
	ShortName    string   `json:"ShortName"`
	FriendlyName string   `json:"FriendlyName,omitempty"`
	DisplayName  string   `json:"DisplayName,omitempty"`
	LocalName    string   `json:"LocalName,omitempty"`
	Locale       string   `json:"Locale"`
	Gender       string   `json:"Gender"`
	StyleList    []string `json:"StyleList,omitempty"`
}

// ID returns the identifier used when requesting synthesis.
func (v Voice) ID() string {
	return v.ShortName
}

// Label returns the name shown in voice lists.
func (v Voice) Label() string {
	switch {
	case v.LocalName != "":
		return v.LocalName
	case v.FriendlyName != "":
		return v.FriendlyName
	case v.DisplayName != "":
		return v.DisplayName
	default:
		return v.ShortName
	}
}

// Language returns the language part of the voice locale ("zh" for "zh-CN").
func (v Voice) Language() string {
	lang, _, _ := strings.Cut(v.Locale, "-")
	return lang
}

// SynthesisRequest is the JSON payload posted to {base}/synthesize.
type SynthesisRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Style  string `json:"style,omitempty"`
	Rate   int    `json:"rate"`
	Pitch  int    `json:"pitch"`
	Volume int    `json:"volume"`
	Format string `json:"format,omitempty"`
	Region string `json:"region,omitempty"`

	// APIKey travels in the credential header, never in the body.
	APIKey string `json:"-"`
}

// SynthesisResult is the successful response from {base}/synthesize.
type SynthesisResult struct {
	AudioURL string `json:"audioUrl"`
	Format   string `json:"format,omitempty"`
}

// Preset is a named bundle of synthesis parameters owned by the backend.
type Preset struct {
	Name   string `json:"name"           yaml:"name"`
	Voice  string `json:"voice"          yaml:"voice"`
	Style  string `json:"style,omitempty" yaml:"style,omitempty"`
	Rate   int    `json:"rate"           yaml:"rate"`
	Pitch  int    `json:"pitch"          yaml:"pitch"`
	Volume int    `json:"volume"         yaml:"volume"`
}
