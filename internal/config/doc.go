// Package config defines the format-agnostic pipeline model and the Loader
// interface that concrete parsers (currently HCL) implement. Everything
// downstream of the loader works against this model, never against a
// particular file syntax.
package config
