// Package dsl provides two ways to construct workflow definitions without
// writing struct literals: a fluent in-code builder, and a YAML loader for
// definition files.
package dsl
