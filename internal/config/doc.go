// Package config provides configuration structures and utilities for siteicons.
// It defines the fetch settings, output preferences and the per-site YAML
// file with headers, cookies and blacklist patterns.
package config
