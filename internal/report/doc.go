// Package report writes discovery results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: one icon per line, as "<url> <kind> <info>"
//   - JSONWriter: a JSON array for tool integration
//   - MarkdownWriter: a table per site for documentation and sharing
//
// Writers implement the Writer interface, so the CLI can pick one by flag.
package report
