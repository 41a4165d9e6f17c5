// Package database stores discovery history in SQLite.
//
// Every saved DiscoveryReport is kept with a fingerprint of its icon list so
// later runs can tell whether a site's icons changed. The history is never
// consulted to answer a discovery.
package database
