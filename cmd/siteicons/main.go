// Package main provides the entry point for the siteicons CLI.
//
// siteicons finds the icons of a website: web app manifest icons, favicons
// declared in the page head or served from the default locations, and the
// site logo shown in the page itself.
//
// Usage:
//
//	siteicons <url>...
//	siteicons --fast --json example.com
//	siteicons history [site]
//
// See --help for all available options.
package main

// main is the entry point for siteicons.
func main() {
	Execute()
}
