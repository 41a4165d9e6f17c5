// Package crawler extracts icon candidates from an HTML page.
//
// # Components
//
//   - HeadScanner: streams the page through an HTML tokenizer and loads the
//     icons and manifests declared by <link> tags, stopping at the end of
//     <head> without reading the rest of the body
//   - LogoFinder: parses the whole page and scores <img> and inline <svg>
//     elements that look like the site logo
//   - EncodeSVG: turns inline SVG markup into a compact data URI
//
// Icons found by either component are loaded through an IconLoader, so the
// results carry decoded formats and sizes.
//
// # Usage
//
//	scanner := crawler.NewHeadScanner(icons, manifests, crawler.WithLogger(logger))
//	found := scanner.Scan(ctx, pageURL, body)
//
//	finder := crawler.NewLogoFinder(icons, crawler.WithBlacklist(isBlacklisted))
//	logo, err := finder.Find(ctx, pageURL, body)
package crawler
