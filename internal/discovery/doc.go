// Package discovery finds the icons of a website.
//
// SiteIcons races four strategies against one site: the default manifest
// locations, the icon links in the page head, the default favicon locations
// and the site logo heuristic. The page body is fetched once and shared by
// the two strategies that parse it. Results are merged into a model.IconSet
// after every completion, so the final order does not depend on which
// strategy answered first.
//
// In fast mode the race stops as soon as an authoritative source has
// answered; the remaining strategies are cancelled.
//
// BatchProcessor runs SiteIcons over many seed URLs with bounded concurrency.
package discovery
