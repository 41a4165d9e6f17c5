// Package model defines the icon value types shared by every siteicons package.
//
// This package contains the following main types:
//   - IconSize / IconSizes: pixel dimensions, ordered largest first
//   - IconInfo: decoded format plus dimensions, with the ranking order
//   - IconKind: the role an icon plays (app icon, favicon, site logo)
//   - Icon: a located, decoded icon
//   - IconSet: the sorted, de-duplicated result of one discovery
//   - DiscoveryReport: the per-site result handed to report writers
//
// All values except IconSet are immutable once built. Ordering methods
// return negative when the receiver is the more preferred value, so
// slices.SortFunc(icons, Icon.Compare) yields best-first order.
package model
