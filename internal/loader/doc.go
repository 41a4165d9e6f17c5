// Package loader turns an icon URL into a model.Icon.
//
// http(s) URLs are fetched through the fetch package. data: URIs are decoded
// in place without touching the network.
package loader
