package model

import "time"

// DiscoveryReport is the outcome of discovering the icons of one site.
type DiscoveryReport struct {
	// Site is the normalised seed URL.
	Site string `json:"site"`

	// DateScanned is when discovery started.
	DateScanned time.Time `json:"date_scanned"`

	// Duration is how long discovery took.
	Duration time.Duration `json:"duration"`

	// Fast reports whether discovery was allowed to stop at the first good answer.
	Fast bool `json:"fast"`

	// Icons holds the discovered icons, most preferred first.
	Icons []Icon `json:"icons"`

	// Error is set when the seed URL could not be used at all.
	Error string `json:"error,omitempty"`
}

// NewDiscoveryReport returns an empty report for site.
func NewDiscoveryReport(site string) *DiscoveryReport {
	return &DiscoveryReport{
		Site:        site,
		DateScanned: time.Now(),
		Icons:       []Icon{},
	}
}

// Best returns the most preferred icon, if any.
func (r *DiscoveryReport) Best() (Icon, bool) {
	if len(r.Icons) == 0 {
		return Icon{}, false
	}
	return r.Icons[0], true
}

// CountByKind returns how many icons of each kind were found.
func (r *DiscoveryReport) CountByKind() map[IconKind]int {
	counts := make(map[IconKind]int)
	for _, icon := range r.Icons {
		counts[icon.Kind]++
	}
	return counts
}
