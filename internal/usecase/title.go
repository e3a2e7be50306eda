package usecase

import (
	"regexp"
	"strings"
)

// Compiled patterns for title cleanup.
var (
	// Trailing color or colorway segment: "Johnny Collar Polo - Navy",
	// "Airism Tee | Off White".
	colorSegmentPattern = regexp.MustCompile(`\s+[-–|]\s+[^-–|]+$`)

	// Trailing product code noise: "Oxford Shirt (795806094)".
	trailingCodePattern = regexp.MustCompile(`\s*\(?\b[A-Z]?\d{6,}\b\)?\s*$`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// retailTitleNoise are marketing phrases brands append inconsistently across
// colorways of the same product.
var retailTitleNoise = []string{
	"new arrival", "online exclusive", "limited edition", "best seller",
}

// CanonicalTitle cleans a scraped title into the stable form stored on a
// canonical product. Per-colorway scrapes of one product often differ only in
// a trailing color segment or marketing phrase; stripping those keeps the
// consolidated product's title independent of which variant was scraped first.
func CanonicalTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if title == "" {
		return ""
	}

	title = trailingCodePattern.ReplaceAllString(title, "")
	title = colorSegmentPattern.ReplaceAllString(title, "")

	lower := strings.ToLower(title)
	for _, noise := range retailTitleNoise {
		if idx := strings.Index(lower, noise); idx >= 0 {
			title = title[:idx] + title[idx+len(noise):]
			lower = strings.ToLower(title)
		}
	}

	title = multiSpacePattern.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}
