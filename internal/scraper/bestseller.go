package scraper

// IsBestseller reports whether an article clears both engagement thresholds.
// Both comparisons are strict: an article sitting exactly on a threshold is
// not a bestseller. interactionCount is the sum of likes and collects.
func IsBestseller(readCount, interactionCount, minRead, minInteraction int) bool {
	return readCount > minRead && interactionCount > minInteraction
}
