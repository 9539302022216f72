package service

import "regexp"

// imageURLPattern matches the first http(s) URL ending in a recognized
// image extension, case-insensitive.
var imageURLPattern = regexp.MustCompile(`(?i)(https?://\S+\.(?:png|jpe?g|gif|webp))`)

// ExtractImageURL returns the first image URL found in a chat comment.
// Pure; the gift-ledger check that gates enqueueing lives in the listener.
func ExtractImageURL(comment string) (string, bool) {
	match := imageURLPattern.FindString(comment)
	if match == "" {
		return "", false
	}
	return match, true
}
