package utils

import "github.com/gosimple/slug"

// Slugify turns a name into a lowercase, hyphenated ASCII slug.
func Slugify(s string) string {
	return slug.Make(s)
}
