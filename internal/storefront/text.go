package storefront

const ellipsis = "..."

// truncate keeps the first limit characters of s and appends an ellipsis.
// The ellipsis is appended even when s is shorter than limit.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) > limit {
		r = r[:limit]
	}
	return string(r) + ellipsis
}
