package model

import "strings"

// WishList is the set of gifts posted for one student
type WishList struct {
	Owner string
	Gifts []string // in the order they were posted, no duplicates
}

// Contains reports whether the gift is already on the list
func (w *WishList) Contains(gift string) bool {
	for _, g := range w.Gifts {
		if g == gift {
			return true
		}
	}
	return false
}

// GiftsString renders the gifts as "[a, b, c]"
func (w *WishList) GiftsString() string {
	return "[" + strings.Join(w.Gifts, ", ") + "]"
}
