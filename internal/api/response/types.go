package response

import "github.com/mcoot/wishlist/internal/model"

// Health is the response for the health endpoint
type Health struct {
	Status string `json:"status"`
}

// Stats is the response for the stats endpoint
type Stats struct {
	Accounts    int `json:"accounts"`
	WishLists   int `json:"wish_lists"`
	Sessions    int `json:"sessions"`
	Connections int `json:"connections"`
}

// StatsFromModel converts model.Stats
func StatsFromModel(s model.Stats) Stats {
	return Stats{
		Accounts:    s.Accounts,
		WishLists:   s.WishLists,
		Sessions:    s.Sessions,
		Connections: s.Connections,
	}
}
