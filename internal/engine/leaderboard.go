package engine

import "sort"

// LeaderboardEntry is one derived ranking row. Entries are recomputed on
// every request and never persisted.
type LeaderboardEntry struct {
	Rank int
	Name string
	Team string
	ROI  float64
	Self bool
}

// participant is a fixed roster row the player's desk is ranked against.
type participant struct {
	name string
	team string
	roi  float64
}

var defaultRoster = []participant{
	{"Atlas Freight", "Geneva", 12.4},
	{"Meridian Bulk", "Singapore", 8.9},
	{"Crestline Chartering", "London", 6.1},
	{"Harbor Peak", "Oslo", 4.7},
	{"Duneside Shipping", "Dubai", 2.3},
	{"Northcape Capital", "Copenhagen", 0.8},
	{"Pelagic Partners", "Athens", -1.2},
	{"Ironwave Trading", "Shanghai", -3.5},
	{"Bluewater Desk", "Houston", -6.0},
}

// AccountROI returns unrealized P&L over cash balance as a percentage.
// A non-positive balance makes the ratio undefined; 0 is returned so
// NaN/Inf never reaches the leaderboard sort.
func AccountROI(cashBalance, totalUnrealized float64) float64 {
	if cashBalance <= 0 {
		return 0
	}
	return totalUnrealized / cashBalance * 100
}

// ComputeLeaderboard ranks the player against the fixed roster. The player
// is appended after the roster, the combined list is stable-sorted
// descending by ROI (ties keep input order), and ranks are 1-based and
// contiguous. It returns the top n rows plus the player's row when it
// falls outside the top n.
func ComputeLeaderboard(playerName, playerTeam string, playerROI float64, n int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(defaultRoster)+1)
	for _, p := range defaultRoster {
		entries = append(entries, LeaderboardEntry{Name: p.name, Team: p.team, ROI: p.roi})
	}
	entries = append(entries, LeaderboardEntry{Name: playerName, Team: playerTeam, ROI: playerROI, Self: true})

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ROI > entries[j].ROI
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if n <= 0 || n >= len(entries) {
		return entries
	}
	top := entries[:n:n]
	for _, e := range entries[n:] {
		if e.Self {
			top = append(top, e)
			break
		}
	}
	return top
}
