package creator

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a creator does not exist in storage.
var ErrNotFound = errors.New("creator not found")

// Summary is the read-only projection of a creator consumed by discovery
// and the map pipeline. The core never mutates it.
type Summary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Niche         string   `json:"niche,omitempty"`
	Location      string   `json:"location,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	FollowerCount int      `json:"follower_count"`
	OpenToCollab  bool     `json:"open_to_collab"`
	AvatarURL     string   `json:"avatar_url,omitempty"`
	TwitterHandle string   `json:"twitter_handle,omitempty"`
}

// FollowerRange is a named audience-size bracket.
type FollowerRange string

const (
	RangeAny       FollowerRange = ""
	RangeUnder10K  FollowerRange = "<10k"
	Range10KTo100K FollowerRange = "10k-100k"
	Range100KTo1M  FollowerRange = "100k-1m"
	RangeOver1M    FollowerRange = ">1m"
)

// ParseFollowerRange normalizes a bracket label. Unknown labels fall back
// to RangeAny rather than erroring, so a stale query parameter cannot
// break discovery.
func ParseFollowerRange(s string) FollowerRange {
	switch FollowerRange(strings.ToLower(strings.TrimSpace(s))) {
	case RangeUnder10K:
		return RangeUnder10K
	case Range10KTo100K:
		return Range10KTo100K
	case Range100KTo1M:
		return Range100KTo1M
	case RangeOver1M:
		return RangeOver1M
	default:
		return RangeAny
	}
}

// Contains reports whether a follower count falls inside the bracket.
// The 10k and 100k boundaries are inclusive in the lower bracket: exactly
// 10000 matches 10k-100k, exactly 100000 matches 10k-100k, and 100k-1m
// starts above 100000. RangeAny matches everything.
func (r FollowerRange) Contains(count int) bool {
	switch r {
	case RangeUnder10K:
		return count < 10_000
	case Range10KTo100K:
		return count >= 10_000 && count <= 100_000
	case Range100KTo1M:
		return count > 100_000 && count <= 1_000_000
	case RangeOver1M:
		return count > 1_000_000
	default:
		return true
	}
}

// ExploreFilters are the structured discovery facets. A zero value means
// no restriction at all.
type ExploreFilters struct {
	// Niches is an OR-set; empty means any niche.
	Niches []string
	// Location is a case-insensitive substring of the location label.
	Location string
	// Followers restricts by audience-size bracket.
	Followers FollowerRange
}

// Store defines persistent storage for creators.
type Store interface {
	// ListCreators returns the full discoverable candidate set.
	ListCreators(ctx context.Context) ([]Summary, error)

	// GetCreator returns a single creator by ID.
	GetCreator(ctx context.Context, id string) (*Summary, error)

	// UpsertCreator inserts or updates a creator record.
	UpsertCreator(ctx context.Context, c Summary) error

	// UpdateFollowerCount updates only the follower count of a creator.
	UpdateFollowerCount(ctx context.Context, id string, count int) error
}
