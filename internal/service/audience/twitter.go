// internal/service/audience/twitter.go

package audience

import (
	"context"
	"fmt"
	"net/http"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
)

// FollowerSource reports the current audience size for a social handle.
type FollowerSource interface {
	FollowerCount(ctx context.Context, handle string) (int, error)
}

type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+a.token)
}

// TwitterSource resolves follower counts through the Twitter API v2
// user lookup with public metrics.
type TwitterSource struct {
	client *twitter.Client
}

// NewTwitterSource creates a source authenticated with an app bearer token.
func NewTwitterSource(bearerToken string) *TwitterSource {
	return &TwitterSource{
		client: &twitter.Client{
			Authorizer: bearerAuthorizer{token: bearerToken},
			Client:     &http.Client{Timeout: 10 * time.Second},
			Host:       "https://api.twitter.com",
		},
	}
}

// FollowerCount looks up a user by handle and returns their follower count.
func (t *TwitterSource) FollowerCount(ctx context.Context, handle string) (int, error) {
	resp, err := t.client.UserNameLookup(ctx, []string{handle}, twitter.UserLookupOpts{
		UserFields: []twitter.UserField{twitter.UserFieldPublicMetrics},
	})
	if err != nil {
		return 0, fmt.Errorf("looking up user %s: %w", handle, err)
	}

	if len(resp.Raw.Users) == 0 || resp.Raw.Users[0] == nil {
		return 0, fmt.Errorf("user %s not found", handle)
	}

	metrics := resp.Raw.Users[0].PublicMetrics
	if metrics == nil {
		return 0, fmt.Errorf("no public metrics for user %s", handle)
	}

	return metrics.Followers, nil
}
