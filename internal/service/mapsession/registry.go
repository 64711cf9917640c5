// internal/service/mapsession/registry.go

package mapsession

import (
	"github.com/google/uuid"

	"collabmap/internal/domain/creator"
	"collabmap/internal/service/cluster"
)

// clickRegistry maps opaque popup-row tokens to creators. Tokens are
// minted fresh on every bind, so a click event carrying a token from a
// popup rendered before the last reconcile or rebind resolves to nothing
// instead of firing for the wrong creator.
type clickRegistry struct {
	targets   map[string]creator.Summary
	byCluster map[cluster.Key][]string
}

func newClickRegistry() *clickRegistry {
	return &clickRegistry{
		targets:   make(map[string]creator.Summary),
		byCluster: make(map[cluster.Key][]string),
	}
}

// bind replaces any existing targets for the cluster and returns one
// token per member, in member order.
func (r *clickRegistry) bind(key cluster.Key, members []creator.Summary) []string {
	r.unbind(key)

	tokens := make([]string, len(members))
	for i, member := range members {
		token := uuid.New().String()
		r.targets[token] = member
		tokens[i] = token
	}

	r.byCluster[key] = tokens
	return tokens
}

// unbind invalidates all tokens previously issued for the cluster.
func (r *clickRegistry) unbind(key cluster.Key) {
	for _, token := range r.byCluster[key] {
		delete(r.targets, token)
	}
	delete(r.byCluster, key)
}

// resolve looks up the creator behind a token.
func (r *clickRegistry) resolve(token string) (creator.Summary, bool) {
	c, ok := r.targets[token]
	return c, ok
}

// clear drops every binding.
func (r *clickRegistry) clear() {
	r.targets = make(map[string]creator.Summary)
	r.byCluster = make(map[cluster.Key][]string)
}
