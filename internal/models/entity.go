package models

import (
	"fmt"
	"strings"
)

// EntityType tags one of the remote collections mirrored into the cache
type EntityType string

const (
	EntityOrders    EntityType = "orders"
	EntityProducts  EntityType = "products"
	EntityCustomers EntityType = "customers"
	EntityPosts     EntityType = "posts"
	EntityPages     EntityType = "pages"
	EntityMedia     EntityType = "media"
	EntityComments  EntityType = "comments"
	EntityUsers     EntityType = "users"
)

// Backend identifies which REST API serves an entity type
type Backend string

const (
	BackendWooCommerce Backend = "woocommerce"
	BackendWordPress   Backend = "wordpress"
)

// AllEntityTypes lists every supported entity type in default sync order
var AllEntityTypes = []EntityType{
	EntityOrders,
	EntityProducts,
	EntityCustomers,
	EntityPosts,
	EntityPages,
	EntityMedia,
	EntityComments,
	EntityUsers,
}

var entityBackends = map[EntityType]Backend{
	EntityOrders:    BackendWooCommerce,
	EntityProducts:  BackendWooCommerce,
	EntityCustomers: BackendWooCommerce,
	EntityPosts:     BackendWordPress,
	EntityPages:     BackendWordPress,
	EntityMedia:     BackendWordPress,
	EntityComments:  BackendWordPress,
	EntityUsers:     BackendWordPress,
}

// Valid reports whether t is one of the supported entity types
func (t EntityType) Valid() bool {
	_, ok := entityBackends[t]
	return ok
}

// Backend returns the REST API that serves the entity type
func (t EntityType) Backend() Backend {
	return entityBackends[t]
}

func (t EntityType) String() string {
	return string(t)
}

// ParseEntityType converts a tag into an EntityType
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// ParseEntityTypes parses a list of tags, rejecting duplicates
func ParseEntityTypes(values []string) ([]EntityType, error) {
	seen := make(map[EntityType]bool, len(values))
	types := make([]EntityType, 0, len(values))
	for _, v := range values {
		t, err := ParseEntityType(v)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			return nil, fmt.Errorf("duplicate entity type %q", v)
		}
		seen[t] = true
		types = append(types, t)
	}
	return types, nil
}

// JoinEntityTypes renders types as a comma separated list
func JoinEntityTypes(types []EntityType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
