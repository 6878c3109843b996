package nav

import (
	"strings"

	"github.com/meridian-sms/meridian-sms/internal/authz"
)

// Filter reduces the registry to the entries visible to a subject with the
// given roles and resolved permissions. The pipeline runs in a fixed order:
//
//  1. drop items whose Roles list has no intersection with the subject's
//     roles (items without a Roles list pass),
//  2. drop surviving items whose Required permissions are not all held
//     (items without Required pass),
//  3. dedup by URL, first occurrence wins,
//  4. collapse per-role dashboard entries into a single canonical root.
//
// Role and permission gates compose conjunctively: an item carrying both is
// shown only when both pass. The registry never combines the two on one
// item, and this pipeline keeps that behavior rather than inventing
// OR-semantics for an unexercised case.
//
// Filtering an already-filtered list with the same inputs yields the same
// list.
func Filter(registry []Item, roles []authz.Role, perms authz.PermissionSet) []Item {
	held := make(map[authz.Role]struct{}, len(roles))
	for _, r := range roles {
		held[r] = struct{}{}
	}

	visible := make([]Item, 0, len(registry))
	for _, item := range registry {
		if len(item.Roles) > 0 && !intersects(held, item.Roles) {
			continue
		}
		if len(item.Required) > 0 && !perms.CanAll(item.Required) {
			continue
		}
		visible = append(visible, item)
	}

	visible = dedupByURL(visible)
	return collapseDashboards(visible)
}

func intersects(held map[authz.Role]struct{}, allowed []authz.Role) bool {
	for _, r := range allowed {
		if _, ok := held[r]; ok {
			return true
		}
	}
	return false
}

// dedupByURL keeps only the first occurrence of each URL, preserving order.
func dedupByURL(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		out = append(out, item)
	}
	return out
}

// collapseDashboards removes every non-root dashboard entry and guarantees a
// single root item labeled HomeTitle. Dashboard entries are recognized by a
// URL ending in "/dashboard" or a title containing "dashboard",
// case-insensitively.
func collapseDashboards(items []Item) []Item {
	out := make([]Item, 0, len(items))
	hasRoot := false
	for _, item := range items {
		if item.URL != "/" && isDashboard(item) {
			continue
		}
		if item.URL == "/" {
			item.Title = HomeTitle
			hasRoot = true
		}
		out = append(out, item)
	}
	if !hasRoot {
		out = append([]Item{{Title: HomeTitle, URL: "/", Icon: "home"}}, out...)
	}
	return out
}

func isDashboard(item Item) bool {
	return strings.HasSuffix(item.URL, "/dashboard") ||
		strings.Contains(strings.ToLower(item.Title), "dashboard")
}
