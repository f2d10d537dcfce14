// Package domain contains the core entities of the scheduling engine: cards and
// their memory state, ratings, and the append-only review log. It is independent
// of any storage or delivery mechanism.
package domain
