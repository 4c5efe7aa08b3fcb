// Package cache provides a small keyed cache used to keep compiled shader
// programs across render cycles.
//
// Entries are evicted by least-recent access once the cache grows past its
// soft limit. A soft limit of zero keeps every entry.
package cache
