// Package cache provides a small generic LRU cache.
//
//	c := cache.New[string, int](100)
//	c.Set("key", 42)
//	value, ok := c.Get("key")
//
// Cache is safe for concurrent use and must not be copied after creation.
// It backs the frame thumbnail cache, where entries are keyed by frame and
// render generation so that stale thumbnails age out on their own.
package cache
