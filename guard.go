package main

import (
	"sync"
	"time"
)

// PostGuard throttles content creation per actor: one post or comment per
// window, tracked in memory.
type PostGuard struct {
	window time.Duration
	posts  map[int64]time.Time
	mutex  *sync.Mutex
}

func NewPostGuard(window time.Duration) *PostGuard {
	return &PostGuard{
		window: window,
		posts:  make(map[int64]time.Time),
		mutex:  &sync.Mutex{},
	}
}

func (pg *PostGuard) CanPost(actorID int64) bool {
	result := true
	now := time.Now()
	pg.mutex.Lock()
	expires, found := pg.posts[actorID]
	if found {
		if expires.After(now) {
			// Blocked
			result = false
		}
	} else {
		// Add to block
		pg.posts[actorID] = now.Add(pg.window)
	}
	pg.clean(now)
	pg.mutex.Unlock()
	return result
}

func (pg *PostGuard) clean(now time.Time) {
	for key, expires := range pg.posts {
		if expires.Before(now) {
			delete(pg.posts, key)
		}
	}
}
