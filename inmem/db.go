package inmem

import (
	"sync"

	"github.com/inkpot/inkpot"
)

// DB is the shared state behind the in-memory user and post stores, so that
// deleting a user can cascade to the posts.
type DB struct {
	lastUserId    int64
	lastProfileId int64
	lastPostId    int64
	users         map[inkpot.UserId]inkpot.User
	// profiles keyed by owning user; at most one per user.
	profiles map[inkpot.UserId]inkpot.Profile
	posts    map[inkpot.PostId]inkpot.Post
	mutex    sync.RWMutex
}

func NewDB() *DB {
	return &DB{
		users:    make(map[inkpot.UserId]inkpot.User),
		profiles: make(map[inkpot.UserId]inkpot.Profile),
		posts:    make(map[inkpot.PostId]inkpot.Post),
	}
}

// must be called with at least a read lock held
func (db *DB) userWithProfile(userId inkpot.UserId) (inkpot.User, bool) {
	u, ok := db.users[userId]
	if !ok {
		return inkpot.User{}, false
	}
	u.Profile = db.profiles[userId]
	return u, true
}
