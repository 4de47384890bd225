package kvstore

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	bolt "github.com/boltdb/bolt"

	"collections-console/internal/core/domain"
)

// MaxCachedComments bounds every per-customer snapshot
const MaxCachedComments = 50

const commentKeyPrefix = "followup_comments_"

// CommentCache keeps a bounded newest-first snapshot of follow-up comments
// per customer, including notes that have not reached the server yet.
type CommentCache struct {
	store *Store
}

// NewCommentCache creates a comment cache backed by store
func NewCommentCache(store *Store) *CommentCache {
	return &CommentCache{store: store}
}

func commentKey(customerID string) string {
	return commentKeyPrefix + customerID
}

// Snapshot returns the cached comments for a customer. ok is false when the
// customer has never been cached.
func (c *CommentCache) Snapshot(customerID string) (comments []domain.FollowUpComment, ok bool, err error) {
	err = c.store.get(commentsBucket, commentKey(customerID), &comments)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return SortNewestFirst(comments), true, nil
}

// Replace overwrites the snapshot for a customer, keeping the newest 50
func (c *CommentCache) Replace(customerID string, comments []domain.FollowUpComment) error {
	return c.store.put(commentsBucket, commentKey(customerID), Bound(comments))
}

// Update applies fn to the snapshot inside a single write transaction and
// stores the bounded result. fn receives an empty slice for unknown customers.
func (c *CommentCache) Update(customerID string, fn func([]domain.FollowUpComment) []domain.FollowUpComment) error {
	key := []byte(commentKey(customerID))
	return c.store.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(commentsBucket))

		var current []domain.FollowUpComment
		if raw := b.Get(key); raw != nil {
			if err := json.Unmarshal(raw, &current); err != nil {
				return err
			}
		}

		data, err := json.Marshal(Bound(fn(current)))
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// Clear drops the snapshot for a customer
func (c *CommentCache) Clear(customerID string) error {
	return c.store.delete(commentsBucket, commentKey(customerID))
}

// PendingCustomers lists customers whose snapshot holds at least one
// locally persisted comment
func (c *CommentCache) PendingCustomers() ([]string, error) {
	keys, err := c.store.keys(commentsBucket, commentKeyPrefix)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, key := range keys {
		var comments []domain.FollowUpComment
		if err := c.store.get(commentsBucket, key, &comments); err != nil {
			return nil, err
		}
		for i := range comments {
			if comments[i].LocallyPersisted() {
				out = append(out, strings.TrimPrefix(key, commentKeyPrefix))
				break
			}
		}
	}
	return out, nil
}

// SortNewestFirst orders comments by creation time, newest first
func SortNewestFirst(comments []domain.FollowUpComment) []domain.FollowUpComment {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments
}

// Bound sorts newest first and evicts the oldest entries beyond
// MaxCachedComments. Confirmed comments are evicted before pending ones.
func Bound(comments []domain.FollowUpComment) []domain.FollowUpComment {
	out := SortNewestFirst(append([]domain.FollowUpComment{}, comments...))
	if len(out) <= MaxCachedComments {
		return out
	}

	pending := 0
	for i := range out {
		if out[i].LocallyPersisted() {
			pending++
		}
	}
	room := MaxCachedComments - pending
	if room < 0 {
		room = 0
	}

	kept := out[:0:0]
	for _, c := range out {
		switch {
		case c.LocallyPersisted():
		case room > 0:
			room--
		default:
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) > MaxCachedComments {
		kept = kept[:MaxCachedComments]
	}
	return kept
}
