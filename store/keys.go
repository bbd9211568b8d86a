package store

import "strconv"

const (
	DefaultKeyDelimiter = ":"

	tweetKind     = "tweet"
	followersKind = "followers"
	followingKind = "following"
	timelineKind  = "timeline"

	allFollowersName = "all_followers"
	followerIdxName  = "all_followers:idx"
	tweetIdName      = "next_tweet_id"
)

// KeySchema builds the store keys of every entity. Keys are "<kind>:<id>",
// optionally prefixed with "<namespace>:" so that several deployments (or
// tests) can share one Redis database.
type KeySchema struct {
	namespace string
	delimiter string
}

func NewKeySchema(namespace string) KeySchema {
	return KeySchema{namespace: namespace, delimiter: DefaultKeyDelimiter}
}

func (k KeySchema) name(n string) string {
	if k.namespace == "" {
		return n
	}
	return k.namespace + k.delimiter + n
}

func (k KeySchema) encode(kind string, id uint64) string {
	return k.name(kind + k.delimiter + strconv.FormatUint(id, 10))
}

func (k KeySchema) Tweet(postId uint64) string     { return k.encode(tweetKind, postId) }
func (k KeySchema) Followers(userId uint64) string { return k.encode(followersKind, userId) }
func (k KeySchema) Following(userId uint64) string { return k.encode(followingKind, userId) }
func (k KeySchema) Timeline(userId uint64) string  { return k.encode(timelineKind, userId) }
func (k KeySchema) AllFollowers() string           { return k.name(allFollowersName) }
func (k KeySchema) FollowerIndex() string          { return k.name(followerIdxName) }
func (k KeySchema) TweetIdCounter() string         { return k.name(tweetIdName) }

// FormatId and ParseId convert ids to and from their member representation.
func FormatId(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func ParseId(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
