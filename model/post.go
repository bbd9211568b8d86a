package model

import (
	"time"
)

/*

Post is a short message posted by a user. Posts are immutable once created and
never deleted, their visibility is bounded only by the retention of the
timelines referencing them.

Id: primary key, allocated from the store's atomic counter, never 0
AuthorId: id of the user who posted
CreatedAt: time when the post was created, UTC
Text: post's content in plain text

*/

type Post struct {
	Id        uint64    `gorm:"primaryKey;autoIncrement:false" json:"tweet_id"`
	AuthorId  uint64    `gorm:"not null;index:idx_posts_author_created,priority:1" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;index:idx_posts_author_created,priority:2" json:"tweet_ts"`
	Text      string    `gorm:"not null" json:"tweet_text"`
}

func (Post) TableName() string { return "posts" }
