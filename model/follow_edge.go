package model

import "time"

/*

FollowEdge is the directed "follower follows followee" relation. It is unique
per ordered pair and has no identity of its own, inserting it twice is a no-op.

FollowerId: the user who follows, part of the primary key
FolloweeId: the user being followed, part of the primary key
CreatedAt: time when the edge was first inserted

*/

type FollowEdge struct {
	FollowerId uint64    `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FolloweeId uint64    `gorm:"primaryKey;autoIncrement:false;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (FollowEdge) TableName() string { return "follows" }
