package social

import (
	"encoding/json"

	"github.com/Luismorlan/chirpmux/model"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

const (
	// Emitted once a post is durably stored in the timeline store.
	TopicPostCreated = "topic.post_created"
	// Emitted for follow edges that did not exist before.
	TopicFollowsCreated = "topic.follows_created"
)

// PostCreatedEvent is the payload published on TopicPostCreated.
type PostCreatedEvent struct {
	Post model.Post `json:"post"`
	// False when delivery to followers did not complete.
	FanoutComplete bool `json:"fanout_complete"`
}

func NewPostCreatedMessage(event PostCreatedEvent) (*message.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "fail to encode post created event")
	}
	return message.NewMessage(watermill.NewUUID(), data), nil
}

func ParsePostCreatedMessage(msg *message.Message) (PostCreatedEvent, error) {
	event := PostCreatedEvent{}
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return event, errors.Wrapf(err, "fail to decode post created event %s", msg.UUID)
	}
	return event, nil
}

type FollowsCreatedEvent struct {
	Edges []model.FollowEdge `json:"edges"`
}

func NewFollowsCreatedMessage(event FollowsCreatedEvent) (*message.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "fail to encode follows created event")
	}
	return message.NewMessage(watermill.NewUUID(), data), nil
}

func ParseFollowsCreatedMessage(msg *message.Message) (FollowsCreatedEvent, error) {
	event := FollowsCreatedEvent{}
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return event, errors.Wrapf(err, "fail to decode follows created event %s", msg.UUID)
	}
	return event, nil
}
