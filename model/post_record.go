package model

import (
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

// Field names of a post record in the key-value store.
const (
	RecordUserId    = "user_id"
	RecordTimestamp = "tweet_ts"
	RecordText      = "tweet_text"
)

// ToRecord flattens the post into the fields stored under its record key. The
// id is part of the key and is not repeated.
func (p *Post) ToRecord() map[string]interface{} {
	return map[string]interface{}{
		RecordUserId:    strconv.FormatUint(p.AuthorId, 10),
		RecordTimestamp: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		RecordText:      p.Text,
	}
}

// PostFromRecord rebuilds a post from its stored fields. The timestamp is parsed
// leniently so that records written by older writers (ISO-8601 with a numeric
// offset, or epoch milliseconds) still decode.
func PostFromRecord(id uint64, fields map[string]string) (*Post, error) {
	authorId, err := strconv.ParseUint(fields[RecordUserId], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s in record of post %d", RecordUserId, id)
	}

	var createdAt time.Time
	if ts := fields[RecordTimestamp]; ts != "" {
		createdAt, err = dateparse.ParseIn(ts, time.UTC)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s in record of post %d", RecordTimestamp, id)
		}
	}

	return &Post{
		Id:        id,
		AuthorId:  authorId,
		CreatedAt: createdAt.UTC(),
		Text:      fields[RecordText],
	}, nil
}
