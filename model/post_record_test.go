package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRecordRoundTrip(t *testing.T) {
	p := &Post{
		Id:        12,
		AuthorId:  3,
		CreatedAt: time.Date(2024, 5, 1, 10, 30, 0, 123000000, time.UTC),
		Text:      "hello, world",
	}

	fields := map[string]string{}
	for k, v := range p.ToRecord() {
		fields[k] = v.(string)
	}
	assert.Equal(t, "3", fields[RecordUserId])

	decoded, err := PostFromRecord(12, fields)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(p, decoded))
}

func TestPostFromRecordAcceptsOffsetTimestamps(t *testing.T) {
	decoded, err := PostFromRecord(1, map[string]string{
		RecordUserId:    "9",
		RecordTimestamp: "2024-01-02T03:04:05.678901+00:00",
		RecordText:      "legacy",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), decoded.AuthorId)
	assert.Equal(t, 2024, decoded.CreatedAt.Year())
	assert.Equal(t, time.UTC, decoded.CreatedAt.Location())
}

func TestPostFromRecordInvalid(t *testing.T) {
	_, err := PostFromRecord(1, map[string]string{RecordUserId: "x"})
	assert.Error(t, err)

	_, err = PostFromRecord(1, map[string]string{RecordUserId: "1", RecordTimestamp: "not a time"})
	assert.Error(t, err)
}
