package archive

import (
	"context"

	"github.com/Luismorlan/chirpmux/store"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SequenceAllocator hands out post ids from a Postgres sequence.
type SequenceAllocator struct {
	db       *gorm.DB
	sequence string
}

func NewSequenceAllocator(db *gorm.DB, sequence string) *SequenceAllocator {
	return &SequenceAllocator{db: db, sequence: sequence}
}

func (a *SequenceAllocator) NextID(ctx context.Context) (uint64, error) {
	var v int64
	if err := a.db.WithContext(ctx).Raw("SELECT nextval(?)", a.sequence).Scan(&v).Error; err != nil {
		return 0, store.Unavailable("nextval "+a.sequence, err)
	}
	if v <= 0 {
		return 0, errors.Errorf("sequence %s returned non positive id %d", a.sequence, v)
	}
	return uint64(v), nil
}
