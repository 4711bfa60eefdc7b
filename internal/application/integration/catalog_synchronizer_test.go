package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crm/backend/internal/domain/integration"
)

func categoryIDs(cats []integration.RemoteCategory) []int64 {
	out := make([]int64, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.ID)
	}
	return out
}

func TestOrderParentsFirst(t *testing.T) {
	tests := []struct {
		name string
		in   []integration.RemoteCategory
		want []int64
	}{
		{
			name: "children listed before parents",
			in: []integration.RemoteCategory{
				{ID: 3, ParentID: 2},
				{ID: 2, ParentID: 1},
				{ID: 1},
			},
			want: []int64{1, 2, 3},
		},
		{
			name: "parent outside the batch does not hold a child back",
			in: []integration.RemoteCategory{
				{ID: 5, ParentID: 99},
				{ID: 6},
			},
			want: []int64{5, 6},
		},
		{
			name: "cycle is appended in original order",
			in: []integration.RemoteCategory{
				{ID: 7, ParentID: 8},
				{ID: 8, ParentID: 7},
				{ID: 9},
			},
			want: []int64{9, 7, 8},
		},
		{
			name: "empty",
			in:   nil,
			want: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categoryIDs(orderParentsFirst(tt.in)))
		})
	}
}

func TestDeadlineError(t *testing.T) {
	assert.ErrorIs(t, deadlineError(context.DeadlineExceeded), integration.ErrSyncDeadlineExceeded)
	assert.ErrorIs(t, deadlineError(context.DeadlineExceeded), context.DeadlineExceeded)
	assert.NotErrorIs(t, deadlineError(context.Canceled), integration.ErrSyncDeadlineExceeded)
}
