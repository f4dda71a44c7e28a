package service

import (
	"context"
	"errors"
	"testing"

	"shopdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func items(pairs ...interface{}) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.OrderItem{
			ProductID: pairs[i].(int64),
			Quantity:  pairs[i+1].(int),
		})
	}
	return out
}

func TestComputeItemDeltas(t *testing.T) {
	tests := []struct {
		name     string
		original []models.OrderItem
		edited   []models.OrderItem
		want     map[int64]int
	}{
		{
			name:     "unchanged items net to zero",
			original: items(int64(1), 5, int64(2), 2),
			edited:   items(int64(1), 5, int64(2), 2),
			want:     map[int64]int{1: 0, 2: 0},
		},
		{
			name:     "new line consumes full quantity",
			original: nil,
			edited:   items(int64(7), 4),
			want:     map[int64]int{7: 4},
		},
		{
			name:     "removed line returns full quantity",
			original: items(int64(7), 4),
			edited:   nil,
			want:     map[int64]int{7: -4},
		},
		{
			name:     "quantity change is the difference",
			original: items(int64(1), 5),
			edited:   items(int64(1), 8),
			want:     map[int64]int{1: 3},
		},
		{
			name:     "mixed edit",
			original: items(int64(1), 5, int64(2), 2),
			edited:   items(int64(1), 5),
			want:     map[int64]int{1: 0, 2: -2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeItemDeltas(tt.original, tt.edited))
		})
	}
}

type stockCall struct {
	productID  int64
	adjustment int
}

type fakeAdjuster struct {
	stocks  map[int64]int
	failFor map[int64]bool
	calls   []stockCall
}

func newFakeAdjuster(stocks map[int64]int) *fakeAdjuster {
	return &fakeAdjuster{
		stocks:  stocks,
		failFor: map[int64]bool{},
	}
}

func (f *fakeAdjuster) AdjustStock(ctx context.Context, productID int64, adjustment int) (int, error) {
	if f.failFor[productID] {
		return 0, errors.New("stock update failed")
	}
	f.calls = append(f.calls, stockCall{productID, adjustment})
	newStock := f.stocks[productID] - adjustment
	if newStock < 0 {
		newStock = 0
	}
	f.stocks[productID] = newStock
	return newStock, nil
}

func TestApplyStockDeltasSkipsZero(t *testing.T) {
	adj := newFakeAdjuster(map[int64]int{1: 10, 2: 4})

	applyStockDeltas(context.Background(), adj,
		map[int64]int{1: 0, 2: -2}, zap.NewNop())

	assert.Equal(t, []stockCall{{2, -2}}, adj.calls)
	assert.Equal(t, 6, adj.stocks[2])
	assert.Equal(t, 10, adj.stocks[1])
}

func TestApplyStockDeltasIncreaseConsumption(t *testing.T) {
	// Original order had qty 5, edit raises it to 8: delta 3, stock 10 -> 7.
	adj := newFakeAdjuster(map[int64]int{1: 10})
	deltas := ComputeItemDeltas(items(int64(1), 5), items(int64(1), 8))

	applyStockDeltas(context.Background(), adj, deltas, zap.NewNop())

	assert.Equal(t, []stockCall{{1, 3}}, adj.calls)
	assert.Equal(t, 7, adj.stocks[1])
}

func TestApplyStockDeltasClampsAtZero(t *testing.T) {
	adj := newFakeAdjuster(map[int64]int{1: 2})

	applyStockDeltas(context.Background(), adj, map[int64]int{1: 5}, zap.NewNop())

	assert.Equal(t, 0, adj.stocks[1])
}

func TestApplyStockDeltasSkipsFailedProduct(t *testing.T) {
	adj := newFakeAdjuster(map[int64]int{1: 10, 2: 10, 3: 10})
	adj.failFor[2] = true

	applyStockDeltas(context.Background(), adj,
		map[int64]int{1: 1, 2: 1, 3: 1}, zap.NewNop())

	// Product 2 fails; 1 and 3 still adjust.
	assert.Equal(t, []stockCall{{1, 1}, {3, 1}}, adj.calls)
	assert.Equal(t, 9, adj.stocks[1])
	assert.Equal(t, 10, adj.stocks[2])
	assert.Equal(t, 9, adj.stocks[3])
}

func TestApplyStockDeltasDeterministicOrder(t *testing.T) {
	adj := newFakeAdjuster(map[int64]int{5: 10, 1: 10, 9: 10})

	applyStockDeltas(context.Background(), adj,
		map[int64]int{9: 1, 1: 1, 5: 1}, zap.NewNop())

	assert.Equal(t, []stockCall{{1, 1}, {5, 1}, {9, 1}}, adj.calls)
}
