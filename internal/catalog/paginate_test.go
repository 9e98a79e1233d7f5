package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate_TotalPages(t *testing.T) {
	for n := 0; n <= 25; n++ {
		items := make([]int, n)
		for size := 1; size <= 7; size++ {
			_, total := Paginate(items, size, 0)
			want := (n + size - 1) / size
			assert.Equal(t, want, total, "n=%d size=%d", n, size)
		}
	}
}

func TestPaginate_Pages(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g"}

	page, total := Paginate(items, 3, 0)
	assert.Equal(t, []string{"a", "b", "c"}, page)
	assert.Equal(t, 3, total)

	page, _ = Paginate(items, 3, 2)
	assert.Equal(t, []string{"g"}, page)

	page, _ = Paginate(items, 3, 3)
	assert.Empty(t, page)
	assert.NotNil(t, page)

	page, _ = Paginate(items, 3, -1)
	assert.Empty(t, page)
}

func TestPaginate_Idempotent(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	p1, t1 := Paginate(items, 2, 1)
	p2, t2 := Paginate(items, 2, 1)
	assert.Equal(t, p1, p2)
	assert.Equal(t, t1, t2)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items, "input is not modified")
}

func TestPaginate_ZeroPageSize(t *testing.T) {
	page, total := Paginate([]int{1, 2}, 0, 1)
	assert.Equal(t, []int{2}, page)
	assert.Equal(t, 2, total)
}
