package orderbook

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRBTreeInsertFindDelete(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(100)
	require.NotNil(t, pl1)
	assert.Same(t, pl1, tree.FindLevel(100))

	tree.UpsertLevel(200)
	assert.EqualValues(t, 100, tree.MinLevel().Price)
	assert.EqualValues(t, 200, tree.MaxLevel().Price)

	assert.True(t, tree.DeleteLevel(100))
	assert.Nil(t, tree.FindLevel(100))
	assert.Equal(t, 1, tree.Size())
}

func TestDeleteNonExistentLevel(t *testing.T) {
	tree := NewRBTree()
	assert.False(t, tree.DeleteLevel(123))
}

func TestEmptyTreeMinMax(t *testing.T) {
	tree := NewRBTree()
	assert.Nil(t, tree.MinLevel())
	assert.Nil(t, tree.MaxLevel())
}

func TestUpsertDuplicateLevel(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(150)
	pl2 := tree.UpsertLevel(150)
	assert.Same(t, pl1, pl2)
	assert.Equal(t, 1, tree.Size())
}

func TestRBTreeWalkOrder(t *testing.T) {
	tree := NewRBTree()
	for _, p := range []uint64{50, 10, 40, 20, 30} {
		tree.UpsertLevel(p)
	}

	var asc, desc []uint64
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		asc = append(asc, pl.Price)
		return true
	})
	tree.ForEachDescending(func(pl *PriceLevel) bool {
		desc = append(desc, pl.Price)
		return true
	})
	assert.Equal(t, []uint64{10, 20, 30, 40, 50}, asc)
	assert.Equal(t, []uint64{50, 40, 30, 20, 10}, desc)

	var first []uint64
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		first = append(first, pl.Price)
		return len(first) < 2
	})
	assert.Equal(t, []uint64{10, 20}, first)
}

func TestRBTreeStaysBalancedUnderChurn(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	tree := NewRBTree()
	live := map[uint64]bool{}

	for i := 0; i < 5000; i++ {
		p := r.Uint64N(500)
		if r.IntN(3) == 0 {
			assert.Equal(t, live[p], tree.DeleteLevel(p))
			delete(live, p)
		} else {
			tree.UpsertLevel(p)
			live[p] = true
		}
		if i%250 == 0 {
			checkRBInvariants(t, tree)
		}
	}
	checkRBInvariants(t, tree)
	require.Equal(t, len(live), tree.Size())

	var prev uint64
	n := 0
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		if n > 0 {
			assert.Greater(t, pl.Price, prev)
		}
		assert.True(t, live[pl.Price])
		prev = pl.Price
		n++
		return true
	})
	assert.Equal(t, len(live), n)
}

// checkRBInvariants verifies the root is black, no red node has a red
// child and every root-to-leaf path has the same number of black nodes.
func checkRBInvariants(t *testing.T, tree *RBTree) {
	t.Helper()
	require.Equal(t, black, tree.root.color, "root must be black")

	var walk func(n *node) int
	walk = func(n *node) int {
		if n == tree.leaf {
			return 1
		}
		if n.color == red {
			require.Equal(t, black, n.left.color, "red node %d has red left child", n.key)
			require.Equal(t, black, n.right.color, "red node %d has red right child", n.key)
		}
		if n.left != tree.leaf {
			require.Less(t, n.left.key, n.key)
			require.Same(t, n, n.left.parent)
		}
		if n.right != tree.leaf {
			require.Greater(t, n.right.key, n.key)
			require.Same(t, n, n.right.parent)
		}
		lh, rh := walk(n.left), walk(n.right)
		require.Equal(t, lh, rh, "black height differs under %d", n.key)
		if n.color == black {
			return lh + 1
		}
		return lh
	}
	walk(tree.root)
}
