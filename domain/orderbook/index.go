package orderbook

// Index maps the id of every resting order to the side holding it.
// It stores a location only; the BookSide owns the order itself.
type Index struct {
	loc map[OrderID]Side
}

func NewIndex() *Index {
	return &Index{loc: make(map[OrderID]Side)}
}

func (ix *Index) Put(id OrderID, side Side) { ix.loc[id] = side }

func (ix *Index) Lookup(id OrderID) (Side, bool) {
	s, ok := ix.loc[id]
	return s, ok
}

func (ix *Index) Delete(id OrderID) { delete(ix.loc, id) }

func (ix *Index) Len() int { return len(ix.loc) }
