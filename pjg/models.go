package pjg

// Probability models for the arithmetic coder. Both models condition
// their counts on a register of context words; the register is filled
// with ShiftContext / ShiftModel before every coded symbol and selects a
// leaf in a lazily grown context tree.

// modelRescaleLimit bounds the total count of a context before its counts
// are halved.
const modelRescaleLimit = 1 << 14

type ctxNode struct {
	children []*ctxNode
	counts   []uint16
	total    uint32
}

// contextTree routes the current context register to a per-context count
// table.
type contextTree struct {
	maxContext int
	order      int
	contexts   []int
	root       ctxNode
}

func newContextTree(maxContext, order int) contextTree {
	if order < 0 {
		order = 0
	}
	if maxContext < 1 {
		maxContext = 1
	}
	return contextTree{
		maxContext: maxContext,
		order:      order,
		contexts:   make([]int, order),
	}
}

// shiftContext pushes a new context word into the register, dropping the
// oldest one. With an order of zero the word is discarded.
func (t *contextTree) shiftContext(c int) {
	if t.order == 0 {
		return
	}
	copy(t.contexts, t.contexts[1:])
	t.contexts[t.order-1] = clamp(c, 0, t.maxContext-1)
}

// leaf returns the count table of the current context, creating it with
// alphabet counts preset to initCount.
func (t *contextTree) leaf(alphabet int, initCount uint16) *ctxNode {
	node := &t.root
	for i := 0; i < t.order; i++ {
		if node.children == nil {
			node.children = make([]*ctxNode, t.maxContext)
		}
		child := node.children[t.contexts[i]]
		if child == nil {
			child = &ctxNode{}
			node.children[t.contexts[i]] = child
		}
		node = child
	}
	if node.counts == nil {
		node.counts = make([]uint16, alphabet)
		if initCount > 0 {
			for i := range node.counts {
				node.counts[i] = initCount
			}
			node.total = uint32(alphabet) * uint32(initCount)
		}
	}
	return node
}

// flush halves the counts of every context, aging the statistics after
// bulk coding of one frequency plane.
func (t *contextTree) flush() {
	flushNode(&t.root)
}

func flushNode(n *ctxNode) {
	if n.counts != nil {
		n.total = 0
		for i, cnt := range n.counts {
			if cnt > 0 {
				n.counts[i] = (cnt + 1) >> 1
				n.total += uint32(n.counts[i])
			}
		}
	}
	for _, child := range n.children {
		if child != nil {
			flushNode(child)
		}
	}
}

// rescale halves the counts of one context.
func (n *ctxNode) rescale() {
	n.total = 0
	for i, cnt := range n.counts {
		if cnt > 0 {
			n.counts[i] = (cnt + 1) >> 1
			n.total += uint32(n.counts[i])
		}
	}
}

// UniversalModel is an adaptive categorical model over the symbols
// 0..maxSymbol-1. Unseen symbols are reached through an escape to a
// uniform fallback over the not yet seen part of the active alphabet.
type UniversalModel struct {
	tree      contextTree
	maxSymbol int
	active    int // active alphabet size, shrunk by symbol exclusion

	// walk state of the symbol in flight
	cur     *ctxNode
	escaped bool
}

// NewUniversalModel creates a model over maxSymbol symbols with the given
// context value bound and number of context words.
func NewUniversalModel(maxSymbol, maxContext, order int) *UniversalModel {
	return &UniversalModel{
		tree:      newContextTree(maxContext, order),
		maxSymbol: maxSymbol,
		active:    maxSymbol,
	}
}

// ShiftContext pushes one context word.
func (m *UniversalModel) ShiftContext(c int) {
	m.tree.shiftContext(c)
}

// ShiftModel pushes several context words, oldest first.
func (m *UniversalModel) ShiftModel(cs ...int) {
	for _, c := range cs {
		m.tree.shiftContext(c)
	}
}

// ExcludeSymbolsAbove restricts the active alphabet to 0..limit.
func (m *UniversalModel) ExcludeSymbolsAbove(limit int) {
	m.active = clamp(limit+1, 1, m.maxSymbol)
}

// Flush ages the statistics of all contexts.
func (m *UniversalModel) Flush() {
	m.tree.flush()
}

// activeTotal sums the counts of the active alphabet and reports how many
// active symbols are still unseen.
func (m *UniversalModel) activeTotal() (uint32, int) {
	total := uint32(0)
	unseen := 0
	for _, cnt := range m.cur.counts[:m.active] {
		total += uint32(cnt)
		if cnt == 0 {
			unseen++
		}
	}
	return total, unseen
}

func (m *UniversalModel) convertIntToSymbol(c int, s *symbolRange) bool {
	if !m.escaped {
		m.cur = m.tree.leaf(m.maxSymbol, 0)
		total, unseen := m.activeTotal()
		if m.cur.counts[c] > 0 {
			low := uint32(0)
			for _, cnt := range m.cur.counts[:c] {
				low += uint32(cnt)
			}
			s.lowCount = low
			s.highCount = low + uint32(m.cur.counts[c])
			s.scale = total
			if unseen > 0 {
				s.scale++
			}
			return false
		}
		// escape to the uniform fallback
		s.lowCount = total
		s.highCount = total + 1
		s.scale = total + 1
		m.escaped = true
		return true
	}

	// uniform fallback over the unseen active symbols
	_, unseen := m.activeTotal()
	idx := uint32(0)
	for _, cnt := range m.cur.counts[:c] {
		if cnt == 0 {
			idx++
		}
	}
	s.lowCount = idx
	s.highCount = idx + 1
	s.scale = uint32(unseen)
	return false
}

func (m *UniversalModel) getSymbolScale(s *symbolRange) {
	if !m.escaped {
		m.cur = m.tree.leaf(m.maxSymbol, 0)
		total, unseen := m.activeTotal()
		s.scale = total
		if unseen > 0 {
			s.scale++
		}
		return
	}
	_, unseen := m.activeTotal()
	s.scale = uint32(unseen)
}

func (m *UniversalModel) convertSymbolToInt(count uint32, s *symbolRange) int {
	if !m.escaped {
		total, _ := m.activeTotal()
		if count >= total {
			// the escape slot
			s.lowCount = total
			s.highCount = total + 1
			m.escaped = true
			return escapeSymbol
		}
		low := uint32(0)
		for c, cnt := range m.cur.counts[:m.active] {
			if count < low+uint32(cnt) {
				s.lowCount = low
				s.highCount = low + uint32(cnt)
				return c
			}
			low += uint32(cnt)
		}
		// unreachable with a consistent stream
		s.lowCount = total
		s.highCount = total + 1
		m.escaped = true
		return escapeSymbol
	}

	// uniform fallback: count indexes the unseen active symbols
	s.lowCount = count
	s.highCount = count + 1
	idx := count
	for c, cnt := range m.cur.counts[:m.active] {
		if cnt == 0 {
			if idx == 0 {
				return c
			}
			idx--
		}
	}
	return m.active - 1
}

func (m *UniversalModel) update(c int) {
	m.cur.counts[c]++
	m.cur.total++
	if m.cur.total >= modelRescaleLimit {
		m.cur.rescale()
	}
	m.cur = nil
	m.escaped = false
}

// BinaryModel is an adaptive two-symbol model with context conditioning.
// Both counts start at one, so it never escapes.
type BinaryModel struct {
	tree contextTree
	cur  *ctxNode
}

// NewBinaryModel creates a binary model with the given context value
// bound and number of context words.
func NewBinaryModel(maxContext, order int) *BinaryModel {
	return &BinaryModel{tree: newContextTree(maxContext, order)}
}

// ShiftContext pushes one context word.
func (m *BinaryModel) ShiftContext(c int) {
	m.tree.shiftContext(c)
}

// ShiftModel pushes several context words, oldest first.
func (m *BinaryModel) ShiftModel(cs ...int) {
	for _, c := range cs {
		m.tree.shiftContext(c)
	}
}

// Flush ages the statistics of all contexts.
func (m *BinaryModel) Flush() {
	m.tree.flush()
}

func (m *BinaryModel) convertIntToSymbol(c int, s *symbolRange) bool {
	m.cur = m.tree.leaf(2, 1)
	c0 := uint32(m.cur.counts[0])
	if c == 0 {
		s.lowCount = 0
		s.highCount = c0
	} else {
		s.lowCount = c0
		s.highCount = m.cur.total
	}
	s.scale = m.cur.total
	return false
}

func (m *BinaryModel) getSymbolScale(s *symbolRange) {
	m.cur = m.tree.leaf(2, 1)
	s.scale = m.cur.total
}

func (m *BinaryModel) convertSymbolToInt(count uint32, s *symbolRange) int {
	c0 := uint32(m.cur.counts[0])
	if count < c0 {
		s.lowCount = 0
		s.highCount = c0
		return 0
	}
	s.lowCount = c0
	s.highCount = m.cur.total
	return 1
}

func (m *BinaryModel) update(c int) {
	m.cur.counts[c]++
	m.cur.total++
	if m.cur.total >= modelRescaleLimit {
		m.cur.rescale()
	}
	m.cur = nil
}
