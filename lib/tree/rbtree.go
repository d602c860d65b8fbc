package tree

import (
	"github.com/benz9527/xtree/lib/infra"
)

type rbNode[K infra.OrderedKey, V any] struct {
	parent *rbNode[K, V]
	left   *rbNode[K, V]
	right  *rbNode[K, V]
	key    K
	val    V
	color  RBColor
	hasKV  bool
}

func (node *rbNode[K, V]) Color() RBColor {
	return node.color
}

func (node *rbNode[K, V]) Key() K {
	return node.key
}

func (node *rbNode[K, V]) Val() V {
	return node.val
}

func (node *rbNode[K, V]) HasKeyVal() bool {
	if node == nil {
		return false
	}
	return node.hasKV
}

// Left, Right and Parent never wrap a nil *rbNode into a non-nil interface.

func (node *rbNode[K, V]) Left() RBNode[K, V] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *rbNode[K, V]) Right() RBNode[K, V] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *rbNode[K, V]) Parent() RBNode[K, V] {
	if node == nil || node.parent == nil {
		return nil
	}
	return node.parent
}

// An absent node is black.
func (node *rbNode[K, V]) isBlack() bool {
	return node == nil || node.color == Black
}

func (node *rbNode[K, V]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *rbNode[K, V]) isRoot() bool {
	return node != nil && node.parent == nil
}

func (node *rbNode[K, V]) Direction() RBDirection {
	if node == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *rbNode[K, V]) sibling() *rbNode[K, V] {
	switch node.Direction() {
	case Left:
		return node.parent.right
	case Right:
		return node.parent.left
	default:
	}
	return nil
}

func (node *rbNode[K, V]) uncle() *rbNode[K, V] {
	return node.parent.sibling()
}

// child returns the child on the dir side.
func (node *rbNode[K, V]) child(dir RBDirection) *rbNode[K, V] {
	switch dir {
	case Left:
		return node.left
	case Right:
		return node.right
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] child lookup by root direction")
	}
}

func (node *rbNode[K, V]) fixLink() {
	if node.left != nil {
		node.left.parent = node
	}
	if node.right != nil {
		node.right.parent = node
	}
}

func (node *rbNode[K, V]) minimum() *rbNode[K, V] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

func (node *rbNode[K, V]) maximum() *rbNode[K, V] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

// The pred node of the current node is its previous node in sorted order.
// For a node with two children it is the maximum of the left subtree.
func (node *rbNode[K, V]) pred() *rbNode[K, V] {
	x := node
	if x == nil {
		return nil
	}
	if x.left != nil {
		return x.left.maximum()
	}

	aux := x.parent
	for aux != nil && x == aux.left {
		x = aux
		aux = aux.parent
	}
	return aux
}

// The succ node of the current node is its next node in sorted order.
func (node *rbNode[K, V]) succ() *rbNode[K, V] {
	x := node
	if x == nil {
		return nil
	}
	if x.right != nil {
		return x.right.minimum()
	}

	aux := x.parent
	for aux != nil && x == aux.right {
		x = aux
		aux = aux.parent
	}
	return aux
}

// detach returns a node carrying a copy of the key and value but no links.
func (node *rbNode[K, V]) detach() *rbNode[K, V] {
	return &rbNode[K, V]{
		key:   node.key,
		val:   node.val,
		color: node.color,
		hasKV: node.hasKV,
	}
}

type rbTree[K infra.OrderedKey, V any] struct {
	root           *rbNode[K, V]
	cmp            infra.OrderedKeyComparator[K]
	stats          *rbTreeStats
	count          int64
	isDesc         bool
	isRmBorrowSucc bool
}

func (tree *rbTree[K, V]) keyCompare(k1, k2 K) int64 {
	var res int64
	if tree.cmp != nil {
		res = tree.cmp(k1, k2)
	} else {
		res = infra.AscComparator[K](k1, k2)
	}
	if tree.isDesc {
		return -res
	}
	return res
}

func (tree *rbTree[K, V]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

// Height counts the nodes on the longest root to leaf path.
// The red-black rules bound it by 2*log2(n+1).
func (tree *rbTree[K, V]) Height() int {
	var height func(node *rbNode[K, V]) int
	height = func(node *rbNode[K, V]) int {
		if node == nil {
			return 0
		}
		return 1 + max(height(node.left), height(node.right))
	}
	return height(tree.root)
}

// References:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All absent (nil) children are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   nil children goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// If a node has exactly one child, the child must be red,
// otherwise the nil child side has a smaller black depth.

// replaceChild puts repl into old's slot under parent.
// A nil parent means old was the root.
func (tree *rbTree[K, V]) replaceChild(parent, old, repl *rbNode[K, V]) {
	switch {
	case parent == nil:
		tree.root = repl
	case parent.left == old:
		parent.left = repl
	case parent.right == old:
		parent.right = repl
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] replace a node which is not a child of its parent")
	}
	if repl != nil {
		repl.parent = parent
	}
}

/*
		 |                         |
		 X                         Y
		/ \     leftRotate(X)     / \
	   A   Y    ============>    X   C
		  / \                   / \
		 B   C                 A   B
*/
func (tree *rbTree[K, V]) leftRotate(x *rbNode[K, V]) {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	x.right, y.left = y.left, x
	tree.replaceChild(p, x, y)
	x.fixLink()
	y.fixLink()
	tree.stats.IncreaseRotationCount(Left)
}

/*
		   |                         |
		   X                         Y
		  / \     rightRotate(X)    / \
	     Y   C    ============>    A   X
	    / \                           / \
	   A   B                         B   C
*/
func (tree *rbTree[K, V]) rightRotate(x *rbNode[K, V]) {
	if x == nil || x.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	x.left, y.right = y.right, x
	tree.replaceChild(p, x, y)
	x.fixLink()
	y.fixLink()
	tree.stats.IncreaseRotationCount(Right)
}

// rotate moves x down to the dir side.
func (tree *rbTree[K, V]) rotate(x *rbNode[K, V], dir RBDirection) {
	switch dir {
	case Left:
		tree.leftRotate(x)
	case Right:
		tree.rightRotate(x)
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] rotate with root direction")
	}
}

func (tree *rbTree[K, V]) Insert(key K, val V) {
	tree.insert(key, val, false)
}

// InsertIfAbsent keeps the map semantics, an existed key is never replaced
// or duplicated.
func (tree *rbTree[K, V]) InsertIfAbsent(key K, val V) bool {
	return tree.insert(key, val, true)
}

// Equal keys descend to the right, so duplicates are stored after the
// existed ones in the in-order sequence.
func (tree *rbTree[K, V]) insert(key K, val V, ifNotPresent bool) bool {
	var (
		x, y *rbNode[K, V] = tree.root, nil
		res  int64
	)
	for x != nil {
		y = x
		res = tree.keyCompare(key, x.key)
		if /* equal */ res == 0 && ifNotPresent {
			return false
		} else /* less */ if res < 0 {
			x = x.left
		} else /* greater or equal */ {
			x = x.right
		}
	}

	z := &rbNode[K, V]{
		key:    key,
		val:    val,
		color:  Red,
		parent: y,
		hasKV:  true,
	}
	switch {
	case y == nil:
		tree.root = z
	case res < 0:
		y.left = z
	default:
		y.right = z
	}

	tree.count++
	tree.stats.RecordNodeCount(1)
	tree.insertRebalance(z)
	return true
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or nil).

ia: X is the root. Paint it black.

ib: X's parent P is black. Nothing is violated.

ic: P and the uncle U are both red, so the grandpa G is black.
Push G's blackness down and continue from G, which may now
be a red child of a red parent.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

id: P is red, U is black. X is the inner grandchild.
Rotate at P to turn the triangle into a line, then X takes
P's role and falls through into ie.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

ie: P is red, U is black. X is the outer grandchild.
Swap the colors of P and G, then rotate at G. The black
depth of every path through G is kept.

	    [G]                 [P]
	    / \    rotate(G)    / \
	  <P> [U]  ========>  <X> <G>
	  /                         \
	<X>                         [U]
*/
func (tree *rbTree[K, V]) insertRebalance(x *rbNode[K, V]) {
	for {
		if /* ia */ x.isRoot() {
			x.color = Black
			tree.stats.IncreaseFixupCount(fixupInsert, "root")
			return
		}

		p := x.parent
		if /* ib */ p.isBlack() {
			tree.stats.IncreaseFixupCount(fixupInsert, "black_parent")
			return
		}

		// A red parent is never the root, the grandpa exists.
		g := p.parent
		if g == nil {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] red parent without grandpa")
		}

		if u := x.uncle(); /* ic */ u.isRed() {
			p.color, u.color, g.color = Black, Black, Red
			tree.stats.IncreaseFixupCount(fixupInsert, "red_uncle")
			x = g
			continue
		}

		if dir := x.Direction(); /* id */ dir != p.Direction() {
			tree.rotate(p, -dir)
			tree.stats.IncreaseFixupCount(fixupInsert, "triangle")
			x, p = p, x
		}

		/* ie */
		pDir := p.Direction()
		p.color, g.color = Black, Red
		tree.rotate(g, -pDir)
		tree.stats.IncreaseFixupCount(fixupInsert, "line")
		return
	}
}

func (tree *rbTree[K, V]) search(key K) *rbNode[K, V] {
	for aux := tree.root; aux != nil; {
		res := tree.keyCompare(key, aux.key)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = aux.right
		} else {
			aux = aux.left
		}
	}
	return nil
}

func (tree *rbTree[K, V]) Search(key K) (RBNode[K, V], bool) {
	if node := tree.search(key); node != nil {
		return node, true
	}
	return nil, false
}

func (tree *rbTree[K, V]) Contains(key K) bool {
	return tree.search(key) != nil
}

func (tree *rbTree[K, V]) Min() (RBNode[K, V], bool) {
	if tree.root == nil {
		return nil, false
	}
	return tree.root.minimum(), true
}

func (tree *rbTree[K, V]) Max() (RBNode[K, V], bool) {
	if tree.root == nil {
		return nil, false
	}
	return tree.root.maximum(), true
}

/*
r1: Z has two children.
Borrow the key and value of Z's pred (or succ) and remove
that node instead. It has one child at most.

	  |                    |
	  Z                    L'
	 / \                  / \
	L  ..   copy(L', Z)  L  ..
	 \      =========>    \
	  L'                   L'  <- removed

r2: Y (the node to remove) is red. It has no child, unlink it.

r3: Y is black with a red child C. Splice C into Y's slot
and paint C black.

r4: Y is black without child. Removing it leaves a black deficiency
on its side, rebalance before unlinking.
*/
func (tree *rbTree[K, V]) removeNode(z *rbNode[K, V]) RBNode[K, V] {
	res := z.detach()

	y := z
	if /* r1 */ y.left != nil && y.right != nil {
		if tree.isRmBorrowSucc {
			y = z.succ()
		} else {
			y = z.pred()
		}
		z.key, z.val = y.key, y.val
	}

	if y.left != nil && y.right != nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] spliced node still has two children")
	}

	child := y.left
	if child == nil {
		child = y.right
	}

	if y.isBlack() {
		if /* r3 */ child.isRed() {
			child.color = Black
		} else /* r4 */ {
			tree.removeRebalance(y)
		}
	}

	// r2 goes straight here.
	tree.replaceChild(y.parent, y, child)
	if tree.root != nil && tree.root.isRed() {
		tree.root.color = Black
	}

	var (
		zeroK K
		zeroV V
	)
	y.parent, y.left, y.right = nil, nil, nil
	y.key, y.val, y.hasKV = zeroK, zeroV, false

	tree.count--
	tree.stats.RecordNodeCount(-1)
	return res
}

func (tree *rbTree[K, V]) Remove(key K) (RBNode[K, V], bool) {
	z := tree.search(key)
	if z == nil {
		return nil, false
	}
	return tree.removeNode(z), true
}

func (tree *rbTree[K, V]) RemoveMin() (RBNode[K, V], bool) {
	if tree.root == nil {
		return nil, false
	}
	return tree.removeNode(tree.root.minimum()), true
}

/*
X is the black node to be removed, the paths through X
are going to lose one black node.

<X> is a RED node.
[X] is a BLACK node (or nil).
{X} is either a RED node or a BLACK node.

Sn is the near nephew, the child of the sibling S on X's side.
Sf is the far nephew, the child of S on the other side.

rm1: X is the root. No path above it to fix.

rm2: S is red, so P, Sn and Sf are black.
Paint P red and S black, rotate at P towards X. X gets a black
sibling (the former Sn), go on with rm3 to rm6.

	  [P]                   <S>               [S]
	  / \    rotate(P)      / \    repaint    / \
	[X] <S>  ==========>  [P] [Sf]  =====>  <P> [Sf]
	    / \               / \               / \
	 [Sn] [Sf]          [X] [Sn]          [X] [Sn]

rm3: P, S, Sn and Sf are all black.
Paint S red, both sides of P lose one black now, continue at P.

	  [P]             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sn] [Sf]       [Sn] [Sf]

rm4: P is red, S, Sn and Sf are black.
Swap the colors of P and S, which restores X's side.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sn] [Sf]       [Sn] [Sf]

rm5: S is black, Sn is red and Sf is black.
Rotate at S away from X, swap the colors of S and Sn.
The old Sn becomes the sibling with a red far nephew, go on with rm6.

	  {P}                   {P}
	  / \    rotate(S)      / \
	[X] [S]  ==========>  [X] [Sn]
	    / \                     \
	  <Sn> [Sf]                 <S>
	                              \
	                              [Sf]

rm6: S is black and Sf is red.
Rotate at P towards X, S takes P's color, P and Sf are painted black.

	  {P}                   {S}
	  / \    rotate(P)      / \
	[X] [S]  ==========>  [P] [Sf]
	    / \               / \
	 {Sn} <Sf>          [X] {Sn}
*/
func (tree *rbTree[K, V]) removeRebalance(x *rbNode[K, V]) {
	for {
		if /* rm1 */ x.isRoot() {
			tree.stats.IncreaseFixupCount(fixupRemove, "root")
			return
		}

		dir, p, s := x.Direction(), x.parent, x.sibling()
		if s == nil {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] black node without sibling")
		}

		if /* rm2 */ s.isRed() {
			p.color, s.color = Red, Black
			tree.rotate(p, dir)
			tree.stats.IncreaseFixupCount(fixupRemove, "red_sibling")
			s = x.sibling()
		}

		sn, sf := s.child(dir), s.child(-dir)
		if sn.isBlack() && sf.isBlack() {
			if /* rm3 */ p.isBlack() {
				s.color = Red
				tree.stats.IncreaseFixupCount(fixupRemove, "black_parent")
				x = p
				continue
			}
			/* rm4 */
			s.color, p.color = Red, Black
			tree.stats.IncreaseFixupCount(fixupRemove, "red_parent")
			return
		}

		if /* rm5 */ sf.isBlack() {
			s.color, sn.color = Red, Black
			tree.rotate(s, -dir)
			tree.stats.IncreaseFixupCount(fixupRemove, "near_nephew")
			s = x.sibling()
			sf = s.child(-dir)
		}

		/* rm6 */
		s.color, p.color, sf.color = p.color, Black, Black
		tree.rotate(p, dir)
		tree.stats.IncreaseFixupCount(fixupRemove, "far_nephew")
		return
	}
}

// Clone deep copies the node graph with an explicit stack, the
// depth is only bounded by memory.
func (tree *rbTree[K, V]) Clone() RBTree[K, V] {
	dst := tree.clone()
	dst.stats = tree.stats
	dst.stats.RecordNodeCount(dst.count)
	return dst
}

// clone copies the nodes and the ordering, but not the stats.
func (tree *rbTree[K, V]) clone() *rbTree[K, V] {
	dst := &rbTree[K, V]{
		cmp:            tree.cmp,
		count:          tree.count,
		isDesc:         tree.isDesc,
		isRmBorrowSucc: tree.isRmBorrowSucc,
	}
	if tree.root == nil {
		return dst
	}

	type pair struct {
		from, to *rbNode[K, V]
	}
	dst.root = tree.root.detach()
	stack := make([]pair, 0, 64)
	stack = append(stack, pair{tree.root, dst.root})
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if l := top.from.left; l != nil {
			top.to.left = l.detach()
			top.to.left.parent = top.to
			stack = append(stack, pair{l, top.to.left})
		}
		if r := top.from.right; r != nil {
			top.to.right = r.detach()
			top.to.right.parent = top.to
			stack = append(stack, pair{r, top.to.right})
		}
	}
	return dst
}

// Assign replaces the receiver's nodes and ordering by a deep copy of src.
// Assigning a tree to itself is a no-op.
func (tree *rbTree[K, V]) Assign(src RBTree[K, V]) {
	if src == nil {
		tree.Release()
		return
	}
	if s, ok := src.(*rbTree[K, V]); ok && s == tree {
		return
	}

	// Clone before release, src may share the receiver by a wrapper.
	c := src.Clone()
	if ts, ok := c.(*threadSafeRBTree[K, V]); ok {
		c = ts.tree
	}
	tree.Release()

	if inner, ok := c.(*rbTree[K, V]); ok {
		tree.root, tree.count = inner.root, inner.count
		tree.cmp, tree.isDesc, tree.isRmBorrowSucc = inner.cmp, inner.isDesc, inner.isRmBorrowSucc
		tree.stats.RecordNodeCount(inner.count)
		inner.stats.RecordNodeCount(-inner.count)
		inner.root, inner.count = nil, 0
		return
	}
	// Other implementations are copied node by node in the receiver's order.
	for node := range c.Traverse(PreOrder) {
		tree.Insert(node.Key(), node.Val())
	}
	c.Release()
}

// Release unlinks every node exactly once without recursion.
// The tree is empty and reusable afterward.
func (tree *rbTree[K, V]) Release() {
	aux := tree.root
	released := tree.count
	tree.root, tree.count = nil, 0
	if aux == nil {
		return
	}

	var (
		zeroK K
		zeroV V
	)
	stack := make([]*rbNode[K, V], 0, 64)
	stack = append(stack, aux)
	for len(stack) > 0 {
		aux = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if aux.left != nil {
			stack = append(stack, aux.left)
		}
		if aux.right != nil {
			stack = append(stack, aux.right)
		}
		aux.parent, aux.left, aux.right = nil, nil, nil
		aux.key, aux.val, aux.hasKV = zeroK, zeroV, false
	}
	tree.stats.RecordNodeCount(-released)
}

type RBTreeOpt[K infra.OrderedKey, V any] func(*rbTree[K, V])

func WithRBTreeDesc[K infra.OrderedKey, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isDesc = true
	}
}

func WithRBTreeRemoveBorrowSucc[K infra.OrderedKey, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isRmBorrowSucc = true
	}
}

// WithRBTreeComparator replaces the builtin < order.
// The comparator must be a strict total order.
func WithRBTreeComparator[K infra.OrderedKey, V any](cmp infra.OrderedKeyComparator[K]) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		if cmp != nil {
			tree.cmp = cmp
		}
	}
}

func NewRBTree[K infra.OrderedKey, V any](opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	tree := &rbTree[K, V]{
		cmp:            infra.AscComparator[K],
		count:          0,
		isDesc:         false,
		isRmBorrowSucc: false,
	}

	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	return tree
}
