package tree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emicklei/dot"

	"github.com/benz9527/xtree/lib/infra"
)

// ParseTraverseOrder accepts pre, in, post and the full order names.
func ParseTraverseOrder(order string) (TraverseOrder, error) {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "pre", "preorder":
		return PreOrder, nil
	case "in", "inorder", "":
		return InOrder, nil
	case "post", "postorder":
		return PostOrder, nil
	default:
	}
	return InOrder, fmt.Errorf("[rbtree] unknown traverse order %q", order)
}

// Print writes one "<key>:<R|B>" line per node in the visiting order.
func Print[K infra.OrderedKey, V any](w io.Writer, tree RBTree[K, V], order TraverseOrder) error {
	bw := bufio.NewWriter(w)
	for node := range tree.Traverse(order) {
		if _, err := fmt.Fprintf(bw, "%v:%c\n", node.Key(), node.Color().Tag()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Sprint is Print into a string.
func Sprint[K infra.OrderedKey, V any](tree RBTree[K, V], order TraverseOrder) string {
	builder := &strings.Builder{}
	_ = Print[K, V](builder, tree, order)
	return builder.String()
}

// RenderDot renders the tree into Graphviz DOT. Nodes are labelled
// "<key>:<R|B>" and filled by their colors, edges are labelled l or r.
func RenderDot[K infra.OrderedKey, V any](tree RBTree[K, V]) string {
	graph := dot.NewGraph(dot.Directed)
	root := tree.Root()
	if root == nil {
		return graph.String()
	}

	type pending struct {
		node      RBNode[K, V]
		parent    *dot.Node
		direction string
	}
	id := 0
	stack := []pending{{node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := graph.Node("n" + strconv.Itoa(id)).
			Label(fmt.Sprintf("%v:%c", top.node.Key(), top.node.Color().Tag())).
			Attr("style", "filled").
			Attr("fontcolor", "white")
		id++
		if top.node.Color() == Red {
			n.Attr("fillcolor", "red")
		} else {
			n.Attr("fillcolor", "black")
		}
		if top.parent != nil {
			top.parent.Edge(n, top.direction)
		}

		if r := top.node.Right(); r != nil {
			stack = append(stack, pending{node: r, parent: &n, direction: "r"})
		}
		if l := top.node.Left(); l != nil {
			stack = append(stack, pending{node: l, parent: &n, direction: "l"})
		}
	}
	return graph.String()
}
