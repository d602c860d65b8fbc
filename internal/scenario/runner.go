package scenario

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/xlog"
)

// ContextKeyScenario carries the document name into the step logs.
const ContextKeyScenario = "scenario"

type Set = tree.RBTree[int64, struct{}]

// Result sums up a replay.
type Result struct {
	Steps    int
	Inserted int
	Removed  int
	Missed   int
	// Trees are the named trees left after the replay.
	Trees map[string]Set
}

// Release frees every tree of the result.
func (res *Result) Release() {
	if res == nil {
		return
	}
	for _, t := range res.Trees {
		t.Release()
	}
	clear(res.Trees)
}

type Runner struct {
	logger xlog.XLogger
	out    *bufio.Writer
	trees  map[string]Set
	cur    string
	opts   []tree.RBTreeOpt[int64, struct{}]
	doc    *Document
	res    *Result
}

// NewRunner writes the print, echo and search output into out.
// A nil logger drops the logs.
func NewRunner(out io.Writer, logger xlog.XLogger, opts ...tree.RBTreeOpt[int64, struct{}]) *Runner {
	if logger == nil {
		logger = xlog.NopXLogger()
	}
	return &Runner{
		logger: logger.Named("scenario"),
		out:    bufio.NewWriter(out),
		opts:   opts,
	}
}

func (r *Runner) newTree() Set {
	opts := make([]tree.RBTreeOpt[int64, struct{}], 0, len(r.opts)+2)
	opts = append(opts, r.opts...)
	if r.doc.Desc {
		opts = append(opts, tree.WithRBTreeDesc[int64, struct{}]())
	}
	if r.doc.RemoveBorrowSucc {
		opts = append(opts, tree.WithRBTreeRemoveBorrowSucc[int64, struct{}]())
	}
	return tree.NewRBTree[int64, struct{}](opts...)
}

func (r *Runner) current() Set {
	return r.trees[r.cur]
}

func (r *Runner) lookup(name string) (Set, error) {
	t, ok := r.trees[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("unknown tree %q", name)
	}
	return t, nil
}

// Run replays the document from a fresh default tree. It stops at the
// first failed step or once the ctx is done.
func (r *Runner) Run(ctx context.Context, doc *Document) (*Result, error) {
	if err := doc.Check(); err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, xlog.ContextKey(ContextKeyScenario), doc.Name)

	r.doc = doc
	r.trees = map[string]Set{}
	r.cur = DefaultTree
	r.res = &Result{Trees: r.trees}
	r.trees[DefaultTree] = r.newTree()

	r.logger.InfoContext(ctx, "scenario started", zap.Int("steps", len(doc.Steps)))
	for i, step := range doc.Steps {
		if err := ctx.Err(); err != nil {
			return r.res, err
		}
		action, _ := step.Action()
		if err := r.apply(ctx, action, step); err != nil {
			err = fmt.Errorf("step %d (%s): %w", i, action, err)
			r.logger.ErrorContext(ctx, err, "scenario step failed")
			_ = r.out.Flush()
			return r.res, err
		}
		r.res.Steps++
		if doc.Validate {
			if err := tree.Validate(r.current()); err != nil {
				err = fmt.Errorf("step %d (%s) broke tree %q: %w", i, action, r.cur, err)
				r.logger.ErrorContext(ctx, err, "scenario validation failed")
				_ = r.out.Flush()
				return r.res, err
			}
		}
	}
	if err := r.out.Flush(); err != nil {
		return r.res, err
	}
	r.logger.InfoContext(ctx, "scenario done",
		zap.Int("inserted", r.res.Inserted),
		zap.Int("removed", r.res.Removed),
		zap.Int("missed", r.res.Missed),
		zap.Int("trees", len(r.trees)),
	)
	return r.res, nil
}

func (r *Runner) apply(ctx context.Context, action Action, step Step) error {
	t := r.current()
	switch action {
	case ActionInsert:
		for _, key := range step.Insert {
			t.Insert(key, struct{}{})
		}
		r.res.Inserted += len(step.Insert)
		r.logger.DebugContext(ctx, "inserted", zap.String("tree", r.cur), zap.Int64s("keys", step.Insert))
	case ActionRemove:
		for _, key := range step.Remove {
			if _, ok := t.Remove(key); ok {
				r.res.Removed++
				continue
			}
			r.res.Missed++
			r.logger.DebugContext(ctx, "remove absent key", zap.String("tree", r.cur), zap.Int64("key", key))
		}
	case ActionSearch:
		for _, key := range step.Search {
			if node, ok := t.Search(key); ok {
				_, _ = fmt.Fprintf(r.out, "%d:%c\n", key, node.Color().Tag())
			} else {
				_, _ = fmt.Fprintf(r.out, "%d:nil\n", key)
			}
		}
	case ActionPrint:
		if strings.EqualFold(strings.TrimSpace(step.Print), "dot") {
			_, err := io.WriteString(r.out, tree.RenderDot(t))
			return err
		}
		order, err := tree.ParseTraverseOrder(step.Print)
		if err != nil {
			return err
		}
		return tree.Print(r.out, t, order)
	case ActionEcho:
		_, err := fmt.Fprintln(r.out, step.Echo)
		return err
	case ActionClone:
		name := strings.TrimSpace(step.Clone)
		if old, ok := r.trees[name]; ok && name != r.cur {
			old.Release()
		} else if ok {
			return fmt.Errorf("clone into the current tree %q", name)
		}
		r.trees[name] = t.Clone()
		r.cur = name
		r.logger.DebugContext(ctx, "cloned", zap.String("tree", name), zap.Int64("len", t.Len()))
	case ActionUse:
		name := strings.TrimSpace(step.Use)
		if _, ok := r.trees[name]; !ok {
			// Using an unknown name starts a new empty tree.
			r.trees[name] = r.newTree()
		}
		r.cur = name
	case ActionAssign:
		src, err := r.lookup(step.Assign)
		if err != nil {
			return err
		}
		t.Assign(src)
	case ActionRelease:
		target, err := r.lookup(step.Release)
		if err != nil {
			return err
		}
		target.Release()
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}
