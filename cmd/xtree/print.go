package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/lib/tree"
)

func parseKeys(args []string) ([]int64, error) {
	var err error
	keys := lo.FilterMap(args, func(arg string, _ int) (int64, bool) {
		key, parseErr := strconv.ParseInt(arg, 10, 64)
		if parseErr != nil {
			err = multierr.Append(err, fmt.Errorf("invalid key %q: %w", arg, parseErr))
			return 0, false
		}
		return key, true
	})
	return keys, err
}

func printCommand(ctx *rootContext) *cobra.Command {
	var (
		order   string
		dot     bool
		desc    bool
		succ    bool
		removes []int64
	)
	cmd := &cobra.Command{
		Use:   "print [flags] <keys...>",
		Short: "insert the keys in order, remove the --remove keys, then print the tree",
		Example: `  xtree print 5 2 1 4 3
  xtree print --order pre --remove 2 --remove 5 5 2 1 4 3
  xtree print --dot 5 2 1 4 3 | dot -Tpng > tree.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}
			traverseOrder, err := tree.ParseTraverseOrder(order)
			if err != nil {
				return err
			}

			opts := make([]tree.RBTreeOpt[int64, struct{}], 0, 2)
			if desc {
				opts = append(opts, tree.WithRBTreeDesc[int64, struct{}]())
			}
			if succ {
				opts = append(opts, tree.WithRBTreeRemoveBorrowSucc[int64, struct{}]())
			}
			t := tree.NewRBTree[int64, struct{}](opts...)
			defer t.Release()

			for _, key := range keys {
				t.Insert(key, struct{}{})
			}
			for _, key := range removes {
				if _, ok := t.Remove(key); !ok {
					ctx.logger.Debug("remove absent key", zap.Int64("key", key))
				}
			}
			ctx.logger.Info("tree built",
				zap.Int64("len", t.Len()),
				zap.Int("height", t.Height()),
			)
			if err = tree.Validate(t); err != nil {
				ctx.logger.Error(err, "tree validation failed")
				return err
			}

			if dot {
				_, err = io.WriteString(cmd.OutOrStdout(), tree.RenderDot(t))
				return err
			}
			return tree.Print(cmd.OutOrStdout(), t, traverseOrder)
		},
	}
	cmd.Flags().StringVar(&order, "order", "in", "traverse order: pre, in or post")
	cmd.Flags().BoolVar(&dot, "dot", false, "render the tree into Graphviz DOT instead")
	cmd.Flags().BoolVar(&desc, "desc", false, "order the keys from the largest to the smallest")
	cmd.Flags().BoolVar(&succ, "succ", false, "remove a node with two children by its successor")
	cmd.Flags().Int64SliceVar(&removes, "remove", nil, "keys removed after all the inserts, repeatable")
	return cmd
}
