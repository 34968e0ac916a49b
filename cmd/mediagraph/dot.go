package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warriorguo/mediagraph"
	"github.com/warriorguo/mediagraph/types"
)

var dotFlags struct {
	evaluate bool
	time     string
}

var dotCmd = &cobra.Command{
	Use:   "dot BASE [OVERLAY...]",
	Short: "Print the composition graph as Graphviz DOT",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDot,
}

func init() {
	f := dotCmd.Flags()
	f.BoolVar(&dotFlags.evaluate, "evaluate", false, "evaluate one frame first and color the visited nodes")
	f.StringVar(&dotFlags.time, "time", "0", "time of the evaluated frame")
}

func runDot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	comp, err := buildComposition(ctx, args, 1.0)
	if err != nil {
		return err
	}
	e, err := mediagraph.NewRenderEngine(comp.doc, cfg.Options()...)
	if err != nil {
		return err
	}
	defer e.Close(context.Background())

	jobID := ""
	if dotFlags.evaluate {
		r, err := frameRange(dotFlags.time)
		if err != nil {
			return err
		}
		jobID = "dot"
		if err := e.Submit(ctx, jobID, types.NewDependency(comp.root, r)); err != nil {
			return err
		}
		if _, err := e.Wait(ctx, jobID); err != nil {
			return err
		}
	}

	dot, err := e.RenderGraph(ctx, jobID)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), dot)
	return nil
}
