package main

import (
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warriorguo/mediagraph"
	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/graph/nodes"
	"github.com/warriorguo/mediagraph/types"
)

var renderFlags struct {
	out     string
	opacity float64
	time    string
	divider int
}

var renderCmd = &cobra.Command{
	Use:   "render BASE [OVERLAY...]",
	Short: "Composite overlays on a base picture and write one frame as PNG",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderFlags.out, "out", "o", "", "PNG file to write (required)")
	f.Float64Var(&renderFlags.opacity, "opacity", 1.0, "opacity of every overlay")
	f.StringVar(&renderFlags.time, "time", "0", "time of the frame, e.g. 1/2 or 1.5")
	f.IntVar(&renderFlags.divider, "divider", 0, "resolution divider, 0 keeps the configured one")

	_ = renderCmd.MarkFlagRequired("out")
}

// composition is merge(...merge(base, opacity(o1))..., opacity(oN)).
type composition struct {
	doc  *graph.Document
	root types.NodeID
}

func buildComposition(ctx context.Context, files []string, opacity float64) (*composition, error) {
	footage, err := probeAll(ctx, files)
	if err != nil {
		return nil, err
	}

	doc := graph.NewDocument()
	var root types.NodeID
	for i, f := range footage {
		doc.AddFootage(f)
		if len(f.Streams) == 0 {
			return nil, errors.NotFoundf("stream in %s", f.Filename)
		}

		media := doc.AddNode(fmt.Sprintf("media%d", i), nodes.NewMediaInput())
		n, _ := doc.Node(media)
		n.Input(nodes.InputFootage).SetStandardValue(f.Streams[0].ID)
		if i == 0 {
			root = media
			continue
		}

		fade := doc.AddNode(fmt.Sprintf("opacity%d", i), nodes.NewOpacity())
		n, _ = doc.Node(fade)
		n.Input(nodes.InputOpacity).SetStandardValue(opacity)
		merge := doc.AddNode(fmt.Sprintf("merge%d", i), nodes.NewMerge())

		if err := doc.Connect(media, fade, nodes.InputTexture); err != nil {
			return nil, errors.Trace(err)
		}
		if err := doc.Connect(root, merge, nodes.InputBase); err != nil {
			return nil, errors.Trace(err)
		}
		if err := doc.Connect(fade, merge, nodes.InputBlend); err != nil {
			return nil, errors.Trace(err)
		}
		root = merge
	}
	return &composition{doc: doc, root: root}, nil
}

// frameRange is the single frame starting at t, one time unit long.
func frameRange(t string) (types.TimeRange, error) {
	at, err := types.ParseRational(t)
	if err != nil {
		return types.TimeRange{}, errors.Annotatef(err, "time %q", t)
	}
	return types.NewTimeRange(at, at.Add(types.FromInt(1))), nil
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	comp, err := buildComposition(ctx, args, renderFlags.opacity)
	if err != nil {
		return err
	}
	r, err := frameRange(renderFlags.time)
	if err != nil {
		return err
	}

	opts := cfg.Options()
	if renderFlags.divider > 0 {
		opts = append(opts, types.SetDivider(renderFlags.divider))
	}
	e, err := mediagraph.NewRenderEngine(comp.doc, opts...)
	if err != nil {
		return err
	}
	defer e.Close(context.Background())

	e.Subscribe(types.ObserverFuncs{
		FootageUnavailable: func(ev types.FootageUnavailableEvent) {
			log.Warnf("stream %d unavailable at %s: %s", ev.Stream, ev.Time, ev.State)
		},
	})

	table, err := e.Render(ctx, types.NewDependency(comp.root, r))
	if err != nil {
		return err
	}
	frame, ok := table.GetFrame(types.DataTexture)
	if !ok {
		return errors.NotFoundf("frame at %s", r)
	}

	f, err := os.Create(renderFlags.out)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	if err := png.Encode(f, frame.Image); err != nil {
		return errors.Annotatef(err, "encode %s", renderFlags.out)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", renderFlags.out, frame.Width(), frame.Height())
	return nil
}
