package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/warriorguo/mediagraph/codec"
	_ "github.com/warriorguo/mediagraph/codec/stillimage"
)

var probeCmd = &cobra.Command{
	Use:   "probe FILE...",
	Short: "Show the streams of media files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	footage, err := probeAll(cmd.Context(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range footage {
		fmt.Fprintf(out, "%s (%s)\n", f.Filename, f.DecoderID)
		for _, s := range f.Streams {
			fmt.Fprintf(out, "  #%d %s %dx%d premultiplied=%v\n", s.Index, s.Kind, s.Width, s.Height, s.PremultipliedAlpha)
		}
	}
	return nil
}

// probeAll probes files concurrently and returns them in argument order.
func probeAll(ctx context.Context, files []string) ([]*codec.Footage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	footage := make([]*codec.Footage, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			f, err := codec.Probe(file)
			if err != nil {
				return errors.Annotatef(err, "probe %s", file)
			}
			log.Debugf("probed %s with %d streams", file, len(f.Streams))
			footage[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return footage, nil
}
