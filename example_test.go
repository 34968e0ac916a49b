package mediagraph_test

import (
	"context"
	"fmt"

	"github.com/warriorguo/mediagraph"
	"github.com/warriorguo/mediagraph/graph"
	"github.com/warriorguo/mediagraph/graph/nodes"
	"github.com/warriorguo/mediagraph/types"
)

func ExampleNewRenderEngine() {
	doc := graph.NewDocument()
	speed := doc.AddNode("speed", nodes.NewMath(nodes.OpMultiply))
	n, _ := doc.Node(speed)
	n.Input(nodes.InputA).AddKeyframe(types.FromInt(0), 1.0)
	n.Input(nodes.InputA).AddKeyframe(types.FromInt(10), 3.0)
	n.Input(nodes.InputB).SetStandardValue(2.0)

	engine, err := mediagraph.NewRenderEngine(doc, types.EnableMemStore())
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx := context.Background()
	defer engine.Close(ctx)

	for _, sec := range []int64{0, 5, 10} {
		r := types.NewTimeRange(types.FromInt(sec), types.FromInt(sec+1))
		table, err := engine.Render(ctx, types.NewDependency(speed, r))
		if err != nil {
			fmt.Println(err)
			return
		}
		v, _ := table.GetFloat64(types.DataFloat)
		fmt.Printf("%s: %.1f\n", r, v)
	}
	// Output:
	// [0, 1): 2.0
	// [5, 6): 4.0
	// [10, 11): 6.0
}
