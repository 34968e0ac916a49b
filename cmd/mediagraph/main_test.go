package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", color.RGBA{R: 0xff, A: 0xff})
	b := writePNG(t, dir, "b.png", color.RGBA{G: 0xff, A: 0xff})

	out, err := execute(t, "probe", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, a+" (image)")
	assert.Contains(t, out, "6x4")

	_, err = execute(t, "probe", filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)
}

func TestRenderWritesPNG(t *testing.T) {
	dir := t.TempDir()
	base := writePNG(t, dir, "base.png", color.RGBA{B: 0xff, A: 0xff})
	over := writePNG(t, dir, "over.png", color.RGBA{R: 0xff, A: 0xff})
	out := filepath.Join(dir, "frame.png")

	stdout, err := execute(t, "render", "--out", out, "--opacity", "1", "--time", "1/2", base, over)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+out+" (6x4)")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	got := color.RGBAModel.Convert(img.At(2, 2)).(color.RGBA)
	assert.InDelta(t, 0xff, got.R, 2)
	assert.InDelta(t, 0, got.B, 2)
}

func TestDot(t *testing.T) {
	dir := t.TempDir()
	base := writePNG(t, dir, "base.png", color.RGBA{B: 0xff, A: 0xff})
	over := writePNG(t, dir, "over.png", color.RGBA{R: 0xff, A: 0xff})

	out, err := execute(t, "dot", "--evaluate", base, over)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph D {")
	assert.Contains(t, out, `[label="merge1" shape="record" style="filled"`)
	assert.Contains(t, out, `[label="texture"]`)
}

func TestFrameRange(t *testing.T) {
	r, err := frameRange("1.5")
	require.NoError(t, err)
	assert.Equal(t, "[3/2, 5/2)", r.String())

	_, err = frameRange("soon")
	assert.Error(t, err)
}
