package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGenerateDownscalesLongEdge(t *testing.T) {
	src := encodePNG(t, 800, 400)

	out, err := Generate(src, 200)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, "png", format, "png input stays png")
	require.Equal(t, 200, img.Bounds().Dx())
	require.Equal(t, 100, img.Bounds().Dy(), "aspect ratio preserved")
}

func TestGenerateKeepsSmallImages(t *testing.T) {
	src := encodePNG(t, 64, 48)

	out, err := Generate(src, 200)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 64, img.Bounds().Dx())
	require.Equal(t, 48, img.Bounds().Dy())
}

func TestGenerateRejectsGarbage(t *testing.T) {
	_, err := Generate([]byte("not an image"), 200)
	require.Error(t, err)

	_, err = Generate(encodePNG(t, 10, 10), 0)
	require.Error(t, err)
}
