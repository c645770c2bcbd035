package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lllllllleong/contractextraction/internal/models"
	"github.com/Lllllllleong/contractextraction/internal/ocr"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func writeTextImage(t *testing.T, dir, name, text string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 240, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 50),
	}
	d.DrawString(text)

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestEngineRecognizesPages(t *testing.T) {
	ensureTesseractAvailable(t)

	dir := t.TempDir()
	images := []models.PageImage{
		{Index: 1, Path: writeTextImage(t, dir, "page.1.png", "Hello SELLER")},
		{Index: 2, Path: writeTextImage(t, dir, "page.2.png", "Goodbye BUYER")},
	}

	text, err := ocr.NewRecognizer(New(), ocr.Options{Language: "eng"}).Recognize(context.Background(), images)
	require.NoError(t, err)

	got := strings.ToLower(text.String())
	require.Contains(t, got, "hello")
	require.Contains(t, got, "goodbye")
	require.Less(t, strings.Index(got, "hello"), strings.Index(got, "goodbye"))
}
