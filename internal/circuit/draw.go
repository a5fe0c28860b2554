package circuit

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Diagram geometry. Wires are laid out top to bottom, one gate column per
// depth level, in the usual textbook orientation.
const (
	cellW    = 56
	cellH    = 44
	marginX  = 80
	marginY  = 28
	boxSize  = 30
	dotR     = 4
	targetR  = 9
	labelPad = 8
)

var (
	bgColor   = color.White
	wireColor = color.RGBA{60, 60, 60, 255}
	boxFill   = color.RGBA{222, 235, 255, 255}
	boxEdge   = color.RGBA{30, 64, 124, 255}
	measFill  = color.RGBA{255, 235, 205, 255}
	textColor = color.Black
)

// SaveDiagram renders the circuit to a PNG in the working directory, named
// <stem>_circuit_diagram.png after the source file, and returns the path
// written.
func SaveDiagram(c *Circuit, qasmPath string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(qasmPath), filepath.Ext(qasmPath))
	out := stem + "_circuit_diagram.png"

	img, err := Render(c)
	if err != nil {
		return "", err
	}
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create diagram file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode diagram: %w", err)
	}
	return out, nil
}

// Render draws the circuit into an RGBA image.
func Render(c *Circuit) (*image.RGBA, error) {
	if c.NumQubits == 0 {
		return nil, fmt.Errorf("cannot draw a circuit with no qubits")
	}

	cols := assignColumns(c)
	nCols := 0
	for _, col := range cols {
		if col+1 > nCols {
			nCols = col + 1
		}
	}
	if nCols == 0 {
		nCols = 1
	}

	w := marginX + nCols*cellW + marginY
	h := 2*marginY + c.NumQubits*cellH
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{bgColor}, image.Point{}, draw.Src)

	labels := c.QubitLabels()
	for q := 0; q < c.NumQubits; q++ {
		y := wireY(q)
		drawHLine(img, marginX-labelPad, w-marginY, y, wireColor)
		drawString(img, 6, y+4, labels[q])
	}

	for i, g := range c.Gates {
		if g.Name == "barrier" {
			continue
		}
		drawGate(img, g, cols[i])
	}
	return img, nil
}

// assignColumns packs gates left to right using the same per-wire level
// bookkeeping as Depth, so the diagram width matches the circuit depth.
func assignColumns(c *Circuit) []int {
	levels := make([]int, c.NumQubits)
	cols := make([]int, len(c.Gates))
	for i, g := range c.Gates {
		if g.Name == "barrier" {
			cols[i] = -1
			continue
		}
		col := 0
		for _, q := range g.Qubits {
			if levels[q] > col {
				col = levels[q]
			}
		}
		cols[i] = col
		for _, q := range g.Qubits {
			levels[q] = col + 1
		}
	}
	return cols
}

func wireY(q int) int  { return marginY + q*cellH + cellH/2 }
func colX(col int) int { return marginX + col*cellW + cellW/2 }

func drawGate(img *image.RGBA, g Gate, col int) {
	x := colX(col)
	target := g.Qubits[len(g.Qubits)-1]

	// Vertical connector spanning all wires the gate touches.
	if len(g.Qubits) > 1 {
		minQ, maxQ := g.Qubits[0], g.Qubits[0]
		for _, q := range g.Qubits {
			if q < minQ {
				minQ = q
			}
			if q > maxQ {
				maxQ = q
			}
		}
		drawVLine(img, x, wireY(minQ), wireY(maxQ), boxEdge)
	}

	switch g.Name {
	case "measure":
		drawBox(img, x, wireY(target), measFill, boxEdge)
		drawStringCentered(img, x, wireY(target)+4, "M")
	case "swap":
		drawCross(img, x, wireY(g.Qubits[0]))
		drawCross(img, x, wireY(g.Qubits[1]))
	case "cx", "ccx":
		for _, ctrl := range g.Qubits[:len(g.Qubits)-1] {
			drawDot(img, x, wireY(ctrl))
		}
		drawTarget(img, x, wireY(target))
	default:
		for _, ctrl := range g.Qubits[:len(g.Qubits)-1] {
			drawDot(img, x, wireY(ctrl))
		}
		drawBox(img, x, wireY(target), boxFill, boxEdge)
		drawStringCentered(img, x, wireY(target)+4, gateLabel(g))
	}
}

func gateLabel(g Gate) string {
	label := strings.ToUpper(g.Name)
	switch g.Name {
	case "cx":
		label = "X"
	case "cy":
		label = "Y"
	case "cz":
		label = "Z"
	case "ch":
		label = "H"
	case "crz":
		label = "RZ"
	case "cp":
		label = "P"
	case "sdg":
		label = "S†"
	case "tdg":
		label = "T†"
	}
	// Truncate by runes so the dagger labels do not get cut mid-character.
	if r := []rune(label); len(r) > 3 {
		label = string(r[:3])
	}
	return label
}

func drawHLine(img *image.RGBA, x0, x1, y int, c color.Color) {
	for x := x0; x <= x1; x++ {
		img.Set(x, y, c)
	}
}

func drawVLine(img *image.RGBA, x, y0, y1 int, c color.Color) {
	for y := y0; y <= y1; y++ {
		img.Set(x, y, c)
	}
}

func drawBox(img *image.RGBA, cx, cy int, fill, edge color.Color) {
	half := boxSize / 2
	for y := cy - half; y <= cy+half; y++ {
		for x := cx - half; x <= cx+half; x++ {
			onEdge := x == cx-half || x == cx+half || y == cy-half || y == cy+half
			if onEdge {
				img.Set(x, y, edge)
			} else {
				img.Set(x, y, fill)
			}
		}
	}
}

func drawDot(img *image.RGBA, cx, cy int) {
	for y := -dotR; y <= dotR; y++ {
		for x := -dotR; x <= dotR; x++ {
			if x*x+y*y <= dotR*dotR {
				img.Set(cx+x, cy+y, boxEdge)
			}
		}
	}
}

// drawTarget draws the ⊕ symbol used for CNOT targets.
func drawTarget(img *image.RGBA, cx, cy int) {
	for y := -targetR; y <= targetR; y++ {
		for x := -targetR; x <= targetR; x++ {
			d := x*x + y*y
			if d <= targetR*targetR && d >= (targetR-1)*(targetR-1) {
				img.Set(cx+x, cy+y, boxEdge)
			}
		}
	}
	drawHLine(img, cx-targetR, cx+targetR, cy, boxEdge)
	drawVLine(img, cx, cy-targetR, cy+targetR, boxEdge)
}

func drawCross(img *image.RGBA, cx, cy int) {
	for d := -6; d <= 6; d++ {
		img.Set(cx+d, cy+d, boxEdge)
		img.Set(cx+d, cy-d, boxEdge)
	}
}

func drawString(img *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{textColor},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func drawStringCentered(img *image.RGBA, cx, y int, s string) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	drawString(img, cx-w/2, y, s)
}
