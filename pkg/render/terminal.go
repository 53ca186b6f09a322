package render

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const halfBlock = "▀"

func hex(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// Terminal draws src as lines of half blocks, two cells per character. An
// odd last row leaves the lower halves empty.
func Terminal(src Source, maxIteration uint32, g *Gradient) string {
	var sb strings.Builder
	for y := 0; y < src.Height(); y += 2 {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := range src.Width() {
			style := lipgloss.NewStyle().Foreground(hex(pixel(src, x, y, maxIteration, g)))
			if y+1 < src.Height() {
				style = style.Background(hex(pixel(src, x, y+1, maxIteration, g)))
			}
			sb.WriteString(style.Render(halfBlock))
		}
	}
	return sb.String()
}
