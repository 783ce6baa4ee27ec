package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mcdev12/reaction/go/internal/reaction/render"
	"github.com/mcdev12/reaction/go/internal/reaction/round"
)

const cursorHome = "\x1b[H"

// SizeFunc reports the terminal width and height
type SizeFunc func() (width, height int, err error)

// Screen paints render payloads as one full-screen bordered block
type Screen struct {
	w        io.Writer
	size     SizeFunc
	renderer *lipgloss.Renderer
}

func NewScreen(w io.Writer, size SizeFunc) *Screen {
	return &Screen{
		w:        w,
		size:     size,
		renderer: lipgloss.NewRenderer(w),
	}
}

// Show paints the projection of a round state
func (s *Screen) Show(state round.State) error {
	return s.Paint(render.Project(state))
}

// Paint draws a payload over the whole terminal
func (s *Screen) Paint(p render.Payload) error {
	width, height, err := s.size()
	if err != nil {
		return fmt.Errorf("terminal size: %w", err)
	}

	// Raw mode disables output post-processing, so lines need an explicit CR
	frame := strings.ReplaceAll(s.Frame(p, width, height), "\n", "\r\n")
	if _, err := io.WriteString(s.w, cursorHome+frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Frame lays out a payload for a terminal of the given size
func (s *Screen) Frame(p render.Payload, width, height int) string {
	bg := color(p.Background)

	rows := make([]string, 0, len(p.Lines)+2)
	rows = append(rows,
		s.renderer.NewStyle().Bold(true).Foreground(color(render.White)).Background(bg).Render(p.Title),
		"",
	)
	for _, l := range p.Lines {
		rows = append(rows, s.renderer.NewStyle().Foreground(color(l.Foreground)).Background(bg).Render(l.Text))
	}

	// Border takes one cell on each side
	return s.renderer.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(color(render.White)).
		BorderBackground(bg).
		Background(bg).
		Foreground(color(render.White)).
		Width(max(width-2, 1)).
		Height(max(height-2, 1)).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
}

// color maps payload colours onto the basic ANSI palette
func color(c render.Color) lipgloss.Color {
	switch c {
	case render.Black:
		return lipgloss.Color("0")
	case render.Red:
		return lipgloss.Color("1")
	case render.Green:
		return lipgloss.Color("2")
	case render.Blue:
		return lipgloss.Color("4")
	default:
		return lipgloss.Color("7")
	}
}
