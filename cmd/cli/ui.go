package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// UI styling constants, carried over from the teacher's cmd/cli/ui.go
// color palette and panel/header/status style set.
var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#06B6D4")
	accentColor    = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	textColor      = lipgloss.Color("#F8FAFC")
	mutedColor     = lipgloss.Color("#94A3B8")

	baseStyle = lipgloss.NewStyle().
			Foreground(textColor)

	basePanelStyle = baseStyle.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			Margin(1, 0)

	headerStyle = baseStyle.
			Foreground(primaryColor).
			Bold(true).
			Align(lipgloss.Center)

	cellAgentStyle = baseStyle.
			Bold(true).
			Foreground(accentColor)

	cellWallStyle = baseStyle.
			Foreground(mutedColor)

	activeStyle = baseStyle.
			Foreground(accentColor).
			Bold(true)

	inactiveStyle = baseStyle.
			Foreground(mutedColor)
)

// UI renders one episode's grid and stats snapshot to the terminal, the
// way the teacher's UI renders a game's resource/production panels.
type UI struct {
	termWidth  int
	termHeight int
}

// NewUI creates a UI sized to the current terminal.
func NewUI() *UI {
	ui := &UI{}
	ui.updateTerminalSize()
	return ui
}

func (ui *UI) updateTerminalSize() {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width, height, err = term.GetSize(int(os.Stderr.Fd()))
	}
	if err != nil {
		if cols := os.Getenv("COLUMNS"); cols != "" {
			if w, parseErr := strconv.Atoi(cols); parseErr == nil {
				width = w
			}
		}
		if rows := os.Getenv("LINES"); rows != "" {
			if h, parseErr := strconv.Atoi(rows); parseErr == nil {
				height = h
			}
		}
	}
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 40
	}
	ui.termWidth = width
	ui.termHeight = height
}

// RenderGrid draws a text grid, one glyph per cell, from a sparse
// row/col->glyph map built by the caller from an objects snapshot.
func (ui *UI) RenderGrid(width, height int, glyphs map[[2]int]rune) string {
	var b strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			g, ok := glyphs[[2]int{row, col}]
			if !ok {
				b.WriteRune('.')
				continue
			}
			b.WriteRune(g)
		}
		b.WriteByte('\n')
	}
	return basePanelStyle.Width(width + 4).Render(b.String())
}

// RenderHeader renders the episode id and current step.
func (ui *UI) RenderHeader(episodeID string, step int) string {
	return headerStyle.Render(fmt.Sprintf("episode %s — step %d", episodeID, step))
}

// RenderStats renders a compact per-agent stats table.
func (ui *UI) RenderStats(agents []AgentStatsView) string {
	var lines []string
	for _, a := range agents {
		style := activeStyle
		status := "alive"
		if !a.Alive {
			style = inactiveStyle
			status = "done"
		}
		lines = append(lines, style.Render(fmt.Sprintf(
			"agent %-3d  reward=%7.3f  episode_reward=%8.3f  %s",
			a.AgentIndex, a.LastReward, a.EpisodeReward, status,
		)))
	}
	return basePanelStyle.Render(strings.Join(lines, "\n"))
}

// AgentStatsView mirrors controlapi.AgentStatsDTO, duplicated here to keep
// the CLI a standalone client with no import of the server's internal
// packages (it only ever talks to the control API over HTTP/websocket).
type AgentStatsView struct {
	AgentIndex    int
	LastReward    float32
	EpisodeReward float32
	Alive         bool
}

// RenderMessage renders a one-line status/error banner.
func (ui *UI) RenderMessage(msgType, message string) string {
	style := baseStyle
	switch msgType {
	case "error":
		style = style.Foreground(errorColor)
	case "warning":
		style = style.Foreground(warningColor)
	case "success":
		style = style.Foreground(accentColor)
	}
	return style.Render(message)
}

// ClearScreen clears the terminal, as the teacher's UI does between redraws.
func (ui *UI) ClearScreen() {
	fmt.Print("\033[H\033[2J")
}
