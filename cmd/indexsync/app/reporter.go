package app

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// reporter renders workflow outcomes as styled lines.
type reporter struct {
	mu  sync.Mutex
	out io.Writer
}

func newReporter(out io.Writer) *reporter { return &reporter{out: out} }

func (r *reporter) Info(msg string)    { r.line(infoStyle, "i", msg) }
func (r *reporter) Success(msg string) { r.line(successStyle, "✓", msg) }
func (r *reporter) Warning(msg string) { r.line(warningStyle, "!", msg) }
func (r *reporter) Error(msg string)   { r.line(errorStyle, "✗", msg) }

func (r *reporter) line(style lipgloss.Style, mark, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, style.Render(mark+" "+msg))
}

const barWidth = 30

// progress draws a single-line bar on a terminal stream.
type progress struct {
	out     io.Writer
	total   int
	current int
}

func newProgress(out io.Writer) *progress { return &progress{out: out} }

func (p *progress) Start(total int) {
	p.total, p.current = total, 0
	p.draw()
}

func (p *progress) Advance() {
	if p.current < p.total {
		p.current++
	}
	p.draw()
}

func (p *progress) Finish() {
	if p.total > 0 {
		fmt.Fprintln(p.out)
	}
	p.total, p.current = 0, 0
}

func (p *progress) draw() {
	if p.total <= 0 {
		return
	}
	filled := p.current * barWidth / p.total
	bar := barStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(p.out, "\r%s %d/%d", bar, p.current, p.total)
}
