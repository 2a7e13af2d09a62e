package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar renders completion of a counted task, such as frames of a
// timed play session.
type ProgressBar struct {
	w       io.Writer
	title   string
	unit    func(int64) string
	total   int64
	current int64
	width   int
	mu      sync.Mutex
}

// NewProgressBar creates a bar that prints plain counts.
func NewProgressBar(w io.Writer, title string) *ProgressBar {
	return &ProgressBar{
		w:     w,
		title: title,
		unit:  func(n int64) string { return fmt.Sprintf("%d", n) },
		width: 30,
	}
}

// WithBytes prints counts as byte sizes.
func (p *ProgressBar) WithBytes() *ProgressBar {
	p.unit = FormatBytes
	return p
}

// Update sets the progress and redraws.
func (p *ProgressBar) Update(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.total = total
	p.render()
}

// Finish fills the bar and ends the line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total > 0 {
		p.current = p.total
	}
	p.render()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render() {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %s", p.title, p.unit(p.current))
		return
	}
	ratio := min(float64(p.current)/float64(p.total), 1)
	filled := int(float64(p.width) * ratio)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", p.width-filled)
	fmt.Fprintf(p.w, "\r%s [%s] %3.0f%% (%s/%s)",
		p.title, bar, ratio*100, p.unit(p.current), p.unit(p.total))
}

// FormatBytes formats a byte count with binary units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
