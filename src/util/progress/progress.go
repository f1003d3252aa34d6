package progress

import (
	"fmt"
	"io"
	"time"
)

// Writer wraps an io.Writer and periodically reports the byte count to
// out. The transfer size is unknown up front (the stream is compressed
// remotely), so only the running total is shown.
type Writer struct {
	w           io.Writer
	out         io.Writer
	label       string
	written     int64
	lastPrinted time.Time
}

func NewWriter(w io.Writer, label string, out io.Writer) *Writer {
	return &Writer{w: w, out: out, label: label}
}

func (p *Writer) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.written += int64(n)
		now := time.Now()
		if now.Sub(p.lastPrinted) >= 200*time.Millisecond {
			p.print()
			p.lastPrinted = now
		}
	}
	return n, err
}

// Written returns the total number of bytes written so far.
func (p *Writer) Written() int64 { return p.written }

// Finish prints the final count and a newline.
func (p *Writer) Finish() {
	if p.out == nil {
		return
	}
	p.print()
	fmt.Fprint(p.out, "\n")
}

func (p *Writer) print() {
	if p.out == nil {
		return
	}
	fmt.Fprintf(p.out, "\r[%s] %d bytes", p.label, p.written)
}
