package components

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Writer writes HTML fragments and keeps the first error.
type Writer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func NewWriter(ctx context.Context, w io.Writer) *Writer {
	return &Writer{ctx: ctx, w: w}
}

// Raw writes trusted markup.
func (h *Writer) Raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// Text writes escaped text.
func (h *Writer) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Attr writes name="value" with the value escaped, preceded by a space.
func (h *Writer) Attr(name, value string) {
	h.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// Render writes a nested component into the same stream.
func (h *Writer) Render(c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

func (h *Writer) Err() error { return h.err }

// Func adapts a writer-based body to templ.Component.
func Func(body func(h *Writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := NewWriter(ctx, w)
		body(h)
		return h.Err()
	})
}
