//go:build linux

package cursor

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xfixes"
)

// x11Source reads the pointer through the XFIXES extension. The connection
// is opened on first use and kept for the process lifetime.
type x11Source struct {
	once sync.Once
	conn *xgb.Conn
	err  error
}

// NewSystem returns the live pointer source for this platform.
func NewSystem() Source { return &x11Source{} }

func (s *x11Source) connect() error {
	s.once.Do(func() {
		conn, err := xgb.NewConn()
		if err != nil {
			s.err = fmt.Errorf("failed to connect to X server: %w", err)
			return
		}
		if err := xfixes.Init(conn); err != nil {
			conn.Close()
			s.err = fmt.Errorf("XFIXES extension not available: %w", err)
			return
		}
		// The server refuses XFIXES requests until the version is negotiated.
		if _, err := xfixes.QueryVersion(conn, 4, 0).Reply(); err != nil {
			conn.Close()
			s.err = fmt.Errorf("XFIXES version query: %w", err)
			return
		}
		s.conn = conn
	})
	return s.err
}

func (s *x11Source) Pointer() (Pointer, error) {
	if err := s.connect(); err != nil {
		return Pointer{}, err
	}
	reply, err := xfixes.GetCursorImage(s.conn).Reply()
	if err != nil {
		return Pointer{}, fmt.Errorf("GetCursorImage: %w", err)
	}
	w, h := int(reply.Width), int(reply.Height)
	if w == 0 || h == 0 || len(reply.CursorImage) < w*h {
		return Pointer{}, nil
	}
	return Pointer{
		Visible: true,
		Pos:     image.Pt(int(reply.X), int(reply.Y)),
		Hotspot: image.Pt(int(reply.Xhot), int(reply.Yhot)),
		Glyph:   argbToRGBA(reply.CursorImage, w, h),
	}, nil
}

// argbToRGBA converts XFIXES premultiplied ARGB words into an image.RGBA,
// which is premultiplied as well.
func argbToRGBA(words []uint32, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, px := range words[:w*h] {
		o := i * 4
		img.Pix[o+0] = uint8(px >> 16)
		img.Pix[o+1] = uint8(px >> 8)
		img.Pix[o+2] = uint8(px)
		img.Pix[o+3] = uint8(px >> 24)
	}
	return img
}
