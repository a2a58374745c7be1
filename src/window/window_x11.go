//go:build linux

package window

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"finalshot/src/logutil"
	"finalshot/src/screenshot"
)

type x11Lister struct{}

// NewSystem returns a Lister over the live desktop. Each List call opens its
// own X connection.
func NewSystem() Lister { return x11Lister{} }

func (x11Lister) List() ([]Info, error) {
	log := logutil.WithComponent("window-x11")
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer conn.Close()
	root := xproto.Setup(conn).DefaultScreen(conn).Root

	ids, err := clientList(conn, root)
	if err != nil {
		log.Debug().Err(err).Msg("EWMH client list unavailable, falling back to QueryTree")
		tree, terr := xproto.QueryTree(conn, root).Reply()
		if terr != nil {
			return nil, fmt.Errorf("query tree: %w", terr)
		}
		ids = tree.Children
	}

	out := make([]Info, 0, len(ids))
	// _NET_CLIENT_LIST is bottom-to-top; report topmost first.
	for i := len(ids) - 1; i >= 0; i-- {
		w := ids[i]
		attrs, err := xproto.GetWindowAttributes(conn, w).Reply()
		if err != nil || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		title := windowTitle(conn, w)
		if title == "" {
			continue
		}
		out = append(out, Info{ID: uint64(w), Title: title, Bounds: absoluteBounds(conn, root, w)})
	}
	return out, nil
}

func clientList(conn *xgb.Conn, root xproto.Window) ([]xproto.Window, error) {
	atom, err := internAtom(conn, "_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(conn, false, root, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, err
	}
	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("_NET_CLIENT_LIST is empty")
	}
	ids := make([]xproto.Window, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		ids = append(ids, xproto.Window(uint32(reply.Value[i])|
			uint32(reply.Value[i+1])<<8|
			uint32(reply.Value[i+2])<<16|
			uint32(reply.Value[i+3])<<24))
	}
	return ids, nil
}

func windowTitle(conn *xgb.Conn, w xproto.Window) string {
	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		atom, err := internAtom(conn, name)
		if err != nil {
			continue
		}
		reply, err := xproto.GetProperty(conn, false, w, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
		if err == nil && reply.ValueLen > 0 {
			return string(reply.Value)
		}
	}
	return ""
}

// absoluteBounds translates the window's origin into root coordinates;
// GetGeometry alone is relative to the reparenting frame.
func absoluteBounds(conn *xgb.Conn, root, w xproto.Window) screenshot.Region {
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(w)).Reply()
	if err != nil {
		return screenshot.Region{}
	}
	pos, err := xproto.TranslateCoordinates(conn, w, root, 0, 0).Reply()
	if err != nil {
		return screenshot.Region{}
	}
	return screenshot.Region{
		X:      int(pos.DstX),
		Y:      int(pos.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}
}

func internAtom(conn *xgb.Conn, name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	if reply.Atom == 0 {
		return 0, fmt.Errorf("atom %s not defined", name)
	}
	return reply.Atom, nil
}
