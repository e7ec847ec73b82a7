package canvas

import (
	"sort"

	"github.com/open-teleop/console/pkg/joystick"
)

var _ joystick.Host = (*Document)(nil)

// Document is the set of canvases known to the console together with their
// pointer listeners. It is driven from the console event loop and is not
// safe for concurrent use.
type Document struct {
	touch     bool
	canvases  map[string]*Raster
	listeners map[string][]func(joystick.PointerEvent)
}

// NewDocument creates an empty document. touch selects the input family
// widgets will listen to.
func NewDocument(touch bool) *Document {
	return &Document{
		touch:     touch,
		canvases:  make(map[string]*Raster),
		listeners: make(map[string][]func(joystick.PointerEvent)),
	}
}

// AddCanvas creates (or returns the existing) canvas with the given id.
func (d *Document) AddCanvas(id string) *Raster {
	if r, ok := d.canvases[id]; ok {
		return r
	}
	r := NewRaster(1, 1)
	d.canvases[id] = r
	return r
}

// Canvas implements joystick.Host.
func (d *Document) Canvas(id string) (joystick.Surface, bool) {
	r, ok := d.canvases[id]
	if !ok {
		return nil, false
	}
	return r, true
}

// Raster returns the concrete surface for id.
func (d *Document) Raster(id string) (*Raster, bool) {
	r, ok := d.canvases[id]
	return r, ok
}

// IDs returns the canvas ids in lexical order.
func (d *Document) IDs() []string {
	ids := make([]string, 0, len(d.canvases))
	for id := range d.canvases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TouchSupported implements joystick.Host.
func (d *Document) TouchSupported() bool {
	return d.touch
}

// Listen implements joystick.Host.
func (d *Document) Listen(id string, handler func(joystick.PointerEvent)) {
	d.listeners[id] = append(d.listeners[id], handler)
}

// Dispatch delivers ev to every listener of canvas id. It reports whether
// anyone was listening.
func (d *Document) Dispatch(id string, ev joystick.PointerEvent) bool {
	handlers := d.listeners[id]
	for _, h := range handlers {
		h(ev)
	}
	return len(handlers) > 0
}
