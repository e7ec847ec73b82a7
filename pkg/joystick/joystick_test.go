package joystick

import (
	"errors"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/open-teleop/console/pkg/dof"
	"github.com/open-teleop/console/pkg/geom"
	customlog "github.com/open-teleop/console/pkg/log"
)

type drawOp struct {
	kind       string
	x, y, w, h float64
	c          color.Color
}

type recordingSurface struct {
	width, height int
	ops           []drawOp
}

func (s *recordingSurface) Resize(w, h int) { s.width, s.height = w, h }
func (s *recordingSurface) FillRect(x, y, w, h float64, c color.Color) {
	s.ops = append(s.ops, drawOp{"fillRect", x, y, w, h, c})
}
func (s *recordingSurface) StrokeRect(x, y, w, h, lw float64, c color.Color) {
	s.ops = append(s.ops, drawOp{"strokeRect", x, y, w, h, c})
}
func (s *recordingSurface) FillCircle(cx, cy, r float64, c color.Color) {
	s.ops = append(s.ops, drawOp{"fillCircle", cx, cy, r, r, c})
}

type fakeHost struct {
	touch     bool
	surfaces  map[string]*recordingSurface
	listeners map[string]func(PointerEvent)
}

func newFakeHost(touch bool, ids ...string) *fakeHost {
	h := &fakeHost{touch: touch, surfaces: map[string]*recordingSurface{}, listeners: map[string]func(PointerEvent){}}
	for _, id := range ids {
		h.surfaces[id] = &recordingSurface{}
	}
	return h
}

func (h *fakeHost) Canvas(id string) (Surface, bool) {
	s, ok := h.surfaces[id]
	if !ok {
		return nil, false
	}
	return s, true
}
func (h *fakeHost) TouchSupported() bool { return h.touch }
func (h *fakeHost) Listen(id string, fn func(PointerEvent)) {
	h.listeners[id] = fn
}

type recordingSink struct {
	positions []geom.Position
}

func (s *recordingSink) OnPositionChanged(p geom.Position) {
	s.positions = append(s.positions, p)
}

var (
	bg         = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	constraint = color.RGBA{R: 0xff, G: 0xc6, B: 0x53, A: 0xff}
	nipple     = color.RGBA{R: 0xff, G: 0xaa, A: 0xff}
)

func testLogger() customlog.Logger {
	l, _ := test.NewNullLogger()
	return customlog.NewFromLogrus(l)
}

func testConfig(mode Mode, spring, indicator bool) Config {
	return Config{
		CanvasID:        "js",
		Width:           200,
		Height:          200,
		DofX:            dof.Turn,
		DofY:            dof.Forward,
		Mode:            mode,
		CenterSpring:    spring,
		Indicator:       indicator,
		BackgroundColor: bg,
		ConstraintColor: constraint,
		NippleColor:     nipple,
	}
}

func newTestJoystick(t *testing.T, cfg Config, touch bool) (*Joystick, *fakeHost, *recordingSink) {
	t.Helper()
	host := newFakeHost(touch, cfg.CanvasID)
	sink := &recordingSink{}
	j, err := New(cfg, host, sink, testLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return j, host, sink
}

func TestNewMissingCanvas(t *testing.T) {
	host := newFakeHost(false)
	_, err := New(testConfig(Rect, false, false), host, nil, testLogger())
	if err == nil {
		t.Fatalf("Expected error for missing canvas")
	}
	if !errors.Is(err, ErrCanvasNotFound) {
		t.Errorf("Expected ErrCanvasNotFound, got %v", err)
	}
}

func TestNewResizesRendersAndListens(t *testing.T) {
	cfg := testConfig(Rect, false, true)
	cfg.Width, cfg.Height = 350, 200
	j, host, sink := newTestJoystick(t, cfg, false)

	s := host.surfaces["js"]
	if s.width != 350 || s.height != 200 {
		t.Errorf("Expected canvas resized to 350x200, got %dx%d", s.width, s.height)
	}
	if len(s.ops) == 0 {
		t.Errorf("Expected an initial render")
	}
	if host.listeners["js"] == nil {
		t.Errorf("Expected widget to listen for pointer events")
	}
	if j.Family() != Mouse {
		t.Errorf("Expected mouse family without touch support")
	}
	if len(sink.positions) != 0 {
		t.Errorf("Construction must not report positions, got %v", sink.positions)
	}
}

func TestPositionMapping(t *testing.T) {
	j, _, sink := newTestJoystick(t, testConfig(Rect, false, false), false)

	// Canvas centre maps to the origin, the top-right canvas corner to
	// (+1.3, +1.3) which is clamped to (1, 1).
	j.OnPointerDown(geom.Point{X: 100, Y: 100})
	j.OnPointerMove(geom.Point{X: 200, Y: 0})
	j.OnPointerMove(geom.Point{X: 100 + 100/1.3*0.5, Y: 100 + 100/1.3*0.25})

	want := []geom.Position{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0.5, Y: -0.25}}
	if len(sink.positions) != len(want) {
		t.Fatalf("Expected %d positions, got %d", len(want), len(sink.positions))
	}
	for i, w := range want {
		got := sink.positions[i]
		if math.Abs(got.X-w.X) > 1e-9 || math.Abs(got.Y-w.Y) > 1e-9 {
			t.Errorf("Position %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestRectModeBounds(t *testing.T) {
	j, _, _ := newTestJoystick(t, testConfig(Rect, false, false), false)
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		pt := geom.Point{X: r.Float64()*600 - 200, Y: r.Float64()*600 - 200}
		j.OnPointerDown(pt)
		p := j.Position()
		if p.X < -1 || p.X > 1 || p.Y < -1 || p.Y > 1 {
			t.Fatalf("Pointer %v produced out-of-range position %v", pt, p)
		}
	}
}

func TestCircleModeBounds(t *testing.T) {
	j, _, _ := newTestJoystick(t, testConfig(Circle, false, false), false)
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 500; i++ {
		pt := geom.Point{X: r.Float64()*600 - 200, Y: r.Float64()*600 - 200}
		raw := geom.Position{
			X: geom.LinearMap(pt.X, 0, 200, -Scaling, Scaling),
			Y: geom.LinearMap(pt.Y, 200, 0, -Scaling, Scaling),
		}
		j.OnPointerDown(pt)
		p := j.Position()
		if p.Norm() > 1+1e-9 {
			t.Fatalf("Pointer %v produced position %v outside the unit disk", pt, p)
		}
		if raw.Norm() > 1 && math.Abs(p.Norm()-1) > 1e-9 {
			t.Fatalf("Pointer %v outside the disk should land on the unit circle, got norm %v", pt, p.Norm())
		}
	}
}

func TestCenterSpringRelease(t *testing.T) {
	j, _, sink := newTestJoystick(t, testConfig(Circle, true, false), false)

	j.OnPointerDown(geom.Point{X: 180, Y: 30})
	j.OnPointerUp()

	if j.Position() != geom.Origin {
		t.Errorf("Expected origin after release, got %v", j.Position())
	}
	if j.Held() {
		t.Errorf("Expected hold released")
	}
	last := sink.positions[len(sink.positions)-1]
	if last != geom.Origin {
		t.Errorf("Expected final callback with origin, got %v", last)
	}
}

func TestReleaseWithoutSpringKeepsPosition(t *testing.T) {
	j, _, sink := newTestJoystick(t, testConfig(Rect, false, false), false)

	j.OnPointerDown(geom.Point{X: 150, Y: 60})
	held := j.Position()
	j.OnPointerUp()

	if j.Position() != held {
		t.Errorf("Expected position %v preserved, got %v", held, j.Position())
	}
	if len(sink.positions) != 2 || sink.positions[1] != held {
		t.Errorf("Expected release callback with held position, got %v", sink.positions)
	}
}

func TestMoveWithoutHoldIgnored(t *testing.T) {
	j, _, sink := newTestJoystick(t, testConfig(Rect, false, false), false)
	j.OnPointerMove(geom.Point{X: 10, Y: 10})
	if len(sink.positions) != 0 {
		t.Errorf("Expected no callback for move without hold, got %v", sink.positions)
	}
}

func TestMouseEventDispatch(t *testing.T) {
	j, host, sink := newTestJoystick(t, testConfig(Rect, true, false), false)
	dispatch := host.listeners["js"]

	dispatch(PointerEvent{Type: MouseLeave})
	if len(sink.positions) != 0 {
		t.Fatalf("Leave without hold must be a no-op")
	}

	dispatch(PointerEvent{Type: MouseDown, Point: geom.Point{X: 150, Y: 100}})
	dispatch(PointerEvent{Type: MouseMove, Point: geom.Point{X: 160, Y: 100}})
	dispatch(PointerEvent{Type: TouchStart, Touches: []geom.Point{{X: 0, Y: 0}}})
	dispatch(PointerEvent{Type: MouseLeave})

	if len(sink.positions) != 3 {
		t.Fatalf("Expected down, move and release callbacks, got %v", sink.positions)
	}
	if j.Position() != geom.Origin {
		t.Errorf("Expected center spring on leave, got %v", j.Position())
	}
}

func TestTouchIgnoresMultiContact(t *testing.T) {
	j, host, sink := newTestJoystick(t, testConfig(Rect, false, false), true)
	dispatch := host.listeners["js"]

	if j.Family() != Touch {
		t.Fatalf("Expected touch family")
	}

	two := []geom.Point{{X: 10, Y: 10}, {X: 190, Y: 190}}
	dispatch(PointerEvent{Type: TouchStart, Touches: two})
	if j.Held() || len(sink.positions) != 0 {
		t.Fatalf("Multi-contact touchstart must be ignored")
	}

	dispatch(PointerEvent{Type: TouchStart, Touches: []geom.Point{{X: 150, Y: 100}}})
	pos := j.Position()
	dispatch(PointerEvent{Type: TouchMove, Touches: two})
	if j.Position() != pos {
		t.Errorf("Multi-contact touchmove must be ignored")
	}
	dispatch(PointerEvent{Type: MouseDown, Point: geom.Point{X: 0, Y: 0}})
	if j.Position() != pos {
		t.Errorf("Mouse events must be ignored by a touch widget")
	}
	dispatch(PointerEvent{Type: TouchEnd, Touches: []geom.Point{{X: 150, Y: 100}}})
	if j.Held() {
		t.Errorf("Expected touchend to release")
	}
	if len(sink.positions) != 2 {
		t.Errorf("Expected start and end callbacks, got %v", sink.positions)
	}
}

func TestRenderOrderAndIndicator(t *testing.T) {
	j, host, _ := newTestJoystick(t, testConfig(Rect, false, true), false)
	s := host.surfaces["js"]

	j.SetIndicator(geom.Position{X: 1, Y: -1})
	s.ops = nil
	j.Render()

	if len(s.ops) != 5 {
		t.Fatalf("Expected 5 draw operations for rect mode, got %d", len(s.ops))
	}
	kinds := []string{"fillRect", "strokeRect", "fillRect", "fillCircle", "fillCircle"}
	for i, k := range kinds {
		if s.ops[i].kind != k {
			t.Errorf("Op %d: expected %s, got %s", i, k, s.ops[i].kind)
		}
	}
	ind := s.ops[3]
	want := j.PointAt(geom.Position{X: 1, Y: -1})
	if ind.x != want.X || ind.y != want.Y || ind.c != bg {
		t.Errorf("Indicator drawn at (%v,%v) colour %v, expected %v in background colour", ind.x, ind.y, ind.c, want)
	}
	if s.ops[4].c != nipple {
		t.Errorf("Expected nipple drawn last in nipple colour")
	}
}

func TestIndicatorDisabledMirrorsPosition(t *testing.T) {
	j, host, _ := newTestJoystick(t, testConfig(Circle, false, false), false)
	s := host.surfaces["js"]

	j.SetIndicator(geom.Position{X: -1, Y: 0})
	j.OnPointerDown(geom.Point{X: 150, Y: 100})

	if j.Indicator() != j.Position() {
		t.Errorf("Expected indicator to mirror position, got %v vs %v", j.Indicator(), j.Position())
	}
	n := len(s.ops)
	ind, nip := s.ops[n-2], s.ops[n-1]
	if ind.x != nip.x || ind.y != nip.y {
		t.Errorf("Expected indicator drawn under the nipple")
	}
	if s.ops[n-4].kind != "fillRect" || s.ops[n-3].kind != "fillCircle" {
		t.Errorf("Expected circular constraint space in circle mode")
	}
}

func TestPointAtRoundTrip(t *testing.T) {
	cfg := testConfig(Rect, false, false)
	cfg.Width, cfg.Height = 300, 200
	j, _, _ := newTestJoystick(t, cfg, false)

	for _, p := range []geom.Position{{X: 0.3, Y: -0.7}, {X: -1, Y: 1}, {X: 0, Y: 0}} {
		j.OnPointerDown(j.PointAt(p))
		got := j.Position()
		if math.Abs(got.X-p.X) > 1e-9 || math.Abs(got.Y-p.Y) > 1e-9 {
			t.Errorf("PointAt(%v) mapped back to %v", p, got)
		}
	}
}

func TestSimulateIndicatorBoundedStep(t *testing.T) {
	j, _, _ := newTestJoystick(t, testConfig(Rect, false, true), false)
	j.OnPointerDown(j.PointAt(geom.Position{X: 1, Y: -0.02}))

	j.SimulateIndicator()
	got := j.Indicator()
	if math.Abs(got.X-maxIndicatorStep) > 1e-12 {
		t.Errorf("Expected x step of %v, got %v", maxIndicatorStep, got.X)
	}
	if math.Abs(got.Y-(-0.02)) > 1e-9 {
		t.Errorf("Expected y to reach target, got %v", got.Y)
	}
}
