//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"tickos/internal/buildinfo"
	"tickos/kernel"
	"tickos/trace"
)

// RunWindow starts a desktop window showing the LED panel and an event log
// while the app runs on a host board. Keys M, B, U and H inject a MemManage,
// Bus, Usage or Hard fault; S logs a task table snapshot. It blocks until
// the window closes.
func RunWindow(newApp NewApp, cfg WindowConfig) error {
	g := &hostGame{con: newConsole()}
	user := cfg.Host.OnOutput
	cfg.Host.OnOutput = func(e OutputEvent) {
		g.outputs.TryPush(e)
		if user != nil {
			user(e)
		}
	}
	h, err := NewHost(cfg.Host)
	if err != nil {
		return err
	}
	s, err := newApp(h)
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}
	g.h, g.s = h, s

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.result = make(chan error, 1)
	go func() { g.result <- h.Boot(ctx, s.Start) }()

	ebiten.SetWindowTitle("tickos (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(screenWidth*2, screenHeight*2)
	ebiten.SetTPS(30)
	err = ebiten.RunGame(g)
	cancel()
	bootErr := <-g.result
	if errors.Is(err, ebiten.Termination) {
		err = nil
	}
	if err == nil && !errors.Is(bootErr, context.Canceled) {
		err = bootErr
	}
	return err
}

type hostGame struct {
	h   *Host
	s   *kernel.Scheduler
	con *console

	outputs trace.Ring[OutputEvent]
	result  chan error
	stopped bool

	img   *image.RGBA
	fbImg *ebiten.Image
}

var faultKeys = map[ebiten.Key]kernel.FaultKind{
	ebiten.KeyM: kernel.FaultMemManage,
	ebiten.KeyB: kernel.FaultBus,
	ebiten.KeyU: kernel.FaultUsage,
	ebiten.KeyH: kernel.FaultHard,
}

func (g *hostGame) Update() error {
	g.outputs.Drain(func(e OutputEvent) {
		state := "off"
		if e.On {
			state = "on"
		}
		g.con.println(fmt.Sprintf("%7d %s %s", e.Tick, LEDNames[e.Channel], state))
	})

	status := fmt.Sprintf("tick %d", g.h.Core().Ticks())
	select {
	case <-g.h.Core().Done():
		if !g.stopped {
			g.stopped = true
			g.con.println("core stopped")
		}
		status += " (stopped)"
	default:
		for key, kind := range faultKeys {
			if inpututil.IsKeyJustPressed(key) {
				g.con.println("inject " + kind.String())
				g.h.Core().InjectFault(kind)
			}
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyS) {
			var snap kernel.Snapshot
			if err := g.h.Core().Inject(func() { snap = g.s.Snapshot() }); err == nil {
				for _, l := range snapshotLines(snap) {
					g.con.println(l)
				}
			}
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	g.con.drawPanel(g.h.Levels(), status)
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.con.fb
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	src := fb.buf
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}
