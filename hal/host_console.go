//go:build !tinygo

package hal

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// Window framebuffer geometry.
const (
	screenWidth  = 320
	screenHeight = 240
	panelHeight  = 64
)

var (
	colorBG     = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	colorPanel  = color.RGBA{R: 0x18, G: 0x18, B: 0x18, A: 0xff}
	colorFG     = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorLEDOff = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}

	ledColors = [LEDCount]color.RGBA{
		LEDGreen:  {R: 0x20, G: 0xd0, B: 0x40, A: 0xff},
		LEDOrange: {R: 0xff, G: 0x8c, B: 0x00, A: 0xff},
		LEDRed:    {R: 0xe0, G: 0x10, B: 0x10, A: 0xff},
		LEDBlue:   {R: 0x20, G: 0x60, B: 0xff, A: 0xff},
	}
)

// framebuffer is an RGB565 pixel buffer. It is drawn and read on the window
// loop goroutine only.
type framebuffer struct {
	width  int
	height int
	stride int
	buf    []byte
}

func newFramebuffer(width, height int) *framebuffer {
	return &framebuffer{
		width:  width,
		height: height,
		stride: width * 2,
		buf:    make([]byte, width*2*height),
	}
}

// view is a drivers.Displayer over rows [top, top+height) of a framebuffer.
type view struct {
	fb     *framebuffer
	top    int
	height int
	scroll int
}

func (v *view) Size() (x, y int16) { return int16(v.fb.width), int16(v.height) }

func (v *view) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= v.fb.width || iy < 0 || iy >= v.height {
		return
	}
	p := rgb565(c.R, c.G, c.B)
	off := (v.top+iy)*v.fb.stride + ix*2
	v.fb.buf[off] = byte(p)
	v.fb.buf[off+1] = byte(p >> 8)
}

func (v *view) Display() error { return nil }

func (v *view) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	x0 := clampInt(int(x), 0, v.fb.width)
	y0 := clampInt(int(y), 0, v.height)
	x1 := clampInt(int(x)+int(width), 0, v.fb.width)
	y1 := clampInt(int(y)+int(height), 0, v.height)

	p := rgb565(c.R, c.G, c.B)
	lo, hi := byte(p), byte(p>>8)
	for py := y0; py < y1; py++ {
		row := (v.top + py) * v.fb.stride
		for px := x0; px < x1; px++ {
			v.fb.buf[row+px*2] = lo
			v.fb.buf[row+px*2+1] = hi
		}
	}
	return nil
}

// SetScroll sets the first row shown, as a display's vertical scroll
// start address does. Drawing keeps using unscrolled rows.
func (v *view) SetScroll(line int16) {
	if v.height > 0 {
		v.scroll = (int(line)%v.height + v.height) % v.height
	}
}

// blit copies the view into dst starting at row top, applying the scroll.
func (v *view) blit(dst *framebuffer, top int) {
	for r := 0; r < v.height; r++ {
		src := (v.top + (v.scroll+r)%v.height) * v.fb.stride
		d := (top + r) * dst.stride
		copy(dst.buf[d:d+dst.stride], v.fb.buf[src:src+v.fb.stride])
	}
}

func (v *view) SetRotation(rotation drivers.Rotation) error { return nil }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// console is the window content: an LED panel with a status line on top
// and a scrolling event log below. The log draws into its own buffer and is
// copied into place after every write.
type console struct {
	fb    *framebuffer
	panel *view
	log   *view
	term  *tinyterm.Terminal
	font  *tinyfont.Font
}

func newConsole() *console {
	fb := newFramebuffer(screenWidth, screenHeight)
	c := &console{
		fb:    fb,
		panel: &view{fb: fb, top: 0, height: panelHeight},
		log:   &view{fb: newFramebuffer(screenWidth, screenHeight-panelHeight), height: screenHeight - panelHeight},
		font:  &proggy.TinySZ8pt7b,
	}
	c.log.FillRectangle(0, 0, screenWidth, int16(c.log.height), colorBG)
	c.term = tinyterm.NewTerminal(c.log)
	c.term.Configure(&tinyterm.Config{
		Font:       c.font,
		FontHeight: 10,
		FontOffset: 6,
	})
	c.log.blit(fb, panelHeight)
	return c
}

// drawPanel paints one lamp per LED with its name, and the status line.
func (c *console) drawPanel(lit []bool, status string) {
	c.panel.FillRectangle(0, 0, screenWidth, panelHeight, colorPanel)
	const lampW, lampH, gap = 56, 22, 20
	for ch := 0; ch < LEDCount; ch++ {
		x := int16(gap/2 + ch*(lampW+gap))
		col := colorLEDOff
		if ch < len(lit) && lit[ch] {
			col = ledColors[ch]
		}
		c.panel.FillRectangle(x, 8, lampW, lampH, col)
		tinyfont.WriteLine(c.panel, c.font, x, 8+lampH+12, LEDNames[ch], colorFG)
	}
	tinyfont.WriteLine(c.panel, c.font, gap/2, panelHeight-4, status, colorFG)
}

// println appends a line to the event log.
func (c *console) println(s string) {
	c.term.Write([]byte("\r\n" + s))
	c.log.blit(c.fb, panelHeight)
}
