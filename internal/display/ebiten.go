package display

import (
	"image"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/pion/logging"

	"github.com/junsooki/framecap/internal/frame"
)

// KeyCallback is called on the game goroutine when a watched key is pressed.
type KeyCallback func(key ebiten.Key)

// Options configures an EbitenDisplay.
type Options struct {
	Title  string
	Width  int
	Height int
	// Keys lists the keys reported to OnKey.
	Keys  []ebiten.Key
	OnKey KeyCallback
	// Tick, when set, runs once per game update before input handling.
	Tick func() error
}

// EbitenDisplay draws a FrameSource in an Ebitengine window and is a
// capture host for that window: end-of-frame tasks run right after Draw.
type EbitenDisplay struct {
	*frame.Queue

	opts   Options
	source FrameSource
	log    logging.LeveledLogger

	ebitenImage *ebiten.Image

	mu      sync.Mutex
	screenW int
	screenH int
}

// NewEbitenDisplay creates an Ebitengine-based display of source.
func NewEbitenDisplay(source FrameSource, opts Options, lf logging.LoggerFactory) *EbitenDisplay {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 720
	}
	if opts.Title == "" {
		opts.Title = "framecap"
	}
	return &EbitenDisplay{
		Queue:   frame.NewQueue(),
		opts:    opts,
		source:  source,
		log:     lf.NewLogger("display"),
		screenW: opts.Width,
		screenH: opts.Height,
	}
}

// Size implements capture.Surface. It reports the screen size of the last
// layout pass.
func (d *EbitenDisplay) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screenW, d.screenH
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (d *EbitenDisplay) Run() error {
	ebiten.SetWindowSize(d.opts.Width, d.opts.Height)
	ebiten.SetWindowTitle(d.opts.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(d)
}

// --- ebiten.Game interface ---

// Update runs Tick and reports watched keys.
func (d *EbitenDisplay) Update() error {
	if d.opts.Tick != nil {
		if err := d.opts.Tick(); err != nil {
			return err
		}
	}
	d.handleKeys()
	return nil
}

// Draw shows the current frame, then runs end-of-frame tasks on screen.
func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	d.drawFrame(screen)
	if ran := d.EndFrame(ebitenFrame{screen: screen}); ran > 0 {
		d.log.Tracef("frame %d: ran %d end-of-frame tasks", d.Frames(), ran)
	}
}

// Layout keeps the screen at the window size and records it for Size.
func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	d.mu.Lock()
	d.screenW, d.screenH = outsideWidth, outsideHeight
	d.mu.Unlock()
	return outsideWidth, outsideHeight
}

func (d *EbitenDisplay) drawFrame(screen *ebiten.Image) {
	if d.source == nil {
		return
	}
	img := d.source.CurrentFrame()
	if img == nil {
		return
	}
	fw, fh := img.Bounds().Dx(), img.Bounds().Dy()
	if fw == 0 || fh == 0 {
		return
	}

	if d.ebitenImage == nil ||
		d.ebitenImage.Bounds().Dx() != fw ||
		d.ebitenImage.Bounds().Dy() != fh {
		d.ebitenImage = ebiten.NewImage(fw, fh)
	}
	d.ebitenImage.WritePixels(img.Pix)

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), float64(fw), float64(fh))

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(d.ebitenImage, op)
}

func (d *EbitenDisplay) handleKeys() {
	if d.opts.OnKey == nil {
		return
	}
	for _, k := range d.opts.Keys {
		if inpututil.IsKeyJustPressed(k) {
			d.opts.OnKey(k)
		}
	}
}

// ebitenFrame reads back the screen image after Draw.
type ebitenFrame struct {
	screen *ebiten.Image
}

func (f ebitenFrame) Size() (int, int) {
	b := f.screen.Bounds()
	return b.Dx(), b.Dy()
}

func (f ebitenFrame) ReadRGBA(r image.Rectangle, dst *image.RGBA) error {
	sub := f.screen.SubImage(r.Add(f.screen.Bounds().Min)).(*ebiten.Image)
	sub.ReadPixels(dst.Pix)
	return nil
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
