// Package palette assigns a stable display color to every class id.
//
// Colors are indexed by class id + 1; index 0 is reserved for background
// and is always black. The palette only grows: once an index has a color it
// keeps it for the lifetime of the Palette.
package palette

import (
	"image/color"
	"math/rand/v2"
	"sync"
)

// DefaultSeed is used when no seed is configured so that colors are
// reproducible across runs.
const DefaultSeed uint64 = 1

// Background is the color of label 0.
var Background = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// ChannelCounter is implemented by mask tensors; the channel count is the
// number of classes the network can emit.
type ChannelCounter interface {
	Channels() int
}

// Palette is a growable color table shared across frames. It is safe for
// concurrent use: extending the table is atomic with respect to readers.
type Palette struct {
	mu     sync.Mutex
	rng    *rand.Rand
	colors []color.RGBA
}

// New creates a palette holding only the background color.
//
// Arguments:
//   - seed: Seeds the color generator; equal seeds yield equal palettes.
//
// Returns:
//   - *Palette: The palette.
func New(seed uint64) *Palette {
	return &Palette{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		colors: []color.RGBA{Background},
	}
}

// EnsureClasses grows the palette so that it holds a color for every class
// id in [0, k). Existing colors are never changed and the palette never
// shrinks, so asking for fewer classes is a no-op.
//
// Arguments:
//   - k: The number of classes.
//
// Returns:
//   - int: The palette size after the call, at least k+1.
func (p *Palette) EnsureClasses(k int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.colors) < k+1 {
		p.colors = append(p.colors, color.RGBA{
			R: uint8(p.rng.IntN(256)),
			G: uint8(p.rng.IntN(256)),
			B: uint8(p.rng.IntN(256)),
			A: 255,
		})
	}
	return len(p.colors)
}

// EnsureChannels grows the palette lazily from a mask tensor's class
// channel count.
func (p *Palette) EnsureChannels(m ChannelCounter) int {
	return p.EnsureClasses(m.Channels())
}

// Color returns the color of a class id. Ids without a color yet report
// false and the background color.
func (p *Palette) Color(classID int) (color.RGBA, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := classID + 1
	if classID < 0 || idx >= len(p.colors) {
		return Background, false
	}
	return p.colors[idx], true
}

// Label returns the color of a label image value (class id + 1).
func (p *Palette) Label(label uint16) color.RGBA {
	c, _ := p.Color(int(label) - 1)
	return c
}

// Colors returns a snapshot of the table, index 0 being background.
func (p *Palette) Colors() []color.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]color.RGBA, len(p.colors))
	copy(out, p.colors)
	return out
}

// Len returns the number of colors, background included.
func (p *Palette) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.colors)
}
