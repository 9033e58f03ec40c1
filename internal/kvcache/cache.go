// Package kvcache holds the per-episode attention key/value state threaded
// through every decode step. The cache is plain data: the executable (local
// or remote) fills it, the decoding loop only carries it forward.
package kvcache

import "fmt"

// Entry is the accumulated key/value buffer for a single decoder layer,
// laid out as [capacity * width] row-major, one row per position.
type Entry struct {
	Keys   []float32 `json:"keys"`
	Values []float32 `json:"values"`
}

// Cache accumulates attention state for one generation episode.
// Step is the fill pointer: the number of positions already written.
// It only moves forward; a new episode gets a new cache.
type Cache struct {
	Layers   []Entry `json:"layers"`
	Capacity int     `json:"capacity"`
	Width    int     `json:"width"`
	Step     int     `json:"step"`
}

// New returns a zero-filled cache for the given layer count, maximum
// sequence length and per-position width (heads * head dim).
func New(numLayers, capacity, width int) *Cache {
	c := &Cache{
		Layers:   make([]Entry, numLayers),
		Capacity: capacity,
		Width:    width,
	}
	for i := range c.Layers {
		c.Layers[i] = Entry{
			Keys:   make([]float32, capacity*width),
			Values: make([]float32, capacity*width),
		}
	}
	return c
}

// Put writes the key/value row for one layer at the current fill pointer.
// It does not advance the pointer; call Advance once all layers for the
// step are written.
func (c *Cache) Put(layer int, key, value []float32) error {
	if layer < 0 || layer >= len(c.Layers) {
		return fmt.Errorf("kvcache: layer %d out of range [0,%d)", layer, len(c.Layers))
	}
	if c.Step >= c.Capacity {
		return fmt.Errorf("kvcache: cache full (capacity %d)", c.Capacity)
	}
	if len(key) != c.Width || len(value) != c.Width {
		return fmt.Errorf("kvcache: row width %d/%d, want %d", len(key), len(value), c.Width)
	}
	off := c.Step * c.Width
	copy(c.Layers[layer].Keys[off:off+c.Width], key)
	copy(c.Layers[layer].Values[off:off+c.Width], value)
	return nil
}

// Advance moves the fill pointer past the position written by Put.
func (c *Cache) Advance() error {
	if c.Step >= c.Capacity {
		return fmt.Errorf("kvcache: cannot advance past capacity %d", c.Capacity)
	}
	c.Step++
	return nil
}

// Row returns the key row for one layer and position. The slice aliases
// the cache storage; callers must not hold it across a Put.
func (c *Cache) Row(layer, pos int) (key, value []float32, err error) {
	if layer < 0 || layer >= len(c.Layers) {
		return nil, nil, fmt.Errorf("kvcache: layer %d out of range [0,%d)", layer, len(c.Layers))
	}
	if pos < 0 || pos >= c.Step {
		return nil, nil, fmt.Errorf("kvcache: position %d not filled (step %d)", pos, c.Step)
	}
	off := pos * c.Width
	return c.Layers[layer].Keys[off : off+c.Width], c.Layers[layer].Values[off : off+c.Width], nil
}

// Reset zeroes the fill pointer and all storage, making the cache
// indistinguishable from a freshly constructed one.
func (c *Cache) Reset() {
	for i := range c.Layers {
		clear(c.Layers[i].Keys)
		clear(c.Layers[i].Values)
	}
	c.Step = 0
}

// Validate checks that the cache shape matches the given model geometry.
// Shape mismatches otherwise surface as undefined behaviour deep inside an
// executable, so the steppers check up front.
func (c *Cache) Validate(numLayers, capacity, width int) error {
	if len(c.Layers) != numLayers || c.Capacity != capacity || c.Width != width {
		return fmt.Errorf("kvcache: shape [%d layers, cap %d, width %d] does not match model [%d, %d, %d]",
			len(c.Layers), c.Capacity, c.Width, numLayers, capacity, width)
	}
	return nil
}
