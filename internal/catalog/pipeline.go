package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"room-viz/internal/codec"
)

// DefaultWorkers is the number of image sub-operations run at once per cycle
const DefaultWorkers = 10

// Fetcher downloads a URL. Both the catalog document and every swatch image
// go through one.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Invalidator is implemented by fetchers that keep responses around. The
// pipeline invalidates an image URL whose body fails to decode so the next
// cycle downloads it again.
type Invalidator interface {
	Invalidate(url string)
}

// Decoder turns downloaded image bytes into a raster
type Decoder interface {
	Decode(data []byte) (*codec.Raster, error)
}

// State is the phase of the current fetch cycle
type State int

const (
	Idle State = iota
	MetadataPending
	ImagesPending
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case MetadataPending:
		return "metadata_pending"
	case ImagesPending:
		return "images_pending"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MaterialsReady is delivered once per completed fetch cycle
type MaterialsReady struct {
	Cycle uuid.UUID
	Tiles []Tile
}

// Resolved returns how many tiles carry a decoded image
func (e MaterialsReady) Resolved() int {
	n := 0
	for _, t := range e.Tiles {
		if t.HasImage() {
			n++
		}
	}
	return n
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithImageFetcher uses f for swatch images instead of the catalog fetcher,
// e.g. to put a cache in front of image requests only.
func WithImageFetcher(f Fetcher) Option {
	return func(p *Pipeline) {
		p.imageFetcher = f
	}
}

// WithWorkers bounds how many image sub-operations run concurrently
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the diagnostic sink for swallowed failures
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline downloads a material catalog, fetches and decodes every tile's
// swatch, and announces the aggregated result exactly once per cycle.
//
// Calling FetchCatalog again supersedes the running cycle. Every in-flight
// operation carries the token of the cycle that issued it, and results whose
// token is no longer current are dropped without touching state.
type Pipeline struct {
	fetcher      Fetcher
	imageFetcher Fetcher
	decoder      Decoder
	workers      int
	logger       *slog.Logger

	mu        sync.Mutex
	cycle     uuid.UUID
	state     State
	tiles     []Tile
	index     map[tileKey][]int
	pending   int
	started   time.Time
	listeners []func(MaterialsReady)
}

// NewPipeline creates an idle pipeline
func NewPipeline(fetcher Fetcher, decoder Decoder, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: fetcher,
		decoder: decoder,
		workers: DefaultWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.imageFetcher == nil {
		p.imageFetcher = p.fetcher
	}
	return p
}

// OnMaterialsReady registers a listener for cycle completion. Listeners run
// in registration order on the goroutine that resolved the last image.
func (p *Pipeline) OnMaterialsReady(fn func(MaterialsReady)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// FetchCatalog starts a new fetch cycle and returns its token without
// waiting. The previous cycle's tiles and count are discarded.
//
// Failing to fetch or parse the catalog ends the cycle without any event.
func (p *Pipeline) FetchCatalog(ctx context.Context, url string) uuid.UUID {
	cycle := uuid.New()

	p.mu.Lock()
	p.cycle = cycle
	p.state = MetadataPending
	p.tiles = nil
	p.index = nil
	p.pending = 0
	p.started = time.Now()
	p.mu.Unlock()

	p.logger.Info("catalog fetch started", "cycle", cycle, "url", url)

	go p.fetchMetadata(ctx, cycle, url)
	return cycle
}

// State returns the phase of the current cycle
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pending returns the number of unresolved image sub-operations
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Cycle returns the token of the current cycle, or uuid.Nil before the first
func (p *Pipeline) Cycle() uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycle
}

// Tiles returns a snapshot of the current cycle's tiles
func (p *Pipeline) Tiles() []Tile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.tiles)
}

func (p *Pipeline) fetchMetadata(ctx context.Context, cycle uuid.UUID, url string) {
	data, err := p.fetcher.Get(ctx, url)
	if err != nil {
		p.abort(cycle, "catalog request failed", err)
		return
	}

	tiles, err := ParseCatalog(data)
	if err != nil {
		p.abort(cycle, "catalog parse failed", err)
		return
	}

	p.mu.Lock()
	if p.cycle != cycle {
		p.mu.Unlock()
		p.logger.Debug("discarding stale catalog", "cycle", cycle)
		return
	}

	p.tiles = tiles
	p.index = make(map[tileKey][]int, len(tiles))
	for i, t := range tiles {
		p.index[t.key()] = append(p.index[t.key()], i)
	}
	p.pending = len(tiles)

	if len(tiles) == 0 {
		ev, listeners := p.completeLocked()
		p.mu.Unlock()
		p.logger.Info("catalog is empty", "cycle", cycle)
		p.notify(listeners, ev)
		return
	}

	p.state = ImagesPending
	jobs := make([]tileKey, len(tiles))
	for i, t := range tiles {
		jobs[i] = t.key()
	}
	p.mu.Unlock()

	p.logger.Info("catalog parsed", "cycle", cycle, "tiles", len(jobs))
	p.dispatch(ctx, cycle, jobs)
}

// abort ends a cycle whose catalog could not be loaded. No event fires.
func (p *Pipeline) abort(cycle uuid.UUID, msg string, err error) {
	p.mu.Lock()
	current := p.cycle == cycle
	if current {
		p.state = Complete
	}
	p.mu.Unlock()

	p.logger.Warn(msg, "cycle", cycle, "current", current, "err", err)
}

// dispatch starts one image sub-operation per job, at most p.workers at a
// time. It does not wait for them.
func (p *Pipeline) dispatch(ctx context.Context, cycle uuid.UUID, jobs []tileKey) {
	sem := semaphore.NewWeighted(int64(p.workers))
	for _, job := range jobs {
		go func() {
			// A cancelled context still resolves the job so the cycle completes
			if err := sem.Acquire(ctx, 1); err != nil {
				p.logger.Warn("image request cancelled", "cycle", cycle, "tile", job.id, "err", err)
				p.resolve(cycle, job, nil)
				return
			}
			img := p.loadImage(ctx, cycle, job)
			sem.Release(1)
			p.resolve(cycle, job, img)
		}()
	}
}

// loadImage fetches and decodes one swatch. Every failure, including a
// panicking decoder, yields nil so the caller always resolves the job.
func (p *Pipeline) loadImage(ctx context.Context, cycle uuid.UUID, job tileKey) (img *codec.Raster) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("image decode panicked", "cycle", cycle, "tile", job.id, "panic", r)
			p.invalidate(job.url)
			img = nil
		}
	}()

	data, err := p.imageFetcher.Get(ctx, job.url)
	if err != nil {
		p.logger.Warn("image request failed", "cycle", cycle, "tile", job.id, "url", job.url, "err", err)
		return nil
	}

	img, err = p.decoder.Decode(data)
	if err != nil {
		p.logger.Warn("image decode failed", "cycle", cycle, "tile", job.id, "url", job.url, "err", err)
		p.invalidate(job.url)
		return nil
	}
	return img
}

func (p *Pipeline) invalidate(url string) {
	if inv, ok := p.imageFetcher.(Invalidator); ok {
		inv.Invalidate(url)
	}
}

// resolve applies one finished sub-operation and fires the ready event on
// the transition to zero pending.
func (p *Pipeline) resolve(cycle uuid.UUID, job tileKey, img *codec.Raster) {
	p.mu.Lock()
	if p.cycle != cycle || p.state != ImagesPending {
		p.mu.Unlock()
		p.logger.Debug("discarding stale image", "cycle", cycle, "tile", job.id)
		return
	}

	if img != nil {
		for _, i := range p.index[job] {
			p.tiles[i].Image = img
		}
	}

	p.pending--
	if p.pending > 0 {
		p.mu.Unlock()
		return
	}

	ev, listeners := p.completeLocked()
	elapsed := time.Since(p.started)
	p.mu.Unlock()

	p.logger.Info("materials ready", "cycle", cycle, "tiles", len(ev.Tiles),
		"resolved", ev.Resolved(), "elapsed", elapsed)
	p.notify(listeners, ev)
}

// completeLocked moves the cycle to Complete and captures what to deliver.
// p.mu must be held.
func (p *Pipeline) completeLocked() (MaterialsReady, []func(MaterialsReady)) {
	p.state = Complete
	ev := MaterialsReady{Cycle: p.cycle, Tiles: slices.Clone(p.tiles)}
	if ev.Tiles == nil {
		ev.Tiles = []Tile{}
	}
	return ev, slices.Clone(p.listeners)
}

func (p *Pipeline) notify(listeners []func(MaterialsReady), ev MaterialsReady) {
	for _, fn := range listeners {
		fn(MaterialsReady{Cycle: ev.Cycle, Tiles: slices.Clone(ev.Tiles)})
	}
}
