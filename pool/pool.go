// Package pool manages a registry of independently named arenas created from
// a shared configuration. It exists for consumers that partition their memory
// by subsystem: each subsystem gets its own arena, statistics can be
// aggregated across all of them, and teardown reports any allocations that
// were never freed.
//
// Like the arena package, nothing here is safe for concurrent use.
package pool

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/dynmem/dynmem"
	"github.com/dynmem/dynmem/arena"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

// defaultArenaSize is used when neither the pool Config nor a CreateArena
// call provides a size. It is 64Kb.
const defaultArenaSize = 64 * 1024

// Config contains optional settings when creating a Pool.
type Config struct {
	// DefaultArenaSize is the arena size in bytes used by CreateArena calls
	// that pass a size of 0. Defaults to 64Kb.
	DefaultArenaSize int

	// AutoZero is passed through to every arena created by this pool.
	AutoZero bool

	// Logger receives unfreed-allocation reports during teardown. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// Pool is a registry of named arenas sharing one configuration.
type Pool struct {
	arenas *swiss.Map[string, *arena.Arena]

	defaultArenaSize int
	autoZero         bool
	logger           *slog.Logger
}

// New creates an empty Pool from the provided Config.
func New(config Config) (*Pool, error) {
	size := config.DefaultArenaSize
	if size == 0 {
		size = defaultArenaSize
	}
	if size < arena.MinSize {
		return nil, errors.Errorf("default arena size %d is smaller than the minimum %d", size, arena.MinSize)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		arenas:           swiss.NewMap[string, *arena.Arena](16),
		defaultArenaSize: size,
		autoZero:         config.AutoZero,
		logger:           logger,
	}, nil
}

// CreateArena creates a new arena of the given size in bytes and registers it
// under name. A size of 0 takes the pool's default arena size. Names must be
// non-empty and unique within the pool.
func (p *Pool) CreateArena(name string, size int) (*arena.Arena, error) {
	if name == "" {
		return nil, errors.New("arena name must not be empty")
	}
	if _, ok := p.arenas.Get(name); ok {
		return nil, errors.Errorf("an arena named %q already exists in this pool", name)
	}

	if size == 0 {
		size = p.defaultArenaSize
	}

	a, err := arena.New(arena.Config{
		Size:     size,
		AutoZero: p.autoZero,
		Logger:   p.logger,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create arena %q", name)
	}

	p.arenas.Put(name, a)
	return a, nil
}

// Arena retrieves the arena registered under name, if any.
func (p *Pool) Arena(name string) (*arena.Arena, bool) {
	return p.arenas.Get(name)
}

// ArenaCount returns the number of arenas currently registered.
func (p *Pool) ArenaCount() int {
	return p.arenas.Count()
}

// DestroyArena removes the arena registered under name from the pool, logging
// every allocation that is still live in it. The arena's memory is released
// to the garbage collector once the consumer drops its own references.
func (p *Pool) DestroyArena(name string) error {
	a, ok := p.arenas.Get(name)
	if !ok {
		return errors.Errorf("no arena named %q in this pool", name)
	}

	p.reportLeaks(name, a)
	p.arenas.Delete(name)

	return nil
}

// Destroy tears down the whole pool, logging every allocation still live in
// any arena. The pool is empty and reusable afterward.
func (p *Pool) Destroy() {
	p.arenas.Iter(func(name string, a *arena.Arena) bool {
		p.reportLeaks(name, a)
		return false
	})

	p.arenas = swiss.NewMap[string, *arena.Arena](16)
}

func (p *Pool) reportLeaks(name string, a *arena.Arena) {
	_ = a.VisitAllRegions(func(ptr arena.Ptr, size int, free bool) error {
		if free {
			return nil
		}

		p.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed allocation",
			slog.String("arena", name),
			slog.Int("offset", int(ptr)),
			slog.Int("size", size))
		return nil
	})
}

// AddStatistics sums the statistics of every arena in the pool into stats.
func (p *Pool) AddStatistics(stats *dynmem.Statistics) {
	p.arenas.Iter(func(_ string, a *arena.Arena) bool {
		a.AddStatistics(stats)
		return false
	})
}

// AddDetailedStatistics sums the detailed statistics of every arena in the
// pool into stats.
func (p *Pool) AddDetailedStatistics(stats *dynmem.DetailedStatistics) {
	p.arenas.Iter(func(_ string, a *arena.Arena) bool {
		a.AddDetailedStatistics(stats)
		return false
	})
}

// PrintDetailedMap writes a JSON document describing every arena in the pool,
// keyed by arena name. Key order follows map iteration order and is not
// stable between calls.
func (p *Pool) PrintDetailedMap(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	p.arenas.Iter(func(name string, a *arena.Arena) bool {
		arenaObj := obj.Name(name).Object()
		a.BlockJsonData(arenaObj)
		arenaObj.End()
		return false
	})
}
