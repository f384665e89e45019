// Package engine settles slabs under gravity and answers cascade queries over
// the resulting support graph.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"slabfall.ai/internal/sim/grid"
	"slabfall.ai/internal/sim/slab"
)

var (
	ErrPhase      = errors.New("operation not allowed in current phase")
	ErrNoFixpoint = errors.New("settling did not reach a fixpoint")
)

type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseParsed
	PhaseSettling
	PhaseStable
	PhaseGraphBuilt
	PhaseAnswered
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseParsed:
		return "parsed"
	case PhaseSettling:
		return "settling"
	case PhaseStable:
		return "stable"
	case PhaseGraphBuilt:
		return "graph_built"
	case PhaseAnswered:
		return "answered"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PassStats describes one sweep over every slab during settling.
type PassStats struct {
	Pass  int `json:"pass"`
	Moved int `json:"moved"`
	Slabs int `json:"slabs"`
}

type SettleStats struct {
	Passes int
	Moves  int
}

type Config struct {
	// MaxPasses bounds settling; 0 means run to the fixpoint.
	MaxPasses int
	// OnPass is called after every settle pass, including the final idle one.
	OnPass func(PassStats)
}

type Engine struct {
	cfg Config

	occ     *grid.Occupancy
	slabs   []*slab.Slab
	byLabel map[grid.Label]*slab.Slab

	phase Phase
	graph *SupportGraph
}

func New(cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		occ:     grid.NewOccupancy(),
		byLabel: map[grid.Label]*slab.Slab{},
	}
}

func (e *Engine) Phase() Phase { return e.phase }

// Slab implements slab.Directory.
func (e *Engine) Slab(id grid.Label) *slab.Slab { return e.byLabel[id] }

// Slabs returns the slabs in label order.
func (e *Engine) Slabs() []*slab.Slab { return e.slabs }

func (e *Engine) CellCount() int { return e.occ.Len() }

// Load takes ownership of slabs and registers every cell. Overlapping input
// is rejected.
func (e *Engine) Load(slabs []*slab.Slab) error {
	if e.phase != PhaseEmpty {
		return fmt.Errorf("load in %s: %w", e.phase, ErrPhase)
	}
	for _, s := range slabs {
		if _, dup := e.byLabel[s.Label]; dup {
			return fmt.Errorf("duplicate label %s", s.Label)
		}
		for _, c := range s.Cells {
			if err := e.occ.Register(c, s.Label); err != nil {
				return fmt.Errorf("load %s: %w", s.Label, err)
			}
		}
		e.byLabel[s.Label] = s
		e.slabs = append(e.slabs, s)
	}
	sort.Slice(e.slabs, func(i, j int) bool { return e.slabs[i].Label < e.slabs[j].Label })
	e.phase = PhaseParsed
	return nil
}

// Settle applies gravity pass after pass until a full pass moves nothing.
// On an already stable engine it runs one idle pass.
func (e *Engine) Settle() (SettleStats, error) {
	var st SettleStats
	switch e.phase {
	case PhaseParsed, PhaseStable:
	default:
		return st, fmt.Errorf("settle in %s: %w", e.phase, ErrPhase)
	}
	e.phase = PhaseSettling
	e.graph = nil

	order := make([]*slab.Slab, len(e.slabs))
	copy(order, e.slabs)
	for {
		if e.cfg.MaxPasses > 0 && st.Passes >= e.cfg.MaxPasses {
			return st, fmt.Errorf("%w after %d passes", ErrNoFixpoint, st.Passes)
		}
		sort.SliceStable(order, func(i, j int) bool {
			zi, zj := order[i].LowestZ(), order[j].LowestZ()
			if zi != zj {
				return zi < zj
			}
			return order[i].Label < order[j].Label
		})

		moved := 0
		for _, s := range order {
			ok, err := s.Fall(e.occ, e)
			if err != nil {
				return st, fmt.Errorf("fall %s: %w", s.Label, err)
			}
			if ok {
				moved++
			}
		}
		st.Passes++
		st.Moves += moved
		if e.cfg.OnPass != nil {
			e.cfg.OnPass(PassStats{Pass: st.Passes, Moved: moved, Slabs: len(order)})
		}
		if moved == 0 {
			break
		}
	}
	e.phase = PhaseStable
	return st, nil
}

// BuildGraph freezes the support edges discovered while settling.
func (e *Engine) BuildGraph() (*SupportGraph, error) {
	if e.phase != PhaseStable {
		return nil, fmt.Errorf("build graph in %s: %w", e.phase, ErrPhase)
	}
	g, err := newSupportGraph(e.slabs)
	if err != nil {
		return nil, err
	}
	e.graph = g
	e.phase = PhaseGraphBuilt
	return g, nil
}

type Result struct {
	Sum          int
	Candidates   []grid.Label
	SafeToRemove int
	// Cascades holds the fall count for each candidate.
	Cascades map[grid.Label]int
}

func (e *Engine) Answer() (Result, error) {
	if e.phase != PhaseGraphBuilt && e.phase != PhaseAnswered {
		return Result{}, fmt.Errorf("answer in %s: %w", e.phase, ErrPhase)
	}
	g := e.graph
	res := Result{
		Candidates: g.Candidates(),
		Cascades:   map[grid.Label]int{},
	}
	for _, id := range res.Candidates {
		n := g.Cascade(id)
		res.Cascades[id] = n
		res.Sum += n
	}
	res.SafeToRemove = len(e.slabs) - len(res.Candidates)
	e.phase = PhaseAnswered
	return res, nil
}

// Run drives a freshly loaded engine through every phase.
func (e *Engine) Run() (Result, SettleStats, error) {
	st, err := e.Settle()
	if err != nil {
		return Result{}, st, err
	}
	if _, err := e.BuildGraph(); err != nil {
		return Result{}, st, err
	}
	res, err := e.Answer()
	return res, st, err
}
