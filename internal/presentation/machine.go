// Package presentation sequences the on-screen playback of draws. The
// server stays the source of truth: names are only revealed after the draw
// call has returned, and every decision is re-derived from fresh fetches.
package presentation

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/models"
)

// DefaultRevealFraction is the share of the animation spent in drawing.
const DefaultRevealFraction = 0.7

// Backend is what the machine needs from the draw service, either in
// process or over HTTP.
type Backend interface {
	GetActivity(ctx context.Context, activityID int64) (*models.ActivityDetail, error)
	ListAvailableParticipants(ctx context.Context, activityID int64) ([]models.Participant, error)
	ExecuteDraw(ctx context.Context, roundID int64) (*models.DrawResult, error)
	Redraw(ctx context.Context, roundID int64) (int, error)
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces the runtime clock.
func WithClock(c Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithRevealFraction sets when drawing turns into revealing. Values outside
// (0, 1) are ignored.
func WithRevealFraction(f float64) Option {
	return func(m *Machine) {
		if f > 0 && f < 1 {
			m.revealFraction = f
		}
	}
}

// WithObserver registers a callback invoked with every new state, outside
// the machine's lock.
func WithObserver(fn func(State)) Option {
	return func(m *Machine) { m.observer = fn }
}

// Machine drives the presentation of one activity.
type Machine struct {
	backend        Backend
	activityID     int64
	clock          Clock
	revealFraction float64
	observer       func(State)

	mu       sync.Mutex
	state    State
	position int
	busy     bool

	revealDone chan struct{}
}

// NewMachine creates a machine in PhaseLoading. Call Load to fetch state.
func NewMachine(backend Backend, activityID int64, opts ...Option) *Machine {
	m := &Machine{
		backend:        backend,
		activityID:     activityID,
		clock:          RealClock{},
		revealFraction: DefaultRevealFraction,
		state:          State{Phase: PhaseLoading, RoundIndex: -1},
		revealDone:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Load starts over from the first pending round.
func (m *Machine) Load(ctx context.Context) error {
	if err := m.begin(nil); err != nil {
		return err
	}
	defer m.end()
	m.mu.Lock()
	m.position = 0
	m.mu.Unlock()
	return m.refresh(ctx, nil)
}

// Retry re-fetches at the current position. Allowed from insufficient and error.
func (m *Machine) Retry(ctx context.Context) error {
	if err := m.begin([]Phase{PhaseInsufficient, PhaseError}); err != nil {
		return err
	}
	defer m.end()
	return m.refresh(ctx, nil)
}

// Skip leaves the current round pending and moves to the next one. A skipped
// round still blocks later rounds, which then report CanDraw=false.
func (m *Machine) Skip(ctx context.Context) error {
	if err := m.begin([]Phase{PhaseInsufficient}); err != nil {
		return err
	}
	defer m.end()
	m.mu.Lock()
	m.position = m.state.RoundIndex + 1
	m.mu.Unlock()
	return m.refresh(ctx, nil)
}

// Next moves from results to the next pending round.
func (m *Machine) Next(ctx context.Context) error {
	if err := m.begin([]Phase{PhaseResults}); err != nil {
		return err
	}
	defer m.end()
	return m.refresh(ctx, nil)
}

// Redraw resets the round shown in results and re-checks it.
func (m *Machine) Redraw(ctx context.Context) error {
	if err := m.begin([]Phase{PhaseResults}); err != nil {
		return err
	}
	defer m.end()

	round := m.State().Round
	if _, err := m.backend.Redraw(ctx, round.ID); err != nil {
		slog.Warn("Redraw failed", "error", err, "roundId", round.ID)
		return m.resync(ctx, err)
	}
	return m.refresh(ctx, nil)
}

// RevealComplete tells the machine the reveal animation has finished early.
// It is only accepted while revealing.
func (m *Machine) RevealComplete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != PhaseRevealing {
		return ErrInvalidTransition
	}
	select {
	case m.revealDone <- struct{}{}:
	default:
	}
	return nil
}

type drawOutcome struct {
	result *models.DrawResult
	err    error
}

// Draw plays one draw: ready, drawing, revealing, then results once both the
// server has confirmed and the animation has ended. It blocks until then.
// Cancelling ctx abandons playback only; the server call runs to completion
// and the machine drops to loading so the next Load re-syncs.
func (m *Machine) Draw(ctx context.Context) (*models.DrawResult, error) {
	m.mu.Lock()
	if m.busy || m.state.Phase != PhaseReady {
		m.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if !m.state.CanDraw {
		err := m.blockedError()
		m.mu.Unlock()
		return nil, err
	}
	m.busy = true
	round := *m.state.Round
	select {
	case <-m.revealDone:
	default:
	}
	m.mu.Unlock()
	defer m.end()

	m.update(func(s *State) {
		s.Phase = PhaseDrawing
		s.Result = nil
		s.LastError = nil
	})

	duration := round.AnimationDuration()
	revealTimer := m.clock.NewTimer(time.Duration(float64(duration) * m.revealFraction))
	defer revealTimer.Stop()
	endTimer := m.clock.NewTimer(duration)
	defer endTimer.Stop()

	outcome := make(chan drawOutcome, 1)
	go func() {
		res, err := m.backend.ExecuteDraw(context.WithoutCancel(ctx), round.ID)
		outcome <- drawOutcome{result: res, err: err}
	}()

	var (
		result   *models.DrawResult
		animDone bool
	)
	for result == nil || !animDone {
		select {
		case <-revealTimer.C():
			m.enterRevealing()
		case <-endTimer.C():
			m.enterRevealing()
			animDone = true
		case <-m.revealDone:
			animDone = true
		case out := <-outcome:
			if out.err != nil {
				return nil, m.drawFailed(ctx, round, out.err)
			}
			result = out.result
		case <-ctx.Done():
			slog.Info("Presentation closed during draw", "roundId", round.ID)
			m.update(func(s *State) { s.Phase = PhaseLoading })
			return nil, ctx.Err()
		}
	}

	m.update(func(s *State) {
		s.Phase = PhaseResults
		s.Result = result
		if s.RoundIndex >= 0 && s.RoundIndex < len(s.Rounds) {
			s.Rounds[s.RoundIndex] = result.Round
		}
		r := result.Round
		s.Round = &r
		s.CanDraw = false
	})
	return result, nil
}

func (m *Machine) enterRevealing() {
	m.update(func(s *State) {
		if s.Phase == PhaseDrawing {
			s.Phase = PhaseRevealing
		}
	})
}

// drawFailed maps a server rejection onto the next phase.
func (m *Machine) drawFailed(ctx context.Context, round models.Round, err error) error {
	var insufficient *lottery.InsufficientParticipantsError
	if errors.As(err, &insufficient) {
		slog.Warn("Draw rejected: insufficient participants", "roundId", round.ID,
			"required", insufficient.Required, "available", insufficient.Available)
		m.update(func(s *State) {
			s.Phase = PhaseInsufficient
			s.AvailableCount = insufficient.Available
			s.Shortage = insufficient.Shortage()
			s.CanDraw = false
			s.LastError = err
		})
		return err
	}
	slog.Warn("Draw rejected, re-syncing", "error", err, "roundId", round.ID)
	return m.resync(ctx, err)
}

// resync re-fetches after a failure and records cause as LastError.
func (m *Machine) resync(ctx context.Context, cause error) error {
	if err := m.refresh(ctx, cause); err != nil {
		return err
	}
	return cause
}

// refresh fetches the activity and roster and settles on the first pending
// round at or after the current position.
func (m *Machine) refresh(ctx context.Context, cause error) error {
	m.update(func(s *State) { s.Phase = PhaseLoading })

	fail := func(err error) error {
		slog.Error("Presentation fetch failed", "error", err, "activityId", m.activityID)
		m.update(func(s *State) {
			s.Phase = PhaseError
			s.CanDraw = false
			s.LastError = err
		})
		return err
	}

	detail, err := m.backend.GetActivity(ctx, m.activityID)
	if err != nil {
		return fail(err)
	}
	rounds := append([]models.Round(nil), detail.Rounds...)
	lottery.SortRounds(rounds)

	m.mu.Lock()
	position := m.position
	m.mu.Unlock()

	idx := lottery.FirstPendingIndex(rounds, position)
	if idx == -1 {
		activity := detail.Activity
		m.update(func(s *State) {
			*s = State{Phase: PhaseCompleted, Activity: &activity, Rounds: rounds, RoundIndex: -1, LastError: cause}
		})
		return nil
	}

	available, err := m.backend.ListAvailableParticipants(ctx, m.activityID)
	if err != nil {
		return fail(err)
	}

	round := rounds[idx]
	short, shortage := lottery.CheckInsufficient(len(available), round.WinnerCount)
	var blockingID int64
	if b := lottery.BlockingRound(round.OrderIndex, rounds); b != nil {
		blockingID = b.ID
	}

	m.mu.Lock()
	m.position = idx
	m.mu.Unlock()

	activity := detail.Activity
	m.update(func(s *State) {
		phase := PhaseReady
		if short {
			phase = PhaseInsufficient
		}
		*s = State{
			Phase:           phase,
			Activity:        &activity,
			Rounds:          rounds,
			RoundIndex:      idx,
			Round:           &round,
			AvailableCount:  len(available),
			Shortage:        shortage,
			CanDraw:         !short && blockingID == 0,
			BlockingRoundID: blockingID,
			LastError:       cause,
		}
	})
	return nil
}

// blockedError explains why a ready round cannot be drawn. Caller holds mu.
func (m *Machine) blockedError() error {
	s := m.state
	if s.BlockingRoundID == 0 || s.Round == nil {
		return ErrInvalidTransition
	}
	blockingIndex := 0
	for _, r := range s.Rounds {
		if r.ID == s.BlockingRoundID {
			blockingIndex = r.OrderIndex
		}
	}
	return &lottery.RoundOutOfOrderError{
		RoundID:            s.Round.ID,
		BlockingRoundID:    s.BlockingRoundID,
		BlockingOrderIndex: blockingIndex,
	}
}

// begin claims the machine for a non-draw action. allowed nil means any
// settled phase.
func (m *Machine) begin(allowed []Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrInvalidTransition
	}
	if allowed != nil {
		ok := false
		for _, p := range allowed {
			if m.state.Phase == p {
				ok = true
				break
			}
		}
		if !ok {
			return ErrInvalidTransition
		}
	}
	m.busy = true
	return nil
}

func (m *Machine) end() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

func (m *Machine) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot := m.state.clone()
	observer := m.observer
	m.mu.Unlock()
	if observer != nil {
		observer(snapshot)
	}
}
