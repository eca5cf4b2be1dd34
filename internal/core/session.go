package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"attendance.tracker/internal/core/model"
	"attendance.tracker/internal/ports/remote"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTickInterval = time.Second
	notifyTimeout       = 30 * time.Second
)

// SessionOptions configure a PunchSession. Zero values fall back to a 1s
// tick, the local zone and the wall clock.
type SessionOptions struct {
	EmployeeID   string
	Location     *time.Location
	TickInterval time.Duration
	Clock        func() time.Time
	Notifier     PunchNotifier
	Journal      PunchJournal
}

// PunchOutcome is the result of a successful punch.
type PunchOutcome struct {
	State   model.SessionState `json:"state"`
	Message string             `json:"message"`
}

// PunchSession owns today's punch-in/punch-out lifecycle and the ticking clock.
type PunchSession struct {
	api      remote.AttendanceAPI
	location LocationSource
	opts     SessionOptions
	tracer   trace.Tracer

	// inFlight admits one punch (or refresh) at a time.
	inFlight atomic.Bool

	mu          sync.Mutex
	phase       model.Phase
	punchInAt   *time.Time
	punchOutAt  *time.Time
	boundary    *time.Time
	elapsed     int64
	doneForDay  bool
	nextAction  model.Action
	buttonLabel string
	now         time.Time

	lifeMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	pending sync.WaitGroup
}

// NewPunchSession creates an unmounted session in the NoRecord phase.
func NewPunchSession(api remote.AttendanceAPI, location LocationSource, opts SessionOptions) *PunchSession {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &PunchSession{
		api:      api,
		location: location,
		opts:     opts,
		tracer:   otel.Tracer("punch-session"),
		now:      opts.Clock(),
	}
	s.resetLocked()
	return s
}

// Mount starts the ticker and derives the initial phase from today's record.
// The ticker runs until Unmount is called or ctx is done. A failed fetch
// leaves the session in NoRecord and is returned so the caller can notify the
// user; the ticker keeps running either way.
func (s *PunchSession) Mount(ctx context.Context) error {
	s.lifeMu.Lock()
	if s.done != nil {
		s.lifeMu.Unlock()
		return nil
	}
	tickCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(tickCtx, s.done)
	s.lifeMu.Unlock()

	rec, err := s.fetchToday(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Error while checking punch-in status")
		s.resetLocked()
		return fmt.Errorf("check punch status: %w", err)
	}
	s.applyRecordLocked(rec, s.opts.Clock())
	return nil
}

// Unmount stops the ticker and waits until it and any pending notification
// have finished. It is safe to call more than once.
func (s *PunchSession) Unmount() {
	s.lifeMu.Lock()
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
		s.done = nil
	}
	s.lifeMu.Unlock()
	s.pending.Wait()
}

func (s *PunchSession) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.opts.Clock())
		}
	}
}

// Tick advances the clock to now. While punched in the elapsed counter grows
// by one second per tick; once now passes a recorded punch-out boundary for
// the running session, the session is stopped. Stopping is idempotent.
func (s *PunchSession) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	if s.phase != model.PhasePunchedIn || s.doneForDay {
		return
	}
	s.elapsed++
	if s.boundary != nil && now.After(*s.boundary) {
		s.stopAtBoundaryLocked()
	}
}

// State returns a snapshot for rendering.
func (s *PunchSession) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Punch performs the action the button currently offers.
func (s *PunchSession) Punch(ctx context.Context) (PunchOutcome, error) {
	s.mu.Lock()
	action := s.nextAction
	s.mu.Unlock()
	return s.punch(ctx, action)
}

// PunchIn starts a new session. Allowed from NoRecord and PunchedOut.
func (s *PunchSession) PunchIn(ctx context.Context) (PunchOutcome, error) {
	return s.punch(ctx, model.ActionPunchIn)
}

// PunchOut closes the session. Allowed from PunchedIn, and from PunchedOut to
// move the punch-out time forward.
func (s *PunchSession) PunchOut(ctx context.Context) (PunchOutcome, error) {
	return s.punch(ctx, model.ActionPunchOut)
}

// Refresh re-reads today's record. A punch-out recorded elsewhere for the
// running session becomes the boundary enforced by Tick.
func (s *PunchSession) Refresh(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return model.ErrPunchInProgress
	}
	defer s.inFlight.Store(false)

	rec, err := s.fetchToday(ctx)
	if err != nil {
		return fmt.Errorf("refresh punch status: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Clock()
	if s.phase == model.PhasePunchedIn && s.punchInAt != nil && rec != nil && rec.PunchOutTime != nil &&
		!rec.PunchOutTime.Before(*s.punchInAt) {
		out := *rec.PunchOutTime
		s.boundary = &out
		if now.After(out) {
			s.stopAtBoundaryLocked()
		}
		return nil
	}
	s.applyRecordLocked(rec, now)
	return nil
}

func (s *PunchSession) punch(ctx context.Context, action model.Action) (PunchOutcome, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return PunchOutcome{}, model.ErrPunchInProgress
	}
	defer s.inFlight.Store(false)

	ctx, span := s.tracer.Start(ctx, "session."+string(action), trace.WithAttributes(
		attribute.String("app.employeeId", s.opts.EmployeeID),
	))
	defer span.End()

	s.mu.Lock()
	err := checkTransition(s.phase, action)
	s.mu.Unlock()
	if err != nil {
		return PunchOutcome{}, err
	}

	coords, err := s.location.Acquire(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Ctx(ctx).Warn().Err(err).Str("action", string(action)).Msg("Unable to get location for punch")
		s.record(ctx, action, nil, model.OutcomeFailed, err)
		return PunchOutcome{}, err
	}

	var res model.PunchResult
	if action == model.ActionPunchIn {
		res, err = s.api.PunchIn(ctx, coords)
	} else {
		res, err = s.api.PunchOut(ctx, coords)
	}
	if err == nil && !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "Punch action failed"
		}
		err = &model.RemoteError{Op: string(action), Message: msg}
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		outcome := model.OutcomeFailed
		if errors.Is(err, model.ErrRemoteRejected) {
			outcome = model.OutcomeRejected
		}
		log.Ctx(ctx).Warn().Err(err).Str("action", string(action)).Msg("Punch action failed")
		s.record(ctx, action, &coords, outcome, err)
		return PunchOutcome{}, err
	}

	at := s.opts.Clock()
	if res.Time != nil {
		at = *res.Time
	}

	s.mu.Lock()
	if action == model.ActionPunchIn {
		s.applyPunchInLocked(at)
	} else {
		s.applyPunchOutLocked(at)
	}
	state := s.stateLocked()
	s.mu.Unlock()

	message := res.Message
	if message == "" {
		message = defaultSuccessMessage(action)
	}
	s.record(ctx, action, &coords, model.OutcomeSucceeded, nil)
	s.notify(ctx, model.PunchEvent{
		EventID:    uuid.NewString(),
		EmployeeID: s.opts.EmployeeID,
		Action:     action,
		Date:       ISODate(at.In(s.opts.Location)),
		PunchedAt:  at,
		Location:   &coords,
		OccurredAt: s.opts.Clock(),
	})

	log.Ctx(ctx).Info().Str("action", string(action)).Time("at", at).Msg(message)
	return PunchOutcome{State: state, Message: message}, nil
}

func (s *PunchSession) fetchToday(ctx context.Context) (*model.AttendanceRecord, error) {
	now := s.opts.Clock().In(s.opts.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)
	rec, err := s.api.DailyAttendance(ctx, today)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// record appends to the journal. Journal failures never fail the punch.
func (s *PunchSession) record(ctx context.Context, action model.Action, at *model.Coordinates, outcome model.PunchOutcome, cause error) {
	if s.opts.Journal == nil {
		return
	}
	entry := model.PunchLogEntry{
		EmployeeID:  s.opts.EmployeeID,
		Action:      action,
		AttemptedAt: s.opts.Clock(),
		Location:    at,
		Outcome:     outcome,
		Message:     model.UserMessage(cause),
	}
	if err := s.opts.Journal.RecordPunch(ctx, entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to journal punch attempt")
	}
}

// notify dispatches the event without holding up the punch. Unmount waits
// for pending notifications.
func (s *PunchSession) notify(ctx context.Context, event model.PunchEvent) {
	if s.opts.Notifier == nil {
		return
	}
	logger := log.Ctx(ctx)
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.opts.Notifier.PunchRecorded(nctx, event); err != nil {
			logger.Error().Err(err).Str("event_id", event.EventID).Msg("Failed to publish punch event")
		}
	}()
}

func checkTransition(phase model.Phase, action model.Action) error {
	switch action {
	case model.ActionPunchIn:
		if phase == model.PhaseNoRecord || phase == model.PhasePunchedOut {
			return nil
		}
	case model.ActionPunchOut:
		if phase == model.PhasePunchedIn || phase == model.PhasePunchedOut {
			return nil
		}
	}
	return fmt.Errorf("%w: %s while %s", model.ErrInvalidTransition, action, phase)
}

func defaultSuccessMessage(action model.Action) string {
	if action == model.ActionPunchIn {
		return "Punched in successfully"
	}
	return "Punched out successfully"
}

func (s *PunchSession) resetLocked() {
	s.phase = model.PhaseNoRecord
	s.punchInAt = nil
	s.punchOutAt = nil
	s.boundary = nil
	s.elapsed = 0
	s.doneForDay = false
	s.nextAction = model.ActionPunchIn
	s.buttonLabel = model.LabelPunchIn
}

// applyRecordLocked derives the phase from a fetched record. A punch-out older
// than the punch-in belongs to an earlier session of the same day, so the
// newer punch-in wins.
func (s *PunchSession) applyRecordLocked(rec *model.AttendanceRecord, now time.Time) {
	s.now = now
	if rec == nil || rec.PunchInTime == nil {
		s.resetLocked()
		return
	}
	in := *rec.PunchInTime
	s.punchInAt = &in
	s.boundary = nil
	s.doneForDay = false
	s.nextAction = model.ActionPunchOut

	if rec.PunchOutTime == nil || rec.PunchOutTime.Before(in) {
		if rec.PunchOutTime != nil {
			out := *rec.PunchOutTime
			s.punchOutAt = &out
		} else {
			s.punchOutAt = nil
		}
		s.phase = model.PhasePunchedIn
		s.elapsed = ElapsedBetween(in, now)
		s.buttonLabel = model.LabelPunchOut
		return
	}

	out := *rec.PunchOutTime
	s.punchOutAt = &out
	s.phase = model.PhasePunchedOut
	s.elapsed = 0
	s.buttonLabel = model.LabelPunchOutAgain
}

func (s *PunchSession) applyPunchInLocked(at time.Time) {
	s.phase = model.PhasePunchedIn
	s.punchInAt = &at
	s.boundary = nil
	s.elapsed = 0
	s.doneForDay = false
	s.nextAction = model.ActionPunchOut
	s.buttonLabel = model.LabelPunchOut
}

func (s *PunchSession) applyPunchOutLocked(at time.Time) {
	s.phase = model.PhasePunchedOut
	s.punchOutAt = &at
	s.boundary = nil
	s.elapsed = 0
	s.nextAction = model.ActionPunchOut
	s.buttonLabel = model.LabelPunchOutAgain
}

func (s *PunchSession) stopAtBoundaryLocked() {
	out := *s.boundary
	s.phase = model.PhasePunchedOut
	s.punchOutAt = &out
	s.boundary = nil
	s.elapsed = 0
	s.doneForDay = true
	s.nextAction = model.ActionPunchOut
	s.buttonLabel = model.LabelPunchOutAgain
}

func (s *PunchSession) stateLocked() model.SessionState {
	elapsed := model.EmptyElapsedDisplay
	if s.phase == model.PhasePunchedIn {
		elapsed = FormatElapsed(s.elapsed)
	}
	return model.SessionState{
		Phase:          s.phase,
		PunchInTime:    displayClock(s.punchInAt, s.opts.Location),
		PunchOutTime:   displayClock(s.punchOutAt, s.opts.Location),
		ElapsedSeconds: s.elapsed,
		Elapsed:        elapsed,
		NextAction:     s.nextAction,
		ButtonLabel:    s.buttonLabel,
		DoneForDay:     s.doneForDay,
		Busy:           s.inFlight.Load(),
		Now:            s.now,
		Hands:          ClockHandsAt(s.now.In(s.opts.Location)),
	}
}

func displayClock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return FormatClock(t, loc)
}
