package roof

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RoySalisbury/HVOv9-sub007/internal/board"
	"github.com/RoySalisbury/HVOv9-sub007/internal/input"
)

// direction records the last commanded motion direction, used to pick
// PartiallyOpen vs PartiallyClose when a mid-travel stop occurs.
type direction int

const (
	dirNone direction = iota
	dirOpen
	dirClose
)

// maxStatusHistory bounds the in-memory transition ring (supplemented
// feature; never persisted, see spec §1 non-goals).
const maxStatusHistory = 32

// Board is the capability the controller drives: relay writes, raw
// input reads, and LED control. *board.Board satisfies this in
// production; tests substitute a fake.
type Board interface {
	EnergizeRelay(id board.RelayID) error
	DeEnergizeRelay(id board.RelayID) error
	ReadInputMask() (byte, error)
	SetLEDMask(mask byte) error
}

// Controller is the roof motion state machine (spec §4.4) plus the
// relay sequencer, safety watchdog, periodic verifier, fault-clear
// pulser, and status publisher it owns. A single coarse mutex guards
// all state; every register exchange it issues while holding that
// mutex is a single bus transaction, acceptable per spec §5 — only the
// fault-clear pulse's multi-hundred-millisecond wait releases it.
type Controller struct {
	board Board
	log   *slog.Logger
	isHW  bool

	mu             sync.Mutex
	cfg            Configuration
	status         RoofStatus
	lastReason     StopReason
	lastTransition time.Time
	lastDirection  direction
	disposed       bool
	initialized    bool
	lastAtSpeed    bool
	lastFault      bool

	watchdog  watchdog
	verifier  *verifier
	busFaults busFaultTracker

	poller *input.Poller
	pub    *Publisher
	limiter clearFaultLimiter

	history []StatusSnapshot
}

// NewController constructs a Controller bound to b with the given
// initial configuration, which must already validate.
func NewController(b Board, cfg Configuration, isHardware bool, log *slog.Logger) (*Controller, error) {
	if reasons := cfg.Validate(); len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		board:   b,
		log:     log,
		isHW:    isHardware,
		cfg:     cfg,
		status:  StatusNotInitialized,
		limiter: newClearFaultLimiter(2 * time.Second),
	}
	c.pub = NewPublisher(c.snapshotLocked())
	return c, nil
}

// Initialize performs the first input read and derives the resting
// status from it (spec §4.4.1). Calling it again after success is a
// no-op that returns the current snapshot.
func (c *Controller) Initialize() (StatusSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return StatusSnapshot{}, &AlreadyDisposedError{}
	}
	if c.initialized {
		return c.snapshotLocked(), nil
	}

	in, err := c.readInputsLocked()
	if err != nil {
		return StatusSnapshot{}, err
	}

	c.initialized = true
	c.applyInitialStatusLocked(in)
	if c.cfg.EnableDigitalInputPolling {
		c.startPollerLocked()
	}

	snap := c.snapshotLocked()
	c.publishLocked(snap)
	return snap, nil
}

func (c *Controller) applyInitialStatusLocked(in DigitalInputSnapshot) {
	switch {
	case in.Fault || (in.ForwardLimit && in.ReverseLimit):
		c.status = StatusError
		c.lastReason = ReasonFaultDetected
	case in.ForwardLimit:
		c.status = StatusOpen
		c.lastReason = ReasonLimitReached
	case in.ReverseLimit:
		c.status = StatusClosed
		c.lastReason = ReasonLimitReached
	default:
		c.status = StatusStopped
		c.lastReason = ReasonNone
	}
	c.lastTransition = time.Now()
	c.lastFault = in.Fault
	c.lastAtSpeed = in.AtSpeed
}

// Open starts opening motion (spec §4.4.2).
func (c *Controller) Open() (StatusSnapshot, error) {
	return c.startMotion(dirOpen)
}

// Close starts closing motion (spec §4.4.2).
func (c *Controller) Close() (StatusSnapshot, error) {
	return c.startMotion(dirClose)
}

func (c *Controller) precheckLocked() error {
	if c.disposed {
		return &AlreadyDisposedError{}
	}
	if !c.initialized {
		return &ServiceStateError{Detail: "controller not initialized"}
	}
	if c.status == StatusError {
		return &ServiceStateError{Detail: "controller is in Error status; clear the fault first"}
	}
	return nil
}

func (c *Controller) startMotion(dir direction) (StatusSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.precheckLocked(); err != nil {
		return StatusSnapshot{}, err
	}

	movingStatus, terminalStatus := StatusOpening, StatusOpen
	if dir == dirClose {
		movingStatus, terminalStatus = StatusClosing, StatusClosed
	}
	if c.status == movingStatus {
		// Duplicate command while already in progress: no-op success
		// (spec §4.4.5).
		return c.snapshotLocked(), nil
	}
	if c.status == terminalStatus {
		// Already at the requested terminal state: a precondition
		// violation (spec §4.4's "not already Open"/"not already
		// Closed"), not the duplicate-in-progress no-op.
		return StatusSnapshot{}, &ServiceStateError{Detail: fmt.Sprintf("already %s", terminalStatus)}
	}

	in, err := c.readInputsLocked()
	if err != nil {
		return StatusSnapshot{}, err
	}
	if in.Fault || (in.ForwardLimit && in.ReverseLimit) {
		return StatusSnapshot{}, &ServiceStateError{Detail: "cannot move: fault or both limits engaged"}
	}
	if dir == dirOpen && in.ForwardLimit {
		return StatusSnapshot{}, &ServiceStateError{Detail: "already at forward limit"}
	}
	if dir == dirClose && in.ReverseLimit {
		return StatusSnapshot{}, &ServiceStateError{Detail: "already at reverse limit"}
	}

	opposite, chosen := c.cfg.CloseRelayID, c.cfg.OpenRelayID
	if dir == dirClose {
		opposite, chosen = c.cfg.OpenRelayID, c.cfg.CloseRelayID
	}

	if err := c.board.DeEnergizeRelay(opposite); err != nil {
		return StatusSnapshot{}, fmt.Errorf("roof: start motion: de-energize opposite relay: %w", err)
	}
	if err := c.board.EnergizeRelay(chosen); err != nil {
		return StatusSnapshot{}, fmt.Errorf("roof: start motion: energize direction relay: %w", err)
	}
	if err := c.board.EnergizeRelay(c.cfg.StopRelayID); err != nil {
		if rbErr := c.board.DeEnergizeRelay(chosen); rbErr != nil {
			c.log.Error("roof: rollback after failed stop-relay release also failed", "error", rbErr)
		}
		return StatusSnapshot{}, fmt.Errorf("roof: start motion: release stop relay: %w", err)
	}

	c.status = movingStatus
	c.lastReason = ReasonNone
	c.lastTransition = time.Now()
	c.lastDirection = dir
	c.lastFault, c.lastAtSpeed = in.Fault, in.AtSpeed
	c.busFaults.reset()

	c.watchdog.arm(c.cfg.SafetyWatchdogTimeout, c.onWatchdogFire)
	if c.cfg.EnablePeriodicVerificationWhileMoving {
		c.startVerifierLocked()
	}

	snap := c.snapshotLocked()
	c.publishLocked(snap)
	return snap, nil
}

// Stop executes the motion stop sequence regardless of current status
// (spec §4.4.3); repeated calls converge on the same resting status
// after the first.
func (c *Controller) Stop(reason StopReason) (StatusSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return StatusSnapshot{}, &AlreadyDisposedError{}
	}
	if !c.initialized {
		return StatusSnapshot{}, &ServiceStateError{Detail: "controller not initialized"}
	}

	snap := c.stopLocked(reason)
	c.publishLocked(snap)
	return snap, nil
}

// stopLocked executes the §4.4.3 stop sequence. Caller must hold mu.
func (c *Controller) stopLocked(reason StopReason) StatusSnapshot {
	if err := c.board.DeEnergizeRelay(c.cfg.StopRelayID); err != nil {
		c.log.Warn("roof: stop: de-energize stop relay failed", "error", err)
	}
	if err := c.board.DeEnergizeRelay(c.cfg.OpenRelayID); err != nil {
		c.log.Warn("roof: stop: de-energize open relay failed", "error", err)
	}
	if err := c.board.DeEnergizeRelay(c.cfg.CloseRelayID); err != nil {
		c.log.Warn("roof: stop: de-energize close relay failed", "error", err)
	}

	c.watchdog.disarm()
	c.stopVerifierLocked()

	in, err := c.readInputsLocked()
	if err != nil {
		c.log.Error("roof: stop: unable to re-read inputs after stopping; forcing Error", "error", err)
		c.status = StatusError
		c.lastReason = ReasonFaultDetected
		c.lastTransition = time.Now()
		return c.snapshotLocked()
	}
	c.lastFault, c.lastAtSpeed = in.Fault, in.AtSpeed

	switch {
	case reason == ReasonSafetyWatchdogTimeout:
		c.status = StatusError
		c.lastReason = ReasonSafetyWatchdogTimeout
	case reason == ReasonFaultDetected:
		c.status = StatusError
		c.lastReason = ReasonFaultDetected
	case in.Fault:
		c.status = StatusError
		c.lastReason = ReasonFaultDetected
	case in.ForwardLimit && in.ReverseLimit:
		c.status = StatusError
		c.lastReason = ReasonFaultDetected
	case in.ForwardLimit:
		c.status = StatusOpen
		c.lastReason = ReasonLimitReached
	case in.ReverseLimit:
		c.status = StatusClosed
		c.lastReason = ReasonLimitReached
	case c.lastDirection == dirOpen:
		c.status = StatusPartiallyOpen
		c.lastReason = reason
	case c.lastDirection == dirClose:
		c.status = StatusPartiallyClose
		c.lastReason = reason
	default:
		c.status = StatusStopped
		c.lastReason = reason
	}
	c.lastTransition = time.Now()

	return c.snapshotLocked()
}

func (c *Controller) onWatchdogFire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.IsMoving() {
		return // motion already completed normally before the timer fired
	}
	snap := c.stopLocked(ReasonSafetyWatchdogTimeout)
	c.publishLocked(snap)
}

// RefreshStatus re-reads inputs and re-derives status.
// forceHardwareRead is accepted for call-site compatibility but is
// currently a no-op: every call performs a fresh hardware read
// regardless of its value (see DESIGN.md, Open Question 1).
func (c *Controller) RefreshStatus(forceHardwareRead bool) (StatusSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return StatusSnapshot{}, &AlreadyDisposedError{}
	}
	if !c.initialized {
		return StatusSnapshot{}, &ServiceStateError{Detail: "controller not initialized"}
	}

	c.refreshLocked()
	return c.snapshotLocked(), nil
}

// refreshLocked re-reads inputs and re-evaluates status, applying the
// bus-fault-escalation rule (spec §7) on a failed read. Caller must
// hold mu.
func (c *Controller) refreshLocked() {
	in, err := c.readInputsLocked()
	if err != nil {
		c.recordBusFaultLocked(err)
		return
	}
	c.busFaults.reset()
	c.evaluateInputsLocked(in)
	c.publishLocked(c.snapshotLocked())
}

// recordBusFaultLocked logs a failed input read and, once three have
// happened consecutively while moving, forces a safety stop (spec §7).
// Caller must hold mu.
func (c *Controller) recordBusFaultLocked(err error) {
	c.log.Warn("roof: input read failed", "error", err)
	if c.busFaults.record() && c.status.IsMoving() {
		c.log.Error("roof: three consecutive bus errors while moving; forcing safety stop")
		snap := c.stopLocked(ReasonFaultDetected)
		c.publishLocked(snap)
	}
}

// onPollError is the poller's error callback, invoked from the
// poller's own goroutine on a failed bus read during a regular tick.
func (c *Controller) onPollError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.recordBusFaultLocked(err)
}

// evaluateInputsLocked applies a freshly read input snapshot to the
// state machine: while moving it checks for the §4.4.4 transitions;
// while stationary it re-derives the resting status the same way
// Initialize does, so an out-of-band fault or limit change is reflected
// without requiring a command. Caller must hold mu.
func (c *Controller) evaluateInputsLocked(in DigitalInputSnapshot) {
	c.lastFault = in.Fault
	c.lastAtSpeed = in.AtSpeed

	if c.status.IsMoving() {
		c.evaluateMovingLocked(in)
		return
	}

	switch {
	case in.Fault || (in.ForwardLimit && in.ReverseLimit):
		if c.status != StatusError {
			c.status = StatusError
			c.lastReason = ReasonFaultDetected
			c.lastTransition = time.Now()
		}
	case in.ForwardLimit:
		if c.status != StatusOpen {
			c.status = StatusOpen
			c.lastReason = ReasonLimitReached
			c.lastTransition = time.Now()
		}
	case in.ReverseLimit:
		if c.status != StatusClosed {
			c.status = StatusClosed
			c.lastReason = ReasonLimitReached
			c.lastTransition = time.Now()
		}
	default:
		if c.status == StatusOpen || c.status == StatusClosed || c.status == StatusError {
			c.status = StatusStopped
			c.lastReason = ReasonNone
			c.lastTransition = time.Now()
		}
	}
}

// evaluateMovingLocked implements spec §4.4.4's edge-handling rules.
// A limit engaging on the side opposite the commanded direction is
// treated the same as a contradiction fault, symmetric with the
// explicitly stated forward-limit-while-Closing case.
func (c *Controller) evaluateMovingLocked(in DigitalInputSnapshot) {
	switch {
	case in.Fault:
		c.finishMoveLocked(ReasonFaultDetected)
	case in.ForwardLimit && in.ReverseLimit:
		c.finishMoveLocked(ReasonFaultDetected)
	case in.ForwardLimit && c.status == StatusOpening:
		c.finishMoveLocked(ReasonLimitReached)
	case in.ReverseLimit && c.status == StatusClosing:
		c.finishMoveLocked(ReasonLimitReached)
	case in.ForwardLimit && c.status == StatusClosing:
		c.finishMoveLocked(ReasonFaultDetected)
	case in.ReverseLimit && c.status == StatusOpening:
		c.finishMoveLocked(ReasonFaultDetected)
	}
	// AtSpeed-only changes fall through untouched: no transition, the
	// caller still republishes the updated IsAtSpeed field.
}

func (c *Controller) finishMoveLocked(reason StopReason) {
	snap := c.stopLocked(reason)
	c.publishLocked(snap)
}

// handleEdge is invoked from the poller's consumer goroutine whenever a
// settled channel edge is reported. It always re-reads the full mask
// rather than reasoning about the single changed bit, since evaluating
// a coherent transition needs every channel's current logical value.
func (c *Controller) handleEdge(_ input.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || !c.initialized {
		return
	}
	c.refreshLocked()
}

func (c *Controller) readInputsLocked() (DigitalInputSnapshot, error) {
	raw, err := c.board.ReadInputMask()
	if err != nil {
		return DigitalInputSnapshot{}, fmt.Errorf("roof: read inputs: %w", err)
	}
	return decodeInputs(raw, c.cfg), nil
}

func decodeInputs(raw byte, cfg Configuration) DigitalInputSnapshot {
	fwdRaw := raw&0b0001 != 0
	revRaw := raw&0b0010 != 0
	fault := raw&0b0100 != 0
	atSpeed := raw&0b1000 != 0

	fwd, rev := fwdRaw, revRaw
	if cfg.UseNormallyClosedLimitSwitches {
		fwd, rev = !fwdRaw, !revRaw
	}
	if cfg.IgnorePhysicalLimitSwitches {
		fwd, rev = false, false
	}
	return DigitalInputSnapshot{ForwardLimit: fwd, ReverseLimit: rev, Fault: fault, AtSpeed: atSpeed}
}

// UpdateConfiguration validates, atomically replaces the active
// configuration, and re-arms the poller (spec §4.4, §4.7). Rejected
// while moving or while disposed or in Error status.
func (c *Controller) UpdateConfiguration(cfg Configuration) (Configuration, error) {
	if reasons := cfg.Validate(); len(reasons) > 0 {
		return Configuration{}, &ValidationError{Reasons: reasons}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return Configuration{}, &AlreadyDisposedError{}
	}
	if c.status.IsMoving() {
		return Configuration{}, &ServiceStateError{Detail: "cannot update configuration while moving; stop first"}
	}
	if c.status == StatusError {
		// Conservative choice, spec §9 open question 2: require a clean
		// Stopped or post-clearFault state before relay reassignment.
		return Configuration{}, &ServiceStateError{Detail: "cannot update configuration while in Error status; clear the fault first"}
	}

	c.stopPollerLocked()
	c.cfg = cfg
	if c.initialized && c.cfg.EnableDigitalInputPolling {
		c.startPollerLocked()
	}

	c.publishLocked(c.snapshotLocked())
	return c.cfg, nil
}

// Configuration returns the current effective configuration.
func (c *Controller) Configuration() Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Status returns the current published snapshot.
func (c *Controller) Status() StatusSnapshot {
	return c.pub.Snapshot()
}

// Subscribe attaches to the status publisher; used by the SSE feed.
func (c *Controller) Subscribe() (StatusSnapshot, <-chan StatusSnapshot, func()) {
	return c.pub.Subscribe()
}

// History returns a bounded, most-recent-last copy of past status
// snapshots (supplemented feature; in-memory only, never persisted).
func (c *Controller) History() []StatusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StatusSnapshot, len(c.history))
	copy(out, c.history)
	return out
}

// Health returns the health-probe snapshot (spec §6).
func (c *Controller) Health() HealthSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snapshotLocked()
	return HealthSnapshot{
		IsInitialized:                c.initialized,
		IsServiceDisposed:            c.disposed,
		Status:                       snap.Status,
		IsMoving:                     snap.IsMoving,
		LastStopReason:               snap.LastStopReason,
		LastTransitionUtc:            snap.LastTransitionUtc,
		IsWatchdogActive:             snap.IsWatchdogActive,
		WatchdogSecondsRemaining:     snap.WatchdogSecondsRemaining,
		Ready:                        c.initialized && !c.disposed && snap.Status != StatusError,
		IgnoresPhysicalLimitSwitches: c.cfg.IgnorePhysicalLimitSwitches,
		HardwareMode:                 c.isHW,
	}
}

// Dispose cancels all background tasks, de-energizes every relay, and
// rejects subsequent operations with AlreadyDisposedError (spec §5). If
// motion was in progress, it is brought to a resting status first so the
// published snapshot (and the §3 isWatchdogActive-iff-moving invariant)
// never goes stale at Opening/Closing after disposal.
func (c *Controller) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil
	}

	if c.status.IsMoving() {
		c.stopLocked(ReasonSystemDisposal)
	}

	c.disposed = true
	c.watchdog.disarm()
	c.stopVerifierLocked()
	c.stopPollerLocked()

	var firstErr error
	for _, id := range []board.RelayID{c.cfg.OpenRelayID, c.cfg.CloseRelayID, c.cfg.StopRelayID, c.cfg.ClearFaultRelayID} {
		if err := c.board.DeEnergizeRelay(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.lastReason = ReasonSystemDisposal
	c.lastTransition = time.Now()

	// publishLocked recomputes the LED mask from the final status, same
	// as every other publish; the explicit all-clear below is the last
	// word, since no further publish will ever happen on this controller.
	c.publishLocked(c.snapshotLocked())
	if err := c.board.SetLEDMask(0); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (c *Controller) snapshotLocked() StatusSnapshot {
	return StatusSnapshot{
		Status:                          c.status,
		IsMoving:                        c.status.IsMoving(),
		LastStopReason:                  c.lastReason,
		LastTransitionUtc:               c.lastTransition.UTC(),
		IsWatchdogActive:                c.watchdog.isActive(),
		WatchdogSecondsRemaining:        c.watchdog.remaining().Seconds(),
		IsAtSpeed:                       c.lastAtSpeed,
		IsUsingPhysicalHardware:         c.isHW,
		IsIgnoringPhysicalLimitSwitches: c.cfg.IgnorePhysicalLimitSwitches,
	}
}

// publishLocked is the single place a StatusSnapshot becomes visible to
// the outside world: it appends to the history ring, recomputes and
// writes the front-panel LED mask (spec §4.9: "recomputed on each
// status publish"), and fans the snapshot out to subscribers. Every
// status change must flow through here rather than writing the LED
// register at individual call sites, or a publish path that forgets to
// do so leaves the LEDs stale.
func (c *Controller) publishLocked(snap StatusSnapshot) {
	c.history = append(c.history, snap)
	if len(c.history) > maxStatusHistory {
		c.history = c.history[len(c.history)-maxStatusHistory:]
	}
	if err := c.board.SetLEDMask(LEDMask(snap, c.lastFault)); err != nil {
		c.log.Warn("roof: set LED mask failed", "error", err)
	}
	c.pub.Publish(snap)
}

func (c *Controller) startPollerLocked() {
	if c.poller != nil {
		return
	}
	p := input.New(c.board, c.cfg.DigitalInputPollInterval, c.cfg.LimitSwitchDebounce, c.onPollError)
	c.poller = p
	p.Start()
	go func() {
		for edge := range p.Edges() {
			c.handleEdge(edge)
		}
	}()
}

func (c *Controller) stopPollerLocked() {
	if c.poller == nil {
		return
	}
	p := c.poller
	c.poller = nil
	// Not waited for: the poller's error callback (onPollError) takes
	// c.mu, which the caller holds, so waiting here could deadlock.
	go p.Stop()
}

func (c *Controller) startVerifierLocked() {
	if c.verifier != nil {
		return
	}
	c.verifier = startVerifier(c.cfg.PeriodicVerificationInterval, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.status.IsMoving() {
			c.refreshLocked()
		}
	})
}

func (c *Controller) stopVerifierLocked() {
	if c.verifier == nil {
		return
	}
	c.verifier.Stop()
	c.verifier = nil
}
