package board

import (
	"context"
	"errors"
	"sync"
)

// Outcome classifies how an optimistic mutation ended. Three values instead
// of a boolean so callers can render the partially-applied state distinctly.
type Outcome int

const (
	// OutcomeConfirmed means the primary write and all secondary effects landed.
	OutcomeConfirmed Outcome = iota
	// OutcomeRolledBack means the primary write failed and the optimistic edit
	// was fully restored.
	OutcomeRolledBack
	// OutcomePartial means the primary write landed but at least one secondary
	// effect failed; the primary state is kept and the failing effects were
	// compensated best-effort.
	OutcomePartial
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRolledBack:
		return "rolled-back"
	case OutcomePartial:
		return "partial"
	}
	return "unknown"
}

// MutationResult reports the outcome of one optimistic mutation.
type MutationResult struct {
	Outcome       Outcome
	Err           error   // primary failure, set only when rolled back
	SecondaryErrs []error // per-effect failures when partial
}

// ErrBusy is returned when a mutation for the same control is still in
// flight; the control stays disabled until its mutation settles.
var ErrBusy = errors.New("mutation already in flight")

// secondaryEffect is one derived runtime call issued after the primary write
// confirmed. call performs the effect and mirrors its confirmed result into
// the entity store; compensate restores the previous runtime state
// best-effort and its own failure is swallowed.
type secondaryEffect struct {
	call       func(ctx context.Context) error
	compensate func(ctx context.Context)
}

// runMutation executes the optimistic apply-locally, persist-remotely,
// confirm-or-rollback protocol:
//
//  1. snapshot the pre-mutation state,
//  2. apply the edit to the entity store and mark the control busy,
//  3. persist; a primary failure restores the snapshot in full,
//  4. fan out secondary effects in parallel; their failures never roll the
//     primary back,
//  5. release the control in a guaranteed step regardless of outcome.
func (b *Board) runMutation(ctx context.Context, controlKey string, apply func(*Snapshot), persist func(ctx context.Context) error, secondaries []secondaryEffect) MutationResult {
	if !b.acquire(controlKey) {
		return MutationResult{Outcome: OutcomeRolledBack, Err: ErrBusy}
	}
	defer b.release(controlKey)

	saved := b.store.Snapshot()
	b.store.Update(apply)

	if err := persist(ctx); err != nil {
		b.store.Replace(saved)
		b.log.WithError(err).WithField("control", controlKey).Error("mutation rolled back")
		b.notifier.Error("saving failed, change reverted: " + err.Error())
		return MutationResult{Outcome: OutcomeRolledBack, Err: err}
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, effect := range secondaries {
		wg.Add(1)
		go func(e secondaryEffect) {
			defer wg.Done()
			if err := e.call(ctx); err != nil {
				if e.compensate != nil {
					e.compensate(ctx)
				}
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(effect)
	}
	wg.Wait()

	if len(errs) > 0 {
		b.log.WithField("control", controlKey).WithField("failures", len(errs)).Warn("mutation partially applied")
		b.notifier.Error("saved, but some runtime updates failed")
		return MutationResult{Outcome: OutcomePartial, SecondaryErrs: errs}
	}
	return MutationResult{Outcome: OutcomeConfirmed}
}

func (b *Board) acquire(key string) bool {
	b.inflightMu.Lock()
	defer b.inflightMu.Unlock()
	if b.inflight[key] {
		return false
	}
	b.inflight[key] = true
	return true
}

func (b *Board) release(key string) {
	b.inflightMu.Lock()
	defer b.inflightMu.Unlock()
	delete(b.inflight, key)
}
