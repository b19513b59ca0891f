package listsync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/simp-lee/dinesync/internal/domain"
)

// MutationKind names a single-item operation.
type MutationKind string

const (
	MutationDelete    MutationKind = "delete"
	MutationApprove   MutationKind = "approve"
	MutationPublish   MutationKind = "publish"
	MutationLike      MutationKind = "like"
	MutationRequest   MutationKind = "request"
	MutationServe     MutationKind = "serve"
	MutationMakeAdmin MutationKind = "make_admin"
)

// Confirmer blocks until the user answers a confirmation prompt.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// Notifier shows a non-blocking user-visible message (toast equivalent).
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string) { f(message) }

// Mutation describes one single-item operation. Apply performs the
// optimistic local update and returns the function that reverts it; both
// are nil for actions with no obvious local representation. Call is the
// network operation. OnSettled runs after a confirmed success, e.g. a
// full refetch for structurally invalidating actions.
type Mutation struct {
	TargetID     string
	Kind         MutationKind
	Action       string
	NeedsConfirm bool
	Prompt       string
	Apply        func() (revert func())
	Call         func(ctx context.Context) error
	OnSettled    func()
}

// Sentinel results for mutations that never reached the network.
var (
	// ErrConfirmDeclined means the user cancelled at the confirmation
	// prompt: no network call was made and no state changed.
	ErrConfirmDeclined = domain.NewAppError(domain.CodeValidation, "cancelled", nil)
	// ErrMutationInFlight means a mutation on the same target is already
	// in flight; the duplicate is rejected without a network call.
	ErrMutationInFlight = domain.NewAppError(domain.CodeConflict, "operation already in progress", nil)
)

// Mutator runs mutations with uniform confirm/guard/optimistic/rollback
// semantics. At most one mutation per target may be in flight; a second
// attempt on the same target is rejected before any network call.
type Mutator struct {
	mu       sync.Mutex
	inFlight map[string]MutationKind
	confirm  Confirmer
	notify   Notifier
	log      *slog.Logger
}

// MutatorOption customizes a Mutator.
type MutatorOption func(*Mutator)

// WithMutatorLogger sets the structured logger. Defaults to slog.Default().
func WithMutatorLogger(log *slog.Logger) MutatorOption {
	return func(m *Mutator) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMutator creates a Mutator with the given confirmation and
// notification collaborators. A nil confirmer auto-confirms; a nil
// notifier drops messages.
func NewMutator(confirm Confirmer, notify Notifier, opts ...MutatorOption) *Mutator {
	m := &Mutator{
		inFlight: make(map[string]MutationKind),
		confirm:  confirm,
		notify:   notify,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InFlight reports whether a mutation on the given target is currently
// in flight. Views use this to disable the triggering control.
func (m *Mutator) InFlight(targetID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.inFlight[targetID]
	return busy
}

// Run executes the mutation: confirmation (if required), duplicate
// guard, optimistic apply, network call, then settle, or revert plus a
// user-visible notification on failure. A failed mutation never leaves
// the list in its optimistic state.
func (m *Mutator) Run(ctx context.Context, mut Mutation) error {
	if mut.Call == nil {
		return domain.NewValidationError("mutation has no network call")
	}
	if mut.TargetID == "" {
		return domain.NewValidationError("mutation has no target")
	}

	if mut.NeedsConfirm && m.confirm != nil {
		prompt := mut.Prompt
		if prompt == "" {
			prompt = "Are you sure you want to " + mut.Action + "?"
		}
		if !m.confirm.Confirm(prompt) {
			return ErrConfirmDeclined
		}
	}

	m.mu.Lock()
	if _, busy := m.inFlight[mut.TargetID]; busy {
		m.mu.Unlock()
		return ErrMutationInFlight
	}
	m.inFlight[mut.TargetID] = mut.Kind
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inFlight, mut.TargetID)
		m.mu.Unlock()
	}()

	var revert func()
	if mut.Apply != nil {
		revert = mut.Apply()
	}

	if err := mut.Call(ctx); err != nil {
		if revert != nil {
			revert()
		}
		m.log.Warn("mutation failed",
			slog.String("kind", string(mut.Kind)),
			slog.String("target", mut.TargetID),
			slog.Any("error", err),
		)
		m.announce(failureMessage(mut.Action, err))
		return err
	}

	if mut.OnSettled != nil {
		mut.OnSettled()
	}
	return nil
}

// announce delivers a message through the notifier, if one is set.
func (m *Mutator) announce(message string) {
	if m.notify != nil {
		m.notify.Notify(message)
	}
}

// failureMessage prefers a server-supplied message; otherwise it names
// the attempted action rather than exposing a raw error string.
func failureMessage(action string, err error) string {
	if msg, ok := domain.ServerMessage(err); ok {
		return msg
	}
	if action == "" {
		action = "complete the operation"
	}
	return "Failed to " + action
}
