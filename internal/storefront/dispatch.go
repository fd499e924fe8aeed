package storefront

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

// Action identifies a UI interaction.
type Action string

const (
	// ActionGridClick is a click anywhere inside the product grid.
	ActionGridClick Action = "grid-click"
	// ActionModalAdd is the add-to-cart button inside the detail modal.
	ActionModalAdd Action = "modal-add"
	// ActionModalClose is the explicit close button of the detail modal.
	ActionModalClose Action = "modal-close"
	// ActionModalClick is a click on the modal overlay or its content.
	ActionModalClick Action = "modal-click"
	// ActionKeyDown is a key press anywhere on the page.
	ActionKeyDown Action = "keydown"
)

// Target is an element a click landed on.
type Target string

const (
	TargetAddButton Target = "add-button"
	TargetCard      Target = "card"
	TargetBackdrop  Target = "backdrop"
	TargetContent   Target = "content"
)

// KeyEscape is the key that dismisses the detail modal.
const KeyEscape = "Escape"

// ErrUnknownAction is returned by Dispatch for actions without a handler.
var ErrUnknownAction = errors.New("unknown action")

// Event is a single UI interaction.
type Event struct {
	Action Action
	// ProductID is the identifier carried by the control that was used.
	ProductID string
	// Targets lists every element the click hit, innermost first.
	Targets []Target
	// Key is the pressed key for ActionKeyDown.
	Key string
}

func (e Event) hit(t Target) bool {
	return slices.Contains(e.Targets, t)
}

type eventHandler func(ctx context.Context, ev Event)

func (s *Session) routes() map[Action]eventHandler {
	return map[Action]eventHandler{
		ActionGridClick:  s.onGridClick,
		ActionModalAdd:   s.onModalAdd,
		ActionModalClose: s.onModalClose,
		ActionModalClick: s.onModalClick,
		ActionKeyDown:    s.onKeyDown,
	}
}

// Dispatch applies ev to the session. Events are applied one at a time in the
// order they arrive; the resulting state is visible to the next View.
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	h, ok := s.handlers[ev.Action]
	if !ok {
		return errors.Wrapf(ErrUnknownAction, "%q", ev.Action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	h(ctx, ev)
	return nil
}

// onGridClick routes a grid click. The add button sits inside the card, so a
// click that hit it must not also open the detail view.
func (s *Session) onGridClick(ctx context.Context, ev Event) {
	switch {
	case ev.hit(TargetAddButton):
		s.addToCart(ctx, ev.ProductID, "grid")
	case ev.hit(TargetCard):
		s.showDetail(ev.ProductID)
	}
}

// onModalAdd adds the displayed product and closes the modal. The control is
// inert while the modal is hidden, and a posted id naming another product
// comes from a stale page and is ignored.
func (s *Session) onModalAdd(ctx context.Context, ev Event) {
	if !s.modal.open {
		return
	}
	shown := s.modal.product
	if ev.ProductID != "" {
		if id, ok := product.ParseID(ev.ProductID); !ok || id != shown.ID {
			zctx.From(ctx).Debug("Ignoring add for a product the modal does not show",
				zap.String("session", s.id),
				zap.String("posted", ev.ProductID),
			)
			return
		}
	}
	s.addToCart(ctx, formatID(shown.ID), "modal")
	s.hideModal()
}

func (s *Session) onModalClose(context.Context, Event) {
	s.hideModal()
}

// onModalClick closes the modal only when the overlay itself was clicked, not
// the content panel on top of it.
func (s *Session) onModalClick(_ context.Context, ev Event) {
	if len(ev.Targets) == 0 || ev.Targets[0] != TargetBackdrop {
		return
	}
	s.hideModal()
}

func (s *Session) onKeyDown(_ context.Context, ev Event) {
	if ev.Key == KeyEscape && s.modal.open {
		s.hideModal()
	}
}
