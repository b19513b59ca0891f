package meal

import (
	"context"
	"fmt"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/listsync"
)

// DeleteMutation builds the confirm-then-delete flow for one meal. The
// row disappears optimistically; a failed call restores it. A confirmed
// success refetches the page so the rows shift up and totals settle.
func (s *Service) DeleteMutation(ctrl *listsync.Controller[domain.Meal], m domain.Meal) listsync.Mutation {
	return listsync.Mutation{
		TargetID:     targetID(m.ID),
		Kind:         listsync.MutationDelete,
		Action:       "delete meal",
		NeedsConfirm: true,
		Prompt:       fmt.Sprintf("Delete %q? This cannot be undone.", m.Title),
		Apply: func() (revert func()) {
			return ctrl.Remove(func(item domain.Meal) bool { return item.ID == m.ID })
		},
		Call:      func(ctx context.Context) error { return s.Delete(ctx, m.ID) },
		OnSettled: ctrl.Refresh,
	}
}

// LikeMutation bumps the like counter optimistically and reverts on
// failure, including a rejected duplicate like.
func (s *Service) LikeMutation(ctrl *listsync.Controller[domain.Meal], m domain.Meal) listsync.Mutation {
	return listsync.Mutation{
		TargetID: targetID(m.ID),
		Kind:     listsync.MutationLike,
		Action:   "like meal",
		Apply: func() (revert func()) {
			return ctrl.Patch(func(items []domain.Meal) {
				for i := range items {
					if items[i].ID == m.ID {
						items[i].Likes++
					}
				}
			})
		},
		Call: func(ctx context.Context) error { return s.Like(ctx, m.ID) },
	}
}

// RequestMutation queues a meal for serving. The request lands in the
// serve queue, not this list, so there is no local change to apply.
func (s *Service) RequestMutation(m domain.Meal) listsync.Mutation {
	return listsync.Mutation{
		TargetID: targetID(m.ID),
		Kind:     listsync.MutationRequest,
		Action:   "request meal",
		Call:     func(ctx context.Context) error { return s.Request(ctx, m.ID) },
	}
}
