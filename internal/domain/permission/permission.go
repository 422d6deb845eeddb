// Package permission holds the view, edit and delete predicates shared by the
// HTTP layer and the workflow engine.
package permission

import (
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// CanView reports whether the actor may see the request
func CanView(actor workflow.Actor, req *entity.Request) bool {
	switch actor.Role {
	case workflow.RoleSuperAdmin, workflow.RoleAdmin:
		return true
	case workflow.RoleLead:
		return req.CreatorID == actor.ID
	default:
		return false
	}
}

// CanEdit reports whether the actor may change the request content in its current status
func CanEdit(actor workflow.Actor, req *entity.Request) bool {
	switch actor.Role {
	case workflow.RoleSuperAdmin:
		return req.Status == workflow.StatusReadyForApproval
	case workflow.RoleAdmin:
		return req.Status == workflow.StatusSubmitted || req.Status == workflow.StatusUnderReview
	case workflow.RoleLead:
		if req.CreatorID != actor.ID {
			return false
		}
		return req.Status == workflow.StatusDraft || req.Status == workflow.StatusReturnedToLead
	default:
		return false
	}
}

// CanDelete reports whether the actor may delete the request
func CanDelete(actor workflow.Actor, req *entity.Request) bool {
	if actor.Role != workflow.RoleSuperAdmin {
		return false
	}
	return req.Status != workflow.StatusApproved && req.Status != workflow.StatusDeleted
}

// CanTransition checks the transition table and the predicates that gate the
// target. The returned error is nil when the move is allowed.
func CanTransition(table workflow.Table, actor workflow.Actor, req *entity.Request, target workflow.Status) error {
	target = workflow.ResolveTarget(req.Status, target)

	if err := table.Authorize(req.Status, target, actor.Role); err != nil {
		return err
	}

	// leads only move their own requests
	if actor.Role == workflow.RoleLead && req.CreatorID != actor.ID {
		return &workflow.TransitionError{
			From:   req.Status,
			To:     target,
			Role:   actor.Role,
			Reason: "only the creator may submit this request",
		}
	}

	if target == workflow.StatusDeleted && !CanDelete(actor, req) {
		return &workflow.TransitionError{
			From:   req.Status,
			To:     target,
			Role:   actor.Role,
			Reason: "only a superadmin may delete a request that is not approved",
		}
	}
	return nil
}

// PermittedTargets lists the statuses the actor may move the request to
func PermittedTargets(table workflow.Table, actor workflow.Actor, req *entity.Request) []workflow.Status {
	var out []workflow.Status
	for _, target := range table.PermittedTargets(req.Status, actor.Role) {
		if CanTransition(table, actor, req, target) == nil {
			out = append(out, target)
		}
	}
	return out
}
