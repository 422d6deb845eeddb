package workflow

import (
	domainwf "github.com/garyjia/event-approval/internal/domain/workflow"
)

// BuildRequestTransitionTable creates the transition table for event requests
func BuildRequestTransitionTable() domainwf.Table {
	builder := domainwf.NewBuilder()

	// Lead submits a draft
	builder.Configure(domainwf.StatusDraft).
		Permit(domainwf.StatusSubmitted, domainwf.RoleLead)

	// Admin claims
	builder.Configure(domainwf.StatusSubmitted).
		Permit(domainwf.StatusUnderReview, domainwf.RoleAdmin)

	builder.Configure(domainwf.StatusUnderReview).
		Permit(domainwf.StatusReturnedToLead, domainwf.RoleAdmin).
		Permit(domainwf.StatusReadyForApproval, domainwf.RoleAdmin)

	builder.Configure(domainwf.StatusReadyForApproval).
		Permit(domainwf.StatusApproved, domainwf.RoleSuperAdmin).
		Permit(domainwf.StatusReturnedToAdmin, domainwf.RoleSuperAdmin).
		Permit(domainwf.StatusDeleted, domainwf.RoleSuperAdmin)

	// Resubmission goes back to whoever returned it
	builder.Configure(domainwf.StatusReturnedToLead).
		Permit(domainwf.StatusSubmitted, domainwf.RoleLead)

	builder.Configure(domainwf.StatusReturnedToAdmin).
		Permit(domainwf.StatusUnderReview, domainwf.RoleAdmin)

	// APPROVED and DELETED are terminal - no outgoing transitions

	return builder.Build()
}
