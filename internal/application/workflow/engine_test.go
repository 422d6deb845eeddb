package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/event"
	domainwf "github.com/garyjia/event-approval/internal/domain/workflow"
)

const validFeedback = "Please add the budget breakdown for catering."

var (
	lead1  = domainwf.NewActor("L1", domainwf.RoleLead)
	admin1 = domainwf.NewActor("A1", domainwf.RoleAdmin)
	admin2 = domainwf.NewActor("A2", domainwf.RoleAdmin)
	super1 = domainwf.NewActor("S1", domainwf.RoleSuperAdmin)
	member = domainwf.NewActor("M1", domainwf.RoleMember)
)

func fullContent() entity.RequestContent {
	start := time.Date(2026, 12, 6, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	return entity.RequestContent{
		Title:              "Advent Choir Night",
		StartsAt:           &start,
		EndsAt:             &end,
		Location:           "Sanctuary",
		Description:        "Evening of carols with the combined choirs",
		ExpectedAttendance: 250,
		BudgetCents:        45000,
	}
}

func seededRequest(status domainwf.Status) *entity.Request {
	created := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	req := &entity.Request{
		ID:             "R1",
		RequestNumber:  "REQ-2026-0001",
		CreatorID:      lead1.ID,
		DepartmentID:   "music",
		EventType:      entity.EventTypeSunday,
		Status:         status,
		RequestContent: fullContent(),
		Version:        3,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	switch status {
	case domainwf.StatusUnderReview, domainwf.StatusReturnedToAdmin, domainwf.StatusReadyForApproval,
		domainwf.StatusApproved, domainwf.StatusDeleted:
		adminID := admin1.ID
		req.AssignedAdminID = &adminID
		reviewed := created.Add(time.Hour)
		req.ReviewedAt = &reviewed
	}
	if status != domainwf.StatusDraft {
		submitted := created.Add(30 * time.Minute)
		req.SubmittedAt = &submitted
	}
	return req
}

func newTestEngine(store *memStore, opts ...EngineOption) WorkflowEngine {
	opts = append([]EngineOption{WithClock(newStepClock().Now)}, opts...)
	return NewEngine(store.repositories(), store, opts...)
}

func transition(t *testing.T, e WorkflowEngine, id string, target domainwf.Status, actor domainwf.Actor, feedback string) (*TransitionResult, error) {
	t.Helper()
	return e.ExecuteTransition(context.Background(), TransitionCommand{
		RequestID:     id,
		Target:        target,
		Actor:         actor,
		Feedback:      feedback,
		SourceAddress: "203.0.113.7",
	})
}

func TestExecuteTransition_ExampleScenario(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store)
	ctx := context.Background()

	req, err := engine.CreateDraft(ctx, lead1, DraftInput{
		DepartmentID: "music",
		EventType:    entity.EventTypeSunday,
		Content:      fullContent(),
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusDraft, req.Status)
	id := req.ID

	res, err := transition(t, engine, id, domainwf.StatusSubmitted, lead1, "")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusSubmitted, res.Request.Status)
	assert.NotNil(t, res.Request.SubmittedAt)
	assert.Nil(t, res.Request.AssignedAdminID)

	res, err = transition(t, engine, id, domainwf.StatusUnderReview, admin1, "")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusUnderReview, res.Request.Status)
	assert.Equal(t, admin1.ID, res.Request.AssignedAdmin())

	_, err = transition(t, engine, id, domainwf.StatusUnderReview, admin2, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)
	assert.Equal(t, admin1.ID, store.stored(id).AssignedAdmin())

	_, err = transition(t, engine, id, domainwf.StatusReadyForApproval, admin1, "")
	require.NoError(t, err)

	res, err = transition(t, engine, id, domainwf.StatusApproved, super1, "")
	require.NoError(t, err)
	assert.NotNil(t, res.Request.ApprovedAt)
	require.NotNil(t, res.CalendarEvent)
	assert.Equal(t, "Advent Choir Night", res.CalendarEvent.Title)
	assert.Equal(t, "Sanctuary", res.CalendarEvent.Location)
	assert.True(t, res.CalendarEvent.StartsAt.Equal(*fullContent().StartsAt))

	_, err = transition(t, engine, id, domainwf.StatusDeleted, super1, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)
	assert.Equal(t, domainwf.StatusApproved, store.stored(id).Status)

	var actions []entity.AuditAction
	for _, a := range store.auditEntries() {
		actions = append(actions, a.Action)
	}
	assert.Equal(t, []entity.AuditAction{
		entity.ActionCreated,
		entity.ActionSubmitted,
		entity.ActionClaimed,
		entity.ActionForwarded,
		entity.ActionApproved,
	}, actions)
	assert.Len(t, store.outboxMessages(), 5)
}

func TestExecuteTransition_Closure(t *testing.T) {
	table := BuildRequestTransitionTable()
	actors := []domainwf.Actor{lead1, admin1, super1, member}
	targets := append(domainwf.AllStatuses(), domainwf.StatusReturned)

	for _, from := range domainwf.AllStatuses() {
		for _, actor := range actors {
			for _, target := range targets {
				name := fmt.Sprintf("%s/%s/%s", from, actor.Role, target)
				t.Run(name, func(t *testing.T) {
					store := newMemStore()
					seeded := seededRequest(from)
					store.seed(seeded)
					engine := newTestEngine(store)

					res, err := transition(t, engine, seeded.ID, target, actor, validFeedback)

					resolved := domainwf.ResolveTarget(from, target)
					edge, ok := table.Lookup(from, resolved)
					if ok && edge.Allows(actor.Role) {
						require.NoError(t, err)
						assert.Equal(t, resolved, res.Request.Status)
						assert.Equal(t, resolved, store.stored(seeded.ID).Status)

						entries := store.auditEntries()
						require.Len(t, entries, 1)
						wantAction, _ := entity.ActionForStatus(resolved)
						assert.Equal(t, wantAction, entries[0].Action)
						assert.Equal(t, actor.ID, entries[0].ActorID)
						assert.Equal(t, seeded.ID, entries[0].ResourceID)
						assert.Equal(t, "203.0.113.7", entries[0].SourceAddress)
						assert.Len(t, store.outboxMessages(), 1)
						return
					}

					require.Error(t, err)
					assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)
					assert.Nil(t, res)
					assert.Equal(t, seeded, store.stored(seeded.ID))
					assert.Empty(t, store.auditEntries())
					assert.Empty(t, store.outboxMessages())
				})
			}
		}
	}
}

func TestExecuteTransition_SingleClaimUnderConcurrency(t *testing.T) {
	store := newMemStore()
	store.seed(seededRequest(domainwf.StatusSubmitted))
	engine := newTestEngine(store)

	const claimants = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		winners    []string
		rejected   int
		unexpected []error
	)
	start := make(chan struct{})

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			actor := domainwf.NewActor(fmt.Sprintf("A%d", n), domainwf.RoleAdmin)
			<-start
			_, err := engine.ExecuteTransition(context.Background(), TransitionCommand{
				RequestID: "R1",
				Target:    domainwf.StatusUnderReview,
				Actor:     actor,
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, actor.ID)
			case errors.Is(err, domainwf.ErrInvalidTransition), errors.Is(err, domainwf.ErrConcurrencyConflict):
				rejected++
			default:
				unexpected = append(unexpected, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.Empty(t, unexpected)
	require.Len(t, winners, 1)
	assert.Equal(t, claimants-1, rejected)

	final := store.stored("R1")
	assert.Equal(t, domainwf.StatusUnderReview, final.Status)
	assert.Equal(t, winners[0], final.AssignedAdmin())
	assert.Len(t, store.auditEntries(), 1)
}

func TestExecuteTransition_LostCompareAndSet(t *testing.T) {
	store := newMemStore()
	store.seed(seededRequest(domainwf.StatusSubmitted))
	store.beforeSave = func(stored *entity.Request) {
		// another admin committed between our read and write
		adminID := admin2.ID
		stored.Status = domainwf.StatusUnderReview
		stored.AssignedAdminID = &adminID
		stored.Version++
	}
	engine := newTestEngine(store)

	_, err := transition(t, engine, "R1", domainwf.StatusUnderReview, admin1, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domainwf.ErrConcurrencyConflict)
	assert.True(t, domainwf.IsRetryable(err))
	assert.Empty(t, store.auditEntries())
	assert.Empty(t, store.outboxMessages())
}

func TestExecuteTransition_TimestampMonotonicity(t *testing.T) {
	store := newMemStore()
	seeded := seededRequest(domainwf.StatusDraft)
	store.seed(seeded)
	engine := newTestEngine(store)

	steps := []struct {
		target domainwf.Status
		actor  domainwf.Actor
	}{
		{domainwf.StatusSubmitted, lead1},
		{domainwf.StatusUnderReview, admin1},
		{domainwf.StatusReadyForApproval, admin1},
		{domainwf.StatusApproved, super1},
	}
	for _, step := range steps {
		_, err := transition(t, engine, seeded.ID, step.target, step.actor, "")
		require.NoError(t, err, "transition to %s", step.target)
	}

	final := store.stored(seeded.ID)
	require.NotNil(t, final.SubmittedAt)
	require.NotNil(t, final.ReviewedAt)
	require.NotNil(t, final.ApprovedAt)
	assert.False(t, final.ReviewedAt.Before(*final.SubmittedAt))
	assert.False(t, final.ApprovedAt.Before(*final.ReviewedAt))
	assert.Equal(t, admin1.ID, final.AssignedAdmin())
	assert.Equal(t, int64(7), final.Version)
}

func TestExecuteTransition_ReturnedRequiresFeedback(t *testing.T) {
	cases := []struct {
		from  domainwf.Status
		actor domainwf.Actor
	}{
		{domainwf.StatusUnderReview, admin1},
		{domainwf.StatusReadyForApproval, super1},
	}

	for _, tc := range cases {
		for _, feedback := range []string{"", "   ", "too short"} {
			t.Run(fmt.Sprintf("%s/%q", tc.from, feedback), func(t *testing.T) {
				store := newMemStore()
				store.seed(seededRequest(tc.from))
				engine := newTestEngine(store)

				_, err := transition(t, engine, "R1", domainwf.StatusReturned, tc.actor, feedback)

				require.Error(t, err)
				assert.ErrorIs(t, err, domainwf.ErrValidation)
				var verr *domainwf.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, "feedback")
				assert.Equal(t, tc.from, store.stored("R1").Status)
				assert.Empty(t, store.auditEntries())
			})
		}
	}

	t.Run("not returnable from draft", func(t *testing.T) {
		store := newMemStore()
		store.seed(seededRequest(domainwf.StatusDraft))
		engine := newTestEngine(store)

		_, err := transition(t, engine, "R1", domainwf.StatusReturned, lead1, "")
		assert.Error(t, err)
	})
}

func TestExecuteTransition_ReturnPaths(t *testing.T) {
	t.Run("admin return goes to lead and clears the claim", func(t *testing.T) {
		store := newMemStore()
		store.seed(seededRequest(domainwf.StatusUnderReview))
		engine := newTestEngine(store)

		res, err := transition(t, engine, "R1", domainwf.StatusReturned, admin1, "  "+validFeedback+"  ")
		require.NoError(t, err)
		assert.Equal(t, domainwf.StatusReturnedToLead, res.Request.Status)
		assert.Nil(t, res.Request.AssignedAdminID)
		require.NotNil(t, res.Feedback)
		assert.Equal(t, validFeedback, res.Feedback.Feedback)
		assert.Equal(t, entity.ActionReturned, res.Feedback.Action)
		assert.Equal(t, validFeedback, res.AuditEntry.Reason)
		assert.Equal(t, event.TypeRequestReturned, res.Event.Type)

		res, err = transition(t, engine, "R1", domainwf.StatusSubmitted, lead1, "")
		require.NoError(t, err)
		assert.Equal(t, domainwf.StatusSubmitted, res.Request.Status)
	})

	t.Run("superadmin return goes to admin and resets review time", func(t *testing.T) {
		store := newMemStore()
		seeded := seededRequest(domainwf.StatusReadyForApproval)
		store.seed(seeded)
		engine := newTestEngine(store)

		res, err := transition(t, engine, "R1", domainwf.StatusReturned, super1, validFeedback)
		require.NoError(t, err)
		assert.Equal(t, domainwf.StatusReturnedToAdmin, res.Request.Status)
		assert.Equal(t, admin1.ID, res.Request.AssignedAdmin())
		assert.True(t, res.Request.ReviewedAt.After(*seeded.ReviewedAt))

		_, err = transition(t, engine, "R1", domainwf.StatusSubmitted, lead1, "")
		assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)

		res, err = transition(t, engine, "R1", domainwf.StatusUnderReview, admin1, "")
		require.NoError(t, err)
		assert.Equal(t, domainwf.StatusUnderReview, res.Request.Status)
	})
}

func TestExecuteTransition_DeleteRules(t *testing.T) {
	t.Run("only superadmin deletes", func(t *testing.T) {
		for _, actor := range []domainwf.Actor{lead1, admin1, member} {
			store := newMemStore()
			store.seed(seededRequest(domainwf.StatusReadyForApproval))
			engine := newTestEngine(store)

			_, err := transition(t, engine, "R1", domainwf.StatusDeleted, actor, "")
			assert.ErrorIs(t, err, domainwf.ErrInvalidTransition, "role %s", actor.Role)
		}
	})

	t.Run("approved requests cannot be deleted", func(t *testing.T) {
		store := newMemStore()
		store.seed(seededRequest(domainwf.StatusApproved))
		engine := newTestEngine(store)

		_, err := transition(t, engine, "R1", domainwf.StatusDeleted, super1, "")
		assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)
	})

	t.Run("deletion keeps content and audits a snapshot", func(t *testing.T) {
		store := newMemStore()
		store.seed(seededRequest(domainwf.StatusReadyForApproval))
		engine := newTestEngine(store)

		res, err := transition(t, engine, "R1", domainwf.StatusDeleted, super1, "Duplicate of REQ-2026-0002")
		require.NoError(t, err)
		assert.NotNil(t, res.Request.DeletedAt)

		stored := store.stored("R1")
		assert.Equal(t, "Advent Choir Night", stored.Title)

		entries := store.auditEntries()
		require.Len(t, entries, 1)
		assert.Equal(t, entity.ActionDeleted, entries[0].Action)
		assert.Equal(t, "Duplicate of REQ-2026-0002", entries[0].Reason)

		var changes map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(entries[0].Changes), &changes))
		snapshot, ok := changes["snapshot"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Advent Choir Night", snapshot["title"])
		assert.Equal(t, "ready_for_approval", snapshot["status"])
	})
}

func TestExecuteTransition_ApprovalIsAtomic(t *testing.T) {
	store := newMemStore()
	store.seed(seededRequest(domainwf.StatusReadyForApproval))
	store.calendarErr = errors.New("disk full")
	engine := newTestEngine(store)

	_, err := transition(t, engine, "R1", domainwf.StatusApproved, super1, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domainwf.ErrPersistence)
	assert.True(t, domainwf.IsRetryable(err))
	stored := store.stored("R1")
	assert.Equal(t, domainwf.StatusReadyForApproval, stored.Status)
	assert.Nil(t, stored.ApprovedAt)
	assert.Empty(t, store.auditEntries())
	assert.Empty(t, store.outboxMessages())
}

func TestExecuteTransition_AuditFailureRollsBack(t *testing.T) {
	store := newMemStore()
	store.seed(seededRequest(domainwf.StatusSubmitted))
	store.auditErr = errors.New("audit sink unavailable")
	engine := newTestEngine(store)

	_, err := transition(t, engine, "R1", domainwf.StatusUnderReview, admin1, "")

	assert.ErrorIs(t, err, domainwf.ErrPersistence)
	assert.Equal(t, domainwf.StatusSubmitted, store.stored("R1").Status)
}

func TestExecuteTransition_NotFound(t *testing.T) {
	store := newMemStore()
	metrics := &recordingMetrics{}
	engine := newTestEngine(store, WithMetrics(metrics))

	_, err := transition(t, engine, "missing", domainwf.StatusSubmitted, lead1, "")

	assert.ErrorIs(t, err, domainwf.ErrNotFound)
	assert.False(t, domainwf.IsRetryable(err))
	require.Len(t, metrics.observations, 1)
	assert.Equal(t, OutcomeNotFound, metrics.observations[0].outcome)
}

func TestExecuteTransition_SubmitRunsStrictValidation(t *testing.T) {
	store := newMemStore()
	draft := seededRequest(domainwf.StatusDraft)
	draft.RequestContent = entity.RequestContent{Title: "Picnic"}
	store.seed(draft)
	engine := newTestEngine(store)

	_, err := transition(t, engine, "R1", domainwf.StatusSubmitted, lead1, "")

	var verr *domainwf.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "starts_at")
	assert.Contains(t, verr.Fields, "location")
	assert.Equal(t, domainwf.StatusDraft, store.stored("R1").Status)
}

func TestExecuteTransition_LeadCannotSubmitOthersDraft(t *testing.T) {
	store := newMemStore()
	store.seed(seededRequest(domainwf.StatusDraft))
	engine := newTestEngine(store)

	_, err := transition(t, engine, "R1", domainwf.StatusSubmitted, domainwf.NewActor("L2", domainwf.RoleLead), "")
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)
}

func TestExecuteTransition_OutboxCarriesEvent(t *testing.T) {
	store := newMemStore()
	store.seed(seededRequest(domainwf.StatusUnderReview))
	engine := newTestEngine(store)

	res, err := transition(t, engine, "R1", domainwf.StatusReadyForApproval, admin1, "")
	require.NoError(t, err)

	msgs := store.outboxMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, res.Event.ID, msgs[0].ID)
	assert.Equal(t, "request.forwarded", msgs[0].EventType)

	decoded, err := event.Unmarshal(msgs[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-0001", decoded.GetPayloadString(event.PayloadRequestNumber))
	assert.Equal(t, lead1.ID, decoded.GetPayloadString(event.PayloadCreatorID))
	assert.Equal(t, admin1.ID, decoded.GetPayloadString(event.PayloadAssignedAdminID))
	assert.Equal(t, "under_review", decoded.GetPayloadString(event.PayloadFromStatus))
	assert.Equal(t, admin1, decoded.Actor())
}

func TestCreateDraft(t *testing.T) {
	t.Run("lead creates numbered draft", func(t *testing.T) {
		store := newMemStore()
		engine := newTestEngine(store)

		req, err := engine.CreateDraft(context.Background(), lead1, DraftInput{
			DepartmentID:  "youth",
			EventType:     entity.EventTypeLocal,
			Content:       entity.RequestContent{Title: "  Youth Games Night  "},
			SourceAddress: "198.51.100.4",
		})
		require.NoError(t, err)
		assert.Equal(t, "REQ-2026-0001", req.RequestNumber)
		assert.Equal(t, "Youth Games Night", req.Title)
		assert.Equal(t, lead1.ID, req.CreatorID)
		assert.Equal(t, int64(1), req.Version)

		entries := store.auditEntries()
		require.Len(t, entries, 1)
		assert.Equal(t, entity.ActionCreated, entries[0].Action)
		assert.Equal(t, "198.51.100.4", entries[0].SourceAddress)
		require.Len(t, store.outboxMessages(), 1)
		assert.Equal(t, "request.created", store.outboxMessages()[0].EventType)
	})

	t.Run("only leads create", func(t *testing.T) {
		engine := newTestEngine(newMemStore())
		_, err := engine.CreateDraft(context.Background(), admin1, DraftInput{
			DepartmentID: "youth",
			EventType:    entity.EventTypeLocal,
			Content:      entity.RequestContent{Title: "Games"},
		})
		assert.ErrorIs(t, err, domainwf.ErrPermissionDenied)
	})

	t.Run("draft needs a title", func(t *testing.T) {
		engine := newTestEngine(newMemStore())
		_, err := engine.CreateDraft(context.Background(), lead1, DraftInput{
			DepartmentID: "youth",
			EventType:    entity.EventTypeLocal,
		})
		var verr *domainwf.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "is required", verr.Fields["title"])
	})

	t.Run("unknown event type", func(t *testing.T) {
		engine := newTestEngine(newMemStore())
		_, err := engine.CreateDraft(context.Background(), lead1, DraftInput{
			DepartmentID: "youth",
			EventType:    "conference",
			Content:      entity.RequestContent{Title: "Games"},
		})
		assert.ErrorIs(t, err, domainwf.ErrValidation)
	})
}

func TestUpdateContent(t *testing.T) {
	location := "Fellowship Hall"
	attendance := 300

	t.Run("admin edit records field changes", func(t *testing.T) {
		store := newMemStore()
		store.seed(seededRequest(domainwf.StatusUnderReview))
		engine := newTestEngine(store)

		updated, err := engine.UpdateContent(context.Background(), admin1, "R1", ContentPatch{
			Location:           &location,
			ExpectedAttendance: &attendance,
		}, "203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, location, updated.Location)
		assert.Equal(t, int64(4), updated.Version)

		changes, err := memFieldChanges{store}.ListByRequest(context.Background(), "R1")
		require.NoError(t, err)
		require.Len(t, changes, 2)
		assert.Equal(t, "location", changes[0].FieldName)
		assert.Equal(t, "Sanctuary", changes[0].OldValue)
		assert.Equal(t, location, changes[0].NewValue)
		assert.Equal(t, admin1.ID, changes[0].ActorID)

		entries := store.auditEntries()
		require.Len(t, entries, 1)
		assert.Equal(t, entity.ActionUpdated, entries[0].Action)
	})

	t.Run("lead edits own draft without field change records", func(t *testing.T) {
		store := newMemStore()
		store.seed(seededRequest(domainwf.StatusDraft))
		engine := newTestEngine(store)

		_, err := engine.UpdateContent(context.Background(), lead1, "R1", ContentPatch{Location: &location}, "")
		require.NoError(t, err)

		changes, _ := memFieldChanges{store}.ListByRequest(context.Background(), "R1")
		assert.Empty(t, changes)
		assert.Len(t, store.auditEntries(), 1)
	})

	t.Run("holder rules are enforced", func(t *testing.T) {
		store := newMemStore()
		store.seed(seededRequest(domainwf.StatusSubmitted))
		engine := newTestEngine(store)

		_, err := engine.UpdateContent(context.Background(), lead1, "R1", ContentPatch{Location: &location}, "")
		assert.ErrorIs(t, err, domainwf.ErrPermissionDenied)

		_, err = engine.UpdateContent(context.Background(), super1, "R1", ContentPatch{Location: &location}, "")
		assert.ErrorIs(t, err, domainwf.ErrPermissionDenied)
	})

	t.Run("edits past draft keep the strict tier", func(t *testing.T) {
		store := newMemStore()
		store.seed(seededRequest(domainwf.StatusUnderReview))
		engine := newTestEngine(store)
		empty := ""

		_, err := engine.UpdateContent(context.Background(), admin1, "R1", ContentPatch{Location: &empty}, "")
		assert.ErrorIs(t, err, domainwf.ErrValidation)
	})

	t.Run("no changes is a no-op", func(t *testing.T) {
		store := newMemStore()
		store.seed(seededRequest(domainwf.StatusUnderReview))
		engine := newTestEngine(store)
		same := "Sanctuary"

		req, err := engine.UpdateContent(context.Background(), admin1, "R1", ContentPatch{Location: &same}, "")
		require.NoError(t, err)
		assert.Equal(t, int64(3), req.Version)
		assert.Empty(t, store.auditEntries())
	})
}

func TestPermittedTargets(t *testing.T) {
	store := newMemStore()
	store.seed(seededRequest(domainwf.StatusReadyForApproval))
	engine := newTestEngine(store)
	ctx := context.Background()

	targets, err := engine.PermittedTargets(ctx, super1, "R1")
	require.NoError(t, err)
	assert.Equal(t, []domainwf.Status{
		domainwf.StatusApproved,
		domainwf.StatusDeleted,
		domainwf.StatusReturnedToAdmin,
	}, targets)

	targets, err = engine.PermittedTargets(ctx, admin1, "R1")
	require.NoError(t, err)
	assert.Empty(t, targets)

	_, err = engine.PermittedTargets(ctx, domainwf.NewActor("L2", domainwf.RoleLead), "R1")
	assert.ErrorIs(t, err, domainwf.ErrPermissionDenied)
}
