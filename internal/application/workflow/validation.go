package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/event-approval/internal/domain/entity"
	domainwf "github.com/garyjia/event-approval/internal/domain/workflow"
	"github.com/garyjia/event-approval/pkg/utils"
)

// draftContent is the lenient tier: a draft only needs a title
type draftContent struct {
	Title               string `json:"title" validate:"required,max=200"`
	Location            string `json:"location" validate:"max=200"`
	Description         string `json:"description" validate:"max=5000"`
	ExpectedAttendance  int    `json:"expected_attendance" validate:"gte=0"`
	BudgetCents         int64  `json:"budget_cents" validate:"gte=0"`
	SpecialRequirements string `json:"special_requirements" validate:"max=2000"`
}

// submitContent is the strict tier checked before a request enters review
type submitContent struct {
	Title               string     `json:"title" validate:"required,max=200"`
	StartsAt            *time.Time `json:"starts_at" validate:"required"`
	EndsAt              *time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Location            string     `json:"location" validate:"required,max=200"`
	Description         string     `json:"description" validate:"required,max=5000"`
	ExpectedAttendance  int        `json:"expected_attendance" validate:"gt=0"`
	BudgetCents         int64      `json:"budget_cents" validate:"gte=0"`
	SpecialRequirements string     `json:"special_requirements" validate:"max=2000"`
}

// ContentValidator implements the draft and submit validation tiers
type ContentValidator struct {
	v                 *utils.Validator
	minFeedbackLength int
}

// NewContentValidator creates a validator. minFeedback below 1 uses the default.
func NewContentValidator(minFeedback int) *ContentValidator {
	if minFeedback < 1 {
		minFeedback = entity.DefaultMinFeedbackLength
	}
	return &ContentValidator{v: utils.NewValidator(), minFeedbackLength: minFeedback}
}

// ValidateDraft checks content against the lenient tier
func (c *ContentValidator) ValidateDraft(content entity.RequestContent) error {
	content = normalize(content)
	return c.check(draftContent{
		Title:               content.Title,
		Location:            content.Location,
		Description:         content.Description,
		ExpectedAttendance:  content.ExpectedAttendance,
		BudgetCents:         content.BudgetCents,
		SpecialRequirements: content.SpecialRequirements,
	})
}

// ValidateSubmit checks content against the strict tier
func (c *ContentValidator) ValidateSubmit(content entity.RequestContent) error {
	content = normalize(content)
	return c.check(submitContent{
		Title:               content.Title,
		StartsAt:            content.StartsAt,
		EndsAt:              content.EndsAt,
		Location:            content.Location,
		Description:         content.Description,
		ExpectedAttendance:  content.ExpectedAttendance,
		BudgetCents:         content.BudgetCents,
		SpecialRequirements: content.SpecialRequirements,
	})
}

// ValidateFeedback cleans feedback text. The minimum length applies only when
// feedback is required.
func (c *ContentValidator) ValidateFeedback(feedback string, required bool) (string, error) {
	cleaned := strings.TrimSpace(utils.SanitizeString(feedback))
	if cleaned == "" {
		if required {
			return "", domainwf.NewValidationError("feedback", "is required when returning a request")
		}
		return "", nil
	}
	if n := len([]rune(cleaned)); required && n < c.minFeedbackLength {
		return "", domainwf.NewValidationError("feedback",
			fmt.Sprintf("must be at least %d characters", c.minFeedbackLength))
	}
	if len([]rune(cleaned)) > entity.MaxFeedbackLength {
		return "", domainwf.NewValidationError("feedback",
			fmt.Sprintf("must be at most %d characters", entity.MaxFeedbackLength))
	}
	return cleaned, nil
}

// ValidateEventType rejects unknown event types
func (c *ContentValidator) ValidateEventType(t entity.EventType) error {
	if !t.IsValid() {
		return domainwf.NewValidationError("event_type", "must be one of: sunday regional local")
	}
	return nil
}

func (c *ContentValidator) check(form interface{}) error {
	fields, err := c.v.Struct(form)
	if err != nil {
		return fmt.Errorf("content validation: %w", err)
	}
	if len(fields) > 0 {
		return &domainwf.ValidationError{Fields: fields}
	}
	return nil
}

func normalize(content entity.RequestContent) entity.RequestContent {
	content.Title = strings.TrimSpace(utils.SanitizeString(content.Title))
	content.Location = strings.TrimSpace(utils.SanitizeString(content.Location))
	content.Description = strings.TrimSpace(utils.SanitizeString(content.Description))
	content.SpecialRequirements = strings.TrimSpace(utils.SanitizeString(content.SpecialRequirements))
	return content
}
