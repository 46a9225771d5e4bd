package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"featureboard/pkg/domain"
)

// Field length bounds, counted in Unicode code points after trimming.
const (
	TitleMinLen       = 3
	TitleMaxLen       = 100
	DescriptionMinLen = 10
	DescriptionMaxLen = 1000
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "status", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseStatus(fl.Field().String())
		return ok
	})
	mustRegister(v, "priority", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParsePriority(fl.Field().String())
		return ok
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

var (
	titleRule       = fmt.Sprintf("min=%d,max=%d", TitleMinLen, TitleMaxLen)
	descriptionRule = fmt.Sprintf("min=%d,max=%d", DescriptionMinLen, DescriptionMaxLen)
)

// Submission is the payload of a new feature request. Its length tags must
// match titleRule and descriptionRule.
type Submission struct {
	Title       string `json:"title" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"required,min=10,max=1000"`
	Status      string `json:"status" validate:"required,status"`
	Priority    string `json:"priority" validate:"required,priority"`
}

func (s Submission) trimmed() Submission {
	return Submission{
		Title:       strings.TrimSpace(s.Title),
		Description: strings.TrimSpace(s.Description),
		Status:      strings.TrimSpace(s.Status),
		Priority:    strings.TrimSpace(s.Priority),
	}
}

// validateSubmission trims sub and checks every field, reporting all
// offending fields at once.
func validateSubmission(sub Submission) (domain.FeatureRequestFields, error) {
	sub = sub.trimmed()
	if err := validate.Struct(&sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.FeatureRequestFields{}, err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		return domain.FeatureRequestFields{}, domain.NewValidationError(fields)
	}
	status, _ := domain.ParseStatus(sub.Status)
	priority, _ := domain.ParsePriority(sub.Priority)
	return domain.FeatureRequestFields{
		Title:       sub.Title,
		Description: sub.Description,
		Status:      status,
		Priority:    priority,
	}, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "status":
		return fmt.Sprintf("must be one of %s", joinStatuses())
	case "priority":
		return fmt.Sprintf("must be one of %s", joinPriorities())
	}
	return "is invalid: " + fe.Tag()
}

func joinStatuses() string {
	out := make([]string, 0, len(domain.Statuses()))
	for _, s := range domain.Statuses() {
		out = append(out, string(s))
	}
	return strings.Join(out, ", ")
}

func joinPriorities() string {
	out := make([]string, 0, len(domain.Priorities()))
	for _, p := range domain.Priorities() {
		out = append(out, string(p))
	}
	return strings.Join(out, ", ")
}

// Patch is a partial update. Nil fields are absent. ID is accepted so
// payloads echoing the record decode cleanly, but it is never applied.
type Patch struct {
	ID          *string
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Comment     *string
}

// PatchFromFields builds a Patch from a loosely typed payload such as decoded
// JSON. Values that are not strings are dropped.
func PatchFromFields(fields map[string]any) Patch {
	str := func(key string) *string {
		v, ok := fields[key].(string)
		if !ok {
			return nil
		}
		return &v
	}
	return Patch{
		ID:          str("id"),
		Title:       str("title"),
		Description: str("description"),
		Status:      str("status"),
		Priority:    str("priority"),
		Comment:     str("comment"),
	}
}

// curated holds the patch fields that survived validation.
type curated struct {
	title       *string
	description *string
	status      *domain.Status
	priority    *domain.Priority
	comment     *string
	dropped     []string
}

// curate validates each present field on its own and drops the invalid ones.
func curate(p Patch) curated {
	var c curated
	if p.Title != nil {
		v := strings.TrimSpace(*p.Title)
		if validate.Var(v, "required,"+titleRule) == nil {
			c.title = &v
		} else {
			c.dropped = append(c.dropped, "title")
		}
	}
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		if validate.Var(v, "omitempty,"+descriptionRule) == nil {
			c.description = &v
		} else {
			c.dropped = append(c.dropped, "description")
		}
	}
	if p.Status != nil {
		if s, ok := domain.ParseStatus(*p.Status); ok {
			c.status = &s
		} else {
			c.dropped = append(c.dropped, "status")
		}
	}
	if p.Priority != nil {
		if pr, ok := domain.ParsePriority(*p.Priority); ok {
			c.priority = &pr
		} else {
			c.dropped = append(c.dropped, "priority")
		}
	}
	if p.Comment != nil {
		if v := strings.TrimSpace(*p.Comment); v != "" {
			c.comment = &v
		}
	}
	return c
}

func (c curated) apply(r *domain.FeatureRequest) {
	if c.title != nil {
		r.Title = *c.title
	}
	if c.description != nil {
		r.Description = *c.description
	}
	if c.status != nil {
		r.Status = *c.status
	}
	if c.priority != nil {
		r.Priority = *c.priority
	}
}
