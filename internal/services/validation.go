package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// CreateAnnouncementInput is the accepted body of POST /announcements.
type CreateAnnouncementInput struct {
	Title string `json:"title" validate:"required,max=200"`
}

// CreateCommentInput is the accepted body of POST /announcements/:id/comments.
type CreateCommentInput struct {
	AuthorName string `json:"authorName" validate:"required,max=100"`
	Text       string `json:"text"       validate:"required,max=500"`
}

// ReactionInput is the accepted body of POST /announcements/:id/reactions.
type ReactionInput struct {
	Type   string `json:"type"   validate:"required,oneof=up down heart"`
	UserID string `json:"userId" validate:"omitempty,max=128"`
}

// Normalize applies NFC, trims, and collapses runs of whitespace in the title.
func (in *CreateAnnouncementInput) Normalize() {
	in.Title = whitespaceRE.ReplaceAllString(clean(in.Title), " ")
}

// Normalize applies NFC and trims both fields. Line breaks in the text are
// kept.
func (in *CreateCommentInput) Normalize() {
	in.AuthorName = clean(in.AuthorName)
	in.Text = clean(in.Text)
}

// Normalize trims and lower-cases the type and trims the user id.
func (in *ReactionInput) Normalize() {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.UserID = strings.TrimSpace(in.UserID)
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// fieldMessages maps (json field, failed tag) to the message callers see.
// The empty tag is the fallback for a field.
var fieldMessages = map[string]map[string]string{
	"title":      {"required": msgTitleRequired, "": msgTitleLength},
	"authorName": {"required": msgAuthorNameRequired, "": msgAuthorNameLength},
	"text":       {"required": msgTextRequired, "": msgTextLength},
	"type":       {"": msgReactionType},
	"userId":     {"": msgUserIDLength},
}

// Validator wraps go-playground/validator and translates its failures into
// a domain validation error with one FieldError per failing field.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator that reports JSON field names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s. It returns nil or a *domain.Error of kind Validation.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Internal(err)
	}
	details := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, domain.FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe.Field(), fe.Tag()),
		})
	}
	return domain.Validation(details...)
}

func messageFor(field, tag string) string {
	if msgs, ok := fieldMessages[field]; ok {
		if m, ok := msgs[tag]; ok {
			return m
		}
		return msgs[""]
	}
	return field + " is invalid"
}
