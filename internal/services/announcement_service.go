// Package services – AnnouncementService
//
// This file implements AnnouncementService, the application-level component in
// front of the store. It normalizes and validates input before any store
// call, defaults the anonymous reaction user, and keeps the domain counters.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry announcement ids and pagination parameters where applicable.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/announcements-backend/internal/board"
	"github.com/tbourn/announcements-backend/internal/domain"
	"github.com/tbourn/announcements-backend/internal/store"
)

const tracerName = "services/AnnouncementService"

// AnnouncementService coordinates validation and store access for the board.
type AnnouncementService struct {
	Store     store.Store
	Validator *Validator
}

// NewAnnouncementService wires a service over st.
func NewAnnouncementService(st store.Store) *AnnouncementService {
	return &AnnouncementService{Store: st, Validator: NewValidator()}
}

// List returns the derived announcement views and their fingerprint. When
// one of the candidate tags equals the current fingerprint (or is "*"),
// notModifiedHit is true and the caller should answer 304.
func (s *AnnouncementService) List(ctx context.Context, ifNoneMatch ...string) (list domain.AnnouncementList, notModifiedHit bool, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "List")
	defer span.End()

	list, err = s.Store.GetAnnouncementsWithAggregates(ctx)
	if err != nil {
		return domain.AnnouncementList{}, false, err
	}
	span.SetAttributes(attribute.Int("announcements.count", len(list.Views)))
	for _, tag := range ifNoneMatch {
		if tag == "*" || (tag != "" && tag == list.ETag) {
			notModified.Inc()
			span.SetAttributes(attribute.Bool("not_modified", true))
			return list, true, nil
		}
	}
	return list, false, nil
}

// Create validates in and stores a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, in CreateAnnouncementInput) (*domain.Announcement, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Create")
	defer span.End()

	in.Normalize()
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	return s.Store.AddAnnouncement(ctx, in.Title)
}

// AddComment validates in and appends it to the announcement.
func (s *AnnouncementService) AddComment(ctx context.Context, announcementID string, in CreateCommentInput) (*domain.Comment, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "AddComment",
		trace.WithAttributes(attribute.String("announcement.id", announcementID)),
	)
	defer span.End()

	in.Normalize()
	if err := s.Validator.Struct(in); err != nil {
		return nil, err
	}
	c, err := s.Store.AddComment(ctx, announcementID, in.AuthorName, in.Text)
	if err != nil {
		return nil, err
	}
	commentsCreated.Inc()
	return c, nil
}

// ListComments returns one page of comments. Limits outside
// [1, board.MaxCommentLimit] fall back to board.DefaultCommentLimit.
func (s *AnnouncementService) ListComments(ctx context.Context, announcementID, cursor string, limit int) (domain.CommentPage, error) {
	limit = ClampCommentLimit(limit)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ListComments",
		trace.WithAttributes(
			attribute.String("announcement.id", announcementID),
			attribute.Int("limit", limit),
			attribute.Bool("cursor.present", cursor != ""),
		),
	)
	defer span.End()

	return s.Store.GetComments(ctx, announcementID, strings.TrimSpace(cursor), limit)
}

// React validates in and sets the user's reaction. idempotencyKey may be
// empty; a replayed key yields Replayed without changing state.
func (s *AnnouncementService) React(ctx context.Context, announcementID string, in ReactionInput, idempotencyKey string) (domain.ReactionResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "React",
		trace.WithAttributes(
			attribute.String("announcement.id", announcementID),
			attribute.Bool("idempotency_key.present", idempotencyKey != ""),
		),
	)
	defer span.End()

	in.Normalize()
	if err := s.Validator.Struct(in); err != nil {
		return domain.ReactionResult{}, err
	}
	t, _ := domain.ParseReactionType(in.Type)
	userID := in.UserID
	if userID == "" {
		userID = domain.AnonymousUser
	}

	res, err := s.Store.AddReaction(ctx, announcementID, t, userID, idempotencyKey)
	if err != nil {
		return domain.ReactionResult{}, err
	}
	if res.Replayed {
		reactionWrites.WithLabelValues(outcomeReplayed).Inc()
	} else {
		reactionWrites.WithLabelValues(outcomeApplied).Inc()
	}
	span.SetAttributes(attribute.Bool("replayed", res.Replayed))
	return res, nil
}

// Unreact removes the user's reaction. A blank userID is rejected.
func (s *AnnouncementService) Unreact(ctx context.Context, announcementID, userID string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Unreact",
		trace.WithAttributes(attribute.String("announcement.id", announcementID)),
	)
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrMissingUserID
	}
	if err := s.Store.RemoveReaction(ctx, announcementID, userID); err != nil {
		return err
	}
	reactionWrites.WithLabelValues(outcomeRemoved).Inc()
	return nil
}

// SeenIdempotencyKey reports whether key is already recorded.
func (s *AnnouncementService) SeenIdempotencyKey(ctx context.Context, key string) (bool, error) {
	return s.Store.SeenIdempotencyKey(ctx, key)
}

// ClampCommentLimit returns limit when it lies in [1, board.MaxCommentLimit]
// and board.DefaultCommentLimit otherwise.
func ClampCommentLimit(limit int) int {
	if limit < 1 || limit > board.MaxCommentLimit {
		return board.DefaultCommentLimit
	}
	return limit
}
