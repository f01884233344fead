package contestservice

import (
	"context"
	"errors"
	"slices"
	"time"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/Black-And-White-Club/hydro/internal/validation"
)

// AddRequest describes a new contest or homework.
type AddRequest struct {
	DomainID     string                     `json:"domainId" validate:"required"`
	DocType      documentdomain.DocType     `json:"docType"`
	Owner        int64                      `json:"owner"`
	Title        string                     `json:"title" validate:"required,maxrunes=64"`
	Content      string                     `json:"content" validate:"maxrunes=65536"`
	Rule         string                     `json:"rule" validate:"required"`
	BeginAt      time.Time                  `json:"beginAt" validate:"required"`
	EndAt        time.Time                  `json:"endAt" validate:"required"`
	PIDs         []string                   `json:"pids" validate:"min=1"`
	Rated        bool                       `json:"rated"`
	PenaltySince *time.Time                 `json:"penaltySince"`
	PenaltyRules contestdomain.PenaltyRules `json:"penaltyRules"`
}

// EditRequest carries the fields to change. Nil fields are left alone.
type EditRequest struct {
	Title        *string                    `json:"title" validate:"omitempty,min=1,maxrunes=64"`
	Content      *string                    `json:"content" validate:"omitempty,maxrunes=65536"`
	Rule         *string                    `json:"rule" validate:"omitempty,min=1"`
	BeginAt      *time.Time                 `json:"beginAt"`
	EndAt        *time.Time                 `json:"endAt"`
	PIDs         []string                   `json:"pids" validate:"omitempty,min=1"`
	Rated        *bool                      `json:"rated"`
	PenaltySince *time.Time                 `json:"penaltySince"`
	PenaltyRules contestdomain.PenaltyRules `json:"penaltyRules"`
}

// check runs the validation shared by Add and Edit on the resulting contest.
func (s *ContestService) check(c *contestdomain.Contest) error {
	rule, err := s.rule(c)
	if err != nil {
		return err
	}
	if !c.BeginAt.Before(c.EndAt) {
		return validation.NewError("endAt", "must be after beginAt")
	}
	if c.DocType == documentdomain.TypeHomework && c.Rule != (contestdomain.HomeworkRule{}).Name() {
		return validation.NewError("rule", "homework requires the homework rule")
	}
	return rule.Check(c)
}

// Add validates and stores a contest, returning its docId.
func (s *ContestService) Add(ctx context.Context, req AddRequest) (documentdomain.DocID, error) {
	return withTelemetry(s, ctx, "Add", req.DomainID, func(ctx context.Context) (documentdomain.DocID, error) {
		if err := validation.Struct(req); err != nil {
			return "", err
		}
		if req.DocType == 0 {
			req.DocType = documentdomain.TypeContest
		}
		if req.DocType != documentdomain.TypeContest && req.DocType != documentdomain.TypeHomework {
			return "", validation.NewError("docType", "must be contest or homework")
		}
		c := &contestdomain.Contest{
			DomainID:     req.DomainID,
			DocType:      req.DocType,
			Owner:        req.Owner,
			Content:      req.Content,
			Title:        req.Title,
			Rule:         req.Rule,
			BeginAt:      contestdomain.NormalizeTime(req.BeginAt),
			EndAt:        contestdomain.NormalizeTime(req.EndAt),
			Rated:        req.Rated,
			PenaltyRules: req.PenaltyRules,
		}
		if req.PenaltySince != nil {
			t := contestdomain.NormalizeTime(*req.PenaltySince)
			c.PenaltySince = &t
		}
		if err := s.check(c); err != nil {
			return "", err
		}
		pids, err := s.problems.VerifyProblems(ctx, req.DomainID, req.PIDs)
		if err != nil {
			return "", err
		}
		c.PIDs = pids

		return s.docs.Add(ctx, documentservice.AddRequest{
			DomainID: c.DomainID,
			DocType:  c.DocType,
			Content:  c.Content,
			Owner:    c.Owner,
			Fields:   c.Fields(),
		})
	})
}

// Get returns the contest at k.
func (s *ContestService) Get(ctx context.Context, k documentdomain.DocKey) (*contestdomain.Contest, error) {
	return withTelemetry(s, ctx, "Get", k.String(), func(ctx context.Context) (*contestdomain.Contest, error) {
		return s.load(ctx, k)
	})
}

// Edit applies req to the contest. Changes to scoring inputs trigger a
// recalculation of every status, queued when a queue is configured.
func (s *ContestService) Edit(ctx context.Context, k documentdomain.DocKey, req EditRequest) (*contestdomain.Contest, error) {
	return withTelemetry(s, ctx, "Edit", k.String(), func(ctx context.Context) (*contestdomain.Contest, error) {
		if err := validation.Struct(req); err != nil {
			return nil, err
		}
		c, err := s.load(ctx, k)
		if err != nil {
			return nil, err
		}

		var changed []string
		recalc := false
		if req.Title != nil && *req.Title != c.Title {
			c.Title = *req.Title
			changed = append(changed, "title")
		}
		if req.Rated != nil && *req.Rated != c.Rated {
			c.Rated = *req.Rated
			changed = append(changed, "rated")
		}
		if req.Rule != nil && *req.Rule != c.Rule {
			c.Rule = *req.Rule
			changed = append(changed, "rule")
			recalc = true
		}
		if req.BeginAt != nil && !contestdomain.NormalizeTime(*req.BeginAt).Equal(c.BeginAt) {
			c.BeginAt = contestdomain.NormalizeTime(*req.BeginAt)
			changed = append(changed, "beginAt")
			recalc = true
		}
		if req.EndAt != nil && !contestdomain.NormalizeTime(*req.EndAt).Equal(c.EndAt) {
			c.EndAt = contestdomain.NormalizeTime(*req.EndAt)
			changed = append(changed, "endAt")
			recalc = true
		}
		if req.PenaltySince != nil {
			t := contestdomain.NormalizeTime(*req.PenaltySince)
			if c.PenaltySince == nil || !c.PenaltySince.Equal(t) {
				c.PenaltySince = &t
				changed = append(changed, "penaltySince")
				recalc = true
			}
		}
		if req.PenaltyRules != nil && !documentdomain.Equal(
			documentdomain.MustNormalize(req.PenaltyRules), documentdomain.MustNormalize(c.PenaltyRules)) {
			c.PenaltyRules = req.PenaltyRules
			changed = append(changed, "penaltyRules")
			recalc = true
		}
		if err := s.check(c); err != nil {
			return nil, err
		}
		if req.PIDs != nil {
			pids, err := s.problems.VerifyProblems(ctx, k.DomainID, req.PIDs)
			if err != nil {
				return nil, err
			}
			if !slices.Equal(pids, c.PIDs) {
				c.PIDs = pids
				changed = append(changed, "pids")
				recalc = true
			}
		}

		set := c.Fields()
		delete(set, "attend")
		if req.Content != nil && *req.Content != c.Content {
			c.Content = *req.Content
			set["content"] = c.Content
			changed = append(changed, "content")
		}
		if len(changed) == 0 {
			return c, nil
		}
		if _, err := s.docs.Set(ctx, k, set); err != nil {
			return nil, err
		}

		// The edit is stored from here on: the cache is dropped even when the
		// recalculation fails, so readers never see the old contest's table.
		var recalcErr error
		if recalc {
			recalcErr = s.scheduleRecalc(ctx, c)
		}
		s.invalidate(ctx, k)
		if recalcErr != nil {
			return nil, recalcErr
		}
		s.publish(ctx, contestdomain.ContestEditedV1, contestdomain.ContestEditedPayload{
			ContestRef: contestdomain.RefOf(k),
			Changed:    changed,
			Recalc:     recalc,
		})
		return c, nil
	})
}

// scheduleRecalc hands the recalculation to the queue, or runs it inline when
// there is no queue or the enqueue fails.
func (s *ContestService) scheduleRecalc(ctx context.Context, c *contestdomain.Contest) error {
	k := c.Key()
	if s.queue != nil {
		err := s.queue.EnqueueRecalc(ctx, contestdomain.RefOf(k))
		if err == nil {
			return nil
		}
		s.logger.WarnContext(ctx, "Failed to enqueue recalculation, running it inline",
			attr.ExtractCorrelationID(ctx),
			attr.DomainID(k.DomainID),
			attr.DocID("tid", string(k.DocID)),
			attr.Error(err),
		)
	}
	_, err := s.recalc(ctx, c)
	return err
}

// Delete removes the contest and all of its statuses.
func (s *ContestService) Delete(ctx context.Context, k documentdomain.DocKey) error {
	_, err := withTelemetry(s, ctx, "Delete", k.String(), func(ctx context.Context) (struct{}, error) {
		if _, err := s.load(ctx, k); err != nil {
			return struct{}{}, err
		}
		if _, err := s.docs.DeleteMultiStatus(ctx, k.DomainID, k.DocType, documentdomain.StatusFilter{
			DocIDs: []documentdomain.DocID{k.DocID},
		}); err != nil {
			return struct{}{}, err
		}
		if err := s.docs.DeleteOne(ctx, k); err != nil {
			return struct{}{}, err
		}
		s.invalidate(ctx, k)
		return struct{}{}, nil
	})
	return err
}

// GetMulti lists contests newest first.
func (s *ContestService) GetMulti(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter, skip, limit int) ([]*contestdomain.Contest, error) {
	return withTelemetry(s, ctx, "GetMulti", domainID, func(ctx context.Context) ([]*contestdomain.Contest, error) {
		docs, err := s.docs.GetMulti(ctx, domainID, docType, filter, documentdomain.FindOptions{
			Sort:  []documentdomain.SortField{{Field: "beginAt", Desc: true}},
			Skip:  skip,
			Limit: limit,
		})
		if err != nil {
			return nil, err
		}
		out := make([]*contestdomain.Contest, 0, len(docs))
		for _, doc := range docs {
			c, err := contestdomain.FromDocument(doc)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	})
}

// Count counts contests matching filter.
func (s *ContestService) Count(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error) {
	return withTelemetry(s, ctx, "Count", domainID, func(ctx context.Context) (int64, error) {
		return s.docs.Count(ctx, domainID, docType, filter)
	})
}

// GetRelated lists the contests of docType that include pid.
func (s *ContestService) GetRelated(ctx context.Context, domainID string, docType documentdomain.DocType, pid int64) ([]*contestdomain.Contest, error) {
	return s.GetMulti(ctx, domainID, docType, documentdomain.Filter{
		Contains: map[string]any{"pids": pid},
	}, 0, 0)
}

// VerifyProblems resolves problem references for contest forms.
func (s *ContestService) VerifyProblems(ctx context.Context, domainID string, refs []string) ([]int64, error) {
	return s.problems.VerifyProblems(ctx, domainID, refs)
}

// Attend registers uid in the contest. A second attempt returns
// ContestAlreadyAttendedError. The status write and the counter increment are
// two separate updates.
func (s *ContestService) Attend(ctx context.Context, k documentdomain.DocKey, uid int64) error {
	_, err := withTelemetry(s, ctx, "Attend", k.String(), func(ctx context.Context) (struct{}, error) {
		if _, err := s.load(ctx, k); err != nil {
			return struct{}{}, err
		}
		sk := documentdomain.StatusKey{DocKey: k, UID: uid}
		if _, err := s.docs.CappedIncStatus(ctx, sk, "attend", 1, 0, 1); err != nil {
			if errors.Is(err, documentdb.ErrCappedIncRejected) {
				if s.metrics != nil {
					s.metrics.RecordAttendRejected(ctx, k.DomainID)
				}
				return struct{}{}, &ContestAlreadyAttendedError{Key: k, UID: uid}
			}
			return struct{}{}, err
		}
		if _, err := s.docs.Inc(ctx, k, "attend", 1); err != nil {
			s.logger.ErrorContext(ctx, "Attendance recorded but contest counter not incremented",
				attr.ExtractCorrelationID(ctx),
				attr.DomainID(k.DomainID),
				attr.DocID("tid", string(k.DocID)),
				attr.UID(uid),
				attr.Error(err),
			)
			return struct{}{}, err
		}
		s.publish(ctx, contestdomain.ContestAttendedV1, contestdomain.ContestAttendedPayload{
			ContestRef: contestdomain.RefOf(k),
			UID:        uid,
			AttendedAt: s.now().UTC(),
		})
		return struct{}{}, nil
	})
	return err
}
