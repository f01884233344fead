package contestservice

import (
	"context"
	"strconv"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/Black-And-White-Club/hydro/internal/validation"
	"golang.org/x/time/rate"
)

// UpdateStatusRequest is one judged submission of an attended user. RID must
// be an ObjectID: its timestamp is the submission time the rules fold by.
type UpdateStatusRequest struct {
	UID    int64   `json:"uid"`
	RID    string  `json:"rid" validate:"required,mongodb"`
	PID    int64   `json:"pid"`
	Accept bool    `json:"accept"`
	Score  float64 `json:"score"`
}

// RecalcResult counts the statuses a recalculation rewrote and skipped.
type RecalcResult struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// UpdateStatus appends a journal entry for the user and recomputes the
// aggregate. The append always lands. The aggregate write is skipped when
// another append raced it.
func (s *ContestService) UpdateStatus(ctx context.Context, k documentdomain.DocKey, req UpdateStatusRequest) (*contestdomain.Status, error) {
	return withTelemetry(s, ctx, "UpdateStatus", k.String(), func(ctx context.Context) (*contestdomain.Status, error) {
		if err := validation.Struct(req); err != nil {
			return nil, err
		}
		c, err := s.load(ctx, k)
		if err != nil {
			return nil, err
		}
		rule, err := s.rule(c)
		if err != nil {
			return nil, err
		}
		sk := documentdomain.StatusKey{DocKey: k, UID: req.UID}
		current, err := s.docs.GetStatus(ctx, sk)
		if err != nil {
			return nil, err
		}
		if !contestdomain.Attended(current) {
			return nil, &ContestNotAttendedError{Key: k, UID: req.UID}
		}
		prior, err := contestdomain.DecodeJournal(current.Fields)
		if err != nil {
			return nil, err
		}

		st, err := s.docs.RevPushStatus(ctx, sk, contestdomain.JournalField, contestdomain.JournalEntry{
			RID:    req.RID,
			PID:    req.PID,
			Accept: req.Accept,
			Score:  req.Score,
		})
		if err != nil {
			return nil, err
		}
		if !journalHas(prior, req.RID) {
			s.recordSubmission(ctx, k.DomainID, req)
		}
		updated, applied, err := s.apply(ctx, c, rule, st)
		if err != nil {
			return nil, err
		}
		if applied {
			st = updated
		}

		s.invalidate(ctx, k)
		s.publish(ctx, contestdomain.ContestStatusUpdatedV1, contestdomain.ContestStatusUpdatedPayload{
			ContestRef: contestdomain.RefOf(k),
			UID:        req.UID,
			RID:        req.RID,
			PID:        req.PID,
			Accept:     req.Accept,
			Score:      req.Score,
			Rev:        st.Rev,
			Applied:    applied,
		})
		return contestdomain.DecodeStatus(st)
	})
}

func journalHas(journal []contestdomain.JournalEntry, rid string) bool {
	for _, e := range journal {
		if e.RID == rid {
			return true
		}
	}
	return false
}

// recordSubmission counts the first verdict of a record on its problem.
// Rejudges leave the counters alone. The journal entry has landed already, so
// a failure here is logged and not returned.
func (s *ContestService) recordSubmission(ctx context.Context, domainID string, req UpdateStatusRequest) {
	if err := s.problems.RecordSubmission(ctx, domainID, req.PID, req.Accept); err != nil {
		s.logger.WarnContext(ctx, "Failed to record problem submission",
			attr.ExtractCorrelationID(ctx),
			attr.DomainID(domainID),
			attr.Int64("pid", req.PID),
			attr.String("rid", req.RID),
			attr.Error(err),
		)
	}
}

// apply recomputes the aggregate of st and writes it back against st.Rev.
func (s *ContestService) apply(ctx context.Context, c *contestdomain.Contest, rule contestdomain.ContestRule, st *documentdomain.Status) (*documentdomain.Status, bool, error) {
	journal, err := contestdomain.DecodeJournal(st.Fields)
	if err != nil {
		return nil, false, err
	}
	stat := rule.Stat(c, journal)
	updated, ok, err := s.docs.RevSetStatus(ctx, st.Key(), st.Rev, stat.Fields())
	if err != nil {
		return nil, false, err
	}
	if !ok {
		s.logger.DebugContext(ctx, "Status revision moved, aggregate write skipped",
			attr.ExtractCorrelationID(ctx),
			attr.DomainID(st.DomainID),
			attr.DocID("tid", string(st.DocID)),
			attr.UID(st.UID),
			attr.Int64("rev", st.Rev),
		)
		if s.metrics != nil {
			s.metrics.RecordRecalcSkipped(ctx, st.DomainID)
		}
		return nil, false, nil
	}
	return updated, true, nil
}

// RecalcStatus recomputes the aggregate of every status of the contest.
// Statuses whose revision moved during the pass are skipped.
func (s *ContestService) RecalcStatus(ctx context.Context, k documentdomain.DocKey) (RecalcResult, error) {
	return withTelemetry(s, ctx, "RecalcStatus", k.String(), func(ctx context.Context) (RecalcResult, error) {
		c, err := s.load(ctx, k)
		if err != nil {
			return RecalcResult{}, err
		}
		res, err := s.recalc(ctx, c)
		if err != nil {
			return res, err
		}
		s.invalidate(ctx, k)
		s.publish(ctx, contestdomain.ContestRecalculatedV1, contestdomain.ContestRecalculatedPayload{
			ContestRef: contestdomain.RefOf(k),
			Applied:    res.Applied,
			Skipped:    res.Skipped,
		})
		return res, nil
	})
}

func (s *ContestService) recalc(ctx context.Context, c *contestdomain.Contest) (RecalcResult, error) {
	var res RecalcResult
	rule, err := s.rule(c)
	if err != nil {
		return res, err
	}
	limiter := rate.NewLimiter(s.recalcRate, 1)
	k := c.Key()
	for skip := 0; ; skip += recalcPageSize {
		page, err := s.docs.GetMultiStatus(ctx, k.DomainID, k.DocType, documentdomain.StatusFilter{
			DocIDs: []documentdomain.DocID{k.DocID},
		}, documentdomain.FindOptions{Skip: skip, Limit: recalcPageSize})
		if err != nil {
			return res, err
		}
		for _, st := range page {
			if err := limiter.Wait(ctx); err != nil {
				return res, err
			}
			_, ok, err := s.apply(ctx, c, rule, st)
			if err != nil {
				return res, err
			}
			if ok {
				res.Applied++
			} else {
				res.Skipped++
			}
		}
		if len(page) < recalcPageSize {
			break
		}
	}
	if s.metrics != nil {
		s.metrics.RecordRecalcApplied(ctx, k.DomainID, res.Applied)
	}
	s.logger.InfoContext(ctx, "Contest statuses recalculated",
		attr.ExtractCorrelationID(ctx),
		attr.DomainID(k.DomainID),
		attr.DocID("tid", string(k.DocID)),
		attr.Int("applied", res.Applied),
		attr.Int("skipped", res.Skipped),
	)
	return res, nil
}

// GetStatus returns the user's status, or nil when the user never touched the contest.
func (s *ContestService) GetStatus(ctx context.Context, k documentdomain.DocKey, uid int64) (*contestdomain.Status, error) {
	return withTelemetry(s, ctx, "GetStatus", k.String(), func(ctx context.Context) (*contestdomain.Status, error) {
		st, err := s.docs.GetStatus(ctx, documentdomain.StatusKey{DocKey: k, UID: uid})
		if err != nil || st == nil {
			return nil, err
		}
		return contestdomain.DecodeStatus(st)
	})
}

// GetListStatus returns uid's statuses on the given contests keyed by docId.
func (s *ContestService) GetListStatus(ctx context.Context, domainID string, docType documentdomain.DocType, uid int64, tids []documentdomain.DocID) (map[documentdomain.DocID]*contestdomain.Status, error) {
	return withTelemetry(s, ctx, "GetListStatus", domainID+"/"+strconv.FormatInt(uid, 10), func(ctx context.Context) (map[documentdomain.DocID]*contestdomain.Status, error) {
		out := make(map[documentdomain.DocID]*contestdomain.Status, len(tids))
		if len(tids) == 0 {
			return out, nil
		}
		sts, err := s.docs.GetMultiStatus(ctx, domainID, docType, documentdomain.StatusFilter{
			DocIDs: tids,
			UIDs:   []int64{uid},
		}, documentdomain.FindOptions{})
		if err != nil {
			return nil, err
		}
		for _, st := range sts {
			cs, err := contestdomain.DecodeStatus(st)
			if err != nil {
				return nil, err
			}
			out[st.DocID] = cs
		}
		return out, nil
	})
}

// GetMultiStatus lists the statuses of a contest.
func (s *ContestService) GetMultiStatus(ctx context.Context, k documentdomain.DocKey, filter documentdomain.StatusFilter, opts documentdomain.FindOptions) ([]*contestdomain.Status, error) {
	return withTelemetry(s, ctx, "GetMultiStatus", k.String(), func(ctx context.Context) ([]*contestdomain.Status, error) {
		filter.DocIDs = []documentdomain.DocID{k.DocID}
		sts, err := s.docs.GetMultiStatus(ctx, k.DomainID, k.DocType, filter, opts)
		if err != nil {
			return nil, err
		}
		out := make([]*contestdomain.Status, 0, len(sts))
		for _, st := range sts {
			cs, err := contestdomain.DecodeStatus(st)
			if err != nil {
				return nil, err
			}
			out = append(out, cs)
		}
		return out, nil
	})
}
