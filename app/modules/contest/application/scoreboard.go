package contestservice

import (
	"context"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	problemdomain "github.com/Black-And-White-Club/hydro/app/modules/problem/domain"
	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"golang.org/x/sync/errgroup"
)

// ScoreboardOptions controls scoreboard rendering.
type ScoreboardOptions struct {
	IsExport bool
	// Override shows the scoreboard even when the rule hides it. Granting it
	// is up to the caller's permission check.
	Override bool
	// Translate localizes header labels. Translated tables bypass the cache.
	Translate contestdomain.Translate
}

// CanShowScoreboard reports whether the rule shows the scoreboard now.
func (s *ContestService) CanShowScoreboard(c *contestdomain.Contest) bool {
	rule, err := s.rule(c)
	if err != nil {
		return false
	}
	return rule.ShowScoreboard(c, s.now())
}

// CanShowRecord reports whether the rule shows per-submission records now.
func (s *ContestService) CanShowRecord(c *contestdomain.Contest) bool {
	rule, err := s.rule(c)
	if err != nil {
		return false
	}
	return rule.ShowRecord(c, s.now())
}

// StatusText names the phase of the contest now.
func (s *ContestService) StatusText(c *contestdomain.Contest) contestdomain.Phase {
	return contestdomain.StatusText(c, s.upcomingLead, s.now())
}

// Phase predicates evaluated against the service clock.
func (s *ContestService) IsNew(c *contestdomain.Contest) bool {
	return contestdomain.IsNew(c, s.upcomingLead, s.now())
}

func (s *ContestService) IsUpcoming(c *contestdomain.Contest) bool {
	return contestdomain.IsUpcoming(c, s.upcomingLead, s.now())
}

func (s *ContestService) IsOngoing(c *contestdomain.Contest) bool {
	return contestdomain.IsOngoing(c, s.now())
}

func (s *ContestService) IsDone(c *contestdomain.Contest) bool {
	return contestdomain.IsDone(c, s.now())
}

// GetScoreboard ranks the attended users of the contest and renders the table.
func (s *ContestService) GetScoreboard(ctx context.Context, k documentdomain.DocKey, opts ScoreboardOptions) (*contestdomain.Table, error) {
	return withTelemetry(s, ctx, "GetScoreboard", k.String(), func(ctx context.Context) (*contestdomain.Table, error) {
		c, err := s.load(ctx, k)
		if err != nil {
			return nil, err
		}
		rule, err := s.rule(c)
		if err != nil {
			return nil, err
		}
		if !opts.Override && !rule.ShowScoreboard(c, s.now()) {
			return nil, &ContestScoreboardHiddenError{Key: k}
		}

		cacheable := s.cache != nil && opts.Translate == nil
		ref := contestdomain.RefOf(k)
		if cacheable {
			table, hit, err := s.cache.Get(ctx, ref, opts.IsExport)
			if err != nil {
				s.logger.WarnContext(ctx, "Scoreboard cache read failed",
					attr.ExtractCorrelationID(ctx),
					attr.DomainID(k.DomainID),
					attr.DocID("tid", string(k.DocID)),
					attr.Error(err),
				)
			}
			if s.metrics != nil {
				s.metrics.RecordScoreboardCache(ctx, hit && err == nil)
			}
			if hit && err == nil {
				return table, nil
			}
		}

		var gen int64
		if cacheable {
			// Read before rendering: an invalidation after this point bumps the
			// generation and the Set below is refused.
			if gen, err = s.cache.Generation(ctx, ref); err != nil {
				s.logger.WarnContext(ctx, "Scoreboard cache generation read failed",
					attr.ExtractCorrelationID(ctx),
					attr.DomainID(k.DomainID),
					attr.DocID("tid", string(k.DocID)),
					attr.Error(err),
				)
				cacheable = false
			}
		}

		tr := opts.Translate
		if tr == nil {
			tr = contestdomain.Identity
		}
		table, err := s.render(ctx, c, rule, opts.IsExport, tr)
		if err != nil {
			return nil, err
		}
		if cacheable {
			stored, err := s.cache.Set(ctx, ref, opts.IsExport, gen, table)
			if err == nil && !stored {
				s.logger.DebugContext(ctx, "Scoreboard invalidated while rendering, not cached",
					attr.DomainID(k.DomainID),
					attr.DocID("tid", string(k.DocID)),
				)
			}
			if err != nil {
				s.logger.WarnContext(ctx, "Scoreboard cache write failed",
					attr.ExtractCorrelationID(ctx),
					attr.DomainID(k.DomainID),
					attr.DocID("tid", string(k.DocID)),
					attr.Error(err),
				)
			}
		}
		return table, nil
	})
}

func (s *ContestService) render(ctx context.Context, c *contestdomain.Contest, rule contestdomain.ContestRule, isExport bool, tr contestdomain.Translate) (*contestdomain.Table, error) {
	k := c.Key()
	sts, err := s.docs.GetMultiStatus(ctx, k.DomainID, k.DocType, documentdomain.StatusFilter{
		DocIDs: []documentdomain.DocID{k.DocID},
		Eq:     map[string]any{"attend": 1},
	}, documentdomain.FindOptions{Sort: rule.SortKey()})
	if err != nil {
		return nil, err
	}
	participants := make([]contestdomain.Participant, 0, len(sts))
	uids := make([]int64, 0, len(sts))
	for _, st := range sts {
		stat, err := contestdomain.DecodeStat(st.Fields)
		if err != nil {
			return nil, err
		}
		participants = append(participants, contestdomain.Participant{UID: st.UID, Stat: stat})
		uids = append(uids, st.UID)
	}
	ranked := rule.Rank(participants)

	var (
		udict map[int64]*userdomain.User
		pdict map[int64]*problemdomain.Problem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		udict, err = s.users.GetList(gctx, k.DomainID, uids)
		return err
	})
	g.Go(func() error {
		var err error
		pdict, err = s.problems.GetList(gctx, k.DomainID, c.PIDs, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := rule.Scoreboard(isExport, tr, c, ranked, udict, pdict)
	return &table, nil
}
