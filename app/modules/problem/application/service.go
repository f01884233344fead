// Package problemservice stores problems and resolves problem references.
package problemservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
	problemdomain "github.com/Black-And-White-Club/hydro/app/modules/problem/domain"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/Black-And-White-Club/hydro/internal/validation"
)

const maxAddAttempts = 5

// ProblemService implements problem storage on top of the document store.
type ProblemService struct {
	docs   DocumentStore
	logger *slog.Logger
}

// NewProblemService creates a new ProblemService.
func NewProblemService(docs DocumentStore, logger *slog.Logger) *ProblemService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProblemService{docs: docs, logger: logger}
}

// AddRequest is the input of Add.
type AddRequest struct {
	DomainID string   `json:"domainId" validate:"required"`
	PID      string   `json:"pid" validate:"omitempty,alphanum,maxrunes=16"`
	Title    string   `json:"title" validate:"required,maxrunes=64"`
	Content  string   `json:"content" validate:"maxrunes=65536"`
	Owner    int64    `json:"owner"`
	Tag      []string `json:"tag"`
	Hidden   bool     `json:"hidden"`
}

func (s *ProblemService) nextDocID(ctx context.Context, domainID string) (int64, error) {
	docs, err := s.docs.GetMulti(ctx, domainID, documentdomain.TypeProblem, documentdomain.Filter{}, documentdomain.FindOptions{
		Sort:  []documentdomain.SortField{{Field: "seq", Desc: true}},
		Limit: 1,
	})
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 1, nil
	}
	return docs[0].Fields.Int64("seq") + 1, nil
}

// Add stores a problem under the next free numeric id and returns it.
func (s *ProblemService) Add(ctx context.Context, req AddRequest) (int64, error) {
	if err := validation.Struct(req); err != nil {
		return 0, err
	}
	if req.PID != "" {
		if _, err := strconv.ParseInt(req.PID, 10, 64); err == nil {
			return 0, validation.NewError("pid", "must not be numeric")
		}
		existing, err := s.getByAlias(ctx, req.DomainID, req.PID)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			return 0, validation.NewError("pid", "already in use")
		}
	}
	tag := req.Tag
	if tag == nil {
		tag = []string{}
	}
	for attempt := 0; attempt < maxAddAttempts; attempt++ {
		id, err := s.nextDocID(ctx, req.DomainID)
		if err != nil {
			return 0, fmt.Errorf("failed to allocate problem id: %w", err)
		}
		_, err = s.docs.Add(ctx, documentservice.AddRequest{
			DomainID: req.DomainID,
			DocType:  documentdomain.TypeProblem,
			DocID:    documentdomain.NumericDocID(id),
			Content:  req.Content,
			Owner:    req.Owner,
			Fields: documentdomain.MustNormalize(problemdomain.Problem{
				PID: req.PID, Title: req.Title, Tag: tag, Hidden: req.Hidden, Seq: id,
			}),
		})
		if errors.Is(err, documentdb.ErrDuplicate) {
			s.logger.DebugContext(ctx, "Problem id taken, retrying", attr.DomainID(req.DomainID), attr.Int64("docId", id))
			continue
		}
		if err != nil {
			return 0, err
		}
		return id, nil
	}
	return 0, fmt.Errorf("failed to allocate problem id after %d attempts", maxAddAttempts)
}

func (s *ProblemService) getByAlias(ctx context.Context, domainID, pid string) (*problemdomain.Problem, error) {
	docs, err := s.docs.GetMulti(ctx, domainID, documentdomain.TypeProblem, documentdomain.Filter{
		Eq: map[string]any{"pid": pid},
	}, documentdomain.FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return problemdomain.FromDocument(docs[0])
}

// Get resolves a numeric id or textual alias; nil when neither matches.
func (s *ProblemService) Get(ctx context.Context, domainID, ref string) (*problemdomain.Problem, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		doc, err := s.docs.Get(ctx, documentdomain.DocKey{DomainID: domainID, DocType: documentdomain.TypeProblem, DocID: documentdomain.NumericDocID(id)})
		if err != nil || doc == nil {
			return nil, err
		}
		return problemdomain.FromDocument(doc)
	}
	return s.getByAlias(ctx, domainID, ref)
}

// GetList loads problems by numeric id. With strict set, a missing id is an
// error; otherwise it maps to a placeholder.
func (s *ProblemService) GetList(ctx context.Context, domainID string, pids []int64, strict bool) (map[int64]*problemdomain.Problem, error) {
	ids := make([]documentdomain.DocID, len(pids))
	for i, pid := range pids {
		ids[i] = documentdomain.NumericDocID(pid)
	}
	docs, err := s.docs.GetMulti(ctx, domainID, documentdomain.TypeProblem, documentdomain.Filter{DocIDs: ids}, documentdomain.FindOptions{})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*problemdomain.Problem, len(pids))
	for _, doc := range docs {
		p, err := problemdomain.FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out[p.DocID] = p
	}
	for _, pid := range pids {
		if _, ok := out[pid]; ok {
			continue
		}
		if strict {
			return nil, &ProblemNotFoundError{DomainID: domainID, PID: strconv.FormatInt(pid, 10)}
		}
		out[pid] = problemdomain.PlaceholderProblem(pid)
	}
	return out, nil
}

// VerifyProblems resolves references to canonical numeric ids, keeping the
// first occurrence of each.
func (s *ProblemService) VerifyProblems(ctx context.Context, domainID string, refs []string) ([]int64, error) {
	out := make([]int64, 0, len(refs))
	seen := make(map[int64]bool, len(refs))
	for _, ref := range refs {
		p, err := s.Get(ctx, domainID, ref)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &ProblemNotFoundError{DomainID: domainID, PID: ref}
		}
		if seen[p.DocID] {
			continue
		}
		seen[p.DocID] = true
		out = append(out, p.DocID)
	}
	return out, nil
}

// RecordSubmission bumps the submission counters of a problem in one update.
func (s *ProblemService) RecordSubmission(ctx context.Context, domainID string, pid int64, accepted bool) error {
	k := documentdomain.DocKey{DomainID: domainID, DocType: documentdomain.TypeProblem, DocID: documentdomain.NumericDocID(pid)}
	inc := map[string]float64{"nSubmit": 1}
	if accepted {
		inc["nAccept"] = 1
	}
	doc, err := s.docs.Update(ctx, k, documentdomain.Update{Inc: inc})
	if err != nil {
		return err
	}
	if doc == nil {
		return &ProblemNotFoundError{DomainID: domainID, PID: strconv.FormatInt(pid, 10)}
	}
	return nil
}
