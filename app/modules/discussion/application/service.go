// Package discussionservice implements threaded discussions on the document store.
package discussionservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	discussiondomain "github.com/Black-And-White-Club/hydro/app/modules/discussion/domain"
	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/Black-And-White-Club/hydro/internal/validation"
)

const tailReplyField = "reply"

// DiscussionService implements discussion operations.
type DiscussionService struct {
	docs   *documentservice.DocumentService
	logger *slog.Logger
	now    func() time.Time
}

// NewDiscussionService creates a new DiscussionService.
func NewDiscussionService(docs *documentservice.DocumentService, logger *slog.Logger) *DiscussionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscussionService{docs: docs, logger: logger, now: time.Now}
}

func discussionKey(domainID string, did documentdomain.DocID) documentdomain.DocKey {
	return documentdomain.DocKey{DomainID: domainID, DocType: documentdomain.TypeDiscussion, DocID: did}
}

func replyKey(domainID string, drid documentdomain.DocID) documentdomain.DocKey {
	return documentdomain.DocKey{DomainID: domainID, DocType: documentdomain.TypeDiscussionReply, DocID: drid}
}

// AddRequest is the input of Add.
type AddRequest struct {
	DomainID   string                 `json:"domainId" validate:"required"`
	ParentType documentdomain.DocType `json:"parentType"`
	ParentID   documentdomain.DocID   `json:"parentId" validate:"required"`
	Owner      int64                  `json:"owner"`
	Title      string                 `json:"title" validate:"required,maxrunes=64"`
	Content    string                 `json:"content" validate:"required,maxrunes=65536"`
	IP         string                 `json:"ip" validate:"omitempty,ip"`
	Highlight  bool                   `json:"highlight"`
	Pin        bool                   `json:"pin"`
}

// Add opens a discussion under a parent document.
func (s *DiscussionService) Add(ctx context.Context, req AddRequest) (documentdomain.DocID, error) {
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	if !discussiondomain.ParentTypes[req.ParentType] {
		return "", fmt.Errorf("%w: %s", ErrInvalidParent, req.ParentType)
	}
	parentType, parentID := req.ParentType, req.ParentID
	return s.docs.Add(ctx, documentservice.AddRequest{
		DomainID:   req.DomainID,
		DocType:    documentdomain.TypeDiscussion,
		Content:    req.Content,
		Owner:      req.Owner,
		ParentType: &parentType,
		ParentID:   &parentID,
		Fields: documentdomain.MustNormalize(discussiondomain.Discussion{
			Title:     req.Title,
			IP:        req.IP,
			Highlight: req.Highlight,
			Pin:       req.Pin,
			UpdateAt:  s.now().UTC().Truncate(time.Second),
		}),
	})
}

// Get returns the discussion or nil.
func (s *DiscussionService) Get(ctx context.Context, domainID string, did documentdomain.DocID) (*discussiondomain.Discussion, error) {
	doc, err := s.docs.Get(ctx, discussionKey(domainID, did))
	if err != nil || doc == nil {
		return nil, err
	}
	return discussiondomain.DiscussionFromDocument(doc)
}

// GetMulti lists discussions under a parent, pinned first then most recently updated.
func (s *DiscussionService) GetMulti(ctx context.Context, domainID string, parentType documentdomain.DocType, parentID documentdomain.DocID, skip, limit int) ([]*discussiondomain.Discussion, error) {
	docs, err := s.docs.GetMulti(ctx, domainID, documentdomain.TypeDiscussion, documentdomain.Filter{
		ParentType: &parentType,
		ParentID:   &parentID,
	}, documentdomain.FindOptions{
		Sort:  []documentdomain.SortField{{Field: "pin", Desc: true}, {Field: "updateAt", Desc: true}},
		Skip:  skip,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*discussiondomain.Discussion, 0, len(docs))
	for _, doc := range docs {
		d, err := discussiondomain.DiscussionFromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Edit updates title, content, highlight and pin.
func (s *DiscussionService) Edit(ctx context.Context, domainID string, did documentdomain.DocID, title, content string, highlight, pin bool) (*discussiondomain.Discussion, error) {
	doc, err := s.docs.Set(ctx, discussionKey(domainID, did), documentdomain.Fields{
		"title": title, "content": content, "highlight": highlight, "pin": pin,
	})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &NotFoundError{DocType: documentdomain.TypeDiscussion, ID: string(did)}
	}
	return discussiondomain.DiscussionFromDocument(doc)
}

// Inc bumps a counter such as views.
func (s *DiscussionService) Inc(ctx context.Context, domainID string, did documentdomain.DocID, field string, n float64) error {
	doc, err := s.docs.Inc(ctx, discussionKey(domainID, did), field, n)
	if err != nil {
		return err
	}
	if doc == nil {
		return &NotFoundError{DocType: documentdomain.TypeDiscussion, ID: string(did)}
	}
	return nil
}

// Del removes a discussion with its replies and statuses.
func (s *DiscussionService) Del(ctx context.Context, domainID string, did documentdomain.DocID) error {
	parentType := documentdomain.TypeDiscussion
	replies, err := s.docs.DeleteMulti(ctx, domainID, documentdomain.TypeDiscussionReply, documentdomain.Filter{
		ParentType: &parentType,
		ParentID:   &did,
	})
	if err != nil {
		return fmt.Errorf("failed to delete replies: %w", err)
	}
	if _, err := s.docs.DeleteMultiStatus(ctx, domainID, documentdomain.TypeDiscussion, documentdomain.StatusFilter{
		DocIDs: []documentdomain.DocID{did},
	}); err != nil {
		return fmt.Errorf("failed to delete discussion statuses: %w", err)
	}
	if err := s.docs.DeleteOne(ctx, discussionKey(domainID, did)); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Discussion deleted",
		attr.DomainID(domainID),
		attr.DocID("did", string(did)),
		attr.Int64("replies", replies),
	)
	return nil
}

// AddReply answers a discussion and bumps its reply counter.
func (s *DiscussionService) AddReply(ctx context.Context, domainID string, did documentdomain.DocID, owner int64, content, ip string) (documentdomain.DocID, error) {
	if content == "" {
		return "", validation.NewError("content", "required")
	}
	parent, err := s.docs.Get(ctx, discussionKey(domainID, did))
	if err != nil {
		return "", err
	}
	if parent == nil {
		return "", &NotFoundError{DocType: documentdomain.TypeDiscussion, ID: string(did)}
	}
	parentType := documentdomain.TypeDiscussion
	drid, err := s.docs.Add(ctx, documentservice.AddRequest{
		DomainID:   domainID,
		DocType:    documentdomain.TypeDiscussionReply,
		Content:    content,
		Owner:      owner,
		ParentType: &parentType,
		ParentID:   &did,
		Fields:     documentdomain.Fields{"ip": ip, "reply": []any{}},
	})
	if err != nil {
		return "", err
	}
	if _, err := s.docs.IncAndSet(ctx, parent.Key(), "nReply", 1, documentdomain.Fields{
		"updateAt": s.now().UTC().Truncate(time.Second),
	}); err != nil {
		return "", err
	}
	return drid, nil
}

// GetReply returns the reply or nil.
func (s *DiscussionService) GetReply(ctx context.Context, domainID string, drid documentdomain.DocID) (*discussiondomain.Reply, error) {
	doc, err := s.docs.Get(ctx, replyKey(domainID, drid))
	if err != nil || doc == nil {
		return nil, err
	}
	return discussiondomain.ReplyFromDocument(doc)
}

// GetMultiReply lists the replies of a discussion in creation order.
func (s *DiscussionService) GetMultiReply(ctx context.Context, domainID string, did documentdomain.DocID) ([]*discussiondomain.Reply, error) {
	parentType := documentdomain.TypeDiscussion
	docs, err := s.docs.GetMulti(ctx, domainID, documentdomain.TypeDiscussionReply, documentdomain.Filter{
		ParentType: &parentType,
		ParentID:   &did,
	}, documentdomain.FindOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]*discussiondomain.Reply, 0, len(docs))
	for _, doc := range docs {
		r, err := discussiondomain.ReplyFromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// EditReply replaces the content of a reply.
func (s *DiscussionService) EditReply(ctx context.Context, domainID string, drid documentdomain.DocID, content string) error {
	doc, err := s.docs.Set(ctx, replyKey(domainID, drid), documentdomain.Fields{"content": content})
	if err != nil {
		return err
	}
	if doc == nil {
		return &NotFoundError{DocType: documentdomain.TypeDiscussionReply, ID: string(drid)}
	}
	return nil
}

// DelReply removes a reply and decrements the discussion counter.
func (s *DiscussionService) DelReply(ctx context.Context, domainID string, drid documentdomain.DocID) error {
	reply, err := s.docs.Get(ctx, replyKey(domainID, drid))
	if err != nil {
		return err
	}
	if reply == nil {
		return &NotFoundError{DocType: documentdomain.TypeDiscussionReply, ID: string(drid)}
	}
	if err := s.docs.DeleteOne(ctx, reply.Key()); err != nil {
		return err
	}
	if reply.ParentID != nil {
		if _, err := s.docs.Inc(ctx, discussionKey(domainID, *reply.ParentID), "nReply", -1); err != nil {
			return err
		}
	}
	return nil
}

// AddTailReply appends a comment to a reply and returns its id.
func (s *DiscussionService) AddTailReply(ctx context.Context, domainID string, drid documentdomain.DocID, owner int64, content, ip string) (string, error) {
	if content == "" {
		return "", validation.NewError("content", "required")
	}
	doc, subID, err := s.docs.Push(ctx, replyKey(domainID, drid), tailReplyField, content, owner, documentdomain.Fields{"ip": ip})
	if err != nil {
		return "", err
	}
	if doc.ParentID != nil {
		if _, err := s.docs.Set(ctx, discussionKey(domainID, *doc.ParentID), documentdomain.Fields{
			"updateAt": s.now().UTC().Truncate(time.Second),
		}); err != nil {
			return "", err
		}
	}
	return subID, nil
}

// GetTailReply returns one tail reply or nil.
func (s *DiscussionService) GetTailReply(ctx context.Context, domainID string, drid documentdomain.DocID, drrid string) (*discussiondomain.TailReply, error) {
	_, sub, err := s.docs.GetSub(ctx, replyKey(domainID, drid), tailReplyField, drrid)
	if err != nil || sub == nil {
		return nil, err
	}
	var tr discussiondomain.TailReply
	if err := sub.Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// EditTailReply replaces the content of a tail reply.
func (s *DiscussionService) EditTailReply(ctx context.Context, domainID string, drid documentdomain.DocID, drrid, content string) error {
	doc, err := s.docs.SetSub(ctx, replyKey(domainID, drid), tailReplyField, drrid, documentdomain.Fields{"content": content})
	if err != nil {
		return err
	}
	if doc == nil {
		return &NotFoundError{DocType: documentdomain.TypeDiscussionReply, ID: string(drid) + "/" + drrid}
	}
	return nil
}

// DelTailReply removes a tail reply.
func (s *DiscussionService) DelTailReply(ctx context.Context, domainID string, drid documentdomain.DocID, drrid string) error {
	doc, err := s.docs.DeleteSub(ctx, replyKey(domainID, drid), tailReplyField, drrid)
	if err != nil {
		return err
	}
	if doc == nil {
		return &NotFoundError{DocType: documentdomain.TypeDiscussionReply, ID: string(drid)}
	}
	return nil
}

// SetStar records whether uid starred the discussion.
func (s *DiscussionService) SetStar(ctx context.Context, domainID string, did documentdomain.DocID, uid int64, star bool) error {
	_, err := s.docs.SetStatus(ctx, documentdomain.StatusKey{DocKey: discussionKey(domainID, did), UID: uid}, documentdomain.Fields{"star": star})
	return err
}

// GetStatus returns uid's status on the discussion, or nil.
func (s *DiscussionService) GetStatus(ctx context.Context, domainID string, did documentdomain.DocID, uid int64) (*documentdomain.Status, error) {
	return s.docs.GetStatus(ctx, documentdomain.StatusKey{DocKey: discussionKey(domainID, did), UID: uid})
}
