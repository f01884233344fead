// Package discussiondomain describes discussions, replies and tail replies.
package discussiondomain

import (
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// Discussion is a thread attached to a node, problem, contest or training.
type Discussion struct {
	DocID      documentdomain.DocID   `json:"-"`
	Owner      int64                  `json:"-"`
	Content    string                 `json:"-"`
	ParentType documentdomain.DocType `json:"-"`
	ParentID   documentdomain.DocID   `json:"-"`
	Title      string                 `json:"title"`
	IP         string                 `json:"ip"`
	NReply     int64                  `json:"nReply"`
	Views      int64                  `json:"views"`
	Highlight  bool                   `json:"highlight"`
	Pin        bool                   `json:"pin"`
	UpdateAt   time.Time              `json:"updateAt"`
}

// Reply is a direct answer to a discussion.
type Reply struct {
	DocID        documentdomain.DocID `json:"-"`
	DiscussionID documentdomain.DocID `json:"-"`
	Owner        int64                `json:"-"`
	Content      string               `json:"-"`
	IP           string               `json:"ip"`
	Reply        []TailReply          `json:"reply"`
}

// TailReply is a comment embedded in a Reply.
type TailReply struct {
	ID      string `json:"_id"`
	Owner   int64  `json:"owner"`
	Content string `json:"content"`
	IP      string `json:"ip"`
}

// ParentTypes lists what a discussion may hang off.
var ParentTypes = map[documentdomain.DocType]bool{
	documentdomain.TypeDiscussionNode: true,
	documentdomain.TypeProblem:        true,
	documentdomain.TypeContest:        true,
	documentdomain.TypeTraining:       true,
	documentdomain.TypeHomework:       true,
}

// DiscussionFromDocument decodes a discussion document.
func DiscussionFromDocument(doc *documentdomain.Document) (*Discussion, error) {
	var d Discussion
	if err := doc.Fields.Decode(&d); err != nil {
		return nil, err
	}
	d.DocID = doc.DocID
	d.Owner = doc.Owner
	d.Content = doc.Content
	if doc.ParentType != nil {
		d.ParentType = *doc.ParentType
	}
	if doc.ParentID != nil {
		d.ParentID = *doc.ParentID
	}
	return &d, nil
}

// ReplyFromDocument decodes a reply document.
func ReplyFromDocument(doc *documentdomain.Document) (*Reply, error) {
	var r Reply
	if err := doc.Fields.Decode(&r); err != nil {
		return nil, err
	}
	r.DocID = doc.DocID
	r.Owner = doc.Owner
	r.Content = doc.Content
	if doc.ParentID != nil {
		r.DiscussionID = *doc.ParentID
	}
	return &r, nil
}
