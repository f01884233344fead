// Package documentdomain defines the polymorphic document and per-user status
// records every content module is stored as.
package documentdomain

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocType discriminates the kind of content a document holds.
type DocType int

const (
	TypeProblem         DocType = 10
	TypeProblemSolution DocType = 11
	TypeProblemList     DocType = 12
	TypeDiscussionNode  DocType = 20
	TypeDiscussion      DocType = 21
	TypeDiscussionReply DocType = 22
	TypeContest         DocType = 30
	TypeTraining        DocType = 40
	TypeFile            DocType = 50
	TypeHomework        DocType = 60
)

func (t DocType) String() string {
	switch t {
	case TypeProblem:
		return "problem"
	case TypeProblemSolution:
		return "problem_solution"
	case TypeProblemList:
		return "problem_list"
	case TypeDiscussionNode:
		return "discussion_node"
	case TypeDiscussion:
		return "discussion"
	case TypeDiscussionReply:
		return "discussion_reply"
	case TypeContest:
		return "contest"
	case TypeTraining:
		return "training"
	case TypeFile:
		return "file"
	case TypeHomework:
		return "homework"
	}
	return "doctype(" + strconv.Itoa(int(t)) + ")"
}

// DocID is the logical id of a document within (domain, docType). Problems use
// decimal numbers, generated ids are ObjectID hex strings.
type DocID string

// NumericDocID formats a numeric id.
func NumericDocID(n int64) DocID { return DocID(strconv.FormatInt(n, 10)) }

// NewDocID returns a fresh ObjectID-backed id.
func NewDocID() DocID { return DocID(primitive.NewObjectID().Hex()) }

func (id DocID) String() string { return string(id) }

// Int64 parses a numeric id.
func (id DocID) Int64() (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("doc id %q is not numeric: %w", string(id), err)
	}
	return n, nil
}

// DocKey addresses a single document.
type DocKey struct {
	DomainID string
	DocType  DocType
	DocID    DocID
}

func (k DocKey) String() string {
	return fmt.Sprintf("%s/%d/%s", k.DomainID, k.DocType, k.DocID)
}

// StatusKey addresses one user's status on a document.
type StatusKey struct {
	DocKey
	UID int64
}

// Document is a stored content object.
type Document struct {
	// ID is the row id. It equals DocID when the id was generated.
	ID         string
	DomainID   string
	DocType    DocType
	DocID      DocID
	Owner      int64
	Content    string
	ParentType *DocType
	ParentID   *DocID
	Fields     Fields
}

// Key returns the document address.
func (d *Document) Key() DocKey {
	return DocKey{DomainID: d.DomainID, DocType: d.DocType, DocID: d.DocID}
}

// Status is a per-user record attached to a document.
type Status struct {
	DomainID string
	DocType  DocType
	DocID    DocID
	UID      int64
	Rev      int64
	Fields   Fields
}

// Key returns the status address.
func (s *Status) Key() StatusKey {
	return StatusKey{DocKey: DocKey{DomainID: s.DomainID, DocType: s.DocType, DocID: s.DocID}, UID: s.UID}
}

// ReservedDocumentFields are stored as columns rather than payload.
var ReservedDocumentFields = map[string]bool{
	"_id": true, "domainId": true, "docType": true, "docId": true,
	"owner": true, "content": true, "parentType": true, "parentId": true,
}

// ReservedStatusFields are stored as columns rather than payload.
var ReservedStatusFields = map[string]bool{
	"_id": true, "domainId": true, "docType": true, "docId": true, "uid": true, "rev": true,
}
