// Package problemdomain describes problem documents.
package problemdomain

import (
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// Problem is a problem document. DocID is numeric; PID is an optional textual alias.
type Problem struct {
	DocID   int64    `json:"-"`
	PID     string   `json:"pid,omitempty"`
	Title   string   `json:"title"`
	Content string   `json:"-"`
	Owner   int64    `json:"-"`
	Tag     []string `json:"tag"`
	Hidden  bool     `json:"hidden"`
	NSubmit int64    `json:"nSubmit"`
	NAccept int64    `json:"nAccept"`
	// Seq mirrors DocID as a payload number so documents sort numerically.
	Seq int64 `json:"seq"`
}

// FromDocument decodes a problem document.
func FromDocument(doc *documentdomain.Document) (*Problem, error) {
	var p Problem
	if err := doc.Fields.Decode(&p); err != nil {
		return nil, err
	}
	id, err := doc.DocID.Int64()
	if err != nil {
		return nil, err
	}
	p.DocID = id
	p.Content = doc.Content
	p.Owner = doc.Owner
	return &p, nil
}

// PlaceholderProblem stands in for a problem id that no longer resolves.
func PlaceholderProblem(docID int64) *Problem {
	return &Problem{DocID: docID, Title: "*", Hidden: true}
}
