package documentmongo

import (
	"fmt"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// plain converts driver types into values encoding/json understands.
func plain(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plain(t[i])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plain(t[i])
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = plain(el)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = plain(el)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case int32:
		return int64(t)
	default:
		return v
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case primitive.ObjectID:
		return s.Hex()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func payload(m bson.M, reserved map[string]bool) (documentdomain.Fields, error) {
	raw := map[string]any{}
	for k, v := range m {
		if reserved[k] {
			continue
		}
		raw[k] = plain(v)
	}
	return documentdomain.Normalize(raw)
}

func decodeDocument(m bson.M) (*documentdomain.Document, error) {
	fields, err := payload(m, documentdomain.ReservedDocumentFields)
	if err != nil {
		return nil, err
	}
	doc := &documentdomain.Document{
		ID:       asString(m["_id"]),
		DomainID: asString(m["domainId"]),
		DocType:  documentdomain.DocType(asInt64(m["docType"])),
		DocID:    documentdomain.DocID(asString(m["docId"])),
		Owner:    asInt64(m["owner"]),
		Content:  asString(m["content"]),
		Fields:   fields,
	}
	if v, ok := m["parentType"]; ok && v != nil {
		pt := documentdomain.DocType(asInt64(v))
		doc.ParentType = &pt
	}
	if v, ok := m["parentId"]; ok && v != nil {
		pid := documentdomain.DocID(asString(v))
		doc.ParentID = &pid
	}
	return doc, nil
}

func decodeStatus(m bson.M) (*documentdomain.Status, error) {
	fields, err := payload(m, documentdomain.ReservedStatusFields)
	if err != nil {
		return nil, err
	}
	return &documentdomain.Status{
		DomainID: asString(m["domainId"]),
		DocType:  documentdomain.DocType(asInt64(m["docType"])),
		DocID:    documentdomain.DocID(asString(m["docId"])),
		UID:      asInt64(m["uid"]),
		Rev:      asInt64(m["rev"]),
		Fields:   fields,
	}, nil
}
