package documentdb

import (
	"fmt"
	"slices"
	"sort"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// ApplyUpdate evaluates update against a normalized payload and returns the new
// payload. The input is not modified. Backends that lock the row and rewrite
// the payload use this so that operator semantics stay identical everywhere.
func ApplyUpdate(fields documentdomain.Fields, update documentdomain.Update) (documentdomain.Fields, error) {
	out := fields.Clone()

	if len(update.Set) > 0 {
		set, err := documentdomain.Normalize(update.Set)
		if err != nil {
			return nil, err
		}
		for k, v := range set {
			out[k] = v
		}
	}

	for _, k := range update.Unset {
		delete(out, k)
	}

	for k, delta := range update.Inc {
		cur, ok := out[k]
		if !ok || cur == nil {
			out[k] = delta
			continue
		}
		n, ok := cur.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: $inc on non-numeric field %q", ErrInvalidUpdate, k)
		}
		out[k] = n + delta
	}

	for k, values := range update.Push {
		arr, err := arrayField(out, k)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			nv, err := documentdomain.NormalizeValue(v)
			if err != nil {
				return nil, err
			}
			arr = append(arr, nv)
		}
		out[k] = arr
	}

	for k, values := range update.Pull {
		arr, err := arrayField(out, k)
		if err != nil {
			return nil, err
		}
		remove := make([]any, 0, len(values))
		for _, v := range values {
			nv, err := documentdomain.NormalizeValue(v)
			if err != nil {
				return nil, err
			}
			remove = append(remove, nv)
		}
		kept := arr[:0]
		for _, el := range arr {
			if !containsValue(remove, el) {
				kept = append(kept, el)
			}
		}
		out[k] = kept
	}

	for k, values := range update.AddToSet {
		arr, err := arrayField(out, k)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			nv, err := documentdomain.NormalizeValue(v)
			if err != nil {
				return nil, err
			}
			if !containsValue(arr, nv) {
				arr = append(arr, nv)
			}
		}
		out[k] = arr
	}

	return out, nil
}

func arrayField(f documentdomain.Fields, key string) ([]any, error) {
	cur, ok := f[key]
	if !ok || cur == nil {
		return []any{}, nil
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: array operator on non-array field %q", ErrInvalidUpdate, key)
	}
	return slices.Clone(arr), nil
}

func containsValue(arr []any, v any) bool {
	for _, el := range arr {
		if documentdomain.Equal(el, v) {
			return true
		}
	}
	return false
}

// pushSub appends a sub-document to the array at field.
func pushSub(fields documentdomain.Fields, field string, sub documentdomain.Fields) (documentdomain.Fields, error) {
	if sub.String(documentdomain.SubIDField) == "" {
		return nil, fmt.Errorf("%w: sub-document without %s", ErrInvalidUpdate, documentdomain.SubIDField)
	}
	return ApplyUpdate(fields, documentdomain.Update{Push: map[string][]any{field: {map[string]any(sub)}}})
}

// setSub merges set into the sub-document with the given id.
func setSub(fields documentdomain.Fields, field, subID string, set documentdomain.Fields) (documentdomain.Fields, error) {
	norm, err := documentdomain.Normalize(set)
	if err != nil {
		return nil, err
	}
	out := fields.Clone()
	arr, err := arrayField(out, field)
	if err != nil {
		return nil, err
	}
	idx := subIndex(arr, subID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	el := documentdomain.Fields(arr[idx].(map[string]any)).Clone()
	for k, v := range norm {
		if k == documentdomain.SubIDField {
			continue
		}
		el[k] = v
	}
	arr[idx] = map[string]any(el)
	out[field] = arr
	return out, nil
}

// deleteSub removes the sub-document with the given id.
func deleteSub(fields documentdomain.Fields, field, subID string) (documentdomain.Fields, error) {
	out := fields.Clone()
	arr, err := arrayField(out, field)
	if err != nil {
		return nil, err
	}
	idx := subIndex(arr, subID)
	if idx < 0 {
		return out, nil
	}
	out[field] = slices.Delete(arr, idx, idx+1)
	return out, nil
}

func subIndex(arr []any, subID string) int {
	for i, el := range arr {
		m, ok := el.(map[string]any)
		if ok && m[documentdomain.SubIDField] == subID {
			return i
		}
	}
	return -1
}

// splitColumns moves the column-backed keys out of a Set payload.
func splitColumns(update documentdomain.Update) (documentdomain.Update, *string, *int64) {
	if len(update.Set) == 0 {
		return update, nil, nil
	}
	var content *string
	var owner *int64
	set := documentdomain.Fields{}
	for k, v := range update.Set {
		switch k {
		case "content":
			if s, ok := v.(string); ok {
				content = &s
				continue
			}
		case "owner":
			switch n := v.(type) {
			case int64:
				owner = &n
				continue
			case int:
				o := int64(n)
				owner = &o
				continue
			case float64:
				o := int64(n)
				owner = &o
				continue
			}
		}
		set[k] = v
	}
	update.Set = set
	return update, content, owner
}

func matchDocument(doc *documentdomain.Document, filter documentdomain.Filter) bool {
	if len(filter.DocIDs) > 0 && !slices.Contains(filter.DocIDs, doc.DocID) {
		return false
	}
	if filter.Owner != nil && doc.Owner != *filter.Owner {
		return false
	}
	if filter.ParentType != nil && (doc.ParentType == nil || *doc.ParentType != *filter.ParentType) {
		return false
	}
	if filter.ParentID != nil && (doc.ParentID == nil || *doc.ParentID != *filter.ParentID) {
		return false
	}
	return matchPayload(doc.Fields, filter.Eq, filter.Contains)
}

func matchStatus(st *documentdomain.Status, filter documentdomain.StatusFilter) bool {
	if len(filter.DocIDs) > 0 && !slices.Contains(filter.DocIDs, st.DocID) {
		return false
	}
	if len(filter.UIDs) > 0 && !slices.Contains(filter.UIDs, st.UID) {
		return false
	}
	return matchPayload(st.Fields, filter.Eq, nil)
}

func matchPayload(fields documentdomain.Fields, eq, contains map[string]any) bool {
	for k, v := range eq {
		nv, err := documentdomain.NormalizeValue(v)
		if err != nil || !documentdomain.Equal(fields[k], nv) {
			return false
		}
	}
	for k, v := range contains {
		nv, err := documentdomain.NormalizeValue(v)
		if err != nil || !containsValue(fields.Array(k), nv) {
			return false
		}
	}
	return true
}

// sortByFields orders items by the given payload fields; ties keep input order.
func sortByFields[T any](items []T, payload func(T) documentdomain.Fields, keys []documentdomain.SortField) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := payload(items[i]), payload(items[j])
		for _, k := range keys {
			av, bv := a[k.Field], b[k.Field]
			c := documentdomain.Compare(av, bv)
			if c == 0 {
				continue
			}
			// Missing values stay last in both directions.
			if k.Desc && av != nil && bv != nil {
				c = -c
			}
			return c < 0
		}
		return false
	})
}

func paginate[T any](items []T, opts documentdomain.FindOptions) []T {
	if opts.Skip > 0 {
		if opts.Skip >= len(items) {
			return nil
		}
		items = items[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
