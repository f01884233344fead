package documentdb

import (
	"errors"
	"testing"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/google/go-cmp/cmp"
)

func TestApplyUpdate(t *testing.T) {
	base := documentdomain.Fields{
		"title":  "A+B",
		"nReply": 2.0,
		"tags":   []any{"math", "easy"},
	}

	tests := []struct {
		name    string
		update  documentdomain.Update
		want    documentdomain.Fields
		wantErr error
	}{
		{
			name:   "set merges and overwrites",
			update: documentdomain.Update{Set: documentdomain.Fields{"title": "A-B", "hidden": true}},
			want: documentdomain.Fields{
				"title": "A-B", "hidden": true, "nReply": 2.0, "tags": []any{"math", "easy"},
			},
		},
		{
			name:   "inc on existing and missing counters",
			update: documentdomain.Update{Inc: map[string]float64{"nReply": 1, "views": 3}},
			want: documentdomain.Fields{
				"title": "A+B", "nReply": 3.0, "views": 3.0, "tags": []any{"math", "easy"},
			},
		},
		{
			name:   "inc and set in one update",
			update: documentdomain.Update{Set: documentdomain.Fields{"updateAt": "2026-03-01T00:00:00Z"}, Inc: map[string]float64{"nReply": -2}},
			want: documentdomain.Fields{
				"title": "A+B", "nReply": 0.0, "updateAt": "2026-03-01T00:00:00Z", "tags": []any{"math", "easy"},
			},
		},
		{
			name:   "push pull addToSet",
			update: documentdomain.Update{Push: map[string][]any{"tags": {"dp"}}, Pull: map[string][]any{"tags": {"easy"}}, AddToSet: map[string][]any{"tags": {"math", "graph"}}},
			want: documentdomain.Fields{
				"title": "A+B", "nReply": 2.0, "tags": []any{"math", "dp", "graph"},
			},
		},
		{
			name:   "unset removes field",
			update: documentdomain.Update{Unset: []string{"tags"}},
			want:   documentdomain.Fields{"title": "A+B", "nReply": 2.0},
		},
		{
			name:    "inc on string is rejected",
			update:  documentdomain.Update{Inc: map[string]float64{"title": 1}},
			wantErr: ErrInvalidUpdate,
		},
		{
			name:    "push on scalar is rejected",
			update:  documentdomain.Update{Push: map[string][]any{"nReply": {1}}},
			wantErr: ErrInvalidUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyUpdate(base, tt.update)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ApplyUpdate() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if base.Float("nReply") != 2 {
		t.Errorf("ApplyUpdate mutated its input")
	}
}

func TestSubDocumentHelpers(t *testing.T) {
	fields := documentdomain.Fields{}

	fields, err := pushSub(fields, "reply", documentdomain.Fields{"_id": "a", "content": "first"})
	if err != nil {
		t.Fatalf("pushSub: %v", err)
	}
	fields, err = pushSub(fields, "reply", documentdomain.Fields{"_id": "b", "content": "second"})
	if err != nil {
		t.Fatalf("pushSub: %v", err)
	}

	fields, err = setSub(fields, "reply", "b", documentdomain.Fields{"content": "edited", "_id": "ignored"})
	if err != nil {
		t.Fatalf("setSub: %v", err)
	}
	if _, err := setSub(fields, "reply", "missing", documentdomain.Fields{"content": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("setSub on missing element: expected ErrNotFound, got %v", err)
	}

	fields, err = deleteSub(fields, "reply", "a")
	if err != nil {
		t.Fatalf("deleteSub: %v", err)
	}

	want := []any{map[string]any{"_id": "b", "content": "edited"}}
	if diff := cmp.Diff(want, fields.Array("reply")); diff != "" {
		t.Errorf("sub-documents mismatch (-want +got):\n%s", diff)
	}

	if _, err := pushSub(fields, "reply", documentdomain.Fields{"content": "no id"}); !errors.Is(err, ErrInvalidUpdate) {
		t.Errorf("pushSub without id: expected ErrInvalidUpdate, got %v", err)
	}
}

func TestSortByFieldsKeepsMissingLast(t *testing.T) {
	items := []documentdomain.Fields{
		{"name": "missing"},
		{"name": "low", "score": 10.0},
		{"name": "high", "score": 90.0},
		{"name": "mid", "score": 50.0},
	}
	id := func(f documentdomain.Fields) documentdomain.Fields { return f }

	sortByFields(items, id, []documentdomain.SortField{{Field: "score", Desc: true}})
	var got []string
	for _, it := range items {
		got = append(got, it.String("name"))
	}
	if diff := cmp.Diff([]string{"high", "mid", "low", "missing"}, got); diff != "" {
		t.Errorf("desc order mismatch (-want +got):\n%s", diff)
	}

	sortByFields(items, id, []documentdomain.SortField{{Field: "score"}})
	got = got[:0]
	for _, it := range items {
		got = append(got, it.String("name"))
	}
	if diff := cmp.Diff([]string{"low", "mid", "high", "missing"}, got); diff != "" {
		t.Errorf("asc order mismatch (-want +got):\n%s", diff)
	}
}
