package contestdomain

import (
	"testing"
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/google/go-cmp/cmp"
)

func TestJournalEntryTime(t *testing.T) {
	at := begin.Add(90 * time.Minute)
	e := JournalEntry{RID: NewRecordID(at)}
	if !e.Time().Equal(at) {
		t.Errorf("Time() = %s, want %s", e.Time(), at)
	}
	if !(JournalEntry{RID: "not-an-id"}).Time().IsZero() {
		t.Error("invalid rid should yield the zero time")
	}
}

func TestCompactJournalKeepsLatestVerdict(t *testing.T) {
	a := entry(1, time.Minute, false, 0)
	b := entry(2, 2*time.Minute, true, 100)
	rejudged := a
	rejudged.Accept = true
	rejudged.Score = 100

	got := CompactJournal([]JournalEntry{a, b, rejudged})
	want := []JournalEntry{b, rejudged}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CompactJournal (-want +got):\n%s", diff)
	}

	stat := ACMRule{}.Stat(acmContest(), []JournalEntry{a, b, rejudged})
	if stat.Accept != 2 {
		t.Errorf("rejudged accept not counted: %+v", stat)
	}
	if d, _ := stat.DetailFor(1); d.Rejected != 0 {
		t.Errorf("rejudged rejection still counted: %+v", d)
	}
}

func TestDecodeJournalAndStat(t *testing.T) {
	journal := []JournalEntry{entry(1, time.Minute, true, 100)}
	stat := ACMRule{}.Stat(acmContest(), journal)

	fields := stat.Fields()
	fields[JournalField] = documentdomain.MustNormalize(map[string]any{"j": journal})["j"]

	gotJournal, err := DecodeJournal(fields)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(journal, gotJournal); diff != "" {
		t.Errorf("journal (-want +got):\n%s", diff)
	}
	gotStat, err := DecodeStat(fields)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(stat, gotStat); diff != "" {
		t.Errorf("stat (-want +got):\n%s", diff)
	}
}

func TestContestFieldsRoundTrip(t *testing.T) {
	c := homeworkContest()
	c.Title = "Week 1"
	doc := &documentdomain.Document{
		DomainID: "system",
		DocType:  documentdomain.TypeHomework,
		DocID:    "abc",
		Owner:    2,
		Fields:   c.Fields(),
	}
	got, err := FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Week 1" || !got.PenaltySince.Equal(*c.PenaltySince) || got.PenaltyRules["24"] != 0.5 {
		t.Errorf("decoded contest = %+v", got)
	}
	if got.Key() != (documentdomain.DocKey{DomainID: "system", DocType: documentdomain.TypeHomework, DocID: "abc"}) {
		t.Errorf("key = %v", got.Key())
	}
}

func TestStatIgnoresJudgingOrder(t *testing.T) {
	reject := entry(1, 5*time.Minute, false, 0)
	accept := entry(1, 10*time.Minute, true, 100)
	other := entry(2, 20*time.Minute, true, 60)

	for _, rule := range []ContestRule{ACMRule{}, OIRule{}, HomeworkRule{}} {
		t.Run(rule.Name(), func(t *testing.T) {
			c := acmContest()
			if rule.Name() == "homework" {
				c = homeworkContest()
			}
			inOrder := rule.Stat(c, []JournalEntry{reject, accept, other})
			judgedLate := rule.Stat(c, []JournalEntry{other, accept, reject})
			if diff := cmp.Diff(inOrder, judgedLate); diff != "" {
				t.Errorf("judging order changed the aggregate (-in order +judged late):\n%s", diff)
			}
		})
	}

	stat := ACMRule{}.Stat(acmContest(), []JournalEntry{reject, accept})
	if stat.Time != 600+ACMPenaltySeconds {
		t.Errorf("time = %d, want %d", stat.Time, 600+ACMPenaltySeconds)
	}
}

func TestRejudgeFoldsAtSubmissionTime(t *testing.T) {
	reject := entry(1, 5*time.Minute, false, 0)
	accept := entry(1, 10*time.Minute, true, 100)
	rejudged := reject
	rejudged.Accept = true
	rejudged.Score = 100

	stat := ACMRule{}.Stat(acmContest(), []JournalEntry{reject, accept, rejudged})
	if stat.Accept != 1 || stat.Time != 300 {
		t.Errorf("stat = accept %d time %d, want accept 1 time 300", stat.Accept, stat.Time)
	}
	d, _ := stat.DetailFor(1)
	if d.RID != reject.RID || d.Rejected != 0 {
		t.Errorf("detail = %+v, want the rejudged record with no rejections", d)
	}
}

func TestSortJournalBreaksSameSecondTiesByRecordID(t *testing.T) {
	at := begin.Add(time.Minute)
	first := JournalEntry{RID: NewRecordID(at), PID: 1}
	second := JournalEntry{RID: NewRecordID(at), PID: 2}
	journal := []JournalEntry{second, first}
	SortJournal(journal)
	if diff := cmp.Diff([]JournalEntry{first, second}, journal); diff != "" {
		t.Errorf("SortJournal (-want +got):\n%s", diff)
	}
}
