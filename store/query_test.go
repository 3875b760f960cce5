package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func msgIDs(msgs []*Message) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestCompileQueryMessages(t *testing.T) {
	msgs := []*Message{
		{ID: "m1", Sender: "alice@example.com", Recipient: "bob@example.com", Subject: "Hello world", Body: "greetings"},
		{ID: "m2", Sender: "bob@example.com", Recipient: "alice@example.com", Subject: "Hello", Body: "meeting notes"},
		{ID: "m3", Sender: "carol@example.com", Recipient: "bob@example.com", Subject: "Invoice", Body: "attached",
			LabelIDs: []string{"inbox", "unread"}, Attachments: []Attachment{{ID: "a1", Filename: "invoice.pdf"}}},
	}

	tests := []struct {
		name string
		q    string
		want []string
	}{
		{"empty query returns all", "", []string{"m1", "m2", "m3"}},
		{"from and subject compose", "from:alice@example.com subject:hello", []string{"m1"}},
		{"from is exact not substring", "from:alice", nil},
		{"from is case insensitive", "FROM:Alice@Example.COM", []string{"m1"}},
		{"to exact match", "to:alice@example.com", []string{"m2"}},
		{"to with empty value is a no-op", "to:", []string{"m1", "m2", "m3"}},
		{"subject substring", "subject:hell", []string{"m1", "m2"}},
		{"label matches case insensitively", "label:INBOX", []string{"m3"}},
		{"label lower query matches lower stored", "label:inbox", []string{"m3"}},
		{"bare keyword searches all fields", "meeting", []string{"m2"}},
		{"keyword matches sender substring", "carol", []string{"m3"}},
		{"attachment any", "attachment:any", []string{"m3"}},
		{"attachment filename substring", "attachment:invoice", []string{"m3"}},
		{"attachment no match", "attachment:report", nil},
		{"attachment applies after other filters", "attachment:any from:alice@example.com", nil},
		{"body prefix is a plain keyword in message mode", "body:greetings", nil},
		{"tokens AND together", "subject:hello from:bob@example.com", []string{"m2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := msgIDs(CompileQuery(tt.q, ModeMessage).Filter(msgs))
			if len(got) == 0 {
				got = nil
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileQueryDrafts(t *testing.T) {
	msgs := []*Message{
		{ID: "d1", Sender: "alice@example.com", Recipient: "bob@example.com", Subject: "Project plan", Body: "first draft of the plan"},
		{ID: "d2", Sender: "alice@example.com", Recipient: "carol@example.com", Subject: "Notes", Body: "shopping list"},
	}

	tests := []struct {
		name string
		q    string
		want []string
	}{
		{"body substring", "body:plan", []string{"d1"}},
		{"quoted phrase is one token", `subject:"Project plan"`, []string{"d1"}},
		{"quoted body phrase", `body:"first draft"`, []string{"d1"}},
		{"single quotes group too", "subject:'Project plan'", []string{"d1"}},
		{"to exact", "to:carol@example.com", []string{"d2"}},
		{"attachment prefix is a keyword in draft mode", "attachment:any", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := msgIDs(CompileQuery(tt.q, ModeDraft).Filter(msgs))
			if len(got) == 0 {
				got = nil
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitQuoted(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a b c", []string{"a", "b", "c"}},
		{`subject:"hello world" from:x`, []string{"subject:hello world", "from:x"}},
		{`"unterminated phrase`, []string{"unterminated phrase"}},
		{"  padded   tokens  ", []string{"padded", "tokens"}},
	}

	for _, tt := range tests {
		got := splitQuoted(tt.in)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("splitQuoted(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestHasAllLabels(t *testing.T) {
	m := &Message{LabelIDs: []string{"INBOX", "UNREAD"}}

	if !HasAllLabels(m, []string{"INBOX"}) {
		t.Error("expected subset to match")
	}
	if !HasAllLabels(m, nil) {
		t.Error("expected empty requirement to match")
	}
	if HasAllLabels(m, []string{"INBOX", "SENT"}) {
		t.Error("expected missing label to fail")
	}
}

func TestMessageLabelSet(t *testing.T) {
	m := &Message{}

	m.AddLabel("INBOX")
	m.AddLabel("UNREAD")
	m.AddLabel("INBOX")
	if diff := cmp.Diff([]string{"INBOX", "UNREAD"}, m.LabelIDs); diff != "" {
		t.Errorf("duplicate accumulated (-want +got):\n%s", diff)
	}

	m.RemoveLabel("UNREAD")
	m.RemoveLabel("UNREAD")
	if diff := cmp.Diff([]string{"INBOX"}, m.LabelIDs); diff != "" {
		t.Errorf("remove mismatch (-want +got):\n%s", diff)
	}

	if !m.HasLabelFold("inbox") {
		t.Error("expected case-insensitive label hit")
	}
	if m.HasLabel("inbox") {
		t.Error("exact check should be case-sensitive")
	}
}
