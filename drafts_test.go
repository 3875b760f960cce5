package mailsim

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Mohsin-h27/mailsim/store"
)

func TestDraftsCreate(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	drafts := svc.Client("").Drafts()

	t.Run("defaults", func(t *testing.T) {
		got, err := drafts.Create(ctx, &store.Message{Subject: "wip"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if got.ID != "draft-1" {
			t.Errorf("id = %q, want draft-1", got.ID)
		}
		if got.Message.ID != got.ID {
			t.Errorf("message id %q differs from draft id %q", got.Message.ID, got.ID)
		}
		if got.Message.ThreadID != "thread-1" {
			t.Errorf("threadId = %q, want thread-1", got.Message.ThreadID)
		}
		if diff := cmp.Diff([]string{"DRAFT"}, got.Message.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("DRAFT appended to explicit labels", func(t *testing.T) {
		got, err := drafts.Create(ctx, &store.Message{LabelIDs: []string{"INBOX"}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if diff := cmp.Diff([]string{"INBOX", "DRAFT"}, got.Message.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("lowercase draft label satisfies the invariant", func(t *testing.T) {
		got, err := drafts.Create(ctx, &store.Message{LabelIDs: []string{"draft"}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if diff := cmp.Diff([]string{"draft"}, got.Message.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDraftsGetAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	drafts := svc.Client("").Drafts()

	created, err := drafts.Create(ctx, &store.Message{Subject: "keep"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := drafts.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Message.Subject != "keep" {
		t.Errorf("subject = %q", got.Message.Subject)
	}

	removed, err := drafts.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed == nil || removed.ID != created.ID {
		t.Errorf("removed = %+v", removed)
	}

	t.Run("unknown ids are soft misses", func(t *testing.T) {
		if got, err := drafts.Get(ctx, created.ID); err != nil || got != nil {
			t.Errorf("get = %+v, %v", got, err)
		}
		if got, err := drafts.Delete(ctx, created.ID); err != nil || got != nil {
			t.Errorf("delete = %+v, %v", got, err)
		}
		if got, err := drafts.Update(ctx, created.ID, &store.Message{Subject: "x"}); err != nil || got != nil {
			t.Errorf("update = %+v, %v", got, err)
		}
	})
}

func TestDraftsUpdate(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	drafts := svc.Client("").Drafts()

	created, err := drafts.Create(ctx, &store.Message{Subject: "old", Body: "body"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := drafts.Update(ctx, created.ID, &store.Message{Subject: "new"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Message.Subject != "new" {
		t.Errorf("subject = %q, want new", got.Message.Subject)
	}
	// Fields not present in the update survive.
	if got.Message.Body != "body" {
		t.Errorf("body = %q, want body", got.Message.Body)
	}
	if got.Message.ID != created.ID {
		t.Errorf("message id changed to %q", got.Message.ID)
	}

	t.Run("label replacement re-asserts DRAFT", func(t *testing.T) {
		got, err := drafts.Update(ctx, created.ID, &store.Message{LabelIDs: []string{"INBOX"}})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if diff := cmp.Diff([]string{"INBOX", "DRAFT"}, got.Message.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDraftsSend(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	mb := svc.Client("")
	drafts := mb.Drafts()

	t.Run("known draft forwards raw and is removed", func(t *testing.T) {
		created, err := drafts.Create(ctx, &store.Message{Raw: "draft raw", Subject: "ignored"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		sent, err := drafts.Send(ctx, &store.Draft{ID: created.ID})
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if sent.Raw != "draft raw" {
			t.Errorf("raw = %q", sent.Raw)
		}
		if sent.Subject != "" {
			t.Errorf("subject should not be forwarded, got %q", sent.Subject)
		}
		if diff := cmp.Diff([]string{"SENT"}, sent.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}

		if got, _ := drafts.Get(ctx, created.ID); got != nil {
			t.Error("draft still present after send")
		}
	})

	t.Run("unknown id sends the raw payload as new mail", func(t *testing.T) {
		sent, err := drafts.Send(ctx, &store.Draft{
			ID:      "draft-999",
			Message: &store.Message{Raw: "fresh raw", Subject: "dropped"},
		})
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if sent.Raw != "fresh raw" {
			t.Errorf("raw = %q", sent.Raw)
		}
		if sent.Subject != "" {
			t.Errorf("subject = %q, want empty; only the raw payload is forwarded", sent.Subject)
		}
		if diff := cmp.Diff([]string{"SENT"}, sent.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nil draft still sends", func(t *testing.T) {
		sent, err := drafts.Send(ctx, nil)
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if sent == nil || sent.ID == "" {
			t.Errorf("sent = %+v", sent)
		}
	})
}

func TestDraftsList(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	drafts := svc.Client("").Drafts()

	seed := []*store.Message{
		{Sender: "alice@example.com", Subject: "quarterly budget", Body: "numbers"},
		{Sender: "bob@example.com", Subject: "picnic", Body: "bring snacks"},
	}
	for _, m := range seed {
		if _, err := drafts.Create(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"draft-1", "draft-2"}},
		{"from prefix", "from:alice@example.com", []string{"draft-1"}},
		{"body prefix", "body:snacks", []string{"draft-2"}},
		{"quoted phrase", `subject:"quarterly budget"`, []string{"draft-1"}},
		{"keyword", "picnic", []string{"draft-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := drafts.List(ctx, ListOptions{Query: tt.query})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var ids []string
			for _, d := range list.Drafts {
				ids = append(ids, d.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
