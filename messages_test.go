package mailsim

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Mohsin-h27/mailsim/store"
)

func TestMessagesInsert(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	t.Run("defaults", func(t *testing.T) {
		got, err := msgs.Insert(ctx, &store.Message{Subject: "hello"}, nil)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if got.ID != "message-1" {
			t.Errorf("id = %q, want message-1", got.ID)
		}
		if got.ThreadID != "thread-1" {
			t.Errorf("threadId = %q, want thread-1", got.ThreadID)
		}
		if diff := cmp.Diff([]string{"INBOX", "UNREAD"}, got.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
		if got.InternalDate != "234567890" {
			t.Errorf("internalDate = %q", got.InternalDate)
		}
	})

	t.Run("explicit labels kept", func(t *testing.T) {
		got, err := msgs.Insert(ctx, &store.Message{LabelIDs: []string{"INBOX"}}, nil)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if diff := cmp.Diff([]string{"INBOX"}, got.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("deleted flag appends DELETED", func(t *testing.T) {
		got, err := msgs.Insert(ctx, nil, &InsertOptions{Deleted: true})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if diff := cmp.Diff([]string{"INBOX", "UNREAD", "DELETED"}, got.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("explicit thread id kept", func(t *testing.T) {
		got, err := msgs.Insert(ctx, &store.Message{ThreadID: "thread-keep"}, nil)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if got.ThreadID != "thread-keep" {
			t.Errorf("threadId = %q", got.ThreadID)
		}
	})

	t.Run("input not mutated", func(t *testing.T) {
		in := &store.Message{Subject: "original"}
		if _, err := msgs.Insert(ctx, in, nil); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if in.ID != "" || in.LabelIDs != nil {
			t.Errorf("input mutated: %+v", in)
		}
	})
}

func TestMessagesImport(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	got, err := msgs.Import(ctx, &store.Message{
		Raw:     "raw content",
		Subject: "discarded",
		Body:    "discarded",
	}, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.ID != "msg_1" {
		t.Errorf("id = %q, want msg_1", got.ID)
	}
	if got.Raw != "raw content" {
		t.Errorf("raw = %q", got.Raw)
	}
	if got.Subject != "" || got.Body != "" {
		t.Errorf("headers should be discarded: %+v", got)
	}
	if got.ThreadID != "" {
		t.Errorf("threadId = %q, want empty", got.ThreadID)
	}
	if len(got.LabelIDs) != 0 {
		t.Errorf("labels = %v, want empty", got.LabelIDs)
	}
	if got.InternalDate != "123456789" {
		t.Errorf("internalDate = %q", got.InternalDate)
	}
}

func TestMessagesSend(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	t.Run("labels forced to SENT", func(t *testing.T) {
		got, err := msgs.Send(ctx, &store.Message{
			Subject:  "out",
			LabelIDs: []string{"INBOX", "UNREAD", "whatever"},
		})
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if got.ID != "msg_1" {
			t.Errorf("id = %q, want msg_1", got.ID)
		}
		if diff := cmp.Diff([]string{"SENT"}, got.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
		if got.ThreadID != "thread-1" {
			t.Errorf("threadId = %q, want thread-1", got.ThreadID)
		}
		if got.InternalDate != "345678901" {
			t.Errorf("internalDate = %q", got.InternalDate)
		}
	})

	t.Run("explicit thread id kept", func(t *testing.T) {
		got, err := msgs.Send(ctx, &store.Message{ThreadID: "thread-keep"})
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if got.ThreadID != "thread-keep" {
			t.Errorf("threadId = %q", got.ThreadID)
		}
	})
}

func TestMessagesGet(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	inserted, err := msgs.Insert(ctx, &store.Message{Subject: "keep"}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := msgs.Get(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Subject != "keep" {
		t.Errorf("subject = %q", got.Subject)
	}

	t.Run("unknown id is a soft miss", func(t *testing.T) {
		got, err := msgs.Get(ctx, "message-999")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

func TestMessagesTrashUntrash(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	inserted, err := msgs.Insert(ctx, &store.Message{}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	t.Run("trash is idempotent", func(t *testing.T) {
		for range 2 {
			got, err := msgs.Trash(ctx, inserted.ID)
			if err != nil {
				t.Fatalf("trash: %v", err)
			}
			if diff := cmp.Diff([]string{"INBOX", "UNREAD", "TRASH"}, got.LabelIDs); diff != "" {
				t.Errorf("labels mismatch (-want +got):\n%s", diff)
			}
		}
	})

	t.Run("untrash restores", func(t *testing.T) {
		got, err := msgs.Untrash(ctx, inserted.ID)
		if err != nil {
			t.Fatalf("untrash: %v", err)
		}
		if diff := cmp.Diff([]string{"INBOX", "UNREAD"}, got.LabelIDs); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown ids are soft misses", func(t *testing.T) {
		if got, err := msgs.Trash(ctx, "nope"); err != nil || got != nil {
			t.Errorf("trash = %+v, %v", got, err)
		}
		if got, err := msgs.Untrash(ctx, "nope"); err != nil || got != nil {
			t.Errorf("untrash = %+v, %v", got, err)
		}
	})
}

func TestMessagesModify(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	inserted, err := msgs.Insert(ctx, &store.Message{}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := msgs.Modify(ctx, inserted.ID, []string{"STARRED", "INBOX"}, []string{"UNREAD", "absent"})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	// INBOX is already present so adding it again is a no-op; removing
	// an absent label is too.
	if diff := cmp.Diff([]string{"INBOX", "STARRED"}, got.LabelIDs); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	t.Run("unknown id is a soft miss", func(t *testing.T) {
		if got, err := msgs.Modify(ctx, "nope", []string{"X"}, nil); err != nil || got != nil {
			t.Errorf("modify = %+v, %v", got, err)
		}
	})
}

func TestMessagesDelete(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	inserted, err := msgs.Insert(ctx, &store.Message{Subject: "bye"}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	removed, err := msgs.Delete(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed == nil || removed.Subject != "bye" {
		t.Errorf("removed = %+v", removed)
	}

	if got, _ := msgs.Get(ctx, inserted.ID); got != nil {
		t.Error("message still present after delete")
	}

	t.Run("second delete is a soft miss", func(t *testing.T) {
		if got, err := msgs.Delete(ctx, inserted.ID); err != nil || got != nil {
			t.Errorf("delete = %+v, %v", got, err)
		}
	})
}

func TestMessagesBatchDelete(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	a, _ := msgs.Insert(ctx, &store.Message{}, nil)
	b, _ := msgs.Insert(ctx, &store.Message{}, nil)

	// A mix of known and unknown ids; the unknown one is skipped.
	if err := msgs.BatchDelete(ctx, []string{a.ID, "nope", b.ID}); err != nil {
		t.Fatalf("batch delete: %v", err)
	}

	list, err := msgs.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Messages) != 0 {
		t.Errorf("messages remaining: %d", len(list.Messages))
	}
}

func TestMessagesBatchModify(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	a, _ := msgs.Insert(ctx, &store.Message{}, nil)
	b, _ := msgs.Insert(ctx, &store.Message{}, nil)

	if err := msgs.BatchModify(ctx, []string{a.ID, "nope", b.ID}, []string{"STARRED"}, []string{"UNREAD"}); err != nil {
		t.Fatalf("batch modify: %v", err)
	}

	for _, id := range []string{a.ID, b.ID} {
		got, err := msgs.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if diff := cmp.Diff([]string{"INBOX", "STARRED"}, got.LabelIDs); diff != "" {
			t.Errorf("%s labels mismatch (-want +got):\n%s", id, diff)
		}
	}
}

func TestMessagesList(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	seed := []*store.Message{
		{Sender: "alice@example.com", Subject: "budget report", Body: "numbers"},
		{Sender: "bob@example.com", Subject: "lunch", Body: "sandwiches"},
		{Sender: "alice@example.com", Subject: "holiday plans", Body: "beach",
			Attachments: []store.Attachment{{ID: "att-1", Filename: "itinerary.pdf"}}},
	}
	for _, m := range seed {
		if _, err := msgs.Insert(ctx, m, nil); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all in insertion order", ListOptions{}, []string{"message-1", "message-2", "message-3"}},
		{"from prefix", ListOptions{Query: "from:alice@example.com"}, []string{"message-1", "message-3"}},
		{"subject prefix", ListOptions{Query: "subject:lunch"}, []string{"message-2"}},
		{"keyword searches everywhere", ListOptions{Query: "beach"}, []string{"message-3"}},
		{"label filter is case-insensitive", ListOptions{Query: "label:inbox from:bob@example.com"}, []string{"message-2"}},
		{"attachment any", ListOptions{Query: "attachment:any"}, []string{"message-3"}},
		{"explicit label ids", ListOptions{LabelIDs: []string{"INBOX", "UNREAD"}}, []string{"message-1", "message-2", "message-3"}},
		{"max results trims", ListOptions{MaxResults: 2}, []string{"message-1", "message-2"}},
		{"no match", ListOptions{Query: "from:carol"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := msgs.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var ids []string
			for _, m := range list.Messages {
				ids = append(ids, m.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if list.NextPageToken != "" {
				t.Errorf("next page token = %q, want empty", list.NextPageToken)
			}
		})
	}
}

func TestMessagesAttachment(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	msgs := svc.Client("").Messages()

	inserted, err := msgs.Insert(ctx, &store.Message{
		Attachments: []store.Attachment{{ID: "att-1", Filename: "a.txt", Data: "QQ=="}},
	}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	t.Run("stored attachment", func(t *testing.T) {
		got, err := msgs.Attachment(ctx, inserted.ID, "att-1")
		if err != nil {
			t.Fatalf("attachment: %v", err)
		}
		if got.Filename != "a.txt" || got.Data != "QQ==" {
			t.Errorf("attachment = %+v", got)
		}
	})

	t.Run("unknown attachment id yields placeholder", func(t *testing.T) {
		got, err := msgs.Attachment(ctx, inserted.ID, "att-missing")
		if err != nil {
			t.Fatalf("attachment: %v", err)
		}
		if got.ID != "att-missing" || got.Data == "" {
			t.Errorf("placeholder = %+v", got)
		}
	})

	t.Run("unknown message is a soft miss", func(t *testing.T) {
		if got, err := msgs.Attachment(ctx, "nope", "att-1"); err != nil || got != nil {
			t.Errorf("attachment = %+v, %v", got, err)
		}
	})
}
