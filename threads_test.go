package mailsim

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Mohsin-h27/mailsim/store"
)

// seedThread inserts messages sharing a thread id and returns their ids.
func seedThread(t *testing.T, mb Mailbox, threadID string, n int) []string {
	t.Helper()
	ctx := context.Background()
	var ids []string
	for range n {
		msg, err := mb.Messages().Insert(ctx, &store.Message{ThreadID: threadID}, nil)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, msg.ID)
	}
	return ids
}

func TestInsertedMessageFormsThread(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	mb := svc.Client("")

	msg, err := mb.Messages().Insert(ctx, &store.Message{Subject: "hello"}, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if msg.ThreadID == "" {
		t.Fatal("inserted message has no thread id")
	}

	list, err := mb.Threads().List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, th := range list.Threads {
		ids = append(ids, th.ID)
	}
	if diff := cmp.Diff([]string{msg.ThreadID}, ids); diff != "" {
		t.Errorf("thread ids mismatch (-want +got):\n%s", diff)
	}

	got, err := mb.Threads().Get(ctx, msg.ThreadID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || len(got.Messages) != 1 || got.Messages[0].ID != msg.ID {
		t.Errorf("thread = %+v", got)
	}
}

func TestThreadsGet(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	mb := svc.Client("")

	ids := seedThread(t, mb, "thread-a", 2)
	seedThread(t, mb, "thread-b", 1)

	got, err := mb.Threads().Get(ctx, "thread-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var gotIDs []string
	for _, m := range got.Messages {
		gotIDs = append(gotIDs, m.ID)
	}
	if diff := cmp.Diff(ids, gotIDs); diff != "" {
		t.Errorf("message ids mismatch (-want +got):\n%s", diff)
	}

	t.Run("unknown thread is a soft miss", func(t *testing.T) {
		if got, err := mb.Threads().Get(ctx, "thread-nope"); err != nil || got != nil {
			t.Errorf("get = %+v, %v", got, err)
		}
	})

	t.Run("thread vanishes with its last message", func(t *testing.T) {
		if _, err := mb.Messages().Delete(ctx, ids[0]); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := mb.Messages().Delete(ctx, ids[1]); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if got, err := mb.Threads().Get(ctx, "thread-a"); err != nil || got != nil {
			t.Errorf("get = %+v, %v", got, err)
		}
	})
}

func TestThreadsList(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	mb := svc.Client("")

	seedThread(t, mb, "thread-a", 2)
	seedThread(t, mb, "thread-b", 1)
	if _, err := mb.Messages().Insert(ctx, &store.Message{ThreadID: "thread-a", Subject: "late reply"}, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}

	list, err := mb.Threads().List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Threads) != 2 {
		t.Fatalf("thread count = %d, want 2", len(list.Threads))
	}
	if list.Threads[0].ID != "thread-a" || len(list.Threads[0].Messages) != 3 {
		t.Errorf("first thread = %s with %d messages", list.Threads[0].ID, len(list.Threads[0].Messages))
	}

	t.Run("query filters messages before grouping", func(t *testing.T) {
		list, err := mb.Threads().List(ctx, ListOptions{Query: "subject:late"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list.Threads) != 1 || len(list.Threads[0].Messages) != 1 {
			t.Errorf("threads = %+v", list.Threads)
		}
	})

	t.Run("max results trims threads", func(t *testing.T) {
		list, err := mb.Threads().List(ctx, ListOptions{MaxResults: 1})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list.Threads) != 1 {
			t.Errorf("thread count = %d, want 1", len(list.Threads))
		}
	})
}

func TestThreadsModifyTrashUntrash(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	mb := svc.Client("")

	ids := seedThread(t, mb, "thread-a", 2)

	got, err := mb.Threads().Modify(ctx, "thread-a", []string{"STARRED"}, []string{"UNREAD"})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	for _, m := range got.Messages {
		if diff := cmp.Diff([]string{"INBOX", "STARRED"}, m.LabelIDs); diff != "" {
			t.Errorf("%s labels mismatch (-want +got):\n%s", m.ID, diff)
		}
	}

	if _, err := mb.Threads().Trash(ctx, "thread-a"); err != nil {
		t.Fatalf("trash: %v", err)
	}
	for _, id := range ids {
		m, _ := mb.Messages().Get(ctx, id)
		if !m.HasLabel(store.LabelTrash) {
			t.Errorf("%s missing TRASH", id)
		}
	}

	if _, err := mb.Threads().Untrash(ctx, "thread-a"); err != nil {
		t.Fatalf("untrash: %v", err)
	}
	for _, id := range ids {
		m, _ := mb.Messages().Get(ctx, id)
		if m.HasLabel(store.LabelTrash) {
			t.Errorf("%s still has TRASH", id)
		}
	}

	t.Run("unknown thread is a soft miss", func(t *testing.T) {
		if got, err := mb.Threads().Modify(ctx, "thread-nope", []string{"X"}, nil); err != nil || got != nil {
			t.Errorf("modify = %+v, %v", got, err)
		}
		if got, err := mb.Threads().Trash(ctx, "thread-nope"); err != nil || got != nil {
			t.Errorf("trash = %+v, %v", got, err)
		}
	})
}

func TestThreadsDelete(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	mb := svc.Client("")

	ids := seedThread(t, mb, "thread-a", 2)
	other := seedThread(t, mb, "thread-b", 1)

	removed, err := mb.Threads().Delete(ctx, "thread-a")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(removed.Messages) != 2 {
		t.Errorf("removed %d messages, want 2", len(removed.Messages))
	}

	for _, id := range ids {
		if m, _ := mb.Messages().Get(ctx, id); m != nil {
			t.Errorf("%s still present", id)
		}
	}
	// The other thread is untouched.
	if m, _ := mb.Messages().Get(ctx, other[0]); m == nil {
		t.Error("unrelated message removed")
	}

	t.Run("unknown thread is a soft miss", func(t *testing.T) {
		if got, err := mb.Threads().Delete(ctx, "thread-a"); err != nil || got != nil {
			t.Errorf("delete = %+v, %v", got, err)
		}
	})
}
