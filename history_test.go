package mailsim

import (
	"context"
	"testing"

	"github.com/Mohsin-h27/mailsim/store"
)

func TestHistoryList(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)
	mb := svc.Client("")

	t.Run("empty log", func(t *testing.T) {
		list, err := mb.History().List(ctx, HistoryListOptions{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list.History) != 0 {
			t.Errorf("entries = %d, want 0", len(list.History))
		}
		if list.HistoryID != "1" {
			t.Errorf("historyId = %q, want 1", list.HistoryID)
		}
	})

	t.Run("mailbox mutations do not append", func(t *testing.T) {
		msg, err := mb.Messages().Insert(ctx, &store.Message{}, nil)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if _, err := mb.Messages().Trash(ctx, msg.ID); err != nil {
			t.Fatalf("trash: %v", err)
		}

		list, err := mb.History().List(ctx, HistoryListOptions{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list.History) != 0 {
			t.Errorf("entries = %d, want 0", len(list.History))
		}
	})

	t.Run("appended entries are listed in order", func(t *testing.T) {
		if _, err := mb.History().Append(ctx, "labelAdded", "message-1", []string{"TRASH"}); err != nil {
			t.Fatalf("append: %v", err)
		}
		if _, err := mb.History().Append(ctx, "messageDeleted", "message-2", nil); err != nil {
			t.Fatalf("append: %v", err)
		}

		list, err := mb.History().List(ctx, HistoryListOptions{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list.History) != 2 {
			t.Fatalf("entries = %d, want 2", len(list.History))
		}
		if list.History[0].Action != "labelAdded" || list.History[1].Action != "messageDeleted" {
			t.Errorf("order wrong: %+v", list.History)
		}
		if list.History[0].ID == list.History[1].ID {
			t.Error("entry ids should be unique")
		}
	})

	t.Run("max results trims", func(t *testing.T) {
		list, err := mb.History().List(ctx, HistoryListOptions{MaxResults: 1})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list.History) != 1 {
			t.Errorf("entries = %d, want 1", len(list.History))
		}
	})
}
