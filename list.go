package mailsim

import "github.com/Mohsin-h27/mailsim/store"

// ListOptions are the common inputs of list operations. PageToken is
// accepted for interface compatibility but ignored: the simulation is
// single-page and never produces a next page token.
type ListOptions struct {
	MaxResults int
	PageToken  string
	Query      string

	// LabelIDs restricts results to records whose label set is a
	// superset of these values. Message and thread listing only.
	LabelIDs []string

	// IncludeSpamTrash is accepted for interface compatibility and has
	// no effect; the simulation never hides spam or trash.
	IncludeSpamTrash bool
}

func (o ListOptions) pageSize(fallback int) int {
	if o.MaxResults > 0 {
		return o.MaxResults
	}
	return fallback
}

// MessageList is the result of listing messages.
type MessageList struct {
	Messages      []*store.Message
	NextPageToken string
}

// DraftList is the result of listing drafts.
type DraftList struct {
	Drafts        []*store.Draft
	NextPageToken string
}

// Thread is a derived grouping: the messages sharing one thread id, in
// insertion order. Threads are never materialized; one with no
// remaining messages simply does not exist.
type Thread struct {
	ID       string
	Messages []*store.Message
}

// ThreadList is the result of listing threads.
type ThreadList struct {
	Threads       []*Thread
	NextPageToken string
}

// HistoryListOptions are the inputs of history listing. Everything
// except MaxResults is accepted for interface compatibility and inert.
type HistoryListOptions struct {
	MaxResults     int
	PageToken      string
	StartHistoryID string
	LabelID        string
	HistoryTypes   []string
}

// HistoryList is the result of listing the mutation log.
type HistoryList struct {
	History       []*store.HistoryEntry
	NextPageToken string
	HistoryID     string
}

// WatchResponse is the synthetic acknowledgement of a watch request.
type WatchResponse struct {
	HistoryID  string
	Expiration string
}

// watchExpiration is the fixed expiration reported for every watch.
const watchExpiration = "9999999999999"
