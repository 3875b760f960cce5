// Package gmailv1 converts between the simulation's entity model and
// the types of google.golang.org/api/gmail/v1, so fixtures built on the
// simulation can feed code written against the real client library.
//
// Conversions are lossy in both directions where the models differ:
// the simulation stores flat header fields while the API nests them in
// a MIME payload, and numeric API ids that do not parse map to zero.
package gmailv1

import (
	"encoding/base64"
	"strconv"
	"strings"
	"unicode/utf8"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/Mohsin-h27/mailsim"
	"github.com/Mohsin-h27/mailsim/store"
)

// Header names carried in the synthesized payload.
const (
	headerFrom    = "From"
	headerTo      = "To"
	headerSubject = "Subject"
	headerDate    = "Date"
)

// Message converts a stored message into an API message. Header fields
// become payload headers and the body is base64url encoded.
func Message(m *store.Message) *gmail.Message {
	if m == nil {
		return nil
	}

	out := &gmail.Message{
		Id:           m.ID,
		ThreadId:     m.ThreadID,
		LabelIds:     append([]string(nil), m.LabelIDs...),
		InternalDate: parseInt(m.InternalDate),
		Snippet:      snippet(m.Body),
	}
	if m.Raw != "" {
		out.Raw = base64.RawURLEncoding.EncodeToString([]byte(m.Raw))
	}

	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Headers:  headers(m),
		Body: &gmail.MessagePartBody{
			Data: base64.RawURLEncoding.EncodeToString([]byte(m.Body)),
			Size: int64(len(m.Body)),
		},
	}
	for i := range m.Attachments {
		a := &m.Attachments[i]
		payload.Parts = append(payload.Parts, &gmail.MessagePart{
			PartId:   a.ID,
			Filename: a.Filename,
			MimeType: a.MimeType,
			Body: &gmail.MessagePartBody{
				AttachmentId: a.ID,
				Data:         a.Data,
				Size:         int64(len(a.Data)),
			},
		})
	}
	out.Payload = payload

	return out
}

// MessageFromAPI converts an API message into a stored message,
// flattening payload headers back into fields.
func MessageFromAPI(g *gmail.Message) *store.Message {
	if g == nil {
		return nil
	}

	m := &store.Message{
		ID:       g.Id,
		ThreadID: g.ThreadId,
		LabelIDs: append([]string(nil), g.LabelIds...),
	}
	if g.InternalDate != 0 {
		m.InternalDate = strconv.FormatInt(g.InternalDate, 10)
	}
	if g.Raw != "" {
		m.Raw = decodeB64(g.Raw)
	}

	if p := g.Payload; p != nil {
		for _, h := range p.Headers {
			switch h.Name {
			case headerFrom:
				m.Sender = h.Value
			case headerTo:
				m.Recipient = h.Value
			case headerSubject:
				m.Subject = h.Value
			case headerDate:
				m.Date = h.Value
			}
		}
		if p.Body != nil {
			m.Body = decodeB64(p.Body.Data)
		}
		for _, part := range p.Parts {
			if part.Body == nil || part.Body.AttachmentId == "" {
				continue
			}
			m.Attachments = append(m.Attachments, store.Attachment{
				ID:       part.Body.AttachmentId,
				Filename: part.Filename,
				MimeType: part.MimeType,
				Data:     part.Body.Data,
			})
		}
	}

	return m
}

// Draft converts a stored draft into an API draft.
func Draft(d *store.Draft) *gmail.Draft {
	if d == nil {
		return nil
	}
	return &gmail.Draft{Id: d.ID, Message: Message(d.Message)}
}

// DraftFromAPI converts an API draft into a stored draft.
func DraftFromAPI(g *gmail.Draft) *store.Draft {
	if g == nil {
		return nil
	}
	return &store.Draft{ID: g.Id, Message: MessageFromAPI(g.Message)}
}

// Label converts a stored label into an API label.
func Label(l *store.Label) *gmail.Label {
	if l == nil {
		return nil
	}
	return &gmail.Label{
		Id:                    l.ID,
		Name:                  l.Name,
		Type:                  l.Type,
		MessageListVisibility: l.MessageListVisibility,
		LabelListVisibility:   l.LabelListVisibility,
	}
}

// LabelFromAPI converts an API label into a stored label.
func LabelFromAPI(g *gmail.Label) *store.Label {
	if g == nil {
		return nil
	}
	return &store.Label{
		ID:                    g.Id,
		Name:                  g.Name,
		Type:                  g.Type,
		MessageListVisibility: g.MessageListVisibility,
		LabelListVisibility:   g.LabelListVisibility,
	}
}

// Profile converts a stored profile into an API profile.
func Profile(p *store.Profile) *gmail.Profile {
	if p == nil {
		return nil
	}
	return &gmail.Profile{
		EmailAddress:  p.EmailAddress,
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
		HistoryId:     parseUint(p.HistoryID),
	}
}

// Thread converts a derived thread into an API thread.
func Thread(t *mailsim.Thread) *gmail.Thread {
	if t == nil {
		return nil
	}
	out := &gmail.Thread{Id: t.ID}
	for _, m := range t.Messages {
		out.Messages = append(out.Messages, Message(m))
	}
	return out
}

// WatchResponse converts a watch acknowledgement into the API shape.
func WatchResponse(w *mailsim.WatchResponse) *gmail.WatchResponse {
	if w == nil {
		return nil
	}
	return &gmail.WatchResponse{
		HistoryId:  parseUint(w.HistoryID),
		Expiration: parseInt(w.Expiration),
	}
}

// MessageList converts a message listing into the API response shape.
func MessageList(l *mailsim.MessageList) *gmail.ListMessagesResponse {
	if l == nil {
		return nil
	}
	out := &gmail.ListMessagesResponse{
		NextPageToken:      l.NextPageToken,
		ResultSizeEstimate: int64(len(l.Messages)),
	}
	for _, m := range l.Messages {
		out.Messages = append(out.Messages, Message(m))
	}
	return out
}

// DraftList converts a draft listing into the API response shape.
func DraftList(l *mailsim.DraftList) *gmail.ListDraftsResponse {
	if l == nil {
		return nil
	}
	out := &gmail.ListDraftsResponse{
		NextPageToken:      l.NextPageToken,
		ResultSizeEstimate: int64(len(l.Drafts)),
	}
	for _, d := range l.Drafts {
		out.Drafts = append(out.Drafts, Draft(d))
	}
	return out
}

// ThreadList converts a thread listing into the API response shape.
func ThreadList(l *mailsim.ThreadList) *gmail.ListThreadsResponse {
	if l == nil {
		return nil
	}
	out := &gmail.ListThreadsResponse{
		NextPageToken:      l.NextPageToken,
		ResultSizeEstimate: int64(len(l.Threads)),
	}
	for _, t := range l.Threads {
		out.Threads = append(out.Threads, Thread(t))
	}
	return out
}

// LabelList converts labels into the API response shape.
func LabelList(labels []*store.Label) *gmail.ListLabelsResponse {
	out := &gmail.ListLabelsResponse{}
	for _, l := range labels {
		out.Labels = append(out.Labels, Label(l))
	}
	return out
}

// HistoryList converts a mutation log listing into the API response
// shape. Each entry becomes a History record referencing its message.
func HistoryList(l *mailsim.HistoryList) *gmail.ListHistoryResponse {
	if l == nil {
		return nil
	}
	out := &gmail.ListHistoryResponse{
		NextPageToken: l.NextPageToken,
		HistoryId:     parseUint(l.HistoryID),
	}
	for _, e := range l.History {
		h := &gmail.History{Id: parseUint(e.ID)}
		if e.MessageID != "" {
			h.Messages = append(h.Messages, &gmail.Message{
				Id:       e.MessageID,
				LabelIds: append([]string(nil), e.LabelIDs...),
			})
		}
		out.History = append(out.History, h)
	}
	return out
}

// AttachmentBody converts an attachment into the API body shape.
func AttachmentBody(a *store.Attachment) *gmail.MessagePartBody {
	if a == nil {
		return nil
	}
	return &gmail.MessagePartBody{
		AttachmentId: a.ID,
		Data:         a.Data,
		Size:         int64(len(a.Data)),
	}
}

func headers(m *store.Message) []*gmail.MessagePartHeader {
	var hs []*gmail.MessagePartHeader
	add := func(name, value string) {
		if value != "" {
			hs = append(hs, &gmail.MessagePartHeader{Name: name, Value: value})
		}
	}
	add(headerFrom, m.Sender)
	add(headerTo, m.Recipient)
	add(headerSubject, m.Subject)
	add(headerDate, m.Date)
	return hs
}

// snippet returns the first 100 characters of the body, like the API's
// preview text.
func snippet(body string) string {
	if utf8.RuneCountInString(body) <= 100 {
		return body
	}
	return string([]rune(body)[:100])
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseUint(s string) uint64 {
	n, _ := strconv.ParseUint(s, 10, 64)
	return n
}

// decodeB64 accepts both padded and unpadded url-safe base64; anything
// else comes back unchanged.
func decodeB64(s string) string {
	if s == "" {
		return ""
	}
	enc := base64.RawURLEncoding
	if strings.HasSuffix(s, "=") {
		enc = base64.URLEncoding
	}
	b, err := enc.DecodeString(s)
	if err != nil {
		return s
	}
	return string(b)
}
