package store

import "strings"

// System labels. Comparisons against these are case-insensitive;
// the canonical stored form is upper-case.
const (
	LabelInbox   = "INBOX"
	LabelSent    = "SENT"
	LabelDraft   = "DRAFT"
	LabelTrash   = "TRASH"
	LabelUnread  = "UNREAD"
	LabelDeleted = "DELETED"
)

// Counter kinds understood by Store.NextID. Unknown kinds are
// auto-initialized to zero on first use, never rejected.
const (
	KindMessage = "message"
	KindThread  = "thread"
	KindDraft   = "draft"
	KindLabel   = "label"
	KindHistory = "history"
	KindSmime   = "smime"
)

// Attachment is a file attached to a message. Content is stored inline;
// there is no blob storage indirection.
type Attachment struct {
	ID       string `json:"id" db:"id"`
	Filename string `json:"filename" db:"filename"`
	MimeType string `json:"mimeType,omitempty" db:"mime_type"`
	Data     string `json:"data,omitempty" db:"data"`
}

// Message is a mail message owned by exactly one user. The ID is
// assigned once at creation and never changes. LabelIDs is an ordered
// sequence with set semantics: mutations must not introduce duplicates.
type Message struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"threadId"`
	Raw          string       `json:"raw,omitempty"`
	Sender       string       `json:"sender"`
	Recipient    string       `json:"recipient"`
	Subject      string       `json:"subject"`
	Body         string       `json:"body"`
	Date         string       `json:"date"`
	InternalDate string       `json:"internalDate"`
	IsRead       bool         `json:"isRead"`
	LabelIDs     []string     `json:"labelIds"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.LabelIDs != nil {
		c.LabelIDs = append([]string(nil), m.LabelIDs...)
	}
	if m.Attachments != nil {
		c.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return &c
}

// HasLabel reports whether the exact label value is present.
func (m *Message) HasLabel(label string) bool {
	for _, l := range m.LabelIDs {
		if l == label {
			return true
		}
	}
	return false
}

// HasLabelFold reports whether the label is present, comparing
// case-insensitively on both sides.
func (m *Message) HasLabelFold(label string) bool {
	for _, l := range m.LabelIDs {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// AddLabel appends the label unless the exact value is already present.
func (m *Message) AddLabel(label string) {
	if !m.HasLabel(label) {
		m.LabelIDs = append(m.LabelIDs, label)
	}
}

// RemoveLabel removes the exact label value if present.
func (m *Message) RemoveLabel(label string) {
	for i, l := range m.LabelIDs {
		if l == label {
			m.LabelIDs = append(m.LabelIDs[:i], m.LabelIDs[i+1:]...)
			return
		}
	}
}

// Draft wraps an unsent message. The draft id and the nested message id
// are the same value, and the nested message always carries the DRAFT label.
type Draft struct {
	ID      string   `json:"id"`
	Message *Message `json:"message"`
}

// Clone returns a deep copy of the draft.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	return &Draft{ID: d.ID, Message: d.Message.Clone()}
}

// Label is a user-defined or system tag stored in the per-user label mapping.
type Label struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Type                  string `json:"type,omitempty"`
	MessageListVisibility string `json:"messageListVisibility,omitempty"`
	LabelListVisibility   string `json:"labelListVisibility,omitempty"`
}

// Clone returns a copy of the label.
func (l *Label) Clone() *Label {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// Profile describes a mailbox owner. Totals are stored values; the
// engine does not recompute them on mutation.
type Profile struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
	HistoryID     string `json:"historyId"`
}

// Clone returns a copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// HistoryEntry is an append-only record of a mailbox mutation.
// Entries are never modified after append.
type HistoryEntry struct {
	ID        string   `json:"id"`
	Action    string   `json:"action,omitempty"`
	MessageID string   `json:"messageId,omitempty"`
	LabelIDs  []string `json:"labelIds,omitempty"`
}

// Clone returns a deep copy of the history entry.
func (h *HistoryEntry) Clone() *HistoryEntry {
	if h == nil {
		return nil
	}
	c := *h
	if h.LabelIDs != nil {
		c.LabelIDs = append([]string(nil), h.LabelIDs...)
	}
	return &c
}

// Watch is the last watch request payload recorded for a user.
// Each watch call overwrites it; stop clears it.
type Watch struct {
	TopicName         string   `json:"topicName,omitempty"`
	LabelIDs          []string `json:"labelIds,omitempty"`
	LabelFilterAction string   `json:"labelFilterAction,omitempty"`
}

// Clone returns a deep copy of the watch descriptor.
func (w *Watch) Clone() *Watch {
	if w == nil {
		return nil
	}
	c := *w
	if w.LabelIDs != nil {
		c.LabelIDs = append([]string(nil), w.LabelIDs...)
	}
	return &c
}

// IMAPSettings mirrors the IMAP section of user settings.
type IMAPSettings struct {
	Enabled         bool   `json:"enabled"`
	AutoExpunge     bool   `json:"autoExpunge"`
	ExpungeBehavior string `json:"expungeBehavior,omitempty"`
	MaxFolderSize   int64  `json:"maxFolderSize,omitempty"`
}

// POPSettings mirrors the POP section of user settings.
type POPSettings struct {
	AccessWindow string `json:"accessWindow,omitempty"`
	Disposition  string `json:"disposition,omitempty"`
}

// VacationSettings is the auto-reply configuration.
type VacationSettings struct {
	EnableAutoReply       bool   `json:"enableAutoReply"`
	ResponseSubject       string `json:"responseSubject,omitempty"`
	ResponseBodyPlainText string `json:"responseBodyPlainText,omitempty"`
	ResponseBodyHTML      string `json:"responseBodyHtml,omitempty"`
	RestrictToContacts    bool   `json:"restrictToContacts"`
	RestrictToDomain      bool   `json:"restrictToDomain"`
	StartTime             int64  `json:"startTime,omitempty"`
	EndTime               int64  `json:"endTime,omitempty"`
}

// LanguageSettings holds the display language.
type LanguageSettings struct {
	DisplayLanguage string `json:"displayLanguage,omitempty"`
}

// AutoForwarding is the forwarding configuration.
type AutoForwarding struct {
	Enabled      bool   `json:"enabled"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Disposition  string `json:"disposition,omitempty"`
}

// SmimeInfo is an S/MIME certificate attached to a send-as alias.
type SmimeInfo struct {
	ID           string `json:"id"`
	EncryptedKey string `json:"encryptedKey,omitempty"`
	Pem          string `json:"pem,omitempty"`
	IssuerCN     string `json:"issuerCn,omitempty"`
	IsDefault    bool   `json:"isDefault"`
}

// SendAs is a send-as alias. Each alias carries its own S/MIME mapping
// keyed by certificate id.
type SendAs struct {
	SendAsEmail        string                `json:"sendAsEmail"`
	DisplayName        string                `json:"displayName,omitempty"`
	ReplyToAddress     string                `json:"replyToAddress,omitempty"`
	Signature          string                `json:"signature,omitempty"`
	VerificationStatus string                `json:"verificationStatus,omitempty"`
	IsPrimary          bool                  `json:"isPrimary"`
	IsDefault          bool                  `json:"isDefault"`
	Smime              map[string]*SmimeInfo `json:"smimeInfo,omitempty"`
}

// Clone returns a deep copy of the alias.
func (s *SendAs) Clone() *SendAs {
	if s == nil {
		return nil
	}
	c := *s
	if s.Smime != nil {
		c.Smime = make(map[string]*SmimeInfo, len(s.Smime))
		for k, v := range s.Smime {
			sc := *v
			c.Smime[k] = &sc
		}
	}
	return &c
}

// Settings is the per-user settings record. Updates replace whole
// sections, never individual fields.
type Settings struct {
	IMAP           IMAPSettings       `json:"imap"`
	POP            POPSettings        `json:"pop"`
	Vacation       VacationSettings   `json:"vacation"`
	Language       LanguageSettings   `json:"language"`
	AutoForwarding AutoForwarding     `json:"autoForwarding"`
	SendAs         map[string]*SendAs `json:"sendAs,omitempty"`
}

// DefaultSettings returns the settings record assigned to a new user.
func DefaultSettings() *Settings {
	return &Settings{
		IMAP:     IMAPSettings{Enabled: false, AutoExpunge: true},
		POP:      POPSettings{AccessWindow: "disabled", Disposition: "leaveInInbox"},
		Vacation: VacationSettings{EnableAutoReply: false},
		Language: LanguageSettings{DisplayLanguage: "en"},
		SendAs:   make(map[string]*SendAs),
	}
}

// Clone returns a deep copy of the settings record.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	c := *s
	if s.SendAs != nil {
		c.SendAs = make(map[string]*SendAs, len(s.SendAs))
		for k, v := range s.SendAs {
			c.SendAs[k] = v.Clone()
		}
	}
	return &c
}

// User is the serializable per-user mailbox state. Maps preserve no
// order; ordered listings come from the store's insertion sequences.
type User struct {
	Profile  *Profile           `json:"profile"`
	Messages map[string]*Message `json:"messages"`
	Drafts   map[string]*Draft   `json:"drafts"`
	Labels   map[string]*Label   `json:"labels"`
	Settings *Settings           `json:"settings"`
	History  []*HistoryEntry     `json:"history"`
	Watch    *Watch              `json:"watch,omitempty"`

	// Insertion order of the keyed collections, for deterministic listing.
	MessageOrder []string `json:"messageOrder,omitempty"`
	DraftOrder   []string `json:"draftOrder,omitempty"`
	LabelOrder   []string `json:"labelOrder,omitempty"`
}

// State is a full snapshot of the database: every user plus the id
// counters. Restore replaces state wholesale; there is no merge.
type State struct {
	Users    map[string]*User `json:"users"`
	Counters map[string]int64 `json:"counters"`
}
