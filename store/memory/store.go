// Package memory provides an in-memory implementation of store.Store.
//
// It is the reference engine for the simulation: all state lives in
// process-local maps, listings preserve insertion order, and reads and
// writes exchange deep copies so callers never alias internal state.
// The store is not safe for concurrent use; callers are expected to
// invoke operations sequentially.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/Mohsin-h27/mailsim/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store with in-memory maps.
type Store struct {
	users     map[string]*store.User
	counters  map[string]int64
	connected int32
	logger    *slog.Logger
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		users:    make(map[string]*store.User),
		counters: make(map[string]int64),
		logger:   o.logger,
	}
}

// Connect marks the store as ready.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	s.logger.Debug("memory store connected")
	return nil
}

// Close marks the store as disconnected. State is retained so a test
// can reconnect and inspect it.
func (s *Store) Close(ctx context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) user(userID string) (*store.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

// CreateUser creates a user with a fresh profile and default settings.
func (s *Store) CreateUser(ctx context.Context, userID, emailAddress string) error {
	if _, ok := s.users[userID]; ok {
		return store.ErrAlreadyExists
	}
	s.users[userID] = &store.User{
		Profile: &store.Profile{
			EmailAddress: emailAddress,
			HistoryID:    "1",
		},
		Messages: make(map[string]*store.Message),
		Drafts:   make(map[string]*store.Draft),
		Labels:   make(map[string]*store.Label),
		Settings: store.DefaultSettings(),
	}
	return nil
}

// UserExists reports whether the user id is known.
func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	_, ok := s.users[userID]
	return ok, nil
}

// EnsureUser returns store.ErrNotFound when the user is absent.
func (s *Store) EnsureUser(ctx context.Context, userID string) error {
	_, err := s.user(userID)
	return err
}

// GetProfile returns a copy of the user's profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*store.Profile, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return u.Profile.Clone(), nil
}

// PutProfile replaces the user's profile.
func (s *Store) PutProfile(ctx context.Context, userID string, p *store.Profile) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	u.Profile = p.Clone()
	return nil
}

// NextID increments and returns the counter for kind.
func (s *Store) NextID(ctx context.Context, kind string) (int64, error) {
	s.counters[kind]++
	return s.counters[kind], nil
}

// PutMessage inserts or replaces a message.
func (s *Store) PutMessage(ctx context.Context, userID string, msg *store.Message) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	if _, ok := u.Messages[msg.ID]; !ok {
		u.MessageOrder = append(u.MessageOrder, msg.ID)
	}
	u.Messages[msg.ID] = msg.Clone()
	return nil
}

// GetMessage returns a copy of the message or store.ErrNotFound.
func (s *Store) GetMessage(ctx context.Context, userID, id string) (*store.Message, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	msg, ok := u.Messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return msg.Clone(), nil
}

// DeleteMessage removes the message or returns store.ErrNotFound.
func (s *Store) DeleteMessage(ctx context.Context, userID, id string) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	if _, ok := u.Messages[id]; !ok {
		return store.ErrNotFound
	}
	delete(u.Messages, id)
	u.MessageOrder = removeID(u.MessageOrder, id)
	return nil
}

// ListMessages returns copies of all messages in insertion order.
func (s *Store) ListMessages(ctx context.Context, userID string) ([]*store.Message, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	out := make([]*store.Message, 0, len(u.Messages))
	for _, id := range u.MessageOrder {
		if msg, ok := u.Messages[id]; ok {
			out = append(out, msg.Clone())
		}
	}
	return out, nil
}

// PutDraft inserts or replaces a draft.
func (s *Store) PutDraft(ctx context.Context, userID string, d *store.Draft) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	if _, ok := u.Drafts[d.ID]; !ok {
		u.DraftOrder = append(u.DraftOrder, d.ID)
	}
	u.Drafts[d.ID] = d.Clone()
	return nil
}

// GetDraft returns a copy of the draft or store.ErrNotFound.
func (s *Store) GetDraft(ctx context.Context, userID, id string) (*store.Draft, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	d, ok := u.Drafts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d.Clone(), nil
}

// DeleteDraft removes the draft or returns store.ErrNotFound.
func (s *Store) DeleteDraft(ctx context.Context, userID, id string) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	if _, ok := u.Drafts[id]; !ok {
		return store.ErrNotFound
	}
	delete(u.Drafts, id)
	u.DraftOrder = removeID(u.DraftOrder, id)
	return nil
}

// ListDrafts returns copies of all drafts in insertion order.
func (s *Store) ListDrafts(ctx context.Context, userID string) ([]*store.Draft, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	out := make([]*store.Draft, 0, len(u.Drafts))
	for _, id := range u.DraftOrder {
		if d, ok := u.Drafts[id]; ok {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

// PutLabel inserts or replaces a label.
func (s *Store) PutLabel(ctx context.Context, userID string, l *store.Label) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	if _, ok := u.Labels[l.ID]; !ok {
		u.LabelOrder = append(u.LabelOrder, l.ID)
	}
	u.Labels[l.ID] = l.Clone()
	return nil
}

// GetLabel returns a copy of the label or store.ErrNotFound.
func (s *Store) GetLabel(ctx context.Context, userID, id string) (*store.Label, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	l, ok := u.Labels[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return l.Clone(), nil
}

// DeleteLabel removes the label or returns store.ErrNotFound.
func (s *Store) DeleteLabel(ctx context.Context, userID, id string) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	if _, ok := u.Labels[id]; !ok {
		return store.ErrNotFound
	}
	delete(u.Labels, id)
	u.LabelOrder = removeID(u.LabelOrder, id)
	return nil
}

// ListLabels returns copies of all labels in insertion order.
func (s *Store) ListLabels(ctx context.Context, userID string) ([]*store.Label, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	out := make([]*store.Label, 0, len(u.Labels))
	for _, id := range u.LabelOrder {
		if l, ok := u.Labels[id]; ok {
			out = append(out, l.Clone())
		}
	}
	return out, nil
}

// GetSettings returns a copy of the settings record.
func (s *Store) GetSettings(ctx context.Context, userID string) (*store.Settings, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return u.Settings.Clone(), nil
}

// PutSettings replaces the settings record.
func (s *Store) PutSettings(ctx context.Context, userID string, set *store.Settings) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	u.Settings = set.Clone()
	return nil
}

// AppendHistory appends an entry to the mutation log.
func (s *Store) AppendHistory(ctx context.Context, userID string, e *store.HistoryEntry) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	u.History = append(u.History, e.Clone())
	return nil
}

// ListHistory returns copies of all entries in append order.
func (s *Store) ListHistory(ctx context.Context, userID string) ([]*store.HistoryEntry, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	out := make([]*store.HistoryEntry, 0, len(u.History))
	for _, e := range u.History {
		out = append(out, e.Clone())
	}
	return out, nil
}

// GetWatch returns the current watch descriptor, or nil when unset.
func (s *Store) GetWatch(ctx context.Context, userID string) (*store.Watch, error) {
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return u.Watch.Clone(), nil
}

// PutWatch overwrites the watch descriptor.
func (s *Store) PutWatch(ctx context.Context, userID string, w *store.Watch) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	u.Watch = w.Clone()
	return nil
}

// ClearWatch removes the watch descriptor.
func (s *Store) ClearWatch(ctx context.Context, userID string) error {
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	u.Watch = nil
	return nil
}

// Snapshot returns a deep copy of the full database state.
func (s *Store) Snapshot(ctx context.Context) (*store.State, error) {
	st := &store.State{
		Users:    make(map[string]*store.User, len(s.users)),
		Counters: make(map[string]int64, len(s.counters)),
	}
	for id, u := range s.users {
		st.Users[id] = cloneUser(u)
	}
	for k, v := range s.counters {
		st.Counters[k] = v
	}
	return st, nil
}

// Restore replaces the full database state with the snapshot.
func (s *Store) Restore(ctx context.Context, st *store.State) error {
	if st == nil {
		return store.ErrInvalidState
	}
	users := make(map[string]*store.User, len(st.Users))
	for id, u := range st.Users {
		users[id] = cloneUser(u)
	}
	counters := make(map[string]int64, len(st.Counters))
	for k, v := range st.Counters {
		counters[k] = v
	}
	s.users = users
	s.counters = counters
	return nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// cloneUser deep copies a user, normalizing nil maps and rebuilding
// missing order slices so a hand-built or deserialized snapshot lists
// deterministically.
func cloneUser(u *store.User) *store.User {
	c := &store.User{
		Profile:  u.Profile.Clone(),
		Messages: make(map[string]*store.Message, len(u.Messages)),
		Drafts:   make(map[string]*store.Draft, len(u.Drafts)),
		Labels:   make(map[string]*store.Label, len(u.Labels)),
		Settings: u.Settings.Clone(),
		Watch:    u.Watch.Clone(),
	}
	for id, m := range u.Messages {
		c.Messages[id] = m.Clone()
	}
	for id, d := range u.Drafts {
		c.Drafts[id] = d.Clone()
	}
	for id, l := range u.Labels {
		c.Labels[id] = l.Clone()
	}
	for _, e := range u.History {
		c.History = append(c.History, e.Clone())
	}
	c.MessageOrder = rebuildOrder(u.MessageOrder, mapKeys(u.Messages))
	c.DraftOrder = rebuildOrder(u.DraftOrder, mapKeys(u.Drafts))
	c.LabelOrder = rebuildOrder(u.LabelOrder, mapKeys(u.Labels))
	return c
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// rebuildOrder keeps recorded order entries that still exist and
// appends any keys the order slice is missing, sorted for determinism.
func rebuildOrder(order, keys []string) []string {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, id := range order {
		if present[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	var missing []string
	for _, k := range keys {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return append(out, missing...)
}
