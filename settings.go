package mailsim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Mohsin-h27/mailsim/store"
)

const smimeIDFormat = "smime_%d"

// Verification states of a send-as alias.
const (
	VerificationAccepted = "accepted"
	VerificationPending  = "pending"
)

// SettingsClient reads and writes the per-user settings record.
// Section updates replace the whole section; there is no per-field
// merging at this level.
type SettingsClient struct {
	m *userMailbox
}

func (c *SettingsClient) get(ctx context.Context) (*store.Settings, error) {
	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

func (c *SettingsClient) put(ctx context.Context, s *store.Settings) error {
	if err := c.m.service.store.PutSettings(ctx, c.m.userID, s); err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

// update loads the record, applies fn and writes it back.
func (c *SettingsClient) update(ctx context.Context, op string, fn func(*store.Settings)) (retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Settings."+op)
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "settings_update", time.Since(start), retErr)
	}()

	s, err := c.get(ctx)
	if err != nil {
		return err
	}
	fn(s)
	return c.put(ctx, s)
}

// GetIMAP returns the IMAP section.
func (c *SettingsClient) GetIMAP(ctx context.Context) (*store.IMAPSettings, error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}
	s, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	imap := s.IMAP
	return &imap, nil
}

// UpdateIMAP replaces the IMAP section.
func (c *SettingsClient) UpdateIMAP(ctx context.Context, imap *store.IMAPSettings) error {
	return c.update(ctx, "UpdateIMAP", func(s *store.Settings) {
		if imap != nil {
			s.IMAP = *imap
		}
	})
}

// GetPOP returns the POP section.
func (c *SettingsClient) GetPOP(ctx context.Context) (*store.POPSettings, error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}
	s, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	pop := s.POP
	return &pop, nil
}

// UpdatePOP replaces the POP section.
func (c *SettingsClient) UpdatePOP(ctx context.Context, pop *store.POPSettings) error {
	return c.update(ctx, "UpdatePOP", func(s *store.Settings) {
		if pop != nil {
			s.POP = *pop
		}
	})
}

// GetVacation returns the auto-reply section.
func (c *SettingsClient) GetVacation(ctx context.Context) (*store.VacationSettings, error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}
	s, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	v := s.Vacation
	return &v, nil
}

// UpdateVacation replaces the auto-reply section.
func (c *SettingsClient) UpdateVacation(ctx context.Context, v *store.VacationSettings) error {
	return c.update(ctx, "UpdateVacation", func(s *store.Settings) {
		if v != nil {
			s.Vacation = *v
		}
	})
}

// GetLanguage returns the display language section.
func (c *SettingsClient) GetLanguage(ctx context.Context) (*store.LanguageSettings, error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}
	s, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	l := s.Language
	return &l, nil
}

// UpdateLanguage replaces the display language section.
func (c *SettingsClient) UpdateLanguage(ctx context.Context, l *store.LanguageSettings) error {
	return c.update(ctx, "UpdateLanguage", func(s *store.Settings) {
		if l != nil {
			s.Language = *l
		}
	})
}

// GetAutoForwarding returns the forwarding section.
func (c *SettingsClient) GetAutoForwarding(ctx context.Context) (*store.AutoForwarding, error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}
	s, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	af := s.AutoForwarding
	return &af, nil
}

// UpdateAutoForwarding replaces the forwarding section.
func (c *SettingsClient) UpdateAutoForwarding(ctx context.Context, af *store.AutoForwarding) error {
	return c.update(ctx, "UpdateAutoForwarding", func(s *store.Settings) {
		if af != nil {
			s.AutoForwarding = *af
		}
	})
}

// SendAs returns the send-as alias operations.
func (c *SettingsClient) SendAs() *SendAsClient {
	return &SendAsClient{m: c.m}
}

// SendAsClient manages send-as aliases, keyed by alias address.
//
// Get, Update, Patch and Verify treat an unknown alias as a soft miss,
// and Delete of an unknown alias is silently ignored.
type SendAsClient struct {
	m *userMailbox
}

// List returns all aliases ordered by address.
func (c *SendAsClient) List(ctx context.Context) (_ []*store.SendAs, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.SendAs.List")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "sendas_list", time.Since(start), retErr)
	}()

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	emails := make([]string, 0, len(s.SendAs))
	for e := range s.SendAs {
		emails = append(emails, e)
	}
	sort.Strings(emails)

	out := make([]*store.SendAs, 0, len(emails))
	for _, e := range emails {
		out = append(out, s.SendAs[e])
	}
	return out, nil
}

// Get returns the alias, or nil when the address is unknown.
func (c *SendAsClient) Get(ctx context.Context, sendAsEmail string) (_ *store.SendAs, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return s.SendAs[sendAsEmail], nil
}

// Create stores a new alias. An empty address defaults to the user's
// own; the verification status of a new alias is always accepted.
func (c *SendAsClient) Create(ctx context.Context, sa *store.SendAs) (_ *store.SendAs, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.SendAs.Create")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "sendas_create", time.Since(start), retErr)
	}()

	stored := sa.Clone()
	if stored == nil {
		stored = &store.SendAs{}
	}

	if stored.SendAsEmail == "" {
		profile, err := c.m.service.store.GetProfile(ctx, c.m.userID)
		if err != nil {
			return nil, fmt.Errorf("get profile: %w", err)
		}
		stored.SendAsEmail = profile.EmailAddress
	}
	stored.VerificationStatus = VerificationAccepted
	if stored.Smime == nil {
		stored.Smime = make(map[string]*store.SmimeInfo)
	}

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if s.SendAs == nil {
		s.SendAs = make(map[string]*store.SendAs)
	}
	s.SendAs[stored.SendAsEmail] = stored

	if err := c.m.service.store.PutSettings(ctx, c.m.userID, s); err != nil {
		return nil, fmt.Errorf("put settings: %w", err)
	}
	return stored, nil
}

// Update merges the non-empty fields of sa into the alias. The address
// is immutable. Nil for an unknown address.
func (c *SendAsClient) Update(ctx context.Context, sendAsEmail string, sa *store.SendAs) (*store.SendAs, error) {
	return c.mergeAlias(ctx, sendAsEmail, sa)
}

// Patch is Update under the partial-update verb.
func (c *SendAsClient) Patch(ctx context.Context, sendAsEmail string, sa *store.SendAs) (*store.SendAs, error) {
	return c.mergeAlias(ctx, sendAsEmail, sa)
}

func (c *SendAsClient) mergeAlias(ctx context.Context, sendAsEmail string, sa *store.SendAs) (_ *store.SendAs, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.SendAs.Update")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "sendas_update", time.Since(start), retErr)
	}()

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	stored, ok := s.SendAs[sendAsEmail]
	if !ok {
		return nil, nil
	}

	if sa != nil {
		if sa.DisplayName != "" {
			stored.DisplayName = sa.DisplayName
		}
		if sa.ReplyToAddress != "" {
			stored.ReplyToAddress = sa.ReplyToAddress
		}
		if sa.Signature != "" {
			stored.Signature = sa.Signature
		}
		if sa.VerificationStatus != "" {
			stored.VerificationStatus = sa.VerificationStatus
		}
	}

	if err := c.m.service.store.PutSettings(ctx, c.m.userID, s); err != nil {
		return nil, fmt.Errorf("put settings: %w", err)
	}
	return stored, nil
}

// Delete removes the alias. Unknown addresses are ignored.
func (c *SendAsClient) Delete(ctx context.Context, sendAsEmail string) (retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.SendAs.Delete")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "sendas_delete", time.Since(start), retErr)
	}()

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	if _, ok := s.SendAs[sendAsEmail]; !ok {
		return nil
	}
	delete(s.SendAs, sendAsEmail)
	return c.m.service.store.PutSettings(ctx, c.m.userID, s)
}

// Verify flips a pending alias to accepted. Any other state is left
// alone. Nil for an unknown address.
func (c *SendAsClient) Verify(ctx context.Context, sendAsEmail string) (_ *store.SendAs, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.SendAs.Verify")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "sendas_verify", time.Since(start), retErr)
	}()

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	stored, ok := s.SendAs[sendAsEmail]
	if !ok {
		return nil, nil
	}

	if stored.VerificationStatus == VerificationPending {
		stored.VerificationStatus = VerificationAccepted
		if err := c.m.service.store.PutSettings(ctx, c.m.userID, s); err != nil {
			return nil, fmt.Errorf("put settings: %w", err)
		}
	}
	return stored, nil
}

// Smime returns the S/MIME operations for one alias.
func (c *SendAsClient) Smime(sendAsEmail string) *SmimeClient {
	return &SmimeClient{m: c.m, sendAsEmail: sendAsEmail}
}

// SmimeClient manages the S/MIME certificates of one send-as alias.
// An unknown alias or certificate id is a soft miss.
type SmimeClient struct {
	m           *userMailbox
	sendAsEmail string
}

// List returns the alias's certificates ordered by id.
func (c *SmimeClient) List(ctx context.Context) (_ []*store.SmimeInfo, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	sa, ok := s.SendAs[c.sendAsEmail]
	if !ok {
		return nil, nil
	}

	ids := make([]string, 0, len(sa.Smime))
	for id := range sa.Smime {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*store.SmimeInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, sa.Smime[id])
	}
	return out, nil
}

// Get returns the certificate, or nil when the alias or id is unknown.
func (c *SmimeClient) Get(ctx context.Context, id string) (_ *store.SmimeInfo, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	sa, ok := s.SendAs[c.sendAsEmail]
	if !ok {
		return nil, nil
	}
	return sa.Smime[id], nil
}

// Insert stores a new certificate under the alias with a fresh id.
// Nil when the alias is unknown.
func (c *SmimeClient) Insert(ctx context.Context, info *store.SmimeInfo) (_ *store.SmimeInfo, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Smime.Insert")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "smime_insert", time.Since(start), retErr)
	}()

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	sa, ok := s.SendAs[c.sendAsEmail]
	if !ok {
		return nil, nil
	}

	id, err := c.m.nextID(ctx, store.KindSmime, smimeIDFormat)
	if err != nil {
		return nil, err
	}

	stored := &store.SmimeInfo{ID: id}
	if info != nil {
		stored.EncryptedKey = info.EncryptedKey
		stored.Pem = info.Pem
		stored.IssuerCN = info.IssuerCN
		stored.IsDefault = info.IsDefault
	}

	if sa.Smime == nil {
		sa.Smime = make(map[string]*store.SmimeInfo)
	}
	sa.Smime[id] = stored

	if err := c.m.service.store.PutSettings(ctx, c.m.userID, s); err != nil {
		return nil, fmt.Errorf("put settings: %w", err)
	}
	return stored, nil
}

// Delete removes the certificate. Unknown aliases and ids are ignored.
func (c *SmimeClient) Delete(ctx context.Context, id string) (retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return err
	}

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	sa, ok := s.SendAs[c.sendAsEmail]
	if !ok {
		return nil
	}
	if _, ok := sa.Smime[id]; !ok {
		return nil
	}
	delete(sa.Smime, id)
	return c.m.service.store.PutSettings(ctx, c.m.userID, s)
}

// SetDefault marks the certificate as the alias's default and clears
// the flag on every other certificate. Nil for an unknown alias or id.
func (c *SmimeClient) SetDefault(ctx context.Context, id string) (_ *store.SmimeInfo, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Smime.SetDefault")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "smime_set_default", time.Since(start), retErr)
	}()

	s, err := c.m.service.store.GetSettings(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	sa, ok := s.SendAs[c.sendAsEmail]
	if !ok {
		return nil, nil
	}
	target, ok := sa.Smime[id]
	if !ok {
		return nil, nil
	}

	for _, info := range sa.Smime {
		info.IsDefault = false
	}
	target.IsDefault = true

	if err := c.m.service.store.PutSettings(ctx, c.m.userID, s); err != nil {
		return nil, fmt.Errorf("put settings: %w", err)
	}
	return target, nil
}
