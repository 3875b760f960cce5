package store

import "strings"

// QueryMode selects the tokenizer and prefix set for a search query.
// Message search splits on whitespace; draft search is quote-aware and
// understands body: but not attachment:.
type QueryMode int

const (
	// ModeMessage is the message list search.
	ModeMessage QueryMode = iota

	// ModeDraft is the draft list search.
	ModeDraft
)

// Query is a compiled search filter. Tokens compose as a logical AND;
// an empty query matches everything.
type Query struct {
	mode       QueryMode
	preds      []func(*Message) bool
	attachment string
	hasAttach  bool
}

// CompileQuery parses a free-text query into a Query for the given mode.
func CompileQuery(q string, mode QueryMode) *Query {
	cq := &Query{mode: mode}

	var tokens []string
	if mode == ModeDraft {
		tokens = splitQuoted(q)
	} else {
		tokens = strings.Fields(q)
	}

	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		switch {
		case strings.HasPrefix(lower, "from:"):
			value := strings.TrimSpace(tok[len("from:"):])
			cq.preds = append(cq.preds, func(m *Message) bool {
				return strings.EqualFold(m.Sender, value)
			})
		case strings.HasPrefix(lower, "to:"):
			value := strings.TrimSpace(tok[len("to:"):])
			if value == "" {
				continue
			}
			cq.preds = append(cq.preds, func(m *Message) bool {
				return strings.EqualFold(m.Recipient, value)
			})
		case strings.HasPrefix(lower, "subject:"):
			value := strings.ToLower(strings.TrimSpace(tok[len("subject:"):]))
			cq.preds = append(cq.preds, func(m *Message) bool {
				return strings.Contains(strings.ToLower(m.Subject), value)
			})
		case mode == ModeDraft && strings.HasPrefix(lower, "body:"):
			value := strings.ToLower(strings.TrimSpace(tok[len("body:"):]))
			cq.preds = append(cq.preds, func(m *Message) bool {
				return strings.Contains(strings.ToLower(m.Body), value)
			})
		case strings.HasPrefix(lower, "label:"):
			value := strings.ToUpper(strings.TrimSpace(tok[len("label:"):]))
			cq.preds = append(cq.preds, func(m *Message) bool {
				return m.HasLabelFold(value)
			})
		case mode == ModeMessage && strings.HasPrefix(lower, "attachment:"):
			// Deferred: applied once after all other token filters,
			// regardless of position in the query.
			cq.attachment = strings.TrimSpace(tok[len("attachment:"):])
			cq.hasAttach = true
		default:
			keyword := lower
			cq.preds = append(cq.preds, func(m *Message) bool {
				return strings.Contains(strings.ToLower(m.Subject), keyword) ||
					strings.Contains(strings.ToLower(m.Body), keyword) ||
					strings.Contains(strings.ToLower(m.Sender), keyword) ||
					strings.Contains(strings.ToLower(m.Recipient), keyword)
			})
		}
	}

	return cq
}

// Match reports whether a message satisfies every token of the query.
func (q *Query) Match(m *Message) bool {
	for _, pred := range q.preds {
		if !pred(m) {
			return false
		}
	}
	if q.hasAttach && !q.matchAttachment(m) {
		return false
	}
	return true
}

// Filter returns the subsequence of msgs matching the query,
// preserving input order.
func (q *Query) Filter(msgs []*Message) []*Message {
	if len(q.preds) == 0 && !q.hasAttach {
		return msgs
	}
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if q.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

func (q *Query) matchAttachment(m *Message) bool {
	if len(m.Attachments) == 0 {
		return false
	}
	if strings.EqualFold(q.attachment, "any") {
		return true
	}
	want := strings.ToLower(q.attachment)
	for _, a := range m.Attachments {
		if strings.Contains(strings.ToLower(a.Filename), want) {
			return true
		}
	}
	return false
}

// HasAllLabels reports whether the message's label set is a superset of
// required. Values are compared exactly.
func HasAllLabels(m *Message, required []string) bool {
	for _, want := range required {
		if !m.HasLabel(want) {
			return false
		}
	}
	return true
}

// splitQuoted splits s on whitespace, treating single or double quoted
// substrings as one token with the quotes stripped. An unterminated
// quote consumes the rest of the string.
func splitQuoted(s string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	flush()
	return tokens
}
