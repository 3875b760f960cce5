// Package mailsim is an in-memory simulation of a Gmail-style mailbox
// service, built to stand in for a real mail backend in integration
// tests. It models messages, threads, drafts, labels, history, user
// settings and push-notification watch state, with query-filterable
// list operations over all of it.
//
// # Architecture
//
// The package is organized in two layers:
//
//   - mailsim (this package): the Service and per-user Mailbox clients.
//     This layer owns behavior: id formats, label-set invariants, the
//     send/trash/modify transitions, query dispatch and the soft-miss
//     contract.
//   - store: the persistence contract and the entity model, with two
//     implementations: store/memory (the reference engine) and
//     store/sqlite (the same contract on a SQLite file).
//
// # Usage
//
//	svc, err := mailsim.NewService(mailsim.WithStore(memory.New()))
//	if err != nil {
//		log.Fatal(err)
//	}
//	ctx := context.Background()
//	if err := svc.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	mb := svc.Client("me")
//	sent, err := mb.Messages().Send(ctx, &store.Message{
//		Recipient: "bob@example.com",
//		Subject:   "Hello",
//		Body:      "How are you?",
//	})
//
// # Error contract
//
// Operations distinguish a missing user from a missing record. An
// unknown user id is a hard failure (ErrUserNotFound) on every
// operation. An unknown message, draft or label id is a soft miss: the
// operation returns a nil result and a nil error. The existence of the
// user is a precondition, while the existence of a particular record is
// a query-like condition.
//
// # Concurrency
//
// The engine is synchronous. Callers are expected to invoke operations
// sequentially; concurrent access to the same service is not supported.
//
// # Events
//
// Lifecycle events (message sent, trashed, deleted, draft created,
// watch started and stopped) are published through the
// github.com/rbaliyan/event/v3 bus. Without a configured transport they
// go to a noop transport; with WithRedisClient or WithEventTransport
// they are delivered for real. This is the push-notification side of
// the simulation, next to the Watch bookkeeping.
package mailsim
