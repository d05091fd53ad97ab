package shared

import "context"

// TxRunner runs a function within a storage transaction. Repository
// calls made with the context passed to fn share one transaction;
// if fn returns an error the transaction is rolled back.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator issues unique identifiers for new entities.
type IDGenerator interface {
	NewID() string
}

// NotificationSender delivers out-of-band notifications to students
// and instructors. Delivery failures never block domain operations.
type NotificationSender interface {
	Send(ctx context.Context, recipientID string, subject, body string) error
}
