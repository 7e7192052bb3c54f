package model

import "time"

// TransactionLinkStatus tracks the lifecycle of an inferred
// cross-account link before it is confirmed or rejected by the user
// (CLI verb `links {view,run,confirm,reject}`, spec §6).
type TransactionLinkStatus string

const (
	TransactionLinkStatusProposed TransactionLinkStatus = "proposed"
	TransactionLinkStatusConfirmed TransactionLinkStatus = "confirmed"
	TransactionLinkStatusRejected  TransactionLinkStatus = "rejected"
)

// TransactionLink records that two canonical transactions (typically
// an exchange withdrawal and a blockchain deposit, or vice versa)
// represent the same real-world asset movement. It is the general
// correlation record; LotTransfer carries the accounting consequence
// of a confirmed link.
type TransactionLink struct {
	ID                  string
	FromTransactionID   string
	ToTransactionID     string
	FromAccountID       string
	ToAccountID         string
	Asset               string
	Status              TransactionLinkStatus
	Confidence          float64
	CreatedAt           time.Time
	Metadata            map[string]any
}
