package events

import "time"

// PaymentEvent is published to "payments.{sender_wallet}" in JetStream
// after a send is recorded. Consumers use it for receipts, notifications,
// and downstream accounting.
type PaymentEvent struct {
	// Transaction identifier; also the JetStream dedup key.
	Signature string `json:"signature"`

	// Sender wallet address.
	SenderWallet string `json:"sender_wallet"`

	// Recipient as the user addressed it: a wallet address for direct
	// sends, a social handle for escrow deposits.
	Recipient string `json:"recipient"`

	// Flow is "linked" or "unlinked".
	Flow string `json:"flow"`

	// Amount in base units.
	Amount int64 `json:"amount"`

	// Token mint of the transferred asset.
	Mint string `json:"mint,omitempty"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}
