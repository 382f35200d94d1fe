// Package helius integrates with the Helius push-delivery API: parsing
// enhanced webhook payloads, provisioning webhooks, and streaming enhanced
// transactions over WebSocket.
package helius

import (
	"encoding/json"
	"fmt"
	"time"

	"token-sniper/internal/domain"
)

// WebhookPayload is one enhanced webhook delivery.
type WebhookPayload struct {
	AccountAddresses []string `json:"accountAddresses"`
	TransactionTypes []string `json:"transactionTypes"`
	Events           []Event  `json:"events"`
	WebhookType      string   `json:"webhookType,omitempty"`
	Timestamp        int64    `json:"timestamp,omitempty"`
}

// Event is one enhanced transaction inside a delivery.
type Event struct {
	Transaction     Transaction      `json:"transaction"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers,omitempty"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers,omitempty"`
	AccountData     []AccountData    `json:"accountData,omitempty"`
}

// Transaction carries the transaction envelope.
type Transaction struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"` // Unix seconds
	Type      string `json:"type,omitempty"`
	Slot      int64  `json:"slot,omitempty"`
	Fee       int64  `json:"fee,omitempty"`
	FeePayer  string `json:"feePayer,omitempty"`
}

// NativeTransfer is one SOL movement.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"` // lamports
}

// TokenTransfer is one SPL token movement.
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	TokenAmount     float64 `json:"tokenAmount"` // UI units
	Mint            string  `json:"mint"`
	TokenStandard   string  `json:"tokenStandard,omitempty"`
}

// AccountData captures balance changes for one account.
type AccountData struct {
	Account             string               `json:"account"`
	NativeBalanceChange int64                `json:"nativeBalanceChange,omitempty"`
	TokenBalanceChanges []TokenBalanceChange `json:"tokenBalanceChanges,omitempty"`
}

// TokenBalanceChange is one token balance delta.
type TokenBalanceChange struct {
	Mint           string      `json:"mint"`
	RawTokenAmount TokenAmount `json:"rawTokenAmount"`
	TokenAccount   string      `json:"tokenAccount"`
}

// TokenAmount is a raw token amount with decimals.
type TokenAmount struct {
	TokenAmount string `json:"tokenAmount"`
	Decimals    uint8  `json:"decimals"`
}

// ParsePayload decodes a webhook delivery body. A payload with no events is
// valid (Helius sends keep-alive deliveries).
func ParsePayload(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	return &payload, nil
}

// RawEvents flattens a delivery into collector events, one per token
// transfer. The transaction-level type wins when present; otherwise the
// delivery's configured type applies (single-type webhook channels).
func (p *WebhookPayload) RawEvents(channel string) []domain.RawEvent {
	address := ""
	if len(p.AccountAddresses) > 0 {
		address = p.AccountAddresses[0]
	}
	fallbackType := ""
	if len(p.TransactionTypes) > 0 {
		fallbackType = p.TransactionTypes[0]
	}

	var out []domain.RawEvent
	for _, event := range p.Events {
		txType := event.Transaction.Type
		if txType == "" {
			txType = fallbackType
		}
		observedAt := event.Transaction.Timestamp * 1000
		if observedAt == 0 {
			observedAt = time.Now().UnixMilli()
		}
		for _, transfer := range event.TokenTransfers {
			if transfer.Mint == "" {
				continue
			}
			if txType == domain.TxTypeTransfer && !involvesWallet(transfer) {
				continue
			}
			out = append(out, domain.RawEvent{
				Address:     address,
				TxType:      txType,
				Mint:        transfer.Mint,
				Amount:      transfer.TokenAmount,
				TxSignature: event.Transaction.Signature,
				Channel:     channel,
				ObservedAt:  observedAt,
			})
		}
	}
	return out
}

// involvesWallet reports whether either side of a transfer is an on-curve
// wallet. Transfers moving only between program derived addresses are pool
// vault shuffles, not holder activity, and carry no transfer signal.
func involvesWallet(t TokenTransfer) bool {
	if t.FromUserAccount == "" && t.ToUserAccount == "" {
		// Provider omitted the user accounts; keep the event.
		return true
	}
	return domain.IsWalletAddress(t.FromUserAccount) || domain.IsWalletAddress(t.ToUserAccount)
}
