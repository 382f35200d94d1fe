package domain

// Transaction types delivered by Helius enhanced webhooks.
const (
	TxTypeTransfer        = "TRANSFER"
	TxTypeMint            = "MINT"
	TxTypeBurn            = "BURN"
	TxTypeSwap            = "SWAP"
	TxTypeAddLiquidity    = "ADD_LIQUIDITY"
	TxTypeRemoveLiquidity = "REMOVE_LIQUIDITY"
)

// RawEvent is one already-parsed provider event as handed to the collector.
// Address is the watched program or account the delivery was configured for;
// Mint is the token the event concerns.
type RawEvent struct {
	Address     string  // watched account or program address
	TxType      string  // provider transaction type (TRANSFER, SWAP, ...)
	Mint        string  // token mint the event concerns
	Amount      float64 // token amount moved, in UI units
	TxSignature string  // transaction signature
	Channel     string  // webhook channel the delivery arrived on
	ObservedAt  int64   // Unix timestamp in milliseconds
}
