package domain

// LaunchKind distinguishes token creation from minting more supply.
type LaunchKind string

const (
	// LaunchKindCreate is a new Token-2022 mint with metadata.
	LaunchKindCreate LaunchKind = "create"
	// LaunchKindMint mints additional supply into a receiver's token account.
	LaunchKindMint LaunchKind = "mint"
)

// Launch is a partially signed transaction handed back to a wallet.
// Corresponds to launches table in PostgreSQL.
type Launch struct {
	LaunchID             string     // PK, deterministic hash
	Kind                 LaunchKind // create or mint
	Mint                 string     // mint address
	Payer                string     // fee payer and mint authority
	Receiver             string     // owner of the credited token account
	AssociatedAccount    string     // credited token account (empty if nothing minted)
	Amount               string     // base units, decimal string
	Decimals             uint8      // mint decimals
	LastValidBlockHeight uint64     // blockhash expiry
	MetadataURI          string     // off-chain metadata (create only)
	CreatedAt            int64      // record creation timestamp (ms)
}
