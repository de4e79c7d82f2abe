package launch

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/token"
)

type mintFixture struct {
	env      *testEnv
	mint     solana.PublicKey
	sender   solana.PublicKey
	receiver solana.PublicKey
}

// newMintFixture stores a Token-2022 mint with 6 decimals and the given
// supply (base units) and maxSupply entry ("" for none).
func newMintFixture(t *testing.T, supply uint64, maxSupply string) *mintFixture {
	t.Helper()

	f := &mintFixture{
		env:      newTestEnv(t, false),
		mint:     newKey(t).PublicKey(),
		sender:   newKey(t).PublicKey(),
		receiver: newKey(t).PublicKey(),
	}
	md := &token.Metadata{UpdateAuthority: f.sender, Mint: f.mint, Name: "Test", Symbol: "TST", URI: "https://x"}
	if maxSupply != "" {
		md.AdditionalMetadata = []token.MetadataEntry{{Key: MaxSupplyKey, Value: maxSupply}}
	}
	setAccount(f.env.rpc, f.mint, token.Token2022ProgramID, mintAccountData(&f.sender, supply, 6, md))
	return f
}

func (f *mintFixture) request(amount string) MintTokenRequest {
	return MintTokenRequest{
		Mint:     f.mint.String(),
		Sender:   f.sender.String(),
		Receiver: f.receiver.String(),
		Amount:   decimal.RequireFromString(amount),
	}
}

func TestMintToken_ExceedsMaxSupply(t *testing.T) {
	// 900 tokens minted, cap 1000: 200 more passes the cap.
	f := newMintFixture(t, 900_000_000, "1000")

	res, err := f.env.svc.MintToken(context.Background(), f.request("200"))
	assert.ErrorIs(t, err, ErrExceedsMaxSupply)
	assert.Equal(t, "Exceeds max supply", err.Error())
	assert.Nil(t, res)

	assert.Equal(t, 1, f.env.rpc.Calls("getAccountInfo"), "only the mint is read")
	assert.Zero(t, f.env.rpc.Calls("getLatestBlockhash"))
}

func TestMintToken_UpToCap(t *testing.T) {
	f := newMintFixture(t, 900_000_000, "1000")

	res, err := f.env.svc.MintToken(context.Background(), f.request("100"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.SerializedTransaction)
}

func TestMintToken_ZeroMaxSupplyIsUncapped(t *testing.T) {
	f := newMintFixture(t, 900_000_000, "0")

	res, err := f.env.svc.MintToken(context.Background(), f.request("5000"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.SerializedTransaction)
}

func TestMintToken_SenderOtherThanAuthorityIsBuilt(t *testing.T) {
	f := newMintFixture(t, 0, "")
	req := f.request("1")
	req.Sender = f.receiver.String()

	res, err := f.env.svc.MintToken(context.Background(), req)
	require.NoError(t, err)

	tx, err := token.DecodeTransaction(res.SerializedTransaction)
	require.NoError(t, err)
	assert.True(t, tx.Message.AccountKeys[0].Equals(f.receiver), "sender pays")
}

func TestMintToken_CreatesReceiverAccount(t *testing.T) {
	f := newMintFixture(t, 0, "")
	ctx := context.Background()

	res, err := f.env.svc.MintToken(ctx, f.request("2.5"))
	require.NoError(t, err)

	wantATA, err := token.AssociatedTokenAddress(f.receiver, f.mint, token.Token2022ProgramID, false)
	require.NoError(t, err)
	assert.Equal(t, wantATA, res.TokenAccount)
	assert.Equal(t, uint64(1150), res.LastValidBlockHeight)

	tx := decodeTx(t, res.SerializedTransaction)
	programs, err := token.ProgramIDs(tx)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.True(t, programs[0].Equals(token.AssociatedTokenProgramID))
	assert.True(t, programs[1].Equals(token.Token2022ProgramID))

	data := tx.Message.Instructions[1].Data
	assert.Equal(t, uint64(2_500_000), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, uint8(6), data[9])

	// The wallet signs everything.
	assert.True(t, tx.Message.AccountKeys[0].Equals(f.sender))
	assert.Len(t, token.MissingSignatures(tx), int(tx.Message.Header.NumRequiredSignatures))

	launch, err := f.env.launches.GetByID(ctx, res.LaunchID)
	require.NoError(t, err)
	assert.Equal(t, domain.LaunchKindMint, launch.Kind)
	assert.Equal(t, "2500000", launch.Amount)
	assert.Equal(t, f.receiver.String(), launch.Receiver)
	assert.Equal(t, wantATA.String(), launch.AssociatedAccount)
}

func TestMintToken_ExistingReceiverAccount(t *testing.T) {
	f := newMintFixture(t, 0, "")

	ataAddr, err := token.AssociatedTokenAddress(f.receiver, f.mint, token.Token2022ProgramID, false)
	require.NoError(t, err)
	setAccount(f.env.rpc, ataAddr, token.Token2022ProgramID, make([]byte, token.AccountSize))

	res, err := f.env.svc.MintToken(context.Background(), f.request("1"))
	require.NoError(t, err)

	tx := decodeTx(t, res.SerializedTransaction)
	assert.Len(t, tx.Message.Instructions, 1)
	assert.Equal(t, 1, res.InstructionCount)
}

func TestMintToken_ClassicMint(t *testing.T) {
	env := newTestEnv(t, false)
	mint := newKey(t).PublicKey()
	sender := newKey(t).PublicKey()
	setAccount(env.rpc, mint, token.ProgramID, mintAccountData(&sender, 0, 2, nil))

	res, err := env.svc.MintToken(context.Background(), MintTokenRequest{
		Mint:     mint.String(),
		Sender:   sender.String(),
		Receiver: sender.String(),
		Amount:   decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	wantATA, err := token.AssociatedTokenAddress(sender, mint, token.ProgramID, false)
	require.NoError(t, err)
	assert.Equal(t, wantATA, res.TokenAccount)

	programs, err := token.ProgramIDs(decodeTx(t, res.SerializedTransaction))
	require.NoError(t, err)
	assert.True(t, programs[len(programs)-1].Equals(token.ProgramID))
}

func TestMintToken_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *mintFixture, r *MintTokenRequest)
	}{
		{"zero amount", func(_ *mintFixture, r *MintTokenRequest) { r.Amount = decimal.Zero }},
		{"too precise", func(_ *mintFixture, r *MintTokenRequest) { r.Amount = decimal.RequireFromString("0.0000001") }},
		{"bad mint", func(_ *mintFixture, r *MintTokenRequest) { r.Mint = "xyz" }},
		{"missing receiver", func(_ *mintFixture, r *MintTokenRequest) { r.Receiver = "" }},
		{"unknown mint", func(_ *mintFixture, r *MintTokenRequest) { r.Mint = solana.NewWallet().PublicKey().String() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMintFixture(t, 0, "")
			req := f.request("1")
			tt.mutate(f, &req)

			_, err := f.env.svc.MintToken(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestMintToken_NotATokenAccount(t *testing.T) {
	f := newMintFixture(t, 0, "")
	setAccount(f.env.rpc, f.mint, token.SystemProgramID, nil)

	_, err := f.env.svc.MintToken(context.Background(), f.request("1"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
