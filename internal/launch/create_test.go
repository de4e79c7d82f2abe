package launch

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-launchpad/internal/pinning"
	"solana-token-launchpad/internal/storage"
	"solana-token-launchpad/internal/token"
)

func validCreateRequest(creator solana.PublicKey) CreateTokenRequest {
	return CreateTokenRequest{
		Creator:       creator.String(),
		Name:          "Test",
		Symbol:        "TST",
		Description:   "A test token",
		Decimals:      6,
		InitialSupply: decimal.NewFromInt(1000),
		Image:         pinning.Image{Filename: "logo.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
	}
}

func TestCreateToken_MissingFields(t *testing.T) {
	creator := newKey(t).PublicKey()

	tests := map[string]func(r *CreateTokenRequest){
		"name":        func(r *CreateTokenRequest) { r.Name = "" },
		"symbol":      func(r *CreateTokenRequest) { r.Symbol = "  " },
		"description": func(r *CreateTokenRequest) { r.Description = "" },
		"image":       func(r *CreateTokenRequest) { r.Image = pinning.Image{} },
	}
	for field, mutate := range tests {
		t.Run(field, func(t *testing.T) {
			env := newTestEnv(t, false)
			req := validCreateRequest(creator)
			mutate(&req)

			res, err := env.svc.CreateToken(context.Background(), req)
			assert.ErrorIs(t, err, ErrMissingFields)
			assert.Nil(t, res)
			assert.Zero(t, env.pinner.uploads(), "no upload before validation passes")
			assert.Zero(t, env.rpc.TotalCalls(), "no RPC before validation passes")
		})
	}
}

func TestCreateToken_InvalidInput(t *testing.T) {
	creator := newKey(t).PublicKey()

	tests := map[string]func(r *CreateTokenRequest){
		"bad creator":             func(r *CreateTokenRequest) { r.Creator = "not-a-key" },
		"decimals too large":      func(r *CreateTokenRequest) { r.Decimals = 10 },
		"negative decimals":       func(r *CreateTokenRequest) { r.Decimals = -1 },
		"negative supply":         func(r *CreateTokenRequest) { r.InitialSupply = decimal.NewFromInt(-1) },
		"too many decimal places": func(r *CreateTokenRequest) { r.InitialSupply = decimal.RequireFromString("0.0000001") },
		"initial above total": func(r *CreateTokenRequest) {
			r.InitialSupply = decimal.NewFromInt(10)
			r.TotalSupply = decimal.NewFromInt(5)
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, false)
			req := validCreateRequest(creator)
			mutate(&req)

			_, err := env.svc.CreateToken(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Zero(t, env.pinner.uploads())
		})
	}
}

func TestCreateToken_BuildsTransaction(t *testing.T) {
	env := newTestEnv(t, false)
	creator := newKey(t).PublicKey()

	res, err := env.svc.CreateToken(context.Background(), validCreateRequest(creator))
	require.NoError(t, err)

	assert.Equal(t, uint64(1150), res.LastValidBlockHeight)
	assert.Equal(t, testGateway+"bafyjson", res.MetadataURI)
	assert.Equal(t, testGateway+"bafyimage", res.ImageURI)

	require.Len(t, env.pinner.metadata, 1)
	assert.Equal(t, pinning.OffChainMetadata{
		Name: "Test", Symbol: "TST", Image: testGateway + "bafyimage", Description: "A test token",
	}, env.pinner.metadata[0])

	tx := decodeTx(t, res.SerializedTransaction)
	assert.Equal(t, stubBlockhash(t), tx.Message.RecentBlockhash)
	assert.True(t, tx.Message.AccountKeys[0].Equals(creator), "creator pays")

	programs, err := token.ProgramIDs(tx)
	require.NoError(t, err)
	require.Len(t, programs, 6)
	want := []solana.PublicKey{
		token.SystemProgramID,
		token.Token2022ProgramID,
		token.Token2022ProgramID,
		token.Token2022ProgramID,
		token.AssociatedTokenProgramID,
		token.Token2022ProgramID,
	}
	for i := range want {
		assert.True(t, programs[i].Equals(want[i]), "instruction %d program = %s, want %s", i, programs[i], want[i])
	}
	assert.Equal(t, 6, res.InstructionCount)

	// Only the creator's signature is missing; the mint key signed.
	missing := token.MissingSignatures(tx)
	require.Len(t, missing, 1)
	assert.True(t, missing[0].Equals(creator))

	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	mintIdx := -1
	for i, k := range tx.Message.AccountKeys {
		if k.Equals(res.Mint) {
			mintIdx = i
		}
	}
	require.GreaterOrEqual(t, mintIdx, 0)
	assert.True(t, tx.Signatures[mintIdx].Verify(res.Mint, msg), "mint signature verifies")

	// CreateAccount: space is the mint size; rent covers mint plus metadata.
	create := tx.Message.Instructions[0].Data
	require.Len(t, create, 4+8+8+32)
	lamports := binary.LittleEndian.Uint64(create[4:12])
	space := binary.LittleEndian.Uint64(create[12:20])
	assert.Equal(t, uint64(234), space)

	metadataLen, err := token.MetadataLen(&token.Metadata{
		UpdateAuthority: creator,
		Mint:            res.Mint,
		Name:            "Test",
		Symbol:          "TST",
		URI:             testGateway + "bafyjson",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(234+metadataLen+128)*env.rpc.RentPerByte, lamports)

	// MintToChecked carries 1000 * 10^6 base units and the decimals.
	mintTo := tx.Message.Instructions[5].Data
	require.Len(t, mintTo, 10)
	assert.Equal(t, uint8(14), mintTo[0])
	assert.Equal(t, uint64(1_000_000_000), binary.LittleEndian.Uint64(mintTo[1:9]))
	assert.Equal(t, uint8(6), mintTo[9])

	wantATA, err := token.AssociatedTokenAddress(creator, res.Mint, token.Token2022ProgramID, false)
	require.NoError(t, err)
	assert.Equal(t, wantATA, res.AssociatedAccount)
}

func TestCreateToken_NoInitialSupply(t *testing.T) {
	env := newTestEnv(t, false)
	creator := newKey(t).PublicKey()

	req := validCreateRequest(creator)
	req.InitialSupply = decimal.Zero

	res, err := env.svc.CreateToken(context.Background(), req)
	require.NoError(t, err)

	tx := decodeTx(t, res.SerializedTransaction)
	assert.Len(t, tx.Message.Instructions, 4)
	assert.True(t, res.AssociatedAccount.IsZero())
}

func TestCreateToken_MaxSupplyRecordedInMetadata(t *testing.T) {
	env := newTestEnv(t, false)
	creator := newKey(t).PublicKey()

	req := validCreateRequest(creator)
	req.TotalSupply = decimal.NewFromInt(5000)

	res, err := env.svc.CreateToken(context.Background(), req)
	require.NoError(t, err)

	tx := decodeTx(t, res.SerializedTransaction)
	require.Len(t, tx.Message.Instructions, 7)

	expected := token.UpdateField(token.UpdateFieldParams{
		Metadata:        res.Mint,
		UpdateAuthority: creator,
		Key:             MaxSupplyKey,
		Value:           "5000",
	})
	wantData, err := expected.Data()
	require.NoError(t, err)
	assert.Equal(t, wantData, []byte(tx.Message.Instructions[4].Data))

	// Rent includes the additional entry.
	metadataLen, err := token.MetadataLen(&token.Metadata{
		UpdateAuthority:    creator,
		Mint:               res.Mint,
		Name:               "Test",
		Symbol:             "TST",
		URI:                testGateway + "bafyjson",
		AdditionalMetadata: []token.MetadataEntry{{Key: MaxSupplyKey, Value: "5000"}},
	})
	require.NoError(t, err)
	lamports := binary.LittleEndian.Uint64(tx.Message.Instructions[0].Data[4:12])
	assert.Equal(t, uint64(234+metadataLen+128)*env.rpc.RentPerByte, lamports)
}

func TestCreateToken_RecordsLaunchAndPins(t *testing.T) {
	env := newTestEnv(t, false)
	creator := newKey(t).PublicKey()
	ctx := context.Background()

	res, err := env.svc.CreateToken(ctx, validCreateRequest(creator))
	require.NoError(t, err)

	launch, err := env.launches.GetByID(ctx, res.LaunchID)
	require.NoError(t, err)
	assert.Equal(t, res.Mint.String(), launch.Mint)
	assert.Equal(t, "1000000000", launch.Amount)
	assert.Equal(t, uint8(6), launch.Decimals)
	assert.Equal(t, res.MetadataURI, launch.MetadataURI)

	for _, cid := range []string{"bafyimage", "bafyjson"} {
		pin, err := env.pins.GetByCID(ctx, cid)
		require.NoError(t, err)
		assert.Equal(t, res.LaunchID, pin.LaunchID)
	}
}

func TestCreateToken_RPCFailureLeavesOrphanPins(t *testing.T) {
	env := newTestEnv(t, false)
	env.rpc.Err = assert.AnError
	ctx := context.Background()

	_, err := env.svc.CreateToken(ctx, validCreateRequest(newKey(t).PublicKey()))
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, IsClientError(err))

	orphans, err := env.pins.ListOrphans(ctx, 1<<62)
	require.NoError(t, err)
	assert.Len(t, orphans, 2)
}

func TestCreateToken_MetadataUploadFailure(t *testing.T) {
	env := newTestEnv(t, false)
	env.pinner.failMetadata = true
	ctx := context.Background()

	_, err := env.svc.CreateToken(ctx, validCreateRequest(newKey(t).PublicKey()))
	require.Error(t, err)
	assert.Zero(t, env.rpc.TotalCalls())

	pin, err := env.pins.GetByCID(ctx, "bafyimage")
	require.NoError(t, err)
	assert.True(t, pin.Orphaned())
	_, err = env.pins.GetByCID(ctx, "bafyjson")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func stubBlockhash(t *testing.T) solana.Hash {
	t.Helper()
	return solana.MustHashFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N")
}
