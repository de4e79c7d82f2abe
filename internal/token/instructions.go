package token

import (
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Token program instruction tags.
const (
	instInitializeMint           uint8 = 0
	instMintToChecked            uint8 = 14
	instMetadataPointerExtension uint8 = 39

	metadataPointerInitialize uint8 = 0
)

// Associated token program instruction tags.
const (
	ataCreate           uint8 = 0
	ataCreateIdempotent uint8 = 1
)

// fieldKey is the Field::Key variant of the token metadata interface;
// Name, Symbol and Uri precede it.
const fieldKey uint8 = 3

var (
	discInitializeMetadata = interfaceDiscriminator("spl_token_metadata_interface:initialize_account")
	discUpdateField        = interfaceDiscriminator("spl_token_metadata_interface:updating_field")
)

// interfaceDiscriminator returns the first 8 bytes of sha256(name).
func interfaceDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

func encode(v interface{}) []byte {
	data, err := bin.MarshalBorsh(v)
	if err != nil {
		// Only fixed, well-formed structs are encoded here.
		panic(fmt.Sprintf("token: encode instruction: %v", err))
	}
	return data
}

// InitializeMetadataPointerParams configures InitializeMetadataPointer.
type InitializeMetadataPointerParams struct {
	Mint            solana.PublicKey
	Authority       solana.PublicKey // zero for none
	MetadataAddress solana.PublicKey
	ProgramID       solana.PublicKey
}

// InitializeMetadataPointer points the mint at the account holding its metadata.
// Must precede InitializeMint.
func InitializeMetadataPointer(p InitializeMetadataPointerParams) solana.Instruction {
	data := encode(struct {
		Instruction uint8
		Sub         uint8
		Authority   solana.PublicKey
		Metadata    solana.PublicKey
	}{instMetadataPointerExtension, metadataPointerInitialize, p.Authority, p.MetadataAddress})

	return solana.NewInstruction(programOrDefault(p.ProgramID), solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Mint, true, false),
	}, data)
}

// InitializeMintParams configures InitializeMint.
type InitializeMintParams struct {
	Mint            solana.PublicKey
	Decimals        uint8
	MintAuthority   solana.PublicKey
	FreezeAuthority *solana.PublicKey
	ProgramID       solana.PublicKey
}

// InitializeMint initializes a mint account created by the system program.
func InitializeMint(p InitializeMintParams) solana.Instruction {
	var freezeOption uint8
	var freeze solana.PublicKey
	if p.FreezeAuthority != nil {
		freezeOption = 1
		freeze = *p.FreezeAuthority
	}

	data := encode(struct {
		Instruction     uint8
		Decimals        uint8
		MintAuthority   solana.PublicKey
		FreezeOption    uint8
		FreezeAuthority solana.PublicKey
	}{instInitializeMint, p.Decimals, p.MintAuthority, freezeOption, freeze})

	return solana.NewInstruction(programOrDefault(p.ProgramID), solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Mint, true, false),
		solana.NewAccountMeta(SysvarRentID, false, false),
	}, data)
}

// MintToCheckedParams configures MintToChecked.
type MintToCheckedParams struct {
	Mint        solana.PublicKey
	Destination solana.PublicKey
	Authority   solana.PublicKey
	Amount      uint64
	Decimals    uint8
	ProgramID   solana.PublicKey
}

// MintToChecked mints amount base units to destination. The runtime rejects
// the instruction if Decimals differs from the mint's decimals.
func MintToChecked(p MintToCheckedParams) solana.Instruction {
	data := encode(struct {
		Instruction uint8
		Amount      uint64
		Decimals    uint8
	}{instMintToChecked, p.Amount, p.Decimals})

	return solana.NewInstruction(programOrDefault(p.ProgramID), solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Mint, true, false),
		solana.NewAccountMeta(p.Destination, true, false),
		solana.NewAccountMeta(p.Authority, false, true),
	}, data)
}

// InitializeMetadataParams configures the token metadata Initialize instruction.
type InitializeMetadataParams struct {
	Metadata        solana.PublicKey
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	MintAuthority   solana.PublicKey
	Name            string
	Symbol          string
	URI             string
	ProgramID       solana.PublicKey
}

// InitializeMetadata writes name, symbol and uri into the metadata account.
func InitializeMetadata(p InitializeMetadataParams) solana.Instruction {
	data := encode(struct {
		Discriminator [8]byte
		Name          string
		Symbol        string
		URI           string
	}{discInitializeMetadata, p.Name, p.Symbol, p.URI})

	return solana.NewInstruction(programOrDefault(p.ProgramID), solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Metadata, true, false),
		solana.NewAccountMeta(p.UpdateAuthority, false, false),
		solana.NewAccountMeta(p.Mint, false, false),
		solana.NewAccountMeta(p.MintAuthority, false, true),
	}, data)
}

// UpdateFieldParams configures the token metadata UpdateField instruction
// for an additional key/value entry.
type UpdateFieldParams struct {
	Metadata        solana.PublicKey
	UpdateAuthority solana.PublicKey
	Key             string
	Value           string
	ProgramID       solana.PublicKey
}

// UpdateField sets an additional metadata entry, growing the account as needed.
func UpdateField(p UpdateFieldParams) solana.Instruction {
	data := encode(struct {
		Discriminator [8]byte
		Field         uint8
		Key           string
		Value         string
	}{discUpdateField, fieldKey, p.Key, p.Value})

	return solana.NewInstruction(programOrDefault(p.ProgramID), solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Metadata, true, false),
		solana.NewAccountMeta(p.UpdateAuthority, false, true),
	}, data)
}

// CreateAssociatedTokenAccountParams configures the associated token account creation.
type CreateAssociatedTokenAccountParams struct {
	Payer                  solana.PublicKey
	AssociatedTokenAccount solana.PublicKey
	Owner                  solana.PublicKey
	Mint                   solana.PublicKey
	TokenProgramID         solana.PublicKey

	// Idempotent selects CreateIdempotent, which succeeds if the account
	// already exists with the expected owner and mint.
	Idempotent bool
}

// CreateAssociatedTokenAccount creates the associated token account for owner and mint.
func CreateAssociatedTokenAccount(p CreateAssociatedTokenAccountParams) solana.Instruction {
	tag := ataCreate
	if p.Idempotent {
		tag = ataCreateIdempotent
	}

	return solana.NewInstruction(AssociatedTokenProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Payer, true, true),
		solana.NewAccountMeta(p.AssociatedTokenAccount, true, false),
		solana.NewAccountMeta(p.Owner, false, false),
		solana.NewAccountMeta(p.Mint, false, false),
		solana.NewAccountMeta(SystemProgramID, false, false),
		solana.NewAccountMeta(programOrDefault(p.TokenProgramID), false, false),
	}, []byte{tag})
}

func programOrDefault(id solana.PublicKey) solana.PublicKey {
	if id.IsZero() {
		return Token2022ProgramID
	}
	return id
}
