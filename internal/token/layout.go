package token

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Account layout sizes in bytes.
const (
	MintSize        = 82
	AccountSize     = 165
	MultisigSize    = 355
	AccountTypeSize = 1
	TypeSize        = 2
	LengthSize      = 2
)

// accountTypeMint tags an extended account as a mint.
const accountTypeMint = 1

// ExtensionType identifies a Token-2022 TLV extension.
type ExtensionType uint16

// Extension types used by the launchpad.
const (
	ExtensionUninitialized   ExtensionType = 0
	ExtensionMetadataPointer ExtensionType = 18
	ExtensionTokenMetadata   ExtensionType = 19
)

// extensionLen returns the fixed value size of an extension.
// Variable-length extensions (token metadata) report 0.
func extensionLen(e ExtensionType) int {
	switch e {
	case ExtensionMetadataPointer:
		return 64
	default:
		return 0
	}
}

// MintLen returns the account space needed by a mint carrying the given
// fixed-size extensions. Variable-length data such as token metadata is
// reallocated by its own instruction and is sized with MetadataLen.
func MintLen(extensions ...ExtensionType) int {
	if len(extensions) == 0 {
		return MintSize
	}
	n := AccountSize + AccountTypeSize
	for _, e := range extensions {
		n += TypeSize + LengthSize + extensionLen(e)
	}
	// A mint must never be mistaken for a multisig account.
	if n == MultisigSize {
		n += TypeSize
	}
	return n
}

// Mint is a decoded mint account.
type Mint struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey

	// Extensions holds raw TLV values keyed by type. Empty for classic mints.
	Extensions map[ExtensionType][]byte
}

// ParseMint decodes a mint account, classic or Token-2022.
//
// Base layout:
//   - mintAuthority: COption<Pubkey> (4 + 32)
//   - supply: u64 (8)
//   - decimals: u8 (1)
//   - isInitialized: bool (1)
//   - freezeAuthority: COption<Pubkey> (4 + 32)
//
// Extended mints pad to AccountSize, then carry an account type byte and TLV entries.
func ParseMint(data []byte) (*Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("%w: data too short: %d", ErrInvalidMint, len(data))
	}

	m := &Mint{
		MintAuthority:   parseCOptionKey(data[0:36]),
		Supply:          binary.LittleEndian.Uint64(data[36:44]),
		Decimals:        data[44],
		IsInitialized:   data[45] == 1,
		FreezeAuthority: parseCOptionKey(data[46:82]),
		Extensions:      make(map[ExtensionType][]byte),
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("%w: not initialized", ErrInvalidMint)
	}

	if len(data) == MintSize {
		return m, nil
	}
	if len(data) <= AccountSize || len(data) == MultisigSize {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidMint, len(data))
	}
	if data[AccountSize] != accountTypeMint {
		return nil, fmt.Errorf("%w: account type %d", ErrInvalidMint, data[AccountSize])
	}

	tlv := data[AccountSize+AccountTypeSize:]
	for len(tlv) >= TypeSize+LengthSize {
		typ := ExtensionType(binary.LittleEndian.Uint16(tlv[0:2]))
		if typ == ExtensionUninitialized {
			break
		}
		length := int(binary.LittleEndian.Uint16(tlv[2:4]))
		start := TypeSize + LengthSize
		if start+length > len(tlv) {
			return nil, fmt.Errorf("%w: extension %d overruns account", ErrInvalidMint, typ)
		}
		m.Extensions[typ] = tlv[start : start+length]
		tlv = tlv[start+length:]
	}

	return m, nil
}

func parseCOptionKey(b []byte) *solana.PublicKey {
	if binary.LittleEndian.Uint32(b[0:4]) == 0 {
		return nil
	}
	key := solana.PublicKeyFromBytes(b[4:36])
	return &key
}

// Metadata is the Token-2022 token metadata extension value.
type Metadata struct {
	UpdateAuthority    solana.PublicKey
	Mint               solana.PublicKey
	Name               string
	Symbol             string
	URI                string
	AdditionalMetadata []MetadataEntry
}

// MetadataEntry is one additional key/value pair.
type MetadataEntry struct {
	Key   string
	Value string
}

// Pack borsh-encodes the metadata exactly as it is stored on-chain.
func (m *Metadata) Pack() ([]byte, error) {
	if m.AdditionalMetadata == nil {
		m.AdditionalMetadata = []MetadataEntry{}
	}
	return bin.MarshalBorsh(m)
}

// Lookup returns the additional metadata value stored under key.
func (m *Metadata) Lookup(key string) (string, bool) {
	for _, e := range m.AdditionalMetadata {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// MetadataLen returns the bytes the metadata TLV entry adds to a mint account.
func MetadataLen(m *Metadata) (int, error) {
	packed, err := m.Pack()
	if err != nil {
		return 0, fmt.Errorf("pack metadata: %w", err)
	}
	return TypeSize + LengthSize + len(packed), nil
}

// TokenMetadata decodes the token metadata extension of the mint.
// Returns nil, nil if the mint carries no metadata.
func (m *Mint) TokenMetadata() (*Metadata, error) {
	raw, ok := m.Extensions[ExtensionTokenMetadata]
	if !ok {
		return nil, nil
	}
	var md Metadata
	if err := bin.UnmarshalBorsh(&md, raw); err != nil {
		return nil, fmt.Errorf("decode token metadata: %w", err)
	}
	return &md, nil
}

// MetadataPointer decodes the metadata pointer extension of the mint.
// Returns ok=false if the extension is absent.
func (m *Mint) MetadataPointer() (authority, metadata solana.PublicKey, ok bool) {
	raw, found := m.Extensions[ExtensionMetadataPointer]
	if !found || len(raw) != 64 {
		return solana.PublicKey{}, solana.PublicKey{}, false
	}
	return solana.PublicKeyFromBytes(raw[0:32]), solana.PublicKeyFromBytes(raw[32:64]), true
}
