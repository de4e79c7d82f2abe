package token

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// NewTransaction builds a legacy transaction paid by feePayer.
// Signatures are left empty until PartialSign.
func NewTransaction(instructions []solana.Instruction, blockhash solana.Hash, feePayer solana.PublicKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return nil, fmt.Errorf("new transaction: %w", err)
	}
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	return tx, nil
}

// PartialSign signs the message with every key that is a required signer,
// leaving the remaining signature slots empty for the wallet.
func PartialSign(tx *solana.Transaction, keys ...solana.PrivateKey) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != required {
		sigs := make([]solana.Signature, required)
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	for _, key := range keys {
		pub := key.PublicKey()
		idx := -1
		for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
			if tx.Message.AccountKeys[i].Equals(pub) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("key %s is not a required signer", pub)
		}

		sig, err := key.Sign(msg)
		if err != nil {
			return fmt.Errorf("sign with %s: %w", pub, err)
		}
		tx.Signatures[idx] = sig
	}
	return nil
}

// Serialize encodes the transaction to base64 without requiring all signatures.
func Serialize(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTransaction parses a base64 wire transaction.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

// MissingSignatures returns the required signers whose signature slot is empty.
func MissingSignatures(tx *solana.Transaction) []solana.PublicKey {
	var missing []solana.PublicKey
	required := int(tx.Message.Header.NumRequiredSignatures)
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if i >= len(tx.Signatures) || tx.Signatures[i].IsZero() {
			missing = append(missing, tx.Message.AccountKeys[i])
		}
	}
	return missing
}

// ProgramIDs returns the program of each instruction in order.
func ProgramIDs(tx *solana.Transaction) ([]solana.PublicKey, error) {
	ids := make([]solana.PublicKey, 0, len(tx.Message.Instructions))
	for i, inst := range tx.Message.Instructions {
		idx := int(inst.ProgramIDIndex)
		if idx >= len(tx.Message.AccountKeys) {
			return nil, fmt.Errorf("instruction %d: program index %d out of range", i, idx)
		}
		ids = append(ids, tx.Message.AccountKeys[idx])
	}
	return ids, nil
}
