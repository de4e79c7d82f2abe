package launch

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"solana-token-launchpad/internal/pinning"
	"solana-token-launchpad/internal/solanarpc"
	"solana-token-launchpad/internal/solanarpc/stub"
	"solana-token-launchpad/internal/storage/memory"
	"solana-token-launchpad/internal/token"
)

const testGateway = "https://gw.test/ipfs/"

// fakePinner returns fixed CIDs and counts uploads.
type fakePinner struct {
	mu           sync.Mutex
	images       int
	metadata     []pinning.OffChainMetadata
	failImage    bool
	failMetadata bool
}

func (p *fakePinner) UploadImage(_ context.Context, img pinning.Image) (*pinning.Pinned, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.images++
	if p.failImage {
		return nil, errors.New("pinata: 500 upstream unavailable")
	}
	return &pinning.Pinned{CID: "bafyimage", URL: testGateway + "bafyimage", Kind: pinning.KindImage, Name: img.Filename}, nil
}

func (p *fakePinner) UploadMetadata(_ context.Context, md pinning.OffChainMetadata) (*pinning.Pinned, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metadata = append(p.metadata, md)
	if p.failMetadata {
		return nil, errors.New("pinata: 500 upstream unavailable")
	}
	return &pinning.Pinned{CID: "bafyjson", URL: testGateway + "bafyjson", Kind: pinning.KindMetadata, Name: md.Name}, nil
}

func (p *fakePinner) uploads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.images + len(p.metadata)
}

type testEnv struct {
	svc      *Service
	rpc      *stub.RPCClient
	ws       *stub.WSClient
	pinner   *fakePinner
	launches *memory.LaunchStore
	pins     *memory.PinStore
}

func newTestEnv(t *testing.T, withWS bool) *testEnv {
	t.Helper()

	env := &testEnv{
		rpc:      stub.NewRPCClient(),
		pinner:   &fakePinner{},
		launches: memory.NewLaunchStore(),
		pins:     memory.NewPinStore(),
	}
	deps := Deps{
		RPC:      env.rpc,
		Pinner:   env.pinner,
		Launches: env.launches,
		Pins:     env.pins,
		Logger:   zerolog.Nop(),
	}
	if withWS {
		env.ws = stub.NewWSClient()
		deps.WS = env.ws
	}
	env.svc = NewService(deps, Config{
		AirdropRate:    rate.Inf,
		AirdropBurst:   1,
		ConfirmTimeout: 300 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
	})
	env.svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return env
}

// mintAccountData builds an initialized mint account, with Token-2022
// metadata extensions when md is not nil.
func mintAccountData(authority *solana.PublicKey, supply uint64, decimals uint8, md *token.Metadata) []byte {
	data := make([]byte, token.MintSize)
	if authority != nil {
		binary.LittleEndian.PutUint32(data[0:4], 1)
		copy(data[4:36], authority[:])
	}
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	if md == nil {
		return data
	}

	data = append(data, make([]byte, token.AccountSize-token.MintSize)...)
	data = append(data, 1) // account type: mint

	pointer := make([]byte, 64)
	copy(pointer[0:32], md.UpdateAuthority[:])
	copy(pointer[32:64], md.Mint[:])
	data = appendTLV(data, token.ExtensionMetadataPointer, pointer)

	packed, err := md.Pack()
	if err != nil {
		panic(err)
	}
	return appendTLV(data, token.ExtensionTokenMetadata, packed)
}

func appendTLV(data []byte, typ token.ExtensionType, value []byte) []byte {
	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(typ))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(value)))
	return append(append(data, hdr[:]...), value...)
}

func setAccount(rpc *stub.RPCClient, addr solana.PublicKey, owner solana.PublicKey, data []byte) {
	rpc.SetAccount(addr.String(), &solanarpc.AccountInfo{
		Lamports: 1_000_000,
		Owner:    owner.String(),
		Data:     base64.StdEncoding.EncodeToString(data),
	})
}

func decodeTx(t *testing.T, encoded string) *solana.Transaction {
	t.Helper()
	tx, err := token.DecodeTransaction(encoded)
	require.NoError(t, err)
	return tx
}

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}
