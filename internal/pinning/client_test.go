package pinning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePinata records pins and groups like the Pinata API.
type fakePinata struct {
	mu       sync.Mutex
	groups   []Group
	created  []string
	files    []map[string]string
	jsons    []map[string]json.RawMessage
	unpinned []string
}

func (f *fakePinata) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-jwt" {
				http.Error(w, `{"error":"invalid jwt"}`, http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/groups", auth(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(f.groups)
		case http.MethodPost:
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			g := Group{ID: "grp-" + body["name"], Name: body["name"]}
			f.groups = append(f.groups, g)
			f.created = append(f.created, g.Name)
			json.NewEncoder(w).Encode(g)
		}
	}))

	mux.HandleFunc("/pinning/pinFileToIPFS", auth(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		data, _ := io.ReadAll(file)

		f.mu.Lock()
		f.files = append(f.files, map[string]string{
			"filename":       hdr.Filename,
			"contentType":    hdr.Header.Get("Content-Type"),
			"data":           string(data),
			"pinataMetadata": r.FormValue("pinataMetadata"),
			"pinataOptions":  r.FormValue("pinataOptions"),
		})
		f.mu.Unlock()

		json.NewEncoder(w).Encode(PinResult{IpfsHash: "bafyimage", PinSize: int64(len(data))})
	}))

	mux.HandleFunc("/pinning/pinJSONToIPFS", auth(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode json pin: %v", err)
			return
		}
		f.mu.Lock()
		f.jsons = append(f.jsons, body)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(PinResult{IpfsHash: "bafyjson"})
	}))

	mux.HandleFunc("/pinning/unpin/", auth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.mu.Lock()
		f.unpinned = append(f.unpinned, strings.TrimPrefix(r.URL.Path, "/pinning/unpin/"))
		f.mu.Unlock()
		w.Write([]byte("OK"))
	}))

	return mux
}

func newTestUploader(t *testing.T, jwt string) (*Uploader, *fakePinata) {
	t.Helper()
	fake := &fakePinata{groups: []Group{{ID: "grp-existing", Name: MetadataGroup}}}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client := NewClient(jwt, "gateway.example.com", WithBaseURL(server.URL))
	return NewUploader(client, zerolog.Nop()), fake
}

func TestUploadImage(t *testing.T) {
	u, fake := newTestUploader(t, "test-jwt")

	pinned, err := u.UploadImage(context.Background(), Image{
		Filename:    "logo.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "bafyimage", pinned.CID)
	assert.Equal(t, "https://gateway.example.com/ipfs/bafyimage", pinned.URL)
	assert.Equal(t, KindImage, pinned.Kind)

	require.Len(t, fake.files, 1)
	f := fake.files[0]
	assert.Equal(t, "logo.png", f["filename"])
	assert.Equal(t, "image/png", f["contentType"])
	assert.Equal(t, "png-bytes", f["data"])
	assert.JSONEq(t, `{"name":"logo.png","keyvalues":{"folder":"token-images"}}`, f["pinataMetadata"])
	assert.JSONEq(t, `{"cidVersion":1,"groupId":"grp-Token Launchpad Images"}`, f["pinataOptions"])

	assert.Equal(t, []string{ImageGroup}, fake.created, "missing group is created")
}

func TestUploadMetadata_ReusesExistingGroup(t *testing.T) {
	u, fake := newTestUploader(t, "test-jwt")

	md := OffChainMetadata{Name: "Launch", Symbol: "LNC", Image: "https://gateway.example.com/ipfs/bafyimage", Description: "d"}
	pinned, err := u.UploadMetadata(context.Background(), md)
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/ipfs/bafyjson", pinned.URL)

	_, err = u.UploadMetadata(context.Background(), md)
	require.NoError(t, err)

	assert.Empty(t, fake.created)
	require.Len(t, fake.jsons, 2)
	body := fake.jsons[0]
	assert.JSONEq(t, `{"name":"Launch","symbol":"LNC","image":"https://gateway.example.com/ipfs/bafyimage","description":"d"}`, string(body["pinataContent"]))
	assert.JSONEq(t, `{"name":"Launch"}`, string(body["pinataMetadata"]))
	assert.JSONEq(t, `{"cidVersion":1,"groupId":"grp-existing"}`, string(body["pinataOptions"]))
}

func TestUnpin(t *testing.T) {
	u, fake := newTestUploader(t, "test-jwt")

	require.NoError(t, u.Unpin(context.Background(), "bafyold"))
	assert.Equal(t, []string{"bafyold"}, fake.unpinned)
}

func TestUnauthorized(t *testing.T) {
	u, _ := newTestUploader(t, "wrong")

	_, err := u.UploadImage(context.Background(), Image{Filename: "a.png", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("jwt", "gw", WithBaseURL(server.URL))
	_, err := client.ListGroups(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t, "https://gw.example/ipfs/cid", NewClient("", "https://gw.example/").GatewayURL("cid"))
}

func TestIsNotPinned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"CURRENT_USER_HAS_NOT_PINNED_CID"}`, http.StatusNotFound)
	}))
	defer server.Close()

	err := NewClient("jwt", "gw", WithBaseURL(server.URL)).Unpin(context.Background(), "bafygone")
	assert.True(t, IsNotPinned(err))
	assert.False(t, IsNotPinned(&APIError{Status: http.StatusInternalServerError}))
	assert.False(t, IsNotPinned(nil))
}
