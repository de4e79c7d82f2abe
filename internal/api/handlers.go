package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/launch"
	"solana-token-launchpad/internal/pinning"
	"solana-token-launchpad/internal/solanarpc"
)

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type createTokenResponse struct {
	SerializedTransaction  string `json:"serializedTransaction"`
	TokenAddress           string `json:"tokenAddress"`
	Mint                   string `json:"mint"`
	LastValidBlockHeight   uint64 `json:"lastValidBlockHeight"`
	AssociatedTokenAccount string `json:"associatedTokenAccount,omitempty"`
	MetadataURI            string `json:"metadataUri"`
	LaunchID               string `json:"launchId"`
}

func (h *handler) createToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, r, badRequest("parse form: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	initial, err := parseAmount(r.FormValue("initialSupply"), "initialSupply", true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := parseAmount(r.FormValue("totalSupply"), "totalSupply", true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	img, err := readImage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.CreateToken(r.Context(), launch.CreateTokenRequest{
		Creator:       r.FormValue("publicKey"),
		Name:          r.FormValue("name"),
		Symbol:        r.FormValue("symbol"),
		Description:   r.FormValue("description"),
		Decimals:      parseDecimals(r.FormValue("decimals")),
		InitialSupply: initial,
		TotalSupply:   total,
		Image:         img,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	setInstructionCount(r.Context(), res.InstructionCount)

	resp := createTokenResponse{
		SerializedTransaction: res.SerializedTransaction,
		TokenAddress:          res.Mint.String(),
		Mint:                  res.Mint.String(),
		LastValidBlockHeight:  res.LastValidBlockHeight,
		MetadataURI:           res.MetadataURI,
		LaunchID:              res.LaunchID,
	}
	if !res.AssociatedAccount.IsZero() {
		resp.AssociatedTokenAccount = res.AssociatedAccount.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseDecimals returns -1 for anything that is not an integer, which the
// service rejects as out of range.
func parseDecimals(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	return n
}

// parseAmount parses a whole-token amount. Empty is zero when optional.
func parseAmount(s, field string, optional bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if optional {
			return decimal.Zero, nil
		}
		return decimal.Zero, badRequest("%s is required", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, badRequest("%s: not a number: %q", field, s)
	}
	return d, nil
}

func readImage(r *http.Request) (pinning.Image, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return pinning.Image{}, nil
	}
	if err != nil {
		return pinning.Image{}, badRequest("image: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return pinning.Image{}, badRequest("read image: %v", err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return pinning.Image{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}

type mintTokenRequest struct {
	MintPubKey string      `json:"mintPubKey"`
	Sender     string      `json:"sender"`
	Receiver   string      `json:"receiver"`
	PublicKey  string      `json:"publicKey"`
	Amount     json.Number `json:"amount"`
}

type mintTokenResponse struct {
	TokenATA              string `json:"tokenATA"`
	SerializedTransaction string `json:"serializedTransaction"`
	LastValidBlockHeight  uint64 `json:"lastValidBlockHeight"`
	LaunchID              string `json:"launchId"`
}

// mintToken accepts a JSON body or a form. publicKey stands in for a
// missing sender, and the sender for a missing receiver.
func (h *handler) mintToken(w http.ResponseWriter, r *http.Request) {
	var req mintTokenRequest
	if isJSON(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
		req = mintTokenRequest{
			MintPubKey: r.FormValue("mintPubKey"),
			Sender:     r.FormValue("sender"),
			Receiver:   r.FormValue("receiver"),
			PublicKey:  r.FormValue("publicKey"),
			Amount:     json.Number(r.FormValue("amount")),
		}
	}

	sender := firstNonEmpty(req.Sender, req.PublicKey)
	receiver := firstNonEmpty(req.Receiver, req.PublicKey, sender)
	amount, err := parseAmount(req.Amount.String(), "amount", false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.MintToken(r.Context(), launch.MintTokenRequest{
		Mint:     req.MintPubKey,
		Sender:   sender,
		Receiver: receiver,
		Amount:   amount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	setInstructionCount(r.Context(), res.InstructionCount)

	writeJSON(w, http.StatusOK, mintTokenResponse{
		TokenATA:              res.TokenAccount.String(),
		SerializedTransaction: res.SerializedTransaction,
		LastValidBlockHeight:  res.LastValidBlockHeight,
		LaunchID:              res.LaunchID,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

type walletRequest struct {
	PublicKey string      `json:"publicKey"`
	Amount    json.Number `json:"amount"`
}

type balanceResponse struct {
	// Balance is in SOL, rendered as a JSON number.
	Balance json.Number `json:"balance"`
}

func (h *handler) getBalance(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := h.svc.Balance(r.Context(), req.PublicKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: json.Number(balance.String())})
}

type airdropResponse struct {
	Value     []*solanarpc.SignatureStatus `json:"value"`
	Signature string                       `json:"signature"`
}

func (h *handler) airdropSOL(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount.String(), "amount", false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Airdrop(r.Context(), req.PublicKey, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, airdropResponse{
		Value:     []*solanarpc.SignatureStatus{res.Status},
		Signature: res.Signature,
	})
}

type ataRequest struct {
	Mint         string `json:"mint"`
	Owner        string `json:"owner"`
	Payer        string `json:"payer"`
	TokenProgram string `json:"tokenProgram"`
}

type ataResponse struct {
	AssociatedToken       string `json:"associatedToken"`
	Exists                bool   `json:"exists"`
	SerializedTransaction string `json:"serializedTransaction"`
	LastValidBlockHeight  uint64 `json:"lastValidBlockHeight,omitempty"`
}

func (h *handler) associatedTokenAccount(w http.ResponseWriter, r *http.Request) {
	var req ataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.ResolveATA(r.Context(), launch.ResolveATARequest(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !res.Exists {
		setInstructionCount(r.Context(), 1)
	}
	writeJSON(w, http.StatusOK, ataResponse{
		AssociatedToken:       res.Address.String(),
		Exists:                res.Exists,
		SerializedTransaction: res.SerializedTransaction,
		LastValidBlockHeight:  res.LastValidBlockHeight,
	})
}

type submitRequest struct {
	SignedTransaction    string `json:"signedTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type submitResponse struct {
	Signature          string               `json:"signature"`
	ConfirmationStatus solanarpc.Commitment `json:"confirmationStatus"`
	Slot               uint64               `json:"slot,omitempty"`
}

func (h *handler) submitTransaction(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.SignedTransaction == "" {
		writeError(w, r, badRequest("signedTransaction is required"))
		return
	}
	res, err := h.svc.Submit(r.Context(), req.SignedTransaction, req.LastValidBlockHeight)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Signature:          res.Signature,
		ConfirmationStatus: res.ConfirmationStatus,
		Slot:               res.Slot,
	})
}

// DefaultStatsWindow is used when /stats has no window parameter.
const DefaultStatsWindow = 24 * time.Hour

type statsResponse struct {
	Window string                              `json:"window"`
	Start  int64                               `json:"start"`
	End    int64                               `json:"end"`
	Routes map[string]map[domain.Outcome]int64 `json:"routes"`
}

// buildStats counts build events per route and outcome over a trailing window.
func (h *handler) buildStats(w http.ResponseWriter, r *http.Request) {
	window := DefaultStatsWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, r, badRequest("window: %q is not a positive duration", raw))
			return
		}
		window = d
	}

	end := h.now().UnixMilli()
	start := end - window.Milliseconds()
	resp := statsResponse{
		Window: window.String(),
		Start:  start,
		End:    end,
		Routes: make(map[string]map[domain.Outcome]int64, len(trackedRoutes)),
	}
	for _, route := range trackedRoutes {
		counts, err := h.stats.CountByRoute(r.Context(), route, start, end)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.Routes[route] = counts
	}
	writeJSON(w, http.StatusOK, resp)
}
