package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// explorerResponse is the raw Etherscan-compatible API envelope.
// Result is kept as RawMessage because a failed call returns a plain string
// (e.g. "NOTOK" or an error message) while a successful call returns a JSON array.
type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type explorerTx struct {
	Hash            string `json:"hash"`
	BlockNumber     string `json:"blockNumber"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
	Input           string `json:"input"`
	TimeStamp       string `json:"timeStamp"`
	ContractAddress string `json:"contractAddress"`
}

// Activity is one transaction sent to a sale contract.
type Activity struct {
	Hash      common.Hash
	Block     uint64
	Timestamp time.Time
	From      common.Address
	Method    string
	Value     *big.Int
	Success   bool
}

// Explorer queries an Etherscan-compatible block explorer API.
type Explorer struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewExplorer returns a client for apiURL. apiKey may be empty on free tiers.
func NewExplorer(apiURL, apiKey string) *Explorer {
	return &Explorer{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 12 * time.Second},
	}
}

// History returns the n most recent transactions sent to contractAddr,
// newest first. Method names are decoded against contractABI.
func (e *Explorer) History(ctx context.Context, contractAddr common.Address, n int, contractABI abi.ABI) ([]Activity, error) {
	var raw []explorerTx
	q := fmt.Sprintf("module=account&action=txlist&address=%s&startblock=0&endblock=99999999&page=1&offset=%d&sort=desc",
		contractAddr.Hex(), n)
	if err := e.get(ctx, q, &raw); err != nil {
		return nil, err
	}

	out := make([]Activity, 0, len(raw))
	for _, et := range raw {
		a := Activity{
			Hash:    common.HexToHash(et.Hash),
			From:    common.HexToAddress(et.From),
			Method:  decodeMethod(contractABI, et.Input),
			Value:   new(big.Int),
			Success: et.TxReceiptStatus == "1" && et.IsError == "0",
		}
		// Contract creation: To is empty, ContractAddress is set.
		if et.To == "" && et.ContractAddress != "" {
			a.Method = "deploy"
		}
		if v, ok := new(big.Int).SetString(et.Value, 10); ok {
			a.Value = v
		}
		if bn, ok := new(big.Int).SetString(et.BlockNumber, 10); ok {
			a.Block = bn.Uint64()
		}
		if ts, ok := new(big.Int).SetString(et.TimeStamp, 10); ok {
			a.Timestamp = time.Unix(ts.Int64(), 0)
		}
		out = append(out, a)
	}
	return out, nil
}

type contractSource struct {
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
}

// ContractName returns the verified source name of addr and the compiler
// it was verified with. An unverified contract yields "".
func (e *Explorer) ContractName(ctx context.Context, addr common.Address) (name, compiler string, err error) {
	var res []contractSource
	if err := e.get(ctx, "module=contract&action=getsourcecode&address="+addr.Hex(), &res); err != nil {
		return "", "", err
	}
	if len(res) == 0 {
		return "", "", nil
	}
	return res[0].ContractName, res[0].CompilerVersion, nil
}

// VerifyRequest is a single-file Solidity source submission. Compiler is
// the full solc build, e.g. v0.8.16+commit.07a7930e.
type VerifyRequest struct {
	Address         common.Address
	Source          string
	ContractName    string
	Compiler        string
	Optimized       bool
	Runs            int
	ConstructorArgs []byte
}

// VerifyState is where a submitted verification stands.
type VerifyState int

const (
	VerifyPending VerifyState = iota
	VerifyPassed
	VerifyFailed
)

var (
	// ErrAlreadyVerified is returned when the explorer already holds source
	// for the address.
	ErrAlreadyVerified = errors.New("contract source code already verified")
	ErrVerifyFailed    = errors.New("verification failed")
)

// VerifySource submits r and returns the GUID to poll with VerifyStatus.
func (e *Explorer) VerifySource(ctx context.Context, r VerifyRequest) (string, error) {
	form := url.Values{}
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", r.Address.Hex())
	form.Set("sourceCode", r.Source)
	form.Set("codeformat", "solidity-single-file")
	form.Set("contractname", r.ContractName)
	form.Set("compilerversion", r.Compiler)
	form.Set("optimizationUsed", "0")
	if r.Optimized {
		form.Set("optimizationUsed", "1")
		form.Set("runs", strconv.Itoa(r.Runs))
	}
	// The misspelling is the API's.
	form.Set("constructorArguements", common.Bytes2Hex(r.ConstructorArgs))
	if e.apiKey != "" {
		form.Set("apikey", e.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	env, err := e.do(req)
	if err != nil {
		return "", err
	}
	msg := env.text()
	if env.Status != "1" {
		if isAlreadyVerified(msg) {
			return "", ErrAlreadyVerified
		}
		return "", fmt.Errorf("explorer API: %s", msg)
	}
	return msg, nil
}

// VerifyStatus reports the state of the submission guid along with the
// explorer's message.
func (e *Explorer) VerifyStatus(ctx context.Context, guid string) (VerifyState, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		e.queryURL("module=contract&action=checkverifystatus&guid="+url.QueryEscape(guid)), nil)
	if err != nil {
		return VerifyFailed, "", err
	}
	env, err := e.do(req)
	if err != nil {
		return VerifyFailed, "", err
	}
	msg := env.text()
	switch {
	case env.Status == "1", isAlreadyVerified(msg):
		return VerifyPassed, msg, nil
	case strings.HasPrefix(strings.ToLower(msg), "pending"):
		return VerifyPending, msg, nil
	}
	return VerifyFailed, msg, nil
}

// WaitVerified polls VerifyStatus every interval until guid leaves the
// queue or ctx ends.
func (e *Explorer) WaitVerified(ctx context.Context, guid string, every time.Duration) (string, error) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		state, msg, err := e.VerifyStatus(ctx, guid)
		if err != nil {
			return "", err
		}
		switch state {
		case VerifyPassed:
			return msg, nil
		case VerifyFailed:
			return msg, fmt.Errorf("%w: %s", ErrVerifyFailed, msg)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
}

func isAlreadyVerified(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "already verified")
}

// text returns the result as a plain string, falling back to the message.
func (r explorerResponse) text() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err == nil && s != "" {
		return s
	}
	return r.Message
}

func (e *Explorer) queryURL(query string) string {
	// Use "&" when apiURL already contains a "?" (e.g. Etherscan V2 includes ?chainid=X).
	sep := "?"
	if strings.Contains(e.apiURL, "?") {
		sep = "&"
	}
	u := e.apiURL + sep + query
	if e.apiKey != "" {
		u += "&apikey=" + e.apiKey
	}
	return u
}

func (e *Explorer) do(req *http.Request) (explorerResponse, error) {
	var envelope explorerResponse
	resp, err := e.client.Do(req)
	if err != nil {
		return envelope, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return envelope, fmt.Errorf("parsing explorer response: %w", err)
	}
	return envelope, nil
}

func (e *Explorer) get(ctx context.Context, query string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.queryURL(query), nil)
	if err != nil {
		return err
	}
	envelope, err := e.do(req)
	if err != nil {
		return err
	}

	// Non-success: result may be a plain error string, not an array.
	if envelope.Status != "1" {
		return fmt.Errorf("explorer API: %s", envelope.text())
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("parsing explorer result: %w", err)
	}
	return nil
}

// decodeMethod returns the ABI method name for calldata input. Plain sends
// decode as "transfer" and unknown selectors as their 4-byte hex.
func decodeMethod(contractABI abi.ABI, input string) string {
	if input == "" || input == "0x" {
		return "transfer"
	}
	data, err := hexutil.Decode(strings.ToLower(input))
	if err != nil || len(data) < 4 {
		return "call"
	}
	if m, err := contractABI.MethodById(data[:4]); err == nil {
		return m.RawName
	}
	return hexutil.Encode(data[:4])
}
