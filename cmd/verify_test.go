package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/sav3/internal/chain"
	"github.com/Mohsinsiddi/sav3/internal/ledger"
)

// explorerStub serves verifysourcecode and a status queue that turns
// verified after one pending answer.
type explorerStub struct {
	form   map[string]string
	checks int32
	reply  string
}

func (s *explorerStub) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		status, result := "1", ""
		switch r.Form.Get("action") {
		case "verifysourcecode":
			s.form = map[string]string{}
			for k := range r.PostForm {
				s.form[k] = r.PostForm.Get(k)
			}
			if s.reply != "" {
				status, result = "0", s.reply
			} else {
				result = "guid-1"
			}
		case "checkverifystatus":
			result = "Pass - Verified"
			if atomic.AddInt32(&s.checks, 1) == 1 {
				status, result = "0", "Pending in queue"
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status, "message": "OK", "result": result})
	}))
	t.Cleanup(srv.Close)

	prevExplorer, prevPoll := explorerFor, verifyPollInterval
	explorerFor = func(*chain.Network) (*chain.Explorer, error) { return chain.NewExplorer(srv.URL, ""), nil }
	verifyPollInterval = time.Millisecond
	t.Cleanup(func() { explorerFor, verifyPollInterval = prevExplorer, prevPoll })
	return srv
}

func TestVerifyDeployment(t *testing.T) {
	c := newCLI(t)
	l := ledger.New(ledger.WithAccounts(1))
	c.withLedger(l, "localhost")
	c.ok("deploy", writeArtifact(t, c.dir, "sw3"), "3", "100", "--name", "drop", "-n", "localhost")

	source := filepath.Join(c.dir, "Sw3.flat.sol")
	require.NoError(t, os.WriteFile(source, []byte("contract Sw3 {}"), 0o644))

	stub := &explorerStub{}
	stub.serve(t)
	out := c.ok("verify", "drop", source, "-n", "localhost")
	assert.Contains(t, out, "drop verified: Pass - Verified")
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.checks))

	reg, err := newDeployments()
	require.NoError(t, err)
	e, err := reg.Get("drop", "localhost")
	require.NoError(t, err)

	assert.Equal(t, e.Address, stub.form["contractaddress"])
	assert.Equal(t, "Sw3", stub.form["contractname"])
	assert.Equal(t, "contract Sw3 {}", stub.form["sourceCode"])
	assert.Equal(t, "v0.8.16+commit.07a7930e", stub.form["compilerversion"])
	assert.Equal(t, "0", stub.form["optimizationUsed"])
	// maxBatchSize 3, maxSupply 100 as two uint256 words.
	args := stub.form["constructorArguements"]
	require.Len(t, args, 128)
	assert.Equal(t, "03", args[62:64])
	assert.Equal(t, "64", args[126:])
}

func TestVerifyAlreadyVerified(t *testing.T) {
	c := newCLI(t)
	l := ledger.New(ledger.WithAccounts(1))
	c.withLedger(l, "localhost")
	c.ok("deploy", writeArtifact(t, c.dir, "sav3"), "--name", "drop", "-n", "localhost")
	source := filepath.Join(c.dir, "Sav3.sol")
	require.NoError(t, os.WriteFile(source, []byte("contract Sav3 {}"), 0o644))

	stub := &explorerStub{reply: "Contract source code already verified"}
	stub.serve(t)
	out := c.ok("verify", "drop", source, "-n", "localhost", "--runs", "200")
	assert.Contains(t, out, "already verified")
	assert.Equal(t, "1", stub.form["optimizationUsed"])
	assert.Equal(t, "200", stub.form["runs"])
	assert.Zero(t, atomic.LoadInt32(&stub.checks))
}

func TestVerifyUnknownDeployment(t *testing.T) {
	c := newCLI(t)
	c.withLedger(ledger.New(ledger.WithAccounts(1)), "localhost")
	(&explorerStub{}).serve(t)

	_, err := c.run("", "verify", "missing", "x.sol", "-n", "localhost")
	assert.Error(t, err)
}

func TestCompilerBuild(t *testing.T) {
	b, err := compilerBuild("", "0.8.16")
	require.NoError(t, err)
	assert.Equal(t, "v0.8.16+commit.07a7930e", b)

	b, err = compilerBuild("v0.8.20+commit.a1b79de6", "0.8.16")
	require.NoError(t, err)
	assert.Equal(t, "v0.8.20+commit.a1b79de6", b)

	b, err = compilerBuild("", "0.8.21+commit.d9974bed")
	require.NoError(t, err)
	assert.Equal(t, "v0.8.21+commit.d9974bed", b)

	_, err = compilerBuild("", "0.7.0")
	assert.Error(t, err)
}
