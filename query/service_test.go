package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/rainman456/solana-dappTreasury/state"
	"github.com/rainman456/solana-dappTreasury/storage"
	"github.com/rainman456/solana-dappTreasury/token"
	"github.com/rainman456/solana-dappTreasury/treasury"
)

func testKey(b byte) solana.PublicKey {
	var key solana.PublicKey
	key[0] = b
	key[31] = b
	return key
}

type fixture struct {
	server    *httptest.Server
	programID solana.PublicKey
	admin     solana.PublicKey
	recipient solana.PublicKey
	mint      solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		programID: testKey(0xAA),
		admin:     testKey(1),
		recipient: testKey(3),
		mint:      testKey(7),
	}
	manager := state.NewManager(storage.NewMemDB())
	tokens := token.NewInMemory()
	now := int64(1_700_000_000)

	engine := treasury.NewEngine(f.programID)
	engine.SetState(manager)
	engine.SetTokens(tokens)
	engine.SetNowFunc(func() int64 { return now })

	if _, err := engine.InitializeTreasury(f.admin, 3600, 1_000); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := engine.AddWhitelistedRecipient(f.admin, f.recipient, "vendor"); err != nil {
		t.Fatalf("add recipient: %v", err)
	}
	if err := manager.SetNativeBalance(f.admin, 10_000); err != nil {
		t.Fatalf("fund admin: %v", err)
	}
	if err := engine.Deposit(f.admin, 2_000, now); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := tokens.MintTo(f.admin, f.mint, 1_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	now++
	if err := engine.DepositToken(f.admin, f.mint, 400, now); err != nil {
		t.Fatalf("token deposit: %v", err)
	}
	if _, err := engine.SchedulePayout(f.admin, f.recipient, 100, now+60, false, 0, nil, 0); err != nil {
		t.Fatalf("schedule payout: %v", err)
	}

	service := NewService(manager, f.programID, nil)
	f.server = httptest.NewServer(service.Routes())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestGetTreasury(t *testing.T) {
	f := newFixture(t)
	var resp map[string]interface{}
	if status := f.get(t, "/v1/treasury", &resp); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if resp["admin"] != f.admin.String() {
		t.Fatalf("admin = %v", resp["admin"])
	}
	if resp["totalFunds"].(float64) != 2_000 {
		t.Fatalf("totalFunds = %v", resp["totalFunds"])
	}
}

func TestGetUserAndRecipient(t *testing.T) {
	f := newFixture(t)
	var user map[string]interface{}
	if status := f.get(t, "/v1/treasury/users/"+f.admin.String(), &user); status != http.StatusOK {
		t.Fatalf("user status = %d", status)
	}
	if user["role"] != "admin" || user["isActive"] != true {
		t.Fatalf("user = %v", user)
	}

	var recipient map[string]interface{}
	if status := f.get(t, "/v1/treasury/recipients/"+f.recipient.String(), &recipient); status != http.StatusOK {
		t.Fatalf("recipient status = %d", status)
	}
	if recipient["name"] != "vendor" {
		t.Fatalf("recipient = %v", recipient)
	}

	if status := f.get(t, "/v1/treasury/users/"+testKey(0x55).String(), nil); status != http.StatusNotFound {
		t.Fatalf("unknown user status = %d", status)
	}
	if status := f.get(t, "/v1/treasury/users/not-a-key", nil); status != http.StatusBadRequest {
		t.Fatalf("bad key status = %d", status)
	}
}

func TestGetPayout(t *testing.T) {
	f := newFixture(t)
	var payout map[string]interface{}
	path := "/v1/treasury/payouts/" + f.recipient.String() + "/0"
	if status := f.get(t, path, &payout); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if payout["amount"].(float64) != 100 || payout["isActive"] != true {
		t.Fatalf("payout = %v", payout)
	}
	if status := f.get(t, "/v1/treasury/payouts/"+f.recipient.String()+"/9", nil); status != http.StatusNotFound {
		t.Fatalf("unknown payout status = %d", status)
	}
}

func TestGetTokenBalance(t *testing.T) {
	f := newFixture(t)
	var balance map[string]interface{}
	if status := f.get(t, "/v1/treasury/token-balances/"+f.mint.String(), &balance); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if balance["balance"].(float64) != 400 {
		t.Fatalf("balance = %v", balance)
	}
	if status := f.get(t, "/v1/treasury/token-balances/"+testKey(0x66).String(), nil); status != http.StatusNotFound {
		t.Fatalf("unknown mint status = %d", status)
	}
}

func TestGetAuditLog(t *testing.T) {
	f := newFixture(t)
	var entries []map[string]interface{}
	if status := f.get(t, "/v1/treasury/audit", &entries); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	if entries[0]["action"] != "deposit" {
		t.Fatalf("first action = %v", entries[0]["action"])
	}
	if entries[1]["action"] != "token_deposit" {
		t.Fatalf("second action = %v", entries[1]["action"])
	}
}

func TestGetAuditRecord(t *testing.T) {
	f := newFixture(t)
	path := "/v1/treasury/audit/" + f.admin.String() + "/1700000000"
	var entry map[string]interface{}
	if status := f.get(t, path, &entry); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if entry["action"] != "deposit" || entry["amount"].(float64) != 2_000 {
		t.Fatalf("entry = %v", entry)
	}
	if status := f.get(t, "/v1/treasury/audit/"+f.admin.String()+"/42", nil); status != http.StatusNotFound {
		t.Fatalf("unknown slot status = %d", status)
	}
}
