package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"finance_tracker/internal/analytics"
	"finance_tracker/internal/config"
	"finance_tracker/internal/db"
	"finance_tracker/internal/domain"
	"finance_tracker/internal/store"
	"finance_tracker/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	tokens *utils.TokenIssuer
}

func newTestServer(t *testing.T, rdb *redis.Client) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb, err := db.Open(&config.Config{DBDriver: config.DriverSQLite, DBPath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	ledger := store.NewLedger(gdb)
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	router := NewRouter(Deps{
		DB:        gdb,
		Users:     store.NewUsers(gdb),
		Ledger:    ledger,
		Budgets:   store.NewBudgets(gdb),
		Analytics: analytics.NewEngine(ledger),
		Tokens:    tokens,
		Redis:     rdb,
		CacheTTL:  time.Minute,
	})
	return &testServer{t: t, router: router, tokens: tokens}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(email, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(email string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp TokenResponse
	decode(s.t, w, &resp)
	return resp.AccessToken
}

func (s *testServer) createTx(token string, body gin.H) domain.Transaction {
	s.t.Helper()
	w := s.do(http.MethodPost, "/transactions", token, body)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var tx domain.Transaction
	decode(s.t, w, &tx)
	return tx
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func idPath(prefix string, id uint) string {
	return prefix + "/" + strconv.FormatUint(uint64(id), 10)
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"email": "test@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var reg TokenResponse
	decode(t, w, &reg)
	assert.NotEmpty(t, reg.AccessToken)
	assert.Equal(t, "bearer", reg.TokenType)

	w = s.do(http.MethodPost, "/auth/register", "", gin.H{"email": "test@example.com", "password": "other123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Email already registered"}`, w.Body.String())

	w = s.login("test@example.com", "secret123")
	require.Equal(t, http.StatusOK, w.Code)
	var login TokenResponse
	decode(t, w, &login)

	w = s.do(http.MethodGet, "/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me domain.Profile
	decode(t, w, &me)
	assert.Equal(t, "test@example.com", me.Email)
	assert.NotZero(t, me.ID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("ana@example.com")

	wrongPassword := s.login("ana@example.com", "nope")
	unknownEmail := s.login("ghost@example.com", "secret123")
	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, http.StatusBadRequest, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	w := s.login("", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)
	expired := utils.NewTokenIssuer("test-secret", -time.Minute)
	stale, err := expired.Issue(1)
	require.NoError(t, err)
	orphan, err := s.tokens.Issue(999)
	require.NoError(t, err)

	for _, path := range []string{"/me", "/transactions", "/summary", "/analytics/overview", "/analytics/categories", "/analytics/monthly", "/budgets"} {
		for name, token := range map[string]string{"missing": "", "garbage": "abc", "expired": stale, "unknown user": orphan} {
			t.Run(path+"/"+name, func(t *testing.T) {
				w := s.do(http.MethodGet, path, token, nil)
				assert.Equal(t, http.StatusUnauthorized, w.Code)
				assert.JSONEq(t, `{"error":"Could not validate credentials"}`, w.Body.String())
			})
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("ana@example.com")

	salary := s.createTx(token, gin.H{"description": "Salary", "amount": 1000, "kind": "income", "date": "2024-01-31"})
	assert.False(t, salary.Paid)
	assert.True(t, salary.Amount.Equal(decimal.NewFromInt(1000)))
	rent := s.createTx(token, gin.H{"description": "Rent", "amount": "1500.25", "kind": "expense", "category": "Housing", "date": "2024-02-01T09:00:00Z"})
	defaulted := s.createTx(token, gin.H{"description": "Coffee", "amount": 4.5})
	assert.Equal(t, domain.KindExpense, defaulted.Kind)
	assert.WithinDuration(t, time.Now(), defaulted.Date, time.Minute)

	w := s.do(http.MethodGet, "/transactions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.Transaction
	decode(t, w, &list)
	require.Len(t, list, 3)
	assert.Equal(t, []uint{defaulted.ID, rent.ID, salary.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})

	w = s.do(http.MethodPut, idPath("/transactions", rent.ID), token, gin.H{"description": "Rent (Feb)", "amount": 1400, "kind": "expense"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated domain.Transaction
	decode(t, w, &updated)
	assert.Equal(t, "Rent (Feb)", updated.Description)
	assert.Nil(t, updated.Category)
	assert.True(t, updated.Date.Equal(rent.Date))

	for i := 0; i < 2; i++ {
		w = s.do(http.MethodPatch, idPath("/transactions", rent.ID)+"/pay", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var paid domain.Transaction
		decode(t, w, &paid)
		assert.True(t, paid.Paid)
		assert.Equal(t, "Rent (Feb)", paid.Description)
	}

	w = s.do(http.MethodDelete, idPath("/transactions", defaulted.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":true}`, w.Body.String())
	w = s.do(http.MethodDelete, idPath("/transactions", defaulted.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Transaction not found"}`, w.Body.String())

	w = s.do(http.MethodGet, "/transactions", token, nil)
	decode(t, w, &list)
	assert.Len(t, list, 2)
}

func TestTransactionValidation(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("ana@example.com")

	bad := []gin.H{
		{"description": "x", "amount": 1, "kind": "ganho"},
		{"description": "x", "amount": -1, "kind": "income"},
		{"description": "x", "kind": "income"},
		{"amount": 1, "kind": "income"},
		{"description": "x", "amount": 1, "date": "31/01/2024"},
		{"description": "x", "amount": 1, "installment_total": 0},
	}
	for _, body := range bad {
		w := s.do(http.MethodPost, "/transactions", token, body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "%v -> %s", body, w.Body.String())
	}

	w := s.do(http.MethodPut, "/transactions/abc", token, gin.H{"description": "x", "amount": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = s.do(http.MethodPut, "/transactions/12345", token, gin.H{"description": "x", "amount": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPatch, "/transactions/12345/pay", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOwnershipIsolation(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register("alice@example.com")
	bob := s.register("bob@example.com")

	tx := s.createTx(alice, gin.H{"description": "Private", "amount": 10, "kind": "income"})
	w := s.do(http.MethodPost, "/budgets", alice, gin.H{"category": "Food", "amount": 100, "period": "2024-01"})
	require.Equal(t, http.StatusOK, w.Code)
	var budget domain.Budget
	decode(t, w, &budget)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, idPath("/transactions", tx.ID), bob, gin.H{"description": "x", "amount": 0}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPatch, idPath("/transactions", tx.ID)+"/pay", bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, idPath("/transactions", tx.ID), bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, idPath("/budgets", budget.ID), bob, gin.H{"category": "x", "amount": 1, "period": "2024-01"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, idPath("/budgets", budget.ID), bob, nil).Code)

	w = s.do(http.MethodGet, "/transactions", bob, nil)
	assert.JSONEq(t, `[]`, w.Body.String())
	w = s.do(http.MethodGet, "/budgets", bob, nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	var totals analytics.Totals
	decode(t, s.do(http.MethodGet, "/summary", bob, nil), &totals)
	assert.True(t, totals.TotalIncome.IsZero())

	var list []domain.Transaction
	decode(t, s.do(http.MethodGet, "/transactions", alice, nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Private", list[0].Description)
	assert.False(t, list[0].Paid)
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("ana@example.com")
	s.createTx(token, gin.H{"description": "Salary", "amount": 100, "kind": "income", "date": "2024-01-10", "category": "Work"})
	s.createTx(token, gin.H{"description": "Food", "amount": 40, "kind": "expense", "date": "2024-01-15", "category": "Food"})
	s.createTx(token, gin.H{"description": "Misc", "amount": 10, "kind": "expense", "date": "2024-02-01"})

	var summary analytics.Totals
	w := s.do(http.MethodGet, "/summary", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &summary)
	assert.True(t, summary.TotalIncome.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.TotalExpense.Equal(decimal.NewFromInt(50)))
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(50)))

	var again analytics.Totals
	decode(t, s.do(http.MethodGet, "/summary", token, nil), &again)
	assert.True(t, again.Balance.Equal(summary.Balance), "summary is idempotent")

	var overview analytics.Overview
	decode(t, s.do(http.MethodGet, "/analytics/overview", token, nil), &overview)
	assert.True(t, overview.Totals.Balance.Equal(summary.Balance))
	assert.True(t, overview.Totals.TotalIncome.Equal(summary.TotalIncome))

	var monthly map[string]analytics.Bucket
	decode(t, s.do(http.MethodGet, "/analytics/monthly", token, nil), &monthly)
	require.Len(t, monthly, 2)
	assert.True(t, monthly["2024-01"].Income.Equal(decimal.NewFromInt(100)))
	assert.True(t, monthly["2024-01"].Expense.Equal(decimal.NewFromInt(40)))
	assert.True(t, monthly["2024-02"].Income.IsZero())
	assert.True(t, monthly["2024-02"].Expense.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, len(monthly), len(overview.Monthly))

	var categories map[string]analytics.Bucket
	decode(t, s.do(http.MethodGet, "/analytics/categories", token, nil), &categories)
	assert.Len(t, categories, 3)
	assert.True(t, categories[analytics.Uncategorized].Expense.Equal(decimal.NewFromInt(10)))
	assert.True(t, categories["Work"].Income.Equal(decimal.NewFromInt(100)))
}

func TestBudgetEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("ana@example.com")

	w := s.do(http.MethodPost, "/budgets", token, gin.H{"category": "Food", "amount": 500, "period": "2025-12"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var b domain.Budget
	decode(t, w, &b)
	assert.Equal(t, "2025-12", b.Period)

	w = s.do(http.MethodPost, "/budgets", token, gin.H{"category": "Food", "amount": 500, "period": "December"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = s.do(http.MethodPost, "/budgets", token, gin.H{"category": "Food", "amount": -1, "period": "2025-12"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPut, idPath("/budgets", b.ID), token, gin.H{"category": "Groceries", "amount": 450, "period": "2025-12"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.Budget
	decode(t, w, &updated)
	assert.Equal(t, "Groceries", updated.Category)

	var list []domain.Budget
	decode(t, s.do(http.MethodGet, "/budgets", token, nil), &list)
	require.Len(t, list, 1)
	assert.True(t, list[0].Amount.Equal(decimal.NewFromInt(450)))

	w = s.do(http.MethodDelete, idPath("/budgets", b.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, idPath("/budgets", b.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Budget not found"}`, w.Body.String())
}

func TestListCachingIsInvalidatedByWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	s := newTestServer(t, rdb)
	token := s.register("ana@example.com")

	tx := s.createTx(token, gin.H{"description": "Salary", "amount": 100, "kind": "income"})

	w := s.do(http.MethodGet, "/transactions", token, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	w = s.do(http.MethodGet, "/transactions", token, nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	var cached []domain.Transaction
	decode(t, w, &cached)
	require.Len(t, cached, 1)
	assert.True(t, cached[0].Amount.Equal(decimal.NewFromInt(100)))

	w = s.do(http.MethodPatch, idPath("/transactions", tx.ID)+"/pay", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/transactions", token, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	decode(t, w, &cached)
	assert.True(t, cached[0].Paid)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, idPath("/transactions", tx.ID), token, nil).Code)
	w = s.do(http.MethodGet, "/transactions", token, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `[]`, w.Body.String())

	s.do(http.MethodGet, "/budgets", token, nil)
	assert.Equal(t, "HIT", s.do(http.MethodGet, "/budgets", token, nil).Header().Get("X-Cache"))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/budgets", token, gin.H{"category": "Food", "amount": 1, "period": "2024-01"}).Code)
	w = s.do(http.MethodGet, "/budgets", token, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	var budgets []domain.Budget
	decode(t, w, &budgets)
	assert.Len(t, budgets, 1)

	assert.True(t, mr.Exists(utils.ProfileCacheKey(1)), "token subjects are cached after the first lookup")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRegisterPasswordLimitCountsBytes(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"email": "ana@example.com", "password": strings.Repeat("é", 40)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.JSONEq(t, `{"error":"password must be at most 72 bytes"}`, w.Body.String())

	fits := strings.Repeat("é", 36)
	w = s.do(http.MethodPost, "/auth/register", "", gin.H{"email": "ana@example.com", "password": fits})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusOK, s.login("ana@example.com", fits).Code)
}

func TestAmountsAreServedAsJSONNumbers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	s := newTestServer(t, rdb)
	token := s.register("ana@example.com")

	w := s.do(http.MethodPost, "/transactions", token, gin.H{"description": "Rent", "amount": "1500.25", "kind": "income"})
	require.Equal(t, http.StatusOK, w.Code)
	var created map[string]json.RawMessage
	decode(t, w, &created)
	assert.Equal(t, "1500.25", string(created["amount"]))

	for _, cache := range []string{"MISS", "HIT"} {
		w = s.do(http.MethodGet, "/transactions", token, nil)
		require.Equal(t, cache, w.Header().Get("X-Cache"))
		var list []map[string]json.RawMessage
		decode(t, w, &list)
		require.Len(t, list, 1)
		assert.Equal(t, "1500.25", string(list[0]["amount"]), cache)
	}

	var totals map[string]json.RawMessage
	decode(t, s.do(http.MethodGet, "/summary", token, nil), &totals)
	assert.Equal(t, "1500.25", string(totals["total_income"]))
	assert.Equal(t, "0", string(totals["total_expense"]))
}

func TestSubCentAmountsAreRejected(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register("ana@example.com")

	w := s.do(http.MethodPost, "/transactions", token, gin.H{"description": "x", "amount": "1.005"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"amount must have at most 2 decimal places"}`, w.Body.String())

	w = s.do(http.MethodPost, "/budgets", token, gin.H{"category": "Food", "amount": 10.999, "period": "2024-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
