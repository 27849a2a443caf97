package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mobile-money-ledger/config"
	"mobile-money-ledger/internal/adapter/fx"
	httpHandler "mobile-money-ledger/internal/adapter/http/handler"
	"mobile-money-ledger/internal/adapter/notify"
	"mobile-money-ledger/internal/adapter/storage/memory"
	redisStorage "mobile-money-ledger/internal/adapter/storage/redis"
	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"
	"mobile-money-ledger/internal/service"
	"mobile-money-ledger/pkg/logger"
	"mobile-money-ledger/pkg/money"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testAESKey   = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	homeDevice   = "fp-home"
	loopbackAddr = "127.0.0.1"
)

// codeSink captures step-up codes instead of sending them.
type codeSink struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *codeSink) DeliverCode(_ context.Context, destination, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[destination] = code
	return nil
}

func (s *codeSink) last(owner uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[owner.String()]
}

// testApp wires the real HTTP stack, services and dispatcher over the
// in-memory store and miniredis.
type testApp struct {
	server     *httptest.Server
	redis      *miniredis.Miniredis
	store      *memory.Store
	accounts   ports.AccountRepository
	devices    ports.DeviceRepository
	tokens     ports.TokenService
	codes      *codeSink
	dispatcher *service.Dispatcher
	treasury   uuid.UUID
	admin      string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Dispatcher.RetryIntervals = []time.Duration{10 * time.Millisecond}

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.New("error", false)
	store := memory.NewStore()
	accounts := memory.NewAccountRepo(store)
	ledger := memory.NewLedgerRepo(store)
	transfers := memory.NewTransferRepo(store)
	devices := memory.NewDeviceRepo(store)
	counterparties := memory.NewCounterpartyRepo(store)

	treasury := uuid.New()
	require.NoError(t, service.EnsureTreasuryAccounts(context.Background(), accounts, treasury, []string{"HTG", "USD"}, log))

	encSvc, err := service.NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, 5*time.Minute, "test-issuer")
	rates, err := fx.NewStaticRateProvider(map[string]string{"USD/HTG": "135"})
	require.NoError(t, err)
	policy, err := service.RiskPolicyFromConfig(cfg.Risk)
	require.NoError(t, err)

	codes := &codeSink{codes: make(map[string]string)}
	dispatcher := service.NewDispatcher(cfg.Dispatcher, log)
	deviceTrust := service.NewDeviceTrustService(devices, 100, time.Minute, log)
	balances := service.NewBalanceService(accounts, ledger, redisStorage.NewBalanceCache(rdb), time.Minute, log)
	status := service.NewAccountStatusService(accounts, log)
	challenges := service.NewChallengeService(
		memory.NewChallengeRepo(store), store, service.NewArgon2HashService(), encSvc,
		tokenSvc, codes, deviceTrust, cfg.Challenge, log,
	)
	engine := service.NewTransferEngine(service.TransferEngineDeps{
		Accounts:   accounts,
		Ledger:     ledger,
		Transfers:  transfers,
		Transactor: store,
		Balances:   balances,
		Risk:       service.NewRiskService(devices, transfers, counterparties, memory.NewRiskRepo(store), policy, log),
		Challenges: challenges,
		Rates:      rates,
		Status:     status,
		Dispatcher: dispatcher,
	}, treasury, money.MustParse("0.0001"), log)
	idempotency := service.NewIdempotencyService(memory.NewIdempotencyRepo(store), redisStorage.NewIdempotencyCache(rdb), time.Hour, log)
	holds := service.NewHoldService(accounts, ledger, transfers, store, balances, dispatcher, treasury, log)

	dispatcher.Register("notify", service.NotificationHandler(notify.NewLogNotifier(log)))
	dispatcher.Register("audit", service.NewAuditService(memory.NewAuditRepo(store), log).Handle)
	dispatcher.Register("bookkeeping", service.BookkeepingHandler(counterparties, deviceTrust))
	dispatcher.Start()

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransferSvc:    service.NewTransferService(idempotency, engine),
		Balances:       balances,
		Challenges:     challenges,
		Holds:          holds,
		Status:         status,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{store, redisStorage.NewHealthCheck(rdb)},
		MetricsEnabled: true,
		Logger:         log,
	})

	adminToken, _, err := tokenSvc.Generate(uuid.New(), ports.RoleAdmin)
	require.NoError(t, err)

	app := &testApp{
		server:     httptest.NewServer(router),
		redis:      mr,
		store:      store,
		accounts:   accounts,
		devices:    devices,
		tokens:     tokenSvc,
		codes:      codes,
		dispatcher: dispatcher,
		treasury:   treasury,
		admin:      adminToken,
	}
	t.Cleanup(app.close)
	return app
}

func (a *testApp) close() {
	a.server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = a.dispatcher.Stop(ctx)
}

// user is an owner with a primary account and a bearer token.
type user struct {
	id      uuid.UUID
	account uuid.UUID
	token   string
}

// newUser opens a primary account in ccy. With a home device the owner's
// usual fingerprint and origin are already on file.
func (a *testApp) newUser(t *testing.T, ccy string, homeDeviceKnown bool) user {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	u := user{id: uuid.New(), account: uuid.New()}
	require.NoError(t, a.accounts.Create(ctx, &domain.Account{
		ID:        u.account,
		OwnerID:   u.id,
		Currency:  ccy,
		Role:      domain.AccountRoleUser,
		IsPrimary: true,
		Status:    domain.AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	if homeDeviceKnown {
		require.NoError(t, a.devices.Upsert(ctx, &domain.DeviceSession{
			ID:            uuid.New(),
			OwnerID:       u.id,
			Fingerprint:   homeDevice,
			NetworkOrigin: loopbackAddr,
			FirstSeenAt:   now,
			LastSeenAt:    now,
		}))
	}

	token, _, err := a.tokens.Generate(u.id, ports.RoleUser)
	require.NoError(t, err)
	u.token = token
	return u
}

type apiResponse struct {
	status int
	header http.Header
	body   map[string]interface{}
}

func (r apiResponse) data() map[string]interface{} {
	d, _ := r.body["data"].(map[string]interface{})
	return d
}

func (r apiResponse) errorCode() string {
	code, _ := r.body["error_code"].(string)
	return code
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, headers map[string]string) apiResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := apiResponse{status: resp.StatusCode, header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (a *testApp) cashIn(t *testing.T, owner uuid.UUID, amount, ccy string) {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/admin/cash-in", a.admin, map[string]string{
		"owner_id":  owner.String(),
		"amount":    amount,
		"currency":  ccy,
		"reference": "cashin-" + uuid.NewString(),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
}

func (a *testApp) transfer(t *testing.T, from user, to uuid.UUID, amount, ccy, key string, headers map[string]string) apiResponse {
	t.Helper()
	h := map[string]string{httpHandler.HeaderIdempotencyKey: key}
	for k, v := range headers {
		h[k] = v
	}
	return a.do(t, http.MethodPost, "/api/v1/transfers", from.token, map[string]string{
		"recipient_owner_id": to.String(),
		"amount":             amount,
		"from_currency":      ccy,
	}, h)
}

// balance returns total, available and held as decimal strings.
func (a *testApp) balance(t *testing.T, u user) (total, available, held string) {
	t.Helper()
	resp := a.do(t, http.MethodGet, "/api/v1/accounts/"+u.account.String()+"/balance", u.token, nil, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	d := resp.data()
	return d["total"].(string), d["available"].(string), d["held"].(string)
}

func fromHome() map[string]string {
	return map[string]string{httpHandler.HeaderDeviceFingerprint: homeDevice}
}
