package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAccount_IsFrozen(t *testing.T) {
	assert.False(t, (&Account{Status: AccountStatusActive}).IsFrozen())
	assert.True(t, (&Account{Status: AccountStatusFrozen}).IsFrozen())
}

func TestEntryType_IsMemo(t *testing.T) {
	tests := []struct {
		typ  EntryType
		memo bool
	}{
		{EntryTransferDebit, false},
		{EntryTransferCredit, false},
		{EntryFeeDebit, false},
		{EntryFXCredit, false},
		{EntryHoldDebit, true},
		{EntryHoldRelease, true},
		{EntryHoldSeize, false},
		{EntrySeizureCredit, false},
		{EntryCashIn, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.memo, tt.typ.IsMemo())
		})
	}
}

func TestBalanceFromSums(t *testing.T) {
	acct := uuid.New()

	tests := []struct {
		name      string
		sums      EntrySums
		total     string
		available string
		held      string
	}{
		{
			name:  "empty account",
			sums:  EntrySums{},
			total: "0", available: "0", held: "0",
		},
		{
			name: "completed transfer out",
			sums: EntrySums{
				EntryCashIn:        dec("1000"),
				EntryTransferDebit: dec("-300"),
			},
			total: "700", available: "700", held: "0",
		},
		{
			name: "open hold leaves total untouched",
			sums: EntrySums{
				EntryCashIn:    dec("10000"),
				EntryHoldDebit: dec("-5000"),
			},
			total: "10000", available: "5000", held: "5000",
		},
		{
			name: "released hold",
			sums: EntrySums{
				EntryCashIn:      dec("10000"),
				EntryHoldDebit:   dec("-5000"),
				EntryHoldRelease: dec("5000"),
			},
			total: "10000", available: "10000", held: "0",
		},
		{
			name: "seized hold",
			sums: EntrySums{
				EntryCashIn:    dec("10000"),
				EntryHoldDebit: dec("-5000"),
				EntryHoldSeize: dec("-5000"),
			},
			total: "5000", available: "5000", held: "0",
		},
		{
			name: "more releases than holds is clamped",
			sums: EntrySums{
				EntryCashIn:      dec("100"),
				EntryHoldDebit:   dec("-10"),
				EntryHoldRelease: dec("50"),
			},
			total: "100", available: "100", held: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BalanceFromSums(acct, tt.sums)
			assert.Equal(t, acct, b.AccountID)
			assert.True(t, b.Total.Equal(dec(tt.total)), "total %s", b.Total)
			assert.True(t, b.Available.Equal(dec(tt.available)), "available %s", b.Available)
			assert.True(t, b.Held.Equal(dec(tt.held)), "held %s", b.Held)
			assert.True(t, b.Available.Equal(b.Total.Sub(b.Held)))
			assert.False(t, b.Held.IsNegative())
		})
	}
}

func TestSumsFromEntries(t *testing.T) {
	acct := uuid.New()
	tr := uuid.New()
	now := time.Now()
	entries := []LedgerEntry{
		NewEntry(acct, dec("1000"), EntryCashIn, tr, "", now),
		NewEntry(acct, dec("-300"), EntryTransferDebit, tr, "", now),
		NewEntry(acct, dec("-200"), EntryTransferDebit, tr, "", now),
	}

	sums := SumsFromEntries(entries)
	assert.True(t, sums[EntryTransferDebit].Equal(dec("-500")))
	assert.True(t, sums[EntryCashIn].Equal(dec("1000")))
}

func TestSettledSum_IgnoresMemo(t *testing.T) {
	tr := uuid.New()
	now := time.Now()
	entries := []LedgerEntry{
		NewEntry(uuid.New(), dec("-300"), EntryTransferDebit, tr, "", now),
		NewEntry(uuid.New(), dec("300"), EntryTransferCredit, tr, "", now),
		NewEntry(uuid.New(), dec("-50"), EntryHoldDebit, tr, "", now),
	}
	assert.True(t, SettledSum(entries).IsZero())
}

func TestNewEntry_Reference(t *testing.T) {
	tr := uuid.New()
	e := NewEntry(uuid.New(), dec("1"), EntryHoldDebit, tr, HoldReference(tr), time.Now())
	assert.NotNil(t, e.Reference)
	assert.Equal(t, "hold:"+tr.String(), *e.Reference)
	assert.Equal(t, tr, *e.TransferID)

	plain := NewEntry(uuid.New(), dec("1"), EntryCashIn, tr, "", time.Now())
	assert.Nil(t, plain.Reference)
}

func TestFXReference(t *testing.T) {
	assert.Equal(t, "fx:USD/HTG@135", FXReference("USD", "HTG", dec("135")))
}

func TestTransfer_Helpers(t *testing.T) {
	tr := &Transfer{
		Amount:     dec("100"),
		Fee:        dec("2.5"),
		Currency:   "USD",
		ToCurrency: "HTG",
		Status:     TransferStatusPendingReview,
	}
	assert.True(t, tr.IsCrossCurrency())
	assert.True(t, tr.Debited().Equal(dec("102.5")))
	assert.True(t, tr.IsPendingReview())
}

func TestTransferRequest_DestinationCurrency(t *testing.T) {
	assert.Equal(t, "HTG", TransferRequest{FromCurrency: "HTG"}.DestinationCurrency())
	assert.Equal(t, "USD", TransferRequest{FromCurrency: "HTG", ToCurrency: "USD"}.DestinationCurrency())
}

func TestReceiptFor(t *testing.T) {
	id := uuid.New()
	completed := ReceiptFor(&Transfer{ID: id, Status: TransferStatusCompleted})
	assert.Equal(t, OutcomeCompleted, completed.Outcome)
	assert.Equal(t, id, *completed.TransferID)

	held := ReceiptFor(&Transfer{ID: id, Status: TransferStatusPendingReview})
	assert.Equal(t, OutcomeHeld, held.Outcome)
}

func TestHoldDecision_IsValid(t *testing.T) {
	assert.True(t, HoldRelease.IsValid())
	assert.True(t, HoldSeize.IsValid())
	assert.False(t, HoldDecision("refund").IsValid())
}

func TestClassifyScore(t *testing.T) {
	tests := []struct {
		score  int
		level  RiskLevel
		action RiskAction
	}{
		{0, RiskLevelLow, RiskActionAllow},
		{39, RiskLevelLow, RiskActionAllow},
		{40, RiskLevelMedium, RiskActionChallenge},
		{69, RiskLevelMedium, RiskActionChallenge},
		{70, RiskLevelHigh, RiskActionBlock},
		{85, RiskLevelHigh, RiskActionBlock},
		{90, RiskLevelHigh, RiskActionFreeze},
		{95, RiskLevelHigh, RiskActionFreeze},
		{100, RiskLevelHigh, RiskActionFreeze},
	}

	for _, tt := range tests {
		level, action := ClassifyScore(tt.score)
		assert.Equal(t, tt.level, level, "score %d", tt.score)
		assert.Equal(t, tt.action, action, "score %d", tt.score)
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-20))
	assert.Equal(t, 55, ClampScore(55))
	assert.Equal(t, 100, ClampScore(180))
}

func TestChallenge_State(t *testing.T) {
	now := time.Now()
	c := &Challenge{Status: ChallengePending, ExpiresAt: now.Add(5 * time.Minute)}
	assert.True(t, c.IsPending())
	assert.False(t, c.IsExpiredAt(now))
	assert.True(t, c.IsExpiredAt(now.Add(5*time.Minute)))
}

func TestBuildIdempotencyKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000:intent-1", BuildIdempotencyKey(id, "intent-1"))
}

func TestDeviceKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000|fp|10.0.0.1", DeviceKey(id, "fp", "10.0.0.1"))
}

func TestAuditFromEvent(t *testing.T) {
	tr := uuid.New()
	evt := OutboundEvent{
		ID:         uuid.New(),
		Type:       EventTransferCompleted,
		OwnerID:    uuid.New(),
		TransferID: &tr,
		Amount:     dec("300"),
		Currency:   "HTG",
		Status:     string(TransferStatusCompleted),
		OccurredAt: time.Now(),
	}
	rec := AuditFromEvent(evt, time.Now())
	assert.Equal(t, evt.ID, rec.EventID)
	assert.Equal(t, "300", rec.Amount)
	assert.Equal(t, &tr, rec.TransferID)
}
