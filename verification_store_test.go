package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestVerificationStore(t *testing.T) *verificationStore {
	t.Helper()
	_, rdb := newTestRedis(t)
	return newVerificationStore(rdb, "avc")
}

func TestVerificationStoreCreateAndGet(t *testing.T) {
	store := newTestVerificationStore(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(10 * time.Minute).Unix()
	if err := store.Create(ctx, "u1", &verificationRecord{Code: "042000", ExpiresAt: expiresAt}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Code != "042000" {
		t.Fatalf("code = %q, leading zero lost", record.Code)
	}
	if record.ExpiresAt != expiresAt || record.SendCount != 0 {
		t.Fatalf("record = %+v", record)
	}

	if _, err := store.Get(ctx, "absent"); !errors.Is(err, errCodeRowNotFound) {
		t.Fatalf("Get(absent) error = %v, want errCodeRowNotFound", err)
	}
}

func TestVerificationStoreCreateReplacesRow(t *testing.T) {
	store := newTestVerificationStore(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(10 * time.Minute).Unix()
	if err := store.Create(ctx, "u1", &verificationRecord{Code: "111111", ExpiresAt: expiresAt, SendCount: 3}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if err := store.Create(ctx, "u1", &verificationRecord{Code: "222222", ExpiresAt: expiresAt}); err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Code != "222222" || record.SendCount != 0 {
		t.Fatalf("record = %+v, want fresh row", record)
	}
}

func TestVerificationStoreResendBudget(t *testing.T) {
	store := newTestVerificationStore(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(10 * time.Minute).Unix()

	// No row: behaves like a fresh issue.
	record, err := store.IssueOrResend(ctx, "u1", "100000", expiresAt, 3)
	if err != nil {
		t.Fatalf("initial IssueOrResend failed: %v", err)
	}
	if record.SendCount != 0 {
		t.Fatalf("SendCount = %d, want 0", record.SendCount)
	}

	for i := 1; i <= 3; i++ {
		record, err = store.IssueOrResend(ctx, "u1", "100001", expiresAt, 3)
		if err != nil {
			t.Fatalf("resend %d failed: %v", i, err)
		}
		if int(record.SendCount) != i {
			t.Fatalf("SendCount = %d, want %d", record.SendCount, i)
		}
	}

	if _, err := store.IssueOrResend(ctx, "u1", "100002", expiresAt, 3); !errors.Is(err, errResendExhausted) {
		t.Fatalf("over-budget error = %v, want errResendExhausted", err)
	}

	// The rejected attempt must not have replaced the code.
	record, err = store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Code != "100001" || record.SendCount != 3 {
		t.Fatalf("record = %+v, mutated by rejected resend", record)
	}
}

func TestVerificationStoreConsume(t *testing.T) {
	store := newTestVerificationStore(t)
	ctx := context.Background()

	now := time.Now().Unix()
	live := now + 600

	if err := store.Consume(ctx, "u1", "123456", now); !errors.Is(err, errCodeRowNotFound) {
		t.Fatalf("no-row error = %v, want errCodeRowNotFound", err)
	}

	if err := store.Create(ctx, "u1", &verificationRecord{Code: "123456", ExpiresAt: live}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Mismatch leaves the row alone.
	if err := store.Consume(ctx, "u1", "654321", now); !errors.Is(err, errCodeMismatch) {
		t.Fatalf("mismatch error = %v, want errCodeMismatch", err)
	}
	if _, err := store.Get(ctx, "u1"); err != nil {
		t.Fatalf("row gone after mismatch: %v", err)
	}

	// Match consumes the row.
	if err := store.Consume(ctx, "u1", "123456", now); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if _, err := store.Get(ctx, "u1"); !errors.Is(err, errCodeRowNotFound) {
		t.Fatalf("row survived consumption: %v", err)
	}
}

func TestVerificationStoreConsumeExpiredDeletes(t *testing.T) {
	store := newTestVerificationStore(t)
	ctx := context.Background()

	now := time.Now().Unix()
	if err := store.Create(ctx, "u1", &verificationRecord{Code: "123456", ExpiresAt: now - 1}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Consume(ctx, "u1", "123456", now); !errors.Is(err, errCodeRowExpired) {
		t.Fatalf("expired error = %v, want errCodeRowExpired", err)
	}
	if _, err := store.Get(ctx, "u1"); !errors.Is(err, errCodeRowNotFound) {
		t.Fatalf("expired row not deleted: %v", err)
	}
}

func TestVerificationRecordCodecRejectsCorruptData(t *testing.T) {
	cases := map[string][]byte{
		"empty":       {},
		"bad version": {9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, '1'},
		"truncated":   {verificationRecordVersionV1, 0, 0, 0},
		"short code":  {verificationRecordVersionV1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 6, '1', '2'},
	}
	for name, data := range cases {
		if _, err := decodeVerificationRecord(data); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}

	record := &verificationRecord{Code: "007321", ExpiresAt: 1234567890, SendCount: 2}
	encoded, err := encodeVerificationRecord(record)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := decodeVerificationRecord(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *decoded != *record {
		t.Fatalf("round trip = %+v, want %+v", decoded, record)
	}
}
