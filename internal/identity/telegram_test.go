package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

const testBotToken = "123456:test-bot-token"

func signInitData(t *testing.T, values url.Values, botToken string) string {
	t.Helper()

	var dataCheck []string
	for k, v := range values {
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)

	secret := sha256.Sum256([]byte(botToken))
	h := hmac.New(sha256.New, secret[:])
	h.Write([]byte(strings.Join(dataCheck, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

func buildInitData(t *testing.T, authDate int64) string {
	t.Helper()

	values := url.Values{}
	values.Set("user", `{"id":777,"first_name":"Test","username":"tester"}`)
	values.Set("auth_date", strconv.FormatInt(authDate, 10))

	hash := signInitData(t, values, testBotToken)
	values.Set("hash", hash)
	return values.Encode()
}

func TestValidateTelegramInitDataAccepts(t *testing.T) {
	initData := buildInitData(t, time.Now().Unix())

	values, ok := ValidateTelegramInitData(initData, testBotToken)
	if !ok {
		t.Fatal("expected valid init data to be accepted")
	}
	if got := values.Get("user"); !strings.Contains(got, `"id":777`) {
		t.Fatalf("user payload = %q; want id 777", got)
	}
}

func TestValidateTelegramInitDataRejectsTampering(t *testing.T) {
	initData := buildInitData(t, time.Now().Unix())
	tampered := strings.Replace(initData, "777", "778", 1)

	if _, ok := ValidateTelegramInitData(tampered, testBotToken); ok {
		t.Fatal("tampered init data must be rejected")
	}
}

func TestValidateTelegramInitDataRejectsWrongToken(t *testing.T) {
	initData := buildInitData(t, time.Now().Unix())

	if _, ok := ValidateTelegramInitData(initData, "other:token"); ok {
		t.Fatal("init data signed with a different token must be rejected")
	}
}

func TestValidateTelegramInitDataRejectsStale(t *testing.T) {
	initData := buildInitData(t, time.Now().Add(-2*time.Hour).Unix())

	if _, ok := ValidateTelegramInitData(initData, testBotToken); ok {
		t.Fatal("init data older than an hour must be rejected")
	}
}

func TestValidateTelegramInitDataRejectsMissingHash(t *testing.T) {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))

	if _, ok := ValidateTelegramInitData(values.Encode(), testBotToken); ok {
		t.Fatal("init data without a hash must be rejected")
	}
}
