package platform

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"subscraper/pkg/logger"
)

func testRules() *DynamicRules {
	return &DynamicRules{
		StaticParam:      "test_static_param",
		Start:            "1122",
		End:              "3344",
		ChecksumIndexes:  []int{0, 3, 7, 11, 19, 23, 31, 39},
		ChecksumConstant: -42,
		AppToken:         "token123",
	}
}

func fixedSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(testRules(), logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestSignerHeaders(t *testing.T) {
	s := fixedSigner(t)

	headers, err := s.Sign(BaseURL+"/api2/v2/users/me", "12345")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if headers["time"] != "1700000000000" {
		t.Errorf("time header = %q, want 1700000000000", headers["time"])
	}
	if headers["user-id"] != "12345" {
		t.Errorf("user-id header = %q, want 12345", headers["user-id"])
	}
	if headers["app-token"] != "token123" {
		t.Errorf("app-token header = %q", headers["app-token"])
	}

	parts := strings.Split(headers["sign"], ":")
	if len(parts) != 4 {
		t.Fatalf("sign header has %d segments, want 4: %q", len(parts), headers["sign"])
	}
	if parts[0] != "1122" || parts[3] != "3344" {
		t.Errorf("sign header affixes = %q/%q, want 1122/3344", parts[0], parts[3])
	}
	if len(parts[1]) != 40 {
		t.Errorf("sign digest length = %d, want 40", len(parts[1]))
	}
}

func TestSignerDigestAndChecksum(t *testing.T) {
	s := fixedSigner(t)
	rules := testRules()

	headers, err := s.Sign(BaseURL+"/api2/v2/users/me?limit=50", "777")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	// Recompute the expected digest over the documented message layout.
	message := rules.StaticParam + "\n1700000000000\n/api2/v2/users/me?limit=50\n777"
	digest := sha1.Sum([]byte(message))
	wantHex := hex.EncodeToString(digest[:])

	parts := strings.Split(headers["sign"], ":")
	if parts[1] != wantHex {
		t.Errorf("sign digest = %q, want %q", parts[1], wantHex)
	}

	checksum := rules.ChecksumConstant
	for _, idx := range rules.ChecksumIndexes {
		checksum += int(wantHex[idx])
	}
	if checksum < 0 {
		checksum = -checksum
	}
	if parts[2] != fmt.Sprintf("%x", checksum) {
		t.Errorf("sign checksum = %q, want %x", parts[2], checksum)
	}
}

func TestSignerDeterministic(t *testing.T) {
	s := fixedSigner(t)

	first, err := s.Sign(BaseURL+"/api2/v2/users/me", "1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Sign(BaseURL+"/api2/v2/users/me", "1")
	if err != nil {
		t.Fatal(err)
	}
	if first["sign"] != second["sign"] {
		t.Error("same input with fixed clock should sign identically")
	}

	other, err := s.Sign(BaseURL+"/api2/v2/users/42/posts", "1")
	if err != nil {
		t.Fatal(err)
	}
	if first["sign"] == other["sign"] {
		t.Error("different paths should produce different signatures")
	}
}

func TestSignerEmptyUserID(t *testing.T) {
	s := fixedSigner(t)

	headers, err := s.Sign(BaseURL+"/api2/v2/users/me", "")
	if err != nil {
		t.Fatal(err)
	}
	if headers["user-id"] != "0" {
		t.Errorf("empty user id should sign as 0, got %q", headers["user-id"])
	}
}

func TestRulesValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DynamicRules)
		wantErr bool
	}{
		{"complete", func(r *DynamicRules) {}, false},
		{"missing static_param", func(r *DynamicRules) { r.StaticParam = "" }, true},
		{"empty indexes", func(r *DynamicRules) { r.ChecksumIndexes = nil }, true},
		{"index out of range", func(r *DynamicRules) { r.ChecksumIndexes = []int{40} }, true},
		{"negative index", func(r *DynamicRules) { r.ChecksumIndexes = []int{-1} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRules()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDynamicSignerFetchAndCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"static_param": "fetched_param",
			"start": "aa",
			"end": "bb",
			"checksum_indexes": [1, 2, 3],
			"checksum_constant": 5,
			"app_token": "tok"
		}`))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	s, err := NewDynamicSigner(context.Background(), server.URL, cacheDir, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewDynamicSigner() error = %v", err)
	}
	if s.Rules().StaticParam != "fetched_param" {
		t.Errorf("rules static_param = %q", s.Rules().StaticParam)
	}

	// Second construction with a dead source must fall back to the cache.
	server.Close()
	cached, err := NewDynamicSigner(context.Background(), server.URL, cacheDir, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("cached NewDynamicSigner() error = %v", err)
	}
	if cached.Rules().StaticParam != "fetched_param" {
		t.Errorf("cached rules static_param = %q", cached.Rules().StaticParam)
	}
}

func TestNewDynamicSignerNoSource(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close()

	_, err := NewDynamicSigner(context.Background(), server.URL, t.TempDir(), logger.NewNopLogger())
	if err == nil {
		t.Error("expected error with dead source and empty cache")
	}
}
