package platform

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	errs "subscraper/pkg/errors"
	"subscraper/pkg/logger"
)

// DefaultRulesURL is the public source of the generic signing rules
const DefaultRulesURL = "https://raw.githubusercontent.com/deviint/onlyfans-dynamic-rules/main/dynamicRules.json"

// DynamicRules holds the request-signing parameters published out of band.
// The JSON keys match the community rules files so a cached copy from any
// scraper can be dropped in unchanged.
type DynamicRules struct {
	StaticParam      string `json:"static_param"`
	Start            string `json:"start"`
	End              string `json:"end"`
	ChecksumIndexes  []int  `json:"checksum_indexes"`
	ChecksumConstant int    `json:"checksum_constant"`
	AppToken         string `json:"app_token"`
}

// Validate checks that the rules carry everything Sign needs
func (r *DynamicRules) Validate() error {
	if r.StaticParam == "" {
		return errs.New(errs.ErrorTypeSigning, "rules missing static_param")
	}
	if len(r.ChecksumIndexes) == 0 {
		return errs.New(errs.ErrorTypeSigning, "rules missing checksum_indexes")
	}
	for _, idx := range r.ChecksumIndexes {
		if idx < 0 || idx >= 40 {
			return errs.New(errs.ErrorTypeSigning, fmt.Sprintf("checksum index %d out of range", idx))
		}
	}
	return nil
}

// Signer produces the sign/time/app-token headers required on API requests
type Signer struct {
	rules  *DynamicRules
	now    func() time.Time
	logger logger.Logger
	mu     sync.RWMutex
}

// NewSigner creates a signer over a fixed rule set (manual mode)
func NewSigner(rules *DynamicRules, log logger.Logger) (*Signer, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if rules == nil {
		return nil, errs.New(errs.ErrorTypeSigning, "no signing rules provided")
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	return &Signer{
		rules:  rules,
		now:    time.Now,
		logger: log,
	}, nil
}

// NewDynamicSigner fetches rules from the given URL (generic mode), falling
// back to a cached copy when the source is unreachable.
func NewDynamicSigner(ctx context.Context, rulesURL, cacheDir string, log logger.Logger) (*Signer, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if rulesURL == "" {
		rulesURL = DefaultRulesURL
	}

	rules, err := fetchRules(ctx, rulesURL)
	if err != nil {
		log.WarnWithFields("failed to fetch signing rules, trying cache", map[string]interface{}{
			"url":   rulesURL,
			"error": err.Error(),
		})
		rules, err = loadCachedRules(cacheDir)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeSigning, "no signing rules available", err)
		}
	} else if cacheDir != "" {
		if err := cacheRules(cacheDir, rules); err != nil {
			log.WithError(err).Warn("failed to cache signing rules")
		}
	}

	return NewSigner(rules, log)
}

// Rules returns the active rule set
func (s *Signer) Rules() *DynamicRules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// UpdateRules swaps in a fresh rule set
func (s *Signer) UpdateRules(rules *DynamicRules) error {
	if err := rules.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	return nil
}

// Sign computes the signed headers for a request path.
//
// The signature is a SHA-1 over static_param, unix time, the path with its
// query string, and the user id, joined by newlines. A checksum is the sum
// of the hex digest's bytes at checksum_indexes plus checksum_constant; the
// header is start:digest:checksum-in-hex:end.
func (s *Signer) Sign(rawURL string, userID string) (map[string]string, error) {
	s.mu.RLock()
	rules := s.rules
	s.mu.RUnlock()

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeSigning, "invalid url", err)
	}
	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	if userID == "" {
		userID = "0"
	}

	timestamp := strconv.FormatInt(s.now().UnixMilli(), 10)

	message := rules.StaticParam + "\n" + timestamp + "\n" + path + "\n" + userID
	digest := sha1.Sum([]byte(message))
	hexDigest := hex.EncodeToString(digest[:])

	checksum := rules.ChecksumConstant
	for _, idx := range rules.ChecksumIndexes {
		checksum += int(hexDigest[idx])
	}
	if checksum < 0 {
		checksum = -checksum
	}

	sign := fmt.Sprintf("%s:%s:%x:%s", rules.Start, hexDigest, checksum, rules.End)

	headers := map[string]string{
		"sign":    sign,
		"time":    timestamp,
		"user-id": userID,
	}
	if rules.AppToken != "" {
		headers["app-token"] = rules.AppToken
	}

	return headers, nil
}

// fetchRules downloads a rules file
func fetchRules(ctx context.Context, rulesURL string) (*DynamicRules, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rulesURL, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rules source returned status %d", resp.StatusCode)
	}

	var rules DynamicRules
	if err := json.NewDecoder(resp.Body).Decode(&rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}

	return &rules, nil
}

// rulesCachePath returns the cached rules location inside cacheDir
func rulesCachePath(cacheDir string) string {
	return filepath.Join(cacheDir, "dynamic_rules.json")
}

// cacheRules writes the rules to disk atomically
func cacheRules(cacheDir string, rules *DynamicRules) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return err
	}

	path := rulesCachePath(cacheDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// loadCachedRules reads a previously cached rules file
func loadCachedRules(cacheDir string) (*DynamicRules, error) {
	return LoadRulesFile(rulesCachePath(cacheDir))
}

// LoadRulesFile reads signing rules from a local JSON file. Manual
// mode points this at a user-maintained rules file.
func LoadRulesFile(path string) (*DynamicRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rules DynamicRules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}

	return &rules, nil
}
