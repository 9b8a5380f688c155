// Package rulestore manages the per-group whitelist rule files held in an
// externally versioned store. Writes are optimistic: read a version, write
// against it, retry from a fresh read on conflict.
package rulestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/pkg/slogx"
)

// ErrConflict reports that the compare-and-swap write kept losing to
// concurrent writers until the retry budget ran out.
var ErrConflict = errors.New("rulestore: write conflict after retries")

const defaultMaxRetries = 3

// Service wraps a Backend with the rule-file semantics: JSON encoding,
// domain dedup/normalization, and the bounded CAS retry loop.
type Service struct {
	Backend Backend

	// MaxRetries bounds how many fresh reads a conflicting AddDomain gets
	// before surfacing ErrConflict. Zero means the default of 3.
	MaxRetries int
}

func groupPath(groupID string) string {
	return path.Join("groups", groupID+".json")
}

func groupFromPath(p string) (string, bool) {
	name := path.Base(p)
	if !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}

// Read returns the current rule file for a group along with its version.
func (s *Service) Read(ctx context.Context, groupID string) (domain.RuleFile, error) {
	content, sha, err := s.Backend.Get(ctx, groupPath(groupID))
	if err != nil {
		return domain.RuleFile{}, err
	}
	return decodeRuleFile(groupID, content, sha)
}

// ListGroups returns the group ids that have a rule file.
func (s *Service) ListGroups(ctx context.Context) ([]string, error) {
	paths, err := s.Backend.List(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(paths))
	for _, p := range paths {
		if g, ok := groupFromPath(p); ok {
			groups = append(groups, g)
		}
	}
	sort.Strings(groups)
	return groups, nil
}

// AddDomain adds a normalized domain to a group's whitelist with a
// compare-and-swap write. Adding a domain that is already present succeeds
// without writing, which is what makes retried approvals safe. A missing
// rule file is created enabled and empty.
func (s *Service) AddDomain(ctx context.Context, groupID, dom string) error {
	dom = domain.NormalizeDomain(dom)
	log := slogx.FromContext(ctx)

	retries := s.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	for attempt := 0; attempt <= retries; attempt++ {
		file, err := s.readOrInit(ctx, groupID)
		if err != nil {
			return err
		}

		if file.ContainsDomain(dom) {
			return nil
		}

		file.Whitelist = append(file.Whitelist, dom)
		sort.Strings(file.Whitelist)

		content, err := json.MarshalIndent(file, "", "  ")
		if err != nil {
			return fmt.Errorf("rulestore: encode rule file: %w", err)
		}

		_, err = s.Backend.Put(ctx, groupPath(groupID), content, file.SHA)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStaleVersion) {
			return err
		}

		log.Debug("rule file version raced, retrying from fresh read",
			"group_id", groupID,
			"domain", dom,
			"attempt", attempt+1,
		)
	}

	return fmt.Errorf("%w: group %s", ErrConflict, groupID)
}

// BlockMatch is the result of a block-rule lookup.
type BlockMatch struct {
	Blocked     bool
	MatchedRule string
}

// IsDomainBlocked pattern-matches a domain against the group's explicit
// block rules. Read-only; version races don't matter here.
func (s *Service) IsDomainBlocked(ctx context.Context, groupID, dom string) (BlockMatch, error) {
	dom = domain.NormalizeDomain(dom)

	file, err := s.Read(ctx, groupID)
	if errors.Is(err, ErrNotFound) {
		return BlockMatch{}, nil
	}
	if err != nil {
		return BlockMatch{}, err
	}

	for _, pattern := range file.BlockedSubdomains {
		if matchSubdomainPattern(pattern, dom) {
			return BlockMatch{Blocked: true, MatchedRule: pattern}, nil
		}
	}

	// A blocked-path rule with no path component blocks the whole host.
	for _, pattern := range file.BlockedPaths {
		host, rest, _ := strings.Cut(pattern, "/")
		if rest != "" && rest != "/" {
			continue
		}
		if matchSubdomainPattern(host, dom) {
			return BlockMatch{Blocked: true, MatchedRule: pattern}, nil
		}
	}

	return BlockMatch{}, nil
}

// Export returns the whitelist for a group as plain lines, the projection
// client machines consume.
func (s *Service) Export(ctx context.Context, groupID string) ([]string, error) {
	file, err := s.Read(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !file.Enabled {
		return nil, nil
	}

	out := make([]string, len(file.Whitelist))
	copy(out, file.Whitelist)
	sort.Strings(out)
	return out, nil
}

func (s *Service) readOrInit(ctx context.Context, groupID string) (domain.RuleFile, error) {
	file, err := s.Read(ctx, groupID)
	if errors.Is(err, ErrNotFound) {
		return domain.RuleFile{GroupID: groupID, Enabled: true}, nil
	}
	return file, err
}

func decodeRuleFile(groupID string, content []byte, sha string) (domain.RuleFile, error) {
	var file domain.RuleFile
	if err := json.Unmarshal(content, &file); err != nil {
		return domain.RuleFile{}, fmt.Errorf("rulestore: decode rule file for %s: %w", groupID, err)
	}
	file.GroupID = groupID
	file.SHA = sha

	// Whitelists written by older tooling may carry duplicates or mixed
	// case; normalize on read so comparisons stay exact.
	seen := make(map[string]struct{}, len(file.Whitelist))
	normalized := file.Whitelist[:0]
	for _, d := range file.Whitelist {
		d = domain.NormalizeDomain(d)
		if _, ok := seen[d]; ok || d == "" {
			continue
		}
		seen[d] = struct{}{}
		normalized = append(normalized, d)
	}
	file.Whitelist = normalized

	return file, nil
}

// matchSubdomainPattern reports whether a blocked-subdomain pattern matches
// the domain. "*.example.com" matches any subdomain of example.com but not
// example.com itself; a bare "example.com" matches the host and all of its
// subdomains.
func matchSubdomainPattern(pattern, dom string) bool {
	pattern = domain.NormalizeDomain(pattern)
	if pattern == "" {
		return false
	}

	if rest, ok := strings.CutPrefix(pattern, "*."); ok {
		return strings.HasSuffix(dom, "."+rest)
	}

	return dom == pattern || strings.HasSuffix(dom, "."+pattern)
}
