// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package bsa

import (
	"fmt"

	"github.com/woozymasta/pathrules"
)

// entryMatcher holds compiled entry selection rules.
type entryMatcher struct {
	matcher *pathrules.Matcher
}

// newEntryMatcher compiles entry selection rules. It returns nil when no rules are set.
func newEntryMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*entryMatcher, error) {
	rules = normalizeFilterRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidFilterPattern, err)
	}

	return &entryMatcher{matcher: matcher}, nil
}

// normalizeFilterRules converts rule patterns to slash form and drops empty patterns.
func normalizeFilterRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether entry name is selected. A nil matcher selects everything.
func (m *entryMatcher) Match(name string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := normalizePathForMatching(name)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// FilterEntries keeps entries whose names are selected by rules.
// Names are matched in slash form, so "textures/**" selects "textures\tx_a.dds".
// Empty rules keep every entry.
func FilterEntries(entries []EntryInfo, rules []pathrules.Rule, opts pathrules.MatcherOptions) ([]EntryInfo, error) {
	matcher, err := newEntryMatcher(rules, withFilterDefaults(rules, opts))
	if err != nil {
		return nil, err
	}
	if matcher == nil {
		return entries, nil
	}

	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if matcher.Match(entry.Name) {
			out = append(out, entry)
		}
	}

	return out, nil
}

// withFilterDefaults fills zero-valued matcher options. Matching is
// case-insensitive, and the default action is exclude when any include rule
// is present, include otherwise.
func withFilterDefaults(rules []pathrules.Rule, opts pathrules.MatcherOptions) pathrules.MatcherOptions {
	if opts == (pathrules.MatcherOptions{}) {
		opts.CaseInsensitive = true
	}

	if opts.DefaultAction == pathrules.ActionUnknown {
		opts.DefaultAction = pathrules.ActionInclude
		for _, rule := range rules {
			if rule.Action == pathrules.ActionInclude {
				opts.DefaultAction = pathrules.ActionExclude
				break
			}
		}
	}

	return opts
}
