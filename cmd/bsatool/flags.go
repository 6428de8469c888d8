// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsa

package main

import (
	"flag"
	"strings"

	"github.com/woozymasta/pathrules"
)

// ruleList collects ordered include/exclude rules from repeated flags.
type ruleList struct {
	rules []pathrules.Rule
}

// ruleFlag is a flag.Value appending rules with the action of template.
type ruleFlag struct {
	list     *ruleList
	template pathrules.Rule
}

// String implements flag.Value.
func (f ruleFlag) String() string {
	if f.list == nil {
		return ""
	}

	patterns := make([]string, 0, len(f.list.rules))
	for _, rule := range f.list.rules {
		if rule.Action == f.template.Action {
			patterns = append(patterns, rule.Pattern)
		}
	}

	return strings.Join(patterns, ",")
}

// Set implements flag.Value.
func (f ruleFlag) Set(pattern string) error {
	f.list.rules = append(f.list.rules, pathrules.Rule{Action: f.template.Action, Pattern: pattern})
	return nil
}

// register binds -include and -exclude flags to list.
func (l *ruleList) register(fs *flag.FlagSet) {
	fs.Var(ruleFlag{list: l, template: pathrules.Rule{Action: pathrules.ActionInclude}}, "include", "include entries matching glob `pattern` (repeatable)")
	fs.Var(ruleFlag{list: l, template: pathrules.Rule{Action: pathrules.ActionExclude}}, "exclude", "exclude entries matching glob `pattern` (repeatable)")
}

// matcherOptions matches case-insensitively and leaves the default action to
// the library: everything unless an include rule is present.
func (l *ruleList) matcherOptions() pathrules.MatcherOptions {
	return pathrules.MatcherOptions{CaseInsensitive: true}
}
