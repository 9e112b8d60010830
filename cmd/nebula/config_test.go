// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"reflect"
	"testing"
)

func TestParseConfigArg(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"5", float64(5)},
		{"true", true},
		{"hello", "hello"},
		{`"quoted"`, `"quoted"`},
		{`["a","b"]`, []any{"a", "b"}},
		{`{"k":1}`, map[string]any{"k": float64(1)}},
		{"not json {", "not json {"},
	}
	for _, tc := range cases {
		got := parseConfigArg(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("parseConfigArg(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestFormatConfigValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"plain", "plain"},
		{float64(5), "5"},
		{true, "true"},
		{[]any{"a", "b"}, `["a","b"]`},
	}
	for _, tc := range cases {
		if got := formatConfigValue(tc.in); got != tc.want {
			t.Fatalf("formatConfigValue(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
