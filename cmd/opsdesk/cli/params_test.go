// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

type bindTarget struct {
	JSONOutput
	Client   string         `flag:"client,c" desc:"client ID"`
	Limit    int            `flag:"limit" desc:"maximum results" default:"25"`
	Total    int64          `flag:"total" desc:"total seconds"`
	Wait     time.Duration  `flag:"wait" desc:"wait time" default:"2s"`
	Statuses []string       `flag:"status" desc:"statuses" default:"SCHEDULED,IN_PROGRESS"`
	Notes    OptionalString `flag:"notes" desc:"notes"`
	Auto     OptionalBool   `flag:"auto-schedule" desc:"spawn successor"`
	Interval OptionalInt    `flag:"interval" desc:"custom interval"`
	Ignored  string
}

func TestBindFlags_DefaultsAndParsing(t *testing.T) {
	var target bindTarget
	flagSet := FlagsFromParams("test", &target)

	if err := flagSet.Parse([]string{"-c", "acme", "--json", "--total", "90", "--notes", "", "--auto-schedule"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if target.Client != "acme" || !target.OutputJSON || target.Total != 90 {
		t.Errorf("parsed = %+v", target)
	}
	if target.Limit != 25 || target.Wait != 2*time.Second {
		t.Errorf("defaults: limit=%d wait=%s", target.Limit, target.Wait)
	}
	if strings.Join(target.Statuses, ",") != "SCHEDULED,IN_PROGRESS" {
		t.Errorf("statuses = %v", target.Statuses)
	}
	if !target.Notes.Given || target.Notes.Value != "" {
		t.Errorf("notes = %+v, want given and empty", target.Notes)
	}
	if !target.Auto.Given || !target.Auto.Value {
		t.Errorf("auto-schedule = %+v, want given true", target.Auto)
	}
	if target.Interval.Given {
		t.Errorf("interval = %+v, want not given", target.Interval)
	}
	if flagSet.Lookup("ignored") != nil {
		t.Error("untagged field bound as a flag")
	}
}

func TestBindFlags_OptionalValues(t *testing.T) {
	var target bindTarget
	flagSet := FlagsFromParams("test", &target)

	if err := flagSet.Parse([]string{"--auto-schedule=false", "--interval", "45"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !target.Auto.Given || target.Auto.Value {
		t.Errorf("auto-schedule = %+v, want given false", target.Auto)
	}
	if !target.Interval.Given || target.Interval.Value != 45 {
		t.Errorf("interval = %+v, want given 45", target.Interval)
	}

	var bad bindTarget
	if err := FlagsFromParams("test", &bad).Parse([]string{"--interval", "soon"}); err == nil {
		t.Error("Parse accepted a non-numeric interval")
	}
}

func TestBindFlags_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params any
	}{
		{name: "not a pointer", params: bindTarget{}},
		{name: "pointer to non-struct", params: new(string)},
		{name: "unsupported type", params: &struct {
			Ratio complex128 `flag:"ratio"`
		}{}},
		{name: "bad default", params: &struct {
			Limit int `flag:"limit" default:"many"`
		}{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := BindFlags(test.params, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
				t.Error("BindFlags() = nil, want error")
			}
		})
	}
}

func TestFlagsFromParams_PanicsOnProgrammingError(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FlagsFromParams did not panic")
		}
	}()
	FlagsFromParams("test", "not a struct")
}

func TestParseFlagTag(t *testing.T) {
	name, shorthand := parseFlagTag("client,c")
	if name != "client" || shorthand != "c" {
		t.Errorf("parseFlagTag = (%q, %q)", name, shorthand)
	}
	name, shorthand = parseFlagTag("json")
	if name != "json" || shorthand != "" {
		t.Errorf("parseFlagTag = (%q, %q)", name, shorthand)
	}
}
