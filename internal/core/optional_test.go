package core

import (
	"encoding/json"
	"errors"
	"testing"
)

type patch struct {
	Name   Optional[string]   `json:"name"`
	Groups Optional[[]string] `json:"groups"`
}

func TestOptionalDistinguishesAbsentNullAndEmpty(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSet     bool
		wantNull    bool
		wantPresent bool
		wantValue   string
	}{
		{name: "absent", body: `{}`},
		{name: "null", body: `{"name":null}`, wantSet: true, wantNull: true},
		{name: "empty string", body: `{"name":""}`, wantSet: true, wantPresent: true},
		{name: "value", body: `{"name":"general"}`, wantSet: true, wantPresent: true, wantValue: "general"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p patch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if p.Name.Set != tt.wantSet || p.Name.Null != tt.wantNull || p.Name.Present() != tt.wantPresent {
				t.Fatalf("unexpected optional state: %+v", p.Name)
			}
			if p.Name.Value != tt.wantValue {
				t.Fatalf("expected value %q, got %q", tt.wantValue, p.Name.Value)
			}
			if p.Groups.Set {
				t.Fatalf("groups should stay absent")
			}
		})
	}
}

func TestOptionalRejectsWrongType(t *testing.T) {
	var p patch
	if err := json.Unmarshal([]byte(`{"groups":"admins"}`), &p); err == nil {
		t.Fatalf("expected type error for non-array groups")
	}
}

func TestCoreErrorIsMatchesByCode(t *testing.T) {
	err := NewError(ErrCodeNoPrivileges, "custom message")
	if !errors.Is(err, ErrNoPrivileges) {
		t.Fatalf("expected custom no-privileges error to match sentinel")
	}
	if errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected no match across codes")
	}
	if Code(err) != ErrCodeNoPrivileges {
		t.Fatalf("unexpected code %q", Code(err))
	}
}
