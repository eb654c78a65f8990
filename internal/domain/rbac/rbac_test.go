package rbac

import (
	"testing"
)

func TestSubsumes(t *testing.T) {
	tests := []struct {
		name     string
		have     Role
		required Role
		want     bool
	}{
		{name: "admin покрывает admin", have: RoleAdmin, required: RoleAdmin, want: true},
		{name: "admin покрывает support", have: RoleAdmin, required: RoleSupport, want: true},
		{name: "admin покрывает user", have: RoleAdmin, required: RoleUser, want: true},
		{name: "support не покрывает admin", have: RoleSupport, required: RoleAdmin, want: false},
		{name: "support покрывает support", have: RoleSupport, required: RoleSupport, want: true},
		{name: "support покрывает user", have: RoleSupport, required: RoleUser, want: true},
		{name: "user не покрывает admin", have: RoleUser, required: RoleAdmin, want: false},
		{name: "user не покрывает support", have: RoleUser, required: RoleSupport, want: false},
		{name: "user покрывает user", have: RoleUser, required: RoleUser, want: true},
		{name: "неизвестная роль ничего не покрывает", have: Role("root"), required: RoleUser, want: false},
		{name: "неизвестная требуемая роль", have: RoleAdmin, required: Role("root"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subsumes(tt.have, tt.required)
			if got != tt.want {
				t.Errorf("Subsumes(%q, %q) = %v, хотели %v", tt.have, tt.required, got, tt.want)
			}
		})
	}
}

// TestHierarchy_TotalAndReflexive - отображение полное, каждое множество содержит саму роль.
func TestHierarchy_TotalAndReflexive(t *testing.T) {
	for _, r := range AllRoles() {
		set := Hierarchy(r)
		if len(set) == 0 {
			t.Fatalf("Hierarchy(%q) пустое", r)
		}
		found := false
		for _, s := range set {
			if s == r {
				found = true
			}
		}
		if !found {
			t.Errorf("Hierarchy(%q) = %v не содержит саму роль", r, set)
		}
	}

	if got := Hierarchy(Role("root")); len(got) != 0 {
		t.Errorf("Hierarchy(root) = %v, хотели пустое множество", got)
	}
}

// TestHierarchy_ReturnsCopy - изменение результата не влияет на модель.
func TestHierarchy_ReturnsCopy(t *testing.T) {
	set := Hierarchy(RoleAdmin)
	set[0] = RoleUser

	if !Subsumes(RoleAdmin, RoleAdmin) {
		t.Error("изменение копии повлияло на иерархию")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input  string
		want   Role
		wantOK bool
	}{
		{input: "admin", want: RoleAdmin, wantOK: true},
		{input: "support", want: RoleSupport, wantOK: true},
		{input: "user", want: RoleUser, wantOK: true},
		{input: "Admin", want: "", wantOK: false},
		{input: "", want: "", wantOK: false},
		{input: "superuser", want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseRole(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseRole(%q) = (%q, %v), хотели (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRoleOrDefault(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Role
	}{
		{name: "пустая роль -> user", input: "", want: RoleUser},
		{name: "неизвестная роль сохраняется", input: "owner", want: Role("owner")},
		{name: "support сохраняется", input: "support", want: RoleSupport},
		{name: "admin сохраняется", input: "admin", want: RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleOrDefault(tt.input); got != tt.want {
				t.Errorf("RoleOrDefault(%q) = %q, хотели %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestRoleOrDefault_UnknownFailsClosed - повреждённая роль не даёт никаких прав.
func TestRoleOrDefault_UnknownFailsClosed(t *testing.T) {
	r := RoleOrDefault("owner")
	for _, required := range AllRoles() {
		if Subsumes(r, required) {
			t.Errorf("Subsumes(%q, %q) = true, хотели false", r, required)
		}
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range AllRoles() {
		if !IsValidRole(string(r)) {
			t.Errorf("IsValidRole(%q) = false", r)
		}
	}
	if IsValidRole("readonly") {
		t.Error("IsValidRole(readonly) = true, хотели false")
	}
}
