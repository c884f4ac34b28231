package transport

import (
	"testing"
)

func TestParseSetCookie(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []Cookie
	}{
		{
			name:   "single cookie",
			values: []string{"SAP_SESSIONID_A4H_100=abc123; path=/"},
			want:   []Cookie{{Name: "SAP_SESSIONID_A4H_100", Value: "abc123", Path: "/"}},
		},
		{
			name:   "folded cookies split on name boundary",
			values: []string{"sap-usercontext=sap-client=100; path=/, SAP_SESSIONID_A4H_100=xyz; path=/; HttpOnly"},
			want: []Cookie{
				{Name: "sap-usercontext", Value: "sap-client=100", Path: "/"},
				{Name: "SAP_SESSIONID_A4H_100", Value: "xyz", Path: "/"},
			},
		},
		{
			name:   "expires date comma not a boundary",
			values: []string{"MYSAPSSO2=token; expires=Mon, 02 Jan 2040 15:04:05 GMT; path=/; domain=.corp.example.com"},
			want:   []Cookie{{Name: "MYSAPSSO2", Value: "token", Domain: ".corp.example.com", Path: "/"}},
		},
		{
			name:   "multiple header values",
			values: []string{"a=1", "b=2; path=/sap"},
			want: []Cookie{
				{Name: "a", Value: "1"},
				{Name: "b", Value: "2", Path: "/sap"},
			},
		},
		{
			name:   "empty value kept",
			values: []string{"cleared=; path=/"},
			want:   []Cookie{{Name: "cleared", Value: "", Path: "/"}},
		},
		{
			name:   "garbage without equals ignored",
			values: []string{"notacookie"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSetCookie(tt.values)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d cookies, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("cookie %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestJar_OverwriteByName(t *testing.T) {
	jar := NewJar()
	jar.Set(Cookie{Name: "SAP_SESSIONID", Value: "old"})
	jar.Set(Cookie{Name: "SAP_SESSIONID", Value: "new"})

	if jar.Len() != 1 {
		t.Fatalf("got %d cookies, want 1", jar.Len())
	}
	c, ok := jar.Get("SAP_SESSIONID")
	if !ok || c.Value != "new" {
		t.Errorf("got %+v, want value %q", c, "new")
	}
}

func TestJar_Header(t *testing.T) {
	jar := NewJar()
	if jar.Header() != "" {
		t.Errorf("empty jar header should be empty, got %q", jar.Header())
	}

	jar.Set(Cookie{Name: "b", Value: "2"})
	jar.Set(Cookie{Name: "a", Value: "1"})

	// Sorted by name for deterministic output.
	if got, want := jar.Header(), "a=1; b=2"; got != want {
		t.Errorf("got header %q, want %q", got, want)
	}
}

func TestJar_Clear(t *testing.T) {
	jar := NewJar()
	jar.Set(Cookie{Name: "a", Value: "1"})
	jar.Clear()
	if jar.Len() != 0 {
		t.Errorf("jar not empty after Clear: %d", jar.Len())
	}
}
