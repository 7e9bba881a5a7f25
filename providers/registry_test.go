package providers

import (
	"errors"
	"testing"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestNewRegistry_Defaults(t *testing.T) {
	r, err := NewRegistry(Descriptors(), envFrom(map[string]string{
		"MISTRAL_KEY": "m",
		"GEMINI_KEY":  "g",
	}))
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	names := r.List()
	want := []string{"deepseek", "gemini", "groq", "mistral"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	avail := r.Available()
	if len(avail) != 2 || avail[0] != "gemini" || avail[1] != "mistral" {
		t.Errorf("Available() = %v, want [gemini mistral]", avail)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r, _ := NewRegistry(Descriptors(), envFrom(map[string]string{"GROQ_KEY": "k"}))

	p, err := r.Lookup("groq")
	if err != nil {
		t.Fatalf("Lookup(groq) error: %v", err)
	}
	if p.Name != "groq" || !p.Available() {
		t.Errorf("got %+v", p.Descriptor)
	}

	if _, err := r.Lookup("mistral"); !errors.Is(err, ErrUnavailableProvider) {
		t.Errorf("Lookup(mistral) error = %v, want ErrUnavailableProvider", err)
	}
	if _, err := r.Lookup("openai"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Lookup(openai) error = %v, want ErrUnknownProvider", err)
	}
	if _, err := r.Lookup(""); !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("Lookup(\"\") error = %v, want ErrInvalidProvider", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	r, _ := NewRegistry(Descriptors(), envFrom(nil))
	p, ok := r.Get("gemini")
	if !ok {
		t.Fatal("expected gemini to be registered")
	}
	if p.Available() {
		t.Error("gemini should be unavailable without a key")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected not found")
	}
}

func TestRegistry_Origins(t *testing.T) {
	r, _ := NewRegistry(Descriptors(), envFrom(nil))
	want := []string{
		"https://api.deepseek.com",
		"https://api.groq.com",
		"https://api.mistral.ai",
		"https://generativelanguage.googleapis.com",
	}
	got := r.Origins()
	if len(got) != len(want) {
		t.Fatalf("Origins() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Origins()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistry_OriginsDeduplicated(t *testing.T) {
	a := Groq()
	b := Groq()
	b.Name = "groq-mirror"
	r, err := NewRegistry([]Descriptor{a, b}, envFrom(nil))
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	if got := r.Origins(); len(got) != 1 {
		t.Errorf("Origins() = %v, want one entry", got)
	}
}

func TestNewRegistry_Invalid(t *testing.T) {
	noExtract := Mistral()
	noExtract.Extract = nil
	badAuth := Mistral()
	badAuth.Auth = "magic"
	badEndpoint := Mistral()
	badEndpoint.Endpoint = "/relative"

	tests := []struct {
		name  string
		descs []Descriptor
	}{
		{"duplicate", []Descriptor{Mistral(), Mistral()}},
		{"unnamed", []Descriptor{{Endpoint: "https://x", Auth: AuthNone, Extract: ExtractPath("a")}}},
		{"no extractor", []Descriptor{noExtract}},
		{"bad auth", []Descriptor{badAuth}},
		{"bad endpoint", []Descriptor{badEndpoint}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.descs, envFrom(nil)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRegistry_ListIsCopy(t *testing.T) {
	r, _ := NewRegistry(Descriptors(), envFrom(nil))
	names := r.List()
	names[0] = "mutated"
	if r.List()[0] == "mutated" {
		t.Error("List() must not expose internal state")
	}
}
