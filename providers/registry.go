package providers

import (
	"fmt"
	"sort"
)

// Descriptors returns the built-in provider table.
func Descriptors() []Descriptor {
	return []Descriptor{
		Mistral(),
		Groq(),
		DeepSeek(),
		Gemini(),
	}
}

// Registry is the immutable mapping from provider name to Provider. It is
// built once at startup and is safe for concurrent reads.
type Registry struct {
	providers map[string]Provider
	names     []string
}

// NewRegistry binds each descriptor to its secret. secret is called once per
// descriptor with its EnvKey (os.Getenv in production). Missing secrets make a
// provider unavailable, not an error.
func NewRegistry(descriptors []Descriptor, secret func(envKey string) string) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Provider, len(descriptors)),
		names:     make([]string, 0, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("provider descriptor without a name")
		}
		if _, dup := r.providers[d.Name]; dup {
			return nil, fmt.Errorf("provider %s registered twice", d.Name)
		}
		if _, ok := authorizers[d.Auth]; !ok {
			return nil, fmt.Errorf("provider %s: unsupported auth mode %q", d.Name, d.Auth)
		}
		if d.Extract == nil {
			return nil, fmt.Errorf("provider %s: no response extractor", d.Name)
		}
		if d.Origin() == "" {
			return nil, fmt.Errorf("provider %s: invalid endpoint %q", d.Name, d.Endpoint)
		}
		r.providers[d.Name] = Provider{Descriptor: d, secret: secret(d.EnvKey)}
		r.names = append(r.names, d.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the named provider if it is registered and has a credential.
// The error distinguishes an unknown name from a known but uncredentialed one;
// both wrap ErrInvalidProvider.
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return Provider{}, ErrUnknownProvider
	}
	if !p.Available() {
		return Provider{}, ErrUnavailableProvider
	}
	return p, nil
}

// Get returns a provider by name and whether it was found, regardless of
// availability.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// List returns the names of all registered providers, sorted.
func (r *Registry) List() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Available returns the sorted names of providers that have a credential.
func (r *Registry) Available() []string {
	out := []string{}
	for _, name := range r.names {
		if r.providers[name].Available() {
			out = append(out, name)
		}
	}
	return out
}

// Origins returns the sorted, de-duplicated endpoint origins of every
// registered provider. The CSP connect-src list is built from this so the
// policy always covers exactly the hosts the relay may call.
func (r *Registry) Origins() []string {
	seen := make(map[string]struct{}, len(r.providers))
	var out []string
	for _, name := range r.names {
		o := r.providers[name].Origin()
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}
