package provider

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewChainKeepsOrderAndWrapsSerialized(t *testing.T) {
	chain, err := NewChain([]Descriptor{
		{Name: "first", Kind: KindHTTP, Endpoint: "http://example.test/openai"},
		{Name: "second", Kind: KindMock, Serialize: true},
	})
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}
	if len(chain) != 2 || chain[0].Name() != "first" || chain[1].Name() != "second" {
		t.Fatalf("chain order = %v", chain)
	}
	if _, ok := chain[0].(*HTTPProvider); !ok {
		t.Fatalf("chain[0] = %T, want *HTTPProvider", chain[0])
	}
	if _, ok := chain[1].(*Serialized); !ok {
		t.Fatalf("chain[1] = %T, want *Serialized", chain[1])
	}
}

func TestNewChainRejectsBadDescriptors(t *testing.T) {
	cases := map[string][]Descriptor{
		"empty":         nil,
		"no name":       {{Kind: KindMock}},
		"duplicate":     {{Name: "a", Kind: KindMock}, {Name: "a", Kind: KindMock}},
		"no endpoint":   {{Name: "a", Kind: KindHTTP}},
		"unknown kind":  {{Name: "a", Kind: "carrier-pigeon"}},
		"anthropic key": {{Name: "a", Kind: KindAnthropic}},
	}
	for name, descriptors := range cases {
		if _, err := NewChain(descriptors); err == nil {
			t.Fatalf("%s: NewChain() expected error", name)
		}
	}
}

func TestMockProviderEchoesLastUserLine(t *testing.T) {
	p := NewMockProvider("")
	got, err := p.Complete(context.Background(), "persona\nassistant: earlier\nuser: hello")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "I heard you: hello" {
		t.Fatalf("Complete() = %q, want %q", got, "I heard you: hello")
	}
	if p.Name() != KindMock {
		t.Fatalf("Name() = %q, want %q", p.Name(), KindMock)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("සමාවෙන්න ", 10)
	for n := 1; n < 40; n++ {
		got := truncate(body, n)
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%d) = %q, not valid UTF-8", n, got)
		}
		if len(strings.TrimSuffix(got, "...")) > n {
			t.Fatalf("truncate(%d) kept %d bytes", n, len(got)-3)
		}
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
}
