package nim

import "testing"

func testTable() ModelTable {
	return ModelTable{
		Aliases: map[string]string{
			"gpt-4":         "nvidia/llama-3.3-nemotron-super-49b-v1",
			"gpt-3.5-turbo": "nvidia/llama-3.1-nemotron-nano-8b-v1",
		},
		Fallbacks: []FallbackRule{
			{Contains: "opus", Model: "nvidia/llama-3.1-nemotron-ultra-253b-v1"},
			{Contains: "gpt-4", Model: "nvidia/llama-3.3-nemotron-super-49b-v1"},
			{Contains: "mini", Model: "nvidia/llama-3.1-nemotron-nano-8b-v1"},
		},
		Default: "nvidia/llama-3.1-nemotron-nano-8b-v1",
	}
}

func TestResolveExactAlias(t *testing.T) {
	table := testTable()

	for alias, want := range table.Aliases {
		if got := table.Resolve(alias); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", alias, got, want)
		}
	}
}

func TestResolveFallbackLadder(t *testing.T) {
	table := testTable()

	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"keyword match", "claude-3-opus-20240229", "nvidia/llama-3.1-nemotron-ultra-253b-v1"},
		{"case insensitive", "Claude-3-OPUS", "nvidia/llama-3.1-nemotron-ultra-253b-v1"},
		{"later rule", "o4-mini", "nvidia/llama-3.1-nemotron-nano-8b-v1"},
		// "gpt-4o-mini" matches both the gpt-4 and mini rules; order decides.
		{"first match wins", "gpt-4o-mini-2024", "nvidia/llama-3.3-nemotron-super-49b-v1"},
		{"no match falls to default", "some-unknown-model", "nvidia/llama-3.1-nemotron-nano-8b-v1"},
		{"empty name falls to default", "", "nvidia/llama-3.1-nemotron-nano-8b-v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Resolve(tt.model); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestResolveAliasBeatsFallback(t *testing.T) {
	table := testTable()

	// "gpt-4" is both an alias and a fallback keyword; the alias must win.
	if got, want := table.Resolve("gpt-4"), table.Aliases["gpt-4"]; got != want {
		t.Errorf("Resolve(gpt-4) = %q, want alias target %q", got, want)
	}
}

func TestResolveSingleDefaultPolicy(t *testing.T) {
	// A deployment with no aliases and no ladder routes everything to the default.
	table := ModelTable{Default: "nvidia/llama-3.1-nemotron-nano-8b-v1"}

	for _, model := range []string{"gpt-4", "claude-3-opus", ""} {
		if got := table.Resolve(model); got != table.Default {
			t.Errorf("Resolve(%q) = %q, want default %q", model, got, table.Default)
		}
	}
}
