package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPrincipalKnownVectors(t *testing.T) {
	tests := []struct {
		name      string
		principal Principal
		text      string
	}{
		{name: "anonymous", principal: AnonymousPrincipal, text: "2vxsx-fae"},
		{name: "management", principal: Principal{}, text: "aaaaa-aa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.principal.String(); got != tt.text {
				t.Errorf("Expected '%s', got '%s'", tt.text, got)
			}

			parsed, err := ParsePrincipal(tt.text)
			if err != nil {
				t.Fatalf("ParsePrincipal failed: %v", err)
			}
			if !parsed.Equal(tt.principal) {
				t.Errorf("Expected %v, got %v", []byte(tt.principal), []byte(parsed))
			}
		})
	}
}

func TestSelfAuthenticatingRoundTrip(t *testing.T) {
	p := SelfAuthenticating([]byte("not really DER but bytes all the same"))

	if len(p) != 29 {
		t.Fatalf("Expected 29 bytes, got %d", len(p))
	}
	if p[len(p)-1] != 0x02 {
		t.Errorf("Expected self-authenticating tag 0x02, got %#x", p[len(p)-1])
	}

	parsed, err := ParsePrincipal(p.String())
	if err != nil {
		t.Fatalf("ParsePrincipal failed: %v", err)
	}
	if !parsed.Equal(p) {
		t.Error("Round trip changed the principal")
	}
	if parsed.IsAnonymous() {
		t.Error("Self-authenticating principal should not be anonymous")
	}
}

func TestParsePrincipalRejectsBadInput(t *testing.T) {
	valid := SelfAuthenticating([]byte("key")).String()
	tampered := []byte(valid)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	inputs := []string{
		"",
		"not a principal!",
		"2vxsx-fa",
		"2vxsxfae",
		string(tampered),
	}

	for _, input := range inputs {
		if _, err := ParsePrincipal(input); !errors.Is(err, ErrInvalidPrincipal) {
			t.Errorf("Expected ErrInvalidPrincipal for %q, got %v", input, err)
		}
	}
}

func TestPrincipalJSON(t *testing.T) {
	post := Post{Id: 1, Author: SelfAuthenticating([]byte("k"))}

	buf, err := json.Marshal(post)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded struct {
		Author string `json:"author"`
	}
	if err := json.Unmarshal(buf, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Author != post.Author.String() {
		t.Errorf("Expected author text '%s', got '%s'", post.Author.String(), decoded.Author)
	}

	var back Post
	if err := json.Unmarshal(buf, &back); err != nil {
		t.Fatalf("Unmarshal into Post failed: %v", err)
	}
	if !back.Author.Equal(post.Author) {
		t.Error("Author did not survive JSON")
	}
}
