package compose

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/ui/common"
)

type created struct {
	title string
	body  string
}

type stubPoster struct {
	authenticated bool
	err           error
	posts         []created
}

func (p *stubPoster) IsAuthenticated() bool {
	return p.authenticated
}

func (p *stubPoster) CreatePost(ctx context.Context, title, body string) error {
	p.posts = append(p.posts, created{title: title, body: body})
	return p.err
}

var ctrlS = tea.KeyMsg{Type: tea.KeyCtrlS}

func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func notices(msgs []tea.Msg) []common.NoticeMsg {
	var out []common.NoticeMsg
	for _, msg := range msgs {
		if n, ok := msg.(common.NoticeMsg); ok {
			out = append(out, n)
		}
	}
	return out
}

func filled(poster Poster, title, body string) Model {
	m := New(poster, 80)
	m.Title.SetValue(title)
	m.Body.SetValue(body)
	return m
}

func TestSubmitRequiresLogin(t *testing.T) {
	poster := &stubPoster{}
	m := filled(poster, "Hello", "World")

	m, cmd := m.Update(ctrlS)
	got := notices(run(cmd))
	if len(got) != 1 || !got[0].IsError || got[0].Text != domain.LoginRequired {
		t.Fatalf("Expected login notice, got %+v", got)
	}
	if len(poster.posts) != 0 {
		t.Error("No post should be created without a login")
	}
	if m.Submitting {
		t.Error("Form should not be pending")
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		want  string
	}{
		{"empty title", "", "body", "Please enter a title"},
		{"blank title", "   ", "body", "Please enter a title"},
		{"empty body", "title", "", "Please write something"},
		{"blank body", "title", " \n ", "Please write something"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &stubPoster{authenticated: true}
			m := filled(poster, tt.title, tt.body)

			_, cmd := m.Update(ctrlS)
			got := notices(run(cmd))
			if len(got) != 1 || got[0].Text != tt.want {
				t.Errorf("Expected notice %q, got %+v", tt.want, got)
			}
			if len(poster.posts) != 0 {
				t.Error("No call expected for invalid input")
			}
		})
	}
}

func TestSubmitSuccess(t *testing.T) {
	poster := &stubPoster{authenticated: true}
	m := filled(poster, "  Hello  ", "first <line>\n\nsecond")

	m, cmd := m.Update(ctrlS)
	if !m.Submitting {
		t.Fatal("Expected a pending submission")
	}
	if !strings.Contains(m.View(), "Submitting...") {
		t.Error("Expected the pending caption")
	}

	msgs := run(cmd)
	if len(poster.posts) != 1 {
		t.Fatalf("Expected one post, got %d", len(poster.posts))
	}
	if poster.posts[0].title != "Hello" {
		t.Errorf("Expected trimmed title, got %q", poster.posts[0].title)
	}
	if poster.posts[0].body != "<p>first &lt;line&gt;</p><p>second</p>" {
		t.Errorf("Unexpected html body %q", poster.posts[0].body)
	}

	m, cmd = m.Update(msgs[0])
	if m.Submitting {
		t.Error("Submission should be finished")
	}
	if m.Title.Value() != "" || m.Body.Value() != "" {
		t.Error("Fields should be cleared after success")
	}

	after := run(cmd)
	var sawCreated bool
	for _, msg := range after {
		if _, ok := msg.(common.PostCreatedMsg); ok {
			sawCreated = true
		}
	}
	if !sawCreated {
		t.Error("Expected PostCreatedMsg")
	}
	got := notices(after)
	if len(got) != 1 || got[0].Text != PostCreated || got[0].IsError {
		t.Errorf("Expected success notice, got %+v", got)
	}
}

func TestSubmitFailureKeepsFields(t *testing.T) {
	poster := &stubPoster{authenticated: true, err: domain.NewApplicationError("createPost", "Title too long")}
	m := filled(poster, "Hello", "World")

	m, cmd := m.Update(ctrlS)
	m, cmd = m.Update(run(cmd)[0])

	got := notices(run(cmd))
	if len(got) != 1 || got[0].Text != "Title too long" {
		t.Errorf("Expected the server text, got %+v", got)
	}
	if m.Title.Value() != "Hello" || m.Body.Value() != "World" {
		t.Error("Fields should be kept after a failure")
	}
	if m.Submitting {
		t.Error("Submission should be finished")
	}
}

func TestSubmitIgnoredWhilePending(t *testing.T) {
	poster := &stubPoster{authenticated: true}
	m := filled(poster, "Hello", "World")

	m, first := m.Update(ctrlS)
	m, second := m.Update(ctrlS)
	if second != nil {
		t.Error("A second submit should be ignored while pending")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.Title.Value() != "Hello" {
		t.Errorf("Typing should be ignored while pending, got %q", m.Title.Value())
	}

	run(first)
	if len(poster.posts) != 1 {
		t.Errorf("Expected exactly one call, got %d", len(poster.posts))
	}
}

func TestTabSwitchesField(t *testing.T) {
	m := New(&stubPoster{}, 80)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})

	if m.Title.Value() != "a" || m.Body.Value() != "b" {
		t.Errorf("Expected title %q and body %q, got %q and %q", "a", "b", m.Title.Value(), m.Body.Value())
	}
}
