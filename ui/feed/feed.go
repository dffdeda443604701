package feed

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/ui/common"
	"github.com/deemkeen/inkblock/util"
)

const (
	itemsPerPage = 5
	maxBodyLines = 4
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true)

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color(common.COLOR_GREEN))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_PURPLE))

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
			Bold(true)

	bodyStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)

// Source lists posts; reads never need a login.
type Source interface {
	GetPosts(ctx context.Context) ([]domain.Post, error)
}

type Model struct {
	Posts    []domain.Post
	Selected int
	Loading  bool
	Err      string
	width    int
	height   int
	source   Source
	seq      int
}

// PostsLoadedMsg carries the result of a refresh.
type PostsLoadedMsg struct {
	seq   int
	posts []domain.Post
	err   error
}

func New(source Source, width, height int) Model {
	return Model{
		Posts:  []domain.Post{},
		width:  width,
		height: height,
		source: source,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Refresh reloads the whole list. Only the latest refresh is applied.
func (m Model) Refresh() (Model, tea.Cmd) {
	m.seq++
	m.Loading = true
	return m, loadPosts(m.source, m.seq)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PostsLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.Loading = false
		if msg.err != nil {
			m.Err = "Could not load posts."
			return m, common.ErrorNotice(msg.err)
		}
		m.Err = ""
		m.Posts = msg.posts
		if m.Selected >= len(m.Posts) {
			m.Selected = max(len(m.Posts)-1, 0)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.Selected > 0 {
				m.Selected--
			}
		case "down", "j":
			if m.Selected < len(m.Posts)-1 {
				m.Selected++
			}
		case "r":
			return m.Refresh()
		case "enter":
			if post, ok := m.SelectedPost(); ok {
				author := post.Author
				return m, func() tea.Msg {
					return common.ShowProfileMsg{Principal: author}
				}
			}
		}
	}
	return m, nil
}

func (m Model) SelectedPost() (domain.Post, bool) {
	if m.Selected < 0 || m.Selected >= len(m.Posts) {
		return domain.Post{}, false
	}
	return m.Posts[m.Selected], true
}

func (m Model) View() string {
	var s strings.Builder

	caption := fmt.Sprintf("posts (%d)", len(m.Posts))
	if m.Loading {
		caption += " loading..."
	}
	s.WriteString(common.CaptionStyle.Render(caption))
	s.WriteString("\n")

	if m.Err != "" {
		s.WriteString(common.ErrorStyle.Render(m.Err))
		s.WriteString("\n")
		return s.String()
	}

	if len(m.Posts) == 0 {
		s.WriteString(common.EmptyStyle.Render("No posts yet."))
		return s.String()
	}

	start := 0
	if m.Selected >= itemsPerPage {
		start = m.Selected - itemsPerPage + 1
	}
	end := min(start+itemsPerPage, len(m.Posts))

	for i := start; i < end; i++ {
		s.WriteString(renderPost(m.Posts[i], i == m.Selected, m.width))
		s.WriteString("\n\n")
	}

	return s.String()
}

func renderPost(post domain.Post, selected bool, width int) string {
	title := util.SingleLine(post.Title)
	marker := "  "
	style := titleStyle
	if selected {
		marker = "→ "
		style = selectedTitleStyle
	}

	byline := fmt.Sprintf("%s %s",
		authorStyle.Render(util.SingleLine(post.DisplayAuthor())),
		timeStyle.Render(util.FormatTimestamp(post.Timestamp)))

	body := bodyStyle.Width(max(width-4, 20)).Render(truncateLines(util.HtmlToText(post.Body), maxBodyLines))

	return lipgloss.JoinVertical(lipgloss.Left, marker+style.Render(title), "  "+byline, body)
}

func truncateLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + "\n..."
}

func loadPosts(source Source, seq int) tea.Cmd {
	return func() tea.Msg {
		posts, err := source.GetPosts(context.Background())
		if posts == nil {
			posts = []domain.Post{}
		}
		return PostsLoadedMsg{seq: seq, posts: posts, err: err}
	}
}
