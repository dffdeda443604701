package web

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/util"
	"github.com/gorilla/feeds"
)

func feedLink(conf *util.AppConfig) string {
	return fmt.Sprintf("http://%s:%d/feed", conf.Conf.Host, conf.Conf.HttpPort)
}

func postItem(conf *util.AppConfig, post domain.Post) *feeds.Item {
	author := post.DisplayAuthor()
	return &feeds.Item{
		Id:          fmt.Sprintf("%d", post.Id),
		Title:       post.Title,
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/%d", feedLink(conf), post.Id)},
		Description: util.SingleLine(util.HtmlToText(post.Body)),
		Content:     post.Body,
		Author:      &feeds.Author{Name: author, Email: fmt.Sprintf("%s@%s", post.Author, util.Name)},
		Created:     post.CreatedAt(),
	}
}

// GetRSS renders all posts, in backend order, as RSS 2.0.
func GetRSS(ctx context.Context, conf *util.AppConfig, source PostSource) (string, error) {
	posts, err := source.GetPosts(ctx)
	if err != nil {
		log.Println("Could not get posts!", err)
		return "", fmt.Errorf("error retrieving posts: %w", err)
	}

	feed := &feeds.Feed{
		Title:       "All inkblock posts",
		Link:        &feeds.Link{Href: feedLink(conf)},
		Description: fmt.Sprintf("posts of canister %s", conf.Conf.CanisterId),
		Author:      &feeds.Author{Name: "everyone"},
		Created:     time.Now(),
	}

	for _, post := range posts {
		feed.Items = append(feed.Items, postItem(conf, post))
	}

	return feed.ToRss()
}

// GetRSSItem renders the post with the given id as a single item feed.
func GetRSSItem(ctx context.Context, conf *util.AppConfig, source PostSource, id uint64) (string, error) {
	posts, err := source.GetPosts(ctx)
	if err != nil {
		log.Println("Could not get posts!", err)
		return "", fmt.Errorf("error retrieving posts: %w", err)
	}

	for _, post := range posts {
		if post.Id != id {
			continue
		}
		item := postItem(conf, post)
		feed := &feeds.Feed{
			Title:       "Single inkblock post",
			Link:        item.Link,
			Description: post.Title,
			Author:      item.Author,
			Created:     time.Now(),
			Items:       []*feeds.Item{item},
		}
		return feed.ToRss()
	}

	return "", fmt.Errorf("post %d not found", id)
}
