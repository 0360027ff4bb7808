package main

import (
	"net/http"
	"strconv"
	"time"

	"usof/forum"

	"github.com/gorilla/feeds"
	"github.com/gosimple/slug"
	"github.com/sourcegraph/sitemap"
)

func postURL(baseURL string, p forum.Post) string {
	return baseURL + "/posts/" + strconv.FormatInt(p.ID, 10) + "/" + slug.Make(p.Title)
}

func (a *App) recentPosts(limit int) ([]forum.Post, error) {
	return a.db.ListPosts(forum.PostFilter{
		Status: "active",
		Sort:   "date",
		Order:  "desc",
		Limit:  limit,
	})
}

func (a *App) feedHandler(w http.ResponseWriter, r *http.Request) error {
	posts, err := a.recentPosts(20)
	if err != nil {
		return err
	}
	baseURL := "http://" + r.Host
	feed := &feeds.Feed{
		Title:       a.config.Title,
		Link:        &feeds.Link{Href: baseURL},
		Description: a.config.Description,
		Created:     time.Now(),
	}
	for _, p := range posts {
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       p.Title,
			Link:        &feeds.Link{Href: postURL(baseURL, p)},
			Description: p.Rendered,
			Created:     p.PublishedAt,
		})
	}
	w.Header().Set("Content-Type", "application/rss+xml")
	return feed.WriteRss(w)
}

func (a *App) sitemapHandler(w http.ResponseWriter, r *http.Request) error {
	posts, err := a.recentPosts(1000)
	if err != nil {
		return err
	}
	baseURL := "http://" + r.Host
	var urlSet sitemap.URLSet
	for i := range posts {
		p := posts[i]
		urlSet.URLs = append(urlSet.URLs, sitemap.URL{
			Loc:        postURL(baseURL, p),
			LastMod:    &posts[i].UpdatedAt,
			ChangeFreq: sitemap.Daily,
			Priority:   0.7,
		})
	}
	xml, err := sitemap.Marshal(&urlSet)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml")
	_, err = w.Write(xml)
	return err
}
