package sdk

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// ArticleClient manages articles and everything nested under them.
//
// Example:
//
//	resp, err := app.Articles.Create(ctx, map[string]interface{}{
//	    "title":   "Hello",
//	    "content": "<p>World</p>",
//	})
//	article, _ := sdk.DecodeAs[map[string]interface{}](resp)
//	_, err = app.Articles.Publish(ctx, article["id"].(string))
type ArticleClient struct {
	*Resource

	// Settings is the article module settings document
	Settings *Settings
}

func newArticleClient(app *App) *ArticleClient {
	return &ArticleClient{
		Resource: NewResource(app, "articles"),
		Settings: NewSettings(app, "article-settings"),
	}
}

// Publish makes the article publicly visible.
func (c *ArticleClient) Publish(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "publish", nil)
}

// Unpublish reverts the article to a draft.
func (c *ArticleClient) Unpublish(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "unpublish", nil)
}

// Archive moves the article to the archive.
func (c *ArticleClient) Archive(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "archive", nil)
}

// Restore moves an archived article back.
func (c *ArticleClient) Restore(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "restore", nil)
}

// Schedule publishes the article at a given time.
func (c *ArticleClient) Schedule(ctx context.Context, id string, at time.Time) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "publish", map[string]interface{}{
		"publishDate": at.UTC().Format(time.RFC3339),
	})
}

// Purge deletes every article of the application.
func (c *ArticleClient) Purge(ctx context.Context) (*Response, error) {
	return c.CollectionAction(ctx, http.MethodDelete, "purge", nil, nil)
}

// Subscribe registers subscriber for notifications about the article.
func (c *ArticleClient) Subscribe(ctx context.Context, articleID string, subscriber interface{}) (*Response, error) {
	return c.Action(ctx, http.MethodPost, articleID, "subscriptions", subscriber)
}

// Unsubscribe removes a subscriber registered with Subscribe.
func (c *ArticleClient) Unsubscribe(ctx context.Context, articleID string, subscriber interface{}) (*Response, error) {
	return c.Action(ctx, http.MethodDelete, articleID, "subscriptions", subscriber)
}

// IsSubscribed asks whether the subscriber id follows the article.
func (c *ArticleClient) IsSubscribed(ctx context.Context, articleID, subscriberID string) (*Response, error) {
	return c.Child(articleID, "subscriptions").Get(ctx, subscriberID, nil)
}

// Comments returns the comment collection of an article.
func (c *ArticleClient) Comments(articleID string) *CommentClient {
	return &CommentClient{Resource: c.Child(articleID, "comments")}
}

// Files returns the attachment collection of an article.
func (c *ArticleClient) Files(articleID string) *Resource {
	return c.Child(articleID, "files")
}

// Ratings returns the rating collection of an article.
func (c *ArticleClient) Ratings(articleID string) *Resource {
	return c.Child(articleID, "ratings")
}

// Tags returns the tag collection of an article.
func (c *ArticleClient) Tags(articleID string) *Resource {
	return c.Child(articleID, "tags")
}

// Versions lists the saved revisions of an article.
func (c *ArticleClient) Versions(ctx context.Context, articleID string, opts *QueryOptions) (*Response, error) {
	return c.Child(articleID, "versions").Find(ctx, opts)
}

// CommentClient manages the comments of one article, or the replies of
// one comment.
type CommentClient struct {
	*Resource
}

// Approve publishes a comment awaiting moderation.
func (c *CommentClient) Approve(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "approve", nil)
}

// Unapprove hides a published comment.
func (c *CommentClient) Unapprove(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "unapprove", nil)
}

// Flag marks a comment for review.
func (c *CommentClient) Flag(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "flag", nil)
}

// Unflag clears the review mark.
func (c *CommentClient) Unflag(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "unflag", nil)
}

// ReportAsSpam reports a comment as spam with an optional reason.
func (c *CommentClient) ReportAsSpam(ctx context.Context, id, reason string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "spam", reportBody(reason))
}

// ReportAsOffensive reports a comment as offensive with an optional reason.
func (c *CommentClient) ReportAsOffensive(ctx context.Context, id, reason string) (*Response, error) {
	return c.Action(ctx, http.MethodPut, id, "report", reportBody(reason))
}

// FindByStatus lists comments in a moderation state such as "approved".
func (c *CommentClient) FindByStatus(ctx context.Context, status string, opts *QueryOptions) (*Response, error) {
	values := opts.Values()
	if values == nil {
		values = url.Values{}
	}
	values.Set("statuses", status)
	return c.app.send(ctx, http.MethodGet, c.route, c.params, values, nil)
}

// Replies returns the replies of one comment.
func (c *CommentClient) Replies(commentID string) *CommentClient {
	return &CommentClient{Resource: c.Child(commentID, "replies")}
}

func reportBody(reason string) interface{} {
	if reason == "" {
		return nil
	}
	return map[string]string{"reason": reason}
}
