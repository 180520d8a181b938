// Package tasks defines the closed set of work items flowing through the
// acquisition queues. Each variant carries exactly the payload its handler
// needs and is constructed through a validating constructor, so malformed
// work is rejected at enqueue time rather than inside a worker.
package tasks

import "fmt"

// Type identifies which queue a task belongs to.
type Type string

const (
	TypeMediaDownload Type = "media:download"
	TypeCommentFetch  Type = "comments:fetch"
	TypeMetadataFetch Type = "metadata:fetch"
)

// Task is a unit of queued work. Key returns a stable identity used for
// in-flight tracking and history, unique within the task's type.
type Task interface {
	Type() Type
	Key() string
}

// MediaDownloadTask requests the full media pipeline for one post.
type MediaDownloadTask struct {
	PostID    string
	Subreddit string
}

// NewMediaDownloadTask validates and builds a media download task.
func NewMediaDownloadTask(postID, subreddit string) (MediaDownloadTask, error) {
	if postID == "" {
		return MediaDownloadTask{}, fmt.Errorf("media download task: empty post id")
	}
	if subreddit == "" {
		return MediaDownloadTask{}, fmt.Errorf("media download task: empty subreddit for post %s", postID)
	}
	return MediaDownloadTask{PostID: postID, Subreddit: subreddit}, nil
}

func (t MediaDownloadTask) Type() Type  { return TypeMediaDownload }
func (t MediaDownloadTask) Key() string { return t.PostID }

// CommentFetchTask requests the comment tree for one post.
type CommentFetchTask struct {
	PostID    string
	Subreddit string
}

// NewCommentFetchTask validates and builds a comment fetch task.
func NewCommentFetchTask(postID, subreddit string) (CommentFetchTask, error) {
	if postID == "" {
		return CommentFetchTask{}, fmt.Errorf("comment fetch task: empty post id")
	}
	if subreddit == "" {
		return CommentFetchTask{}, fmt.Errorf("comment fetch task: empty subreddit for post %s", postID)
	}
	return CommentFetchTask{PostID: postID, Subreddit: subreddit}, nil
}

func (t CommentFetchTask) Type() Type  { return TypeCommentFetch }
func (t CommentFetchTask) Key() string { return t.PostID }

// MetadataFetchTask requests the post index for one subreddit.
type MetadataFetchTask struct {
	Subreddit string
}

// NewMetadataFetchTask validates and builds a metadata fetch task.
func NewMetadataFetchTask(subreddit string) (MetadataFetchTask, error) {
	if subreddit == "" {
		return MetadataFetchTask{}, fmt.Errorf("metadata fetch task: empty subreddit")
	}
	return MetadataFetchTask{Subreddit: subreddit}, nil
}

func (t MetadataFetchTask) Type() Type  { return TypeMetadataFetch }
func (t MetadataFetchTask) Key() string { return t.Subreddit }
