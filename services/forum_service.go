//go:generate go run go.uber.org/mock/mockgen -source=forum_service.go -destination=../mocks/mock_forum_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"forum-lab/contract"
	"forum-lab/domain"
	"forum-lab/errors"
	"forum-lab/moderation"
	"forum-lab/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type IForumService interface {
	CreateTopic(actorID, title, content string) (domain.Topic, error)
	UpdateTopic(actorID, topicID, title, content string) (domain.Topic, error)
	DeleteTopic(actorID, topicID string) error
	GetTopic(topicID string) (domain.Topic, error)
	ListTopics(page int) ([]domain.Topic, int, error)
	SearchTopics(ctx context.Context, query string, page int) ([]domain.Topic, int, error)
	CreatePost(actorID, topicID, content string) (domain.Post, error)
	UpdatePost(actorID, postID, content string) (domain.Post, error)
	DeletePost(actorID, postID string) error
	PostsForTopic(topicID string, page int) ([]domain.Post, int, error)
}

var validate = validator.New()

// The bounds mirror the submission forms.
type topicForm struct {
	Title   string `validate:"required,min=5,max=100"`
	Content string `validate:"required,min=10"`
}

type postForm struct {
	Content string `validate:"required,min=5"`
}

type ForumService struct {
	log           *slog.Logger
	topics        repositories.ITopicRepository
	users         contract.UserDirectory
	moderator     *moderation.Moderator
	topicsPerPage int
	postsPerPage  int
}

func NewForumService(log *slog.Logger, topics repositories.ITopicRepository,
	users contract.UserDirectory, moderator *moderation.Moderator,
	topicsPerPage, postsPerPage int) *ForumService {
	return &ForumService{
		log:           log,
		topics:        topics,
		users:         users,
		moderator:     moderator,
		topicsPerPage: topicsPerPage,
		postsPerPage:  postsPerPage,
	}
}

// censor masks forbidden words and leaves a trace with the detected
// language when something was actually masked.
func (s *ForumService) censor(actorID, content string) string {
	censored := s.moderator.Censor(content)
	if censored != content {
		s.log.Warn("submission censored",
			"actor_id", actorID,
			"lang", moderation.Language(content))
	}
	return censored
}

func (s *ForumService) CreateTopic(actorID, title, content string) (domain.Topic, error) {
	actor, err := parseID(actorID)
	if err != nil {
		return domain.Topic{}, err
	}
	if err := validate.Struct(topicForm{Title: title, Content: content}); err != nil {
		return domain.Topic{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	author, err := s.users.FindByID(actor)
	if err != nil {
		return domain.Topic{}, err
	}

	now := time.Now().UTC()
	topic := domain.Topic{
		ID:             uuid.New(),
		Title:          s.censor(actorID, title),
		Content:        s.censor(actorID, content),
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.topics.SaveTopic(topic); err != nil {
		return domain.Topic{}, err
	}
	return topic, nil
}

// UpdateTopic replaces title and content. Only the author or an admin may
// touch a topic.
func (s *ForumService) UpdateTopic(actorID, topicID, title, content string) (domain.Topic, error) {
	topic, err := s.GetTopic(topicID)
	if err != nil {
		return domain.Topic{}, err
	}
	if err := s.authorize(actorID, topic.AuthorID); err != nil {
		return domain.Topic{}, err
	}
	if err := validate.Struct(topicForm{Title: title, Content: content}); err != nil {
		return domain.Topic{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	topic.Title = s.censor(actorID, title)
	topic.Content = s.censor(actorID, content)
	topic.UpdatedAt = time.Now().UTC()
	if err := s.topics.UpdateTopic(topic); err != nil {
		return domain.Topic{}, err
	}
	return topic, nil
}

// DeleteTopic removes the topic together with all its replies.
func (s *ForumService) DeleteTopic(actorID, topicID string) error {
	topic, err := s.GetTopic(topicID)
	if err != nil {
		return err
	}
	if err := s.authorize(actorID, topic.AuthorID); err != nil {
		return err
	}
	return s.topics.DeleteTopic(topic.ID)
}

func (s *ForumService) GetTopic(topicID string) (domain.Topic, error) {
	id, err := parseID(topicID)
	if err != nil {
		return domain.Topic{}, err
	}
	return s.topics.FindTopicByID(id)
}

func (s *ForumService) ListTopics(page int) ([]domain.Topic, int, error) {
	if page < 1 {
		page = 1
	}
	return s.topics.ListTopics(page, s.topicsPerPage)
}

func (s *ForumService) SearchTopics(ctx context.Context, query string, page int) ([]domain.Topic, int, error) {
	if page < 1 {
		page = 1
	}
	return s.topics.SearchTopics(ctx, query, page, s.topicsPerPage)
}

func (s *ForumService) CreatePost(actorID, topicID, content string) (domain.Post, error) {
	actor, err := parseID(actorID)
	if err != nil {
		return domain.Post{}, err
	}
	topic, err := s.GetTopic(topicID)
	if err != nil {
		return domain.Post{}, err
	}
	if err := validate.Struct(postForm{Content: content}); err != nil {
		return domain.Post{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	author, err := s.users.FindByID(actor)
	if err != nil {
		return domain.Post{}, err
	}

	now := time.Now().UTC()
	post := domain.Post{
		ID:             uuid.New(),
		TopicID:        topic.ID,
		Content:        s.censor(actorID, content),
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.topics.SavePost(post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (s *ForumService) UpdatePost(actorID, postID, content string) (domain.Post, error) {
	id, err := parseID(postID)
	if err != nil {
		return domain.Post{}, err
	}
	post, err := s.topics.FindPostByID(id)
	if err != nil {
		return domain.Post{}, err
	}
	if err := s.authorize(actorID, post.AuthorID); err != nil {
		return domain.Post{}, err
	}
	if err := validate.Struct(postForm{Content: content}); err != nil {
		return domain.Post{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	post.Content = s.censor(actorID, content)
	post.UpdatedAt = time.Now().UTC()
	if err := s.topics.UpdatePost(post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (s *ForumService) DeletePost(actorID, postID string) error {
	id, err := parseID(postID)
	if err != nil {
		return err
	}
	post, err := s.topics.FindPostByID(id)
	if err != nil {
		return err
	}
	if err := s.authorize(actorID, post.AuthorID); err != nil {
		return err
	}
	return s.topics.DeletePost(post.ID)
}

func (s *ForumService) PostsForTopic(topicID string, page int) ([]domain.Post, int, error) {
	topic, err := s.GetTopic(topicID)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	return s.topics.PostsForTopic(topic.ID, page, s.postsPerPage)
}

// authorize admits the author of the entity and any admin.
func (s *ForumService) authorize(actorID string, authorID uuid.UUID) error {
	actor, err := parseID(actorID)
	if err != nil {
		return err
	}
	if actor == authorID {
		return nil
	}
	user, err := s.users.FindByID(actor)
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return errors.ErrForbidden
	}
	return nil
}
