//go:generate go run go.uber.org/mock/mockgen -source=topic.go -destination=../mocks/mock_topic_repository.go -package=mocks
package repositories

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"forum-lab/domain"
	"forum-lab/errors"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type ITopicRepository interface {
	SaveTopic(topic domain.Topic) error
	UpdateTopic(topic domain.Topic) error
	DeleteTopic(id uuid.UUID) error
	FindTopicByID(id uuid.UUID) (domain.Topic, error)
	ListTopics(page, perPage int) ([]domain.Topic, int, error)
	SearchTopics(ctx context.Context, query string, page, perPage int) ([]domain.Topic, int, error)
	SavePost(post domain.Post) error
	UpdatePost(post domain.Post) error
	DeletePost(id uuid.UUID) error
	FindPostByID(id uuid.UUID) (domain.Post, error)
	PostsForTopic(topicID uuid.UUID, page, perPage int) ([]domain.Post, int, error)
}

// maxSearchResults bounds how many hits a single search pulls out of the
// index before pagination happens in memory.
const maxSearchResults = 500

type TopicRepository struct {
	db     *badger.DB
	search *bluge.Writer
	log    *slog.Logger
}

func NewTopicRepository(db *badger.DB, search *bluge.Writer, log *slog.Logger) TopicRepository {
	return TopicRepository{db: db, search: search, log: log}
}

type diskTopic struct {
	ID             string `cbor:"id"`
	Title          string `cbor:"title"`
	Content        string `cbor:"content"`
	AuthorID       string `cbor:"author_id"`
	AuthorUsername string `cbor:"author_username"`
	CreatedAt      int64  `cbor:"created_at"`
	UpdatedAt      int64  `cbor:"updated_at"`
}

type diskPost struct {
	ID             string `cbor:"id"`
	TopicID        string `cbor:"topic_id"`
	Content        string `cbor:"content"`
	AuthorID       string `cbor:"author_id"`
	AuthorUsername string `cbor:"author_username"`
	CreatedAt      int64  `cbor:"created_at"`
	UpdatedAt      int64  `cbor:"updated_at"`
}

func topicKey(id string) []byte { return []byte("topic:id:" + id) }

func topicTimeKey(at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("topic:ts:%019d:%s", at.UnixNano(), id))
}

func postKey(topicID string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("post:t:%s:%019d:%s", topicID, at.UnixNano(), id))
}

func postIndexKey(id string) []byte { return []byte("post:id:" + id) }

// SaveTopic writes the record, its time index and the search document. A
// crash between the Badger commit and the Bluge update leaves the topic
// findable by id but not by search, which a later UpdateTopic repairs.
func (t TopicRepository) SaveTopic(topic domain.Topic) error {
	data, err := cbor.Marshal(fromDomainTopic(topic))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	id := topic.ID.String()
	err = t.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(topicKey(id), data); err != nil {
			return err
		}
		return txn.Set(topicTimeKey(topic.CreatedAt, id), []byte(id))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return t.index(topic)
}

func (t TopicRepository) UpdateTopic(topic domain.Topic) error {
	data, err := cbor.Marshal(fromDomainTopic(topic))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	err = t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(topicKey(topic.ID.String()), data)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return t.index(topic)
}

func (t TopicRepository) index(topic domain.Topic) error {
	doc := bluge.NewDocument(topic.ID.String()).
		AddField(bluge.NewTextField("title", topic.Title)).
		AddField(bluge.NewTextField("content", topic.Content))
	if err := t.search.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return nil
}

// DeleteTopic removes the topic, its time index, all of its posts and the
// search document.
func (t TopicRepository) DeleteTopic(id uuid.UUID) error {
	topic, err := t.FindTopicByID(id)
	if err != nil {
		return err
	}
	prefix := []byte("post:t:" + id.String() + ":")
	err = t.db.Update(func(txn *badger.Txn) error {
		// Collect post keys before mutating: Badger forbids writes while
		// an iterator is open on the same transaction.
		var postKeys [][]byte
		var postIDs []string
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var disk diskPost
			if err := item.Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			}); err != nil {
				it.Close()
				return err
			}
			postKeys = append(postKeys, item.KeyCopy(nil))
			postIDs = append(postIDs, disk.ID)
		}
		it.Close()

		if err := txn.Delete(topicKey(id.String())); err != nil {
			return err
		}
		if err := txn.Delete(topicTimeKey(topic.CreatedAt, id.String())); err != nil {
			return err
		}
		for _, key := range postKeys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, postID := range postIDs {
			if err := txn.Delete(postIndexKey(postID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if err := t.search.Delete(bluge.NewDocument(id.String()).ID()); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return nil
}

func (t TopicRepository) FindTopicByID(id uuid.UUID) (domain.Topic, error) {
	var disk diskTopic
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(topicKey(id.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Topic{}, errors.ErrTopicNotFound
	}
	if err != nil {
		return domain.Topic{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return toDomainTopic(disk)
}

// ListTopics walks the time index backwards so the newest topics come first,
// counting everything for the pagination footer while only resolving the
// records inside the requested page.
func (t TopicRepository) ListTopics(page, perPage int) ([]domain.Topic, int, error) {
	skip := (page - 1) * perPage
	var ids []string
	total := 0
	prefix := []byte("topic:ts:")
	err := t.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past every possible timestamp, then walk backwards.
		seekKey := append([]byte{}, prefix...)
		seekKey = append(seekKey, []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if total >= skip && total < skip+perPage {
				err := it.Item().Value(func(val []byte) error {
					ids = append(ids, string(val))
					return nil
				})
				if err != nil {
					return err
				}
			}
			total++
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	topics, err := t.fetchTopics(ids)
	if err != nil {
		return nil, 0, err
	}
	return topics, total, nil
}

// SearchTopics matches the query against title and content, newest first.
// Hits are resolved back through Badger; a hit whose record vanished between
// index and store is dropped rather than failing the whole search.
func (t TopicRepository) SearchTopics(ctx context.Context, query string, page, perPage int) ([]domain.Topic, int, error) {
	reader, err := t.search.Reader()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	defer reader.Close()

	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField("title")).
		AddShould(bluge.NewMatchQuery(query).SetField("content"))
	request := bluge.NewTopNSearch(maxSearchResults, q)
	dmi, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	var ids []string
	next, err := dmi.Next()
	for err == nil && next != nil {
		err = next.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
		}
		next, err = dmi.Next()
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	topics := make([]domain.Topic, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		topic, err := t.FindTopicByID(parsed)
		if stderrors.Is(err, errors.ErrTopicNotFound) {
			t.log.Warn("indexed topic missing from store", "topic_id", id)
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		return topics[i].CreatedAt.After(topics[j].CreatedAt)
	})

	total := len(topics)
	skip := (page - 1) * perPage
	if skip >= total {
		return nil, total, nil
	}
	end := skip + perPage
	if end > total {
		end = total
	}
	return topics[skip:end], total, nil
}

func (t TopicRepository) SavePost(post domain.Post) error {
	data, err := cbor.Marshal(fromDomainPost(post))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	key := postKey(post.TopicID.String(), post.CreatedAt, post.ID.String())
	err = t.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(postIndexKey(post.ID.String()), key)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return nil
}

func (t TopicRepository) UpdatePost(post domain.Post) error {
	data, err := cbor.Marshal(fromDomainPost(post))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	// The record key embeds CreatedAt, which never changes, so an update
	// lands on the same key as the original save.
	key := postKey(post.TopicID.String(), post.CreatedAt, post.ID.String())
	err = t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return nil
}

func (t TopicRepository) DeletePost(id uuid.UUID) error {
	err := t.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(postIndexKey(id.String()))
		if err != nil {
			return err
		}
		var key []byte
		if err := item.Value(func(val []byte) error {
			key = append([]byte{}, val...)
			return nil
		}); err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(postIndexKey(id.String()))
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return nil
}

func (t TopicRepository) FindPostByID(id uuid.UUID) (domain.Post, error) {
	var disk diskPost
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(postIndexKey(id.String()))
		if err != nil {
			return err
		}
		var key []byte
		if err := item.Value(func(val []byte) error {
			key = append([]byte{}, val...)
			return nil
		}); err != nil {
			return err
		}
		record, err := txn.Get(key)
		if err != nil {
			return err
		}
		return record.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Post{}, errors.ErrPostNotFound
	}
	if err != nil {
		return domain.Post{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return toDomainPost(disk)
}

// PostsForTopic returns one page of replies in posting order.
func (t TopicRepository) PostsForTopic(topicID uuid.UUID, page, perPage int) ([]domain.Post, int, error) {
	skip := (page - 1) * perPage
	var posts []domain.Post
	total := 0
	prefix := []byte("post:t:" + topicID.String() + ":")
	err := t.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if total >= skip && total < skip+perPage {
				var disk diskPost
				err := it.Item().Value(func(val []byte) error {
					return cbor.Unmarshal(val, &disk)
				})
				if err != nil {
					return err
				}
				post, err := toDomainPost(disk)
				if err != nil {
					return err
				}
				posts = append(posts, post)
			}
			total++
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return posts, total, nil
}

func (t TopicRepository) fetchTopics(ids []string) ([]domain.Topic, error) {
	topics := make([]domain.Topic, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
		}
		topic, err := t.FindTopicByID(parsed)
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func fromDomainTopic(topic domain.Topic) diskTopic {
	return diskTopic{
		ID:             topic.ID.String(),
		Title:          topic.Title,
		Content:        topic.Content,
		AuthorID:       topic.AuthorID.String(),
		AuthorUsername: topic.AuthorUsername,
		CreatedAt:      topic.CreatedAt.UnixNano(),
		UpdatedAt:      topic.UpdatedAt.UnixNano(),
	}
}

func toDomainTopic(disk diskTopic) (domain.Topic, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Topic{}, err
	}
	authorID, err := uuid.Parse(disk.AuthorID)
	if err != nil {
		return domain.Topic{}, err
	}
	return domain.Topic{
		ID:             id,
		Title:          disk.Title,
		Content:        disk.Content,
		AuthorID:       authorID,
		AuthorUsername: disk.AuthorUsername,
		CreatedAt:      time.Unix(0, disk.CreatedAt).UTC(),
		UpdatedAt:      time.Unix(0, disk.UpdatedAt).UTC(),
	}, nil
}

func fromDomainPost(post domain.Post) diskPost {
	return diskPost{
		ID:             post.ID.String(),
		TopicID:        post.TopicID.String(),
		Content:        post.Content,
		AuthorID:       post.AuthorID.String(),
		AuthorUsername: post.AuthorUsername,
		CreatedAt:      post.CreatedAt.UnixNano(),
		UpdatedAt:      post.UpdatedAt.UnixNano(),
	}
}

func toDomainPost(disk diskPost) (domain.Post, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Post{}, err
	}
	topicID, err := uuid.Parse(disk.TopicID)
	if err != nil {
		return domain.Post{}, err
	}
	authorID, err := uuid.Parse(disk.AuthorID)
	if err != nil {
		return domain.Post{}, err
	}
	return domain.Post{
		ID:             id,
		TopicID:        topicID,
		Content:        disk.Content,
		AuthorID:       authorID,
		AuthorUsername: disk.AuthorUsername,
		CreatedAt:      time.Unix(0, disk.CreatedAt).UTC(),
		UpdatedAt:      time.Unix(0, disk.UpdatedAt).UTC(),
	}, nil
}
