package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// On-disk CBOR shapes, mirrored from the repositories.
type storedMessage struct {
	ID             string `cbor:"id"`
	SenderID       string `cbor:"sender_id"`
	ReceiverID     string `cbor:"receiver_id"`
	Content        string `cbor:"content"`
	ConversationID string `cbor:"conversation_id"`
	CreatedAt      int64  `cbor:"created_at"`
	Read           bool   `cbor:"read"`
}

type storedUser struct {
	ID        string   `cbor:"id"`
	Username  string   `cbor:"username"`
	Email     string   `cbor:"email"`
	Roles     []string `cbor:"roles"`
	CreatedAt int64    `cbor:"created_at"`
}

type storedTopic struct {
	ID             string `cbor:"id"`
	Title          string `cbor:"title"`
	AuthorUsername string `cbor:"author_username"`
	CreatedAt      int64  `cbor:"created_at"`
}

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	// Default to messages, the busiest keyspace.
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, user:id:, topic:id:)")
	limit := flag.Int("limit", 100, "Maximum rows to print")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("missing -db flag")
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headersFor(*prefix))
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes) && rows < *limit; it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				row, err := rowFor(*prefix, v)
				if err != nil {
					// Secondary index values are raw ids, not CBOR records.
					fmt.Printf("skipping %s: %v\n", key, err)
					return nil
				}
				if row != nil {
					table.Append(row)
					rows++
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Scan failed: ", err)
	}

	color.Green.Printf("%d entries under %q\n", rows, *prefix)
	table.Render()
}

func headersFor(prefix string) []string {
	switch {
	case strings.HasPrefix(prefix, "user:"):
		return []string{"ID", "Username", "Email", "Roles", "Created"}
	case strings.HasPrefix(prefix, "topic:"):
		return []string{"ID", "Title", "Author", "Created"}
	default:
		return []string{"Conversation", "Sender", "Receiver", "Content", "Created", "Read"}
	}
}

func rowFor(prefix string, value []byte) ([]string, error) {
	switch {
	case strings.HasPrefix(prefix, "user:"):
		var u storedUser
		if err := cbor.Unmarshal(value, &u); err != nil {
			return nil, err
		}
		return []string{
			u.ID, u.Username, u.Email,
			strings.Join(u.Roles, ","),
			time.Unix(u.CreatedAt, 0).UTC().Format(time.DateTime),
		}, nil
	case strings.HasPrefix(prefix, "topic:"):
		var t storedTopic
		if err := cbor.Unmarshal(value, &t); err != nil {
			return nil, err
		}
		return []string{
			t.ID, truncate(t.Title, 48), t.AuthorUsername,
			time.Unix(0, t.CreatedAt).UTC().Format(time.DateTime),
		}, nil
	default:
		var m storedMessage
		if err := cbor.Unmarshal(value, &m); err != nil {
			return nil, err
		}
		read := color.Red.Sprint("unread")
		if m.Read {
			read = "read"
		}
		return []string{
			truncate(m.ConversationID, 16), m.SenderID[:8], m.ReceiverID[:8],
			truncate(m.Content, 48),
			time.Unix(0, m.CreatedAt).UTC().Format(time.DateTime),
			read,
		}, nil
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
