package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"viztalk/internal"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

// Local copies of the storage representations keep the viewer independent
// from the repository layer, which cannot run against a read-only store.
type storedConversation struct {
	ID              string    `json:"id"`
	ParticipantLow  string    `json:"participant_low"`
	ParticipantHigh string    `json:"participant_high"`
	CreatedAt       time.Time `json:"created_at"`
}

type storedMessage struct {
	Sender    string    `json:"sender_id"`
	Content   string    `json:"content"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"created_at"`
}

type storedProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AvatarColor string `json:"avatar_color"`
}

func main() {
	conversationID := flag.String("conversation", "", "conversation ID to display; lists all conversations when empty")
	flag.Parse()

	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening while the server holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *conversationID == "" {
		listConversations(db)
		return
	}
	showHistory(db, *conversationID)
}

func listConversations(db *badger.DB) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Participants", "Created"})

	err := scanPrefix(db, "conv:pair:", func(_ string, val []byte) error {
		var conv storedConversation
		if err := json.Unmarshal(val, &conv); err != nil {
			return err
		}
		table.Append([]string{
			conv.ID,
			conv.ParticipantLow + " / " + conv.ParticipantHigh,
			conv.CreatedAt.Format(time.RFC822),
		})
		return nil
	})
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	table.Render()
}

func showHistory(db *badger.DB, conversationID string) {
	profiles := loadProfiles(db)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Sender", "Lang", "Content"})

	prefix := fmt.Sprintf("msg:%s:", conversationID)
	err := scanPrefix(db, prefix, func(_ string, val []byte) error {
		var msg storedMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		table.Append([]string{
			msg.CreatedAt.Format("15:04:05"),
			renderSender(profiles, msg.Sender),
			msg.Lang,
			msg.Content,
		})
		return nil
	})
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	table.Render()
}

// renderSender shows the username in the account's avatar color when the
// profile is known, otherwise the raw participant ID.
func renderSender(profiles map[string]storedProfile, senderID string) string {
	profile, ok := profiles[senderID]
	if !ok {
		return senderID
	}
	if strings.HasPrefix(profile.AvatarColor, "#") {
		return color.HEX(profile.AvatarColor).Sprint(profile.Username)
	}
	return profile.Username
}

func loadProfiles(db *badger.DB) map[string]storedProfile {
	profiles := make(map[string]storedProfile)
	_ = scanPrefix(db, "profile:", func(_ string, val []byte) error {
		var profile storedProfile
		if err := json.Unmarshal(val, &profile); err != nil {
			return nil // Skip undecodable entries, the viewer stays best-effort
		}
		profiles[profile.ID] = profile
		return nil
	})
	return profiles
}

func scanPrefix(db *badger.DB, prefix string, fn func(key string, val []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				return fn(string(item.Key()), append([]byte{}, val...))
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
