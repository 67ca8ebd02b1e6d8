// Package seed fills a store with demo data and applies one-off maintenance
// fixes. It works against either backend through store.Store.
package seed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/unilost/unilost/internal/auth"
	"github.com/unilost/unilost/internal/model"
	"github.com/unilost/unilost/internal/store"
)

// Demo account passwords.
const (
	StudentPassword = "1234"
	AdminPassword   = "admin123"
)

// Numbered accounts handled by the demo and rename commands.
const (
	maxStudents = 10
	maxAdmins   = 10
	demoAdmins  = 2
)

// DemoResult counts what Demo inserted.
type DemoResult struct {
	Users   int
	Items   int
	Chat    int
	Threads int
}

// Demo inserts the sample accounts, items, chat and thread messages. Missing
// demo accounts are created first so that every sample item has a valid
// creator. Running it twice inserts the items and messages twice.
func Demo(ctx context.Context, s store.Store) (DemoResult, error) {
	var res DemoResult

	users, err := ensureDemoUsers(ctx, s)
	if err != nil {
		return res, err
	}
	res.Users = users

	var itemIDs []int64
	for _, it := range sampleItems {
		item, err := s.Items().Create(ctx, it)
		if err != nil {
			return res, fmt.Errorf("adding item %q: %w", it.Title, err)
		}
		itemIDs = append(itemIDs, item.ID)
		res.Items++
		slog.Info("added item", "id", item.ID, "title", item.Title)
	}

	for _, m := range sampleChat {
		if _, err := s.Chat().Create(ctx, m.Nick, m.Text); err != nil {
			return res, fmt.Errorf("adding chat message from %s: %w", m.Nick, err)
		}
		res.Chat++
	}
	slog.Info("added chat messages", "count", res.Chat)

	for i, m := range sampleThreads {
		if i >= len(itemIDs) {
			break
		}
		if _, err := s.Threads().Create(ctx, itemIDs[i], m.Nick, m.Text); err != nil {
			return res, fmt.Errorf("adding thread message for item %d: %w", itemIDs[i], err)
		}
		res.Threads++
		slog.Info("added thread message", "item", itemIDs[i], "nick", m.Nick)
	}

	return res, nil
}

func ensureDemoUsers(ctx context.Context, s store.Store) (int, error) {
	type account struct {
		id, name, password string
		admin              bool
	}
	var accounts []account
	for i := 1; i <= maxStudents; i++ {
		n := strconv.Itoa(i)
		accounts = append(accounts, account{"student" + n, "Student " + n, StudentPassword, false})
	}
	for i := 1; i <= demoAdmins; i++ {
		n := strconv.Itoa(i)
		accounts = append(accounts, account{"admin" + n, "Admin " + n, AdminPassword, true})
	}

	created := 0
	for _, a := range accounts {
		existing, err := s.Users().FindByID(ctx, a.id)
		if err != nil {
			return created, fmt.Errorf("looking up user %s: %w", a.id, err)
		}
		if existing != nil {
			continue
		}

		hash, err := auth.HashPassword(a.password)
		if err != nil {
			return created, err
		}
		if _, err := s.Users().Create(ctx, a.id, a.name, hash, a.admin); err != nil {
			return created, fmt.Errorf("creating user %s: %w", a.id, err)
		}
		created++
		slog.Info("created demo user", "id", a.id, "admin", a.admin)
	}
	return created, nil
}

// Relocate moves every item onto CampusLocations, assigned round-robin in
// ascending ID order. It returns the number of items moved.
func Relocate(ctx context.Context, s store.Store) (int, error) {
	items, err := s.Items().FindAll(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("listing items: %w", err)
	}
	slices.SortFunc(items, func(a, b model.Item) int { return cmp.Compare(a.ID, b.ID) })

	for i, item := range items {
		loc := CampusLocations[i%len(CampusLocations)]
		if err := s.Items().UpdateLocation(ctx, item.ID, loc.Lat, loc.Lng); err != nil {
			return i, fmt.Errorf("moving item %d: %w", item.ID, err)
		}
		slog.Info("moved item", "id", item.ID, "lat", loc.Lat, "lng", loc.Lng)
	}
	return len(items), nil
}

// RenameUsers sets the display name of studentN and adminN accounts to
// "Student N" and "Admin N". Accounts that do not exist are skipped. It
// returns the number of accounts renamed.
func RenameUsers(ctx context.Context, s store.Store) (int, error) {
	renamed := 0
	rename := func(prefix, label string, count int) error {
		for i := 1; i <= count; i++ {
			n := strconv.Itoa(i)
			id := prefix + n
			user, err := s.Users().FindByID(ctx, id)
			if err != nil {
				return fmt.Errorf("looking up user %s: %w", id, err)
			}
			if user == nil {
				continue
			}
			if err := s.Users().UpdateName(ctx, id, label+" "+n); err != nil {
				return fmt.Errorf("renaming user %s: %w", id, err)
			}
			renamed++
			slog.Info("renamed user", "id", id, "name", label+" "+n)
		}
		return nil
	}

	if err := rename("student", "Student", maxStudents); err != nil {
		return renamed, err
	}
	if err := rename("admin", "Admin", maxAdmins); err != nil {
		return renamed, err
	}
	return renamed, nil
}
