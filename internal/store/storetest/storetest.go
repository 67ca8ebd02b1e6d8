// Package storetest is a conformance suite run against every store backend.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilost/unilost/internal/model"
	"github.com/unilost/unilost/internal/store"
)

// Factory returns an empty, migrated store. It is called once per subtest
// and is responsible for cleaning up after it.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"UserCreateAndFind", testUserCreateAndFind},
		{"UserFindMissing", testUserFindMissing},
		{"UserFindAll", testUserFindAll},
		{"UserDuplicateID", testUserDuplicateID},
		{"UserUpdateName", testUserUpdateName},
		{"ItemCreateDefaults", testItemCreateDefaults},
		{"ItemCreateAllFields", testItemCreateAllFields},
		{"ItemCreateUnknownCreator", testItemCreateUnknownCreator},
		{"ItemFindMissing", testItemFindMissing},
		{"ItemFindAllOrderAndFilter", testItemFindAllOrderAndFilter},
		{"ItemUpdate", testItemUpdate},
		{"ItemUpdateEmpty", testItemUpdateEmpty},
		{"ItemUpdateMissing", testItemUpdateMissing},
		{"ItemUpdateLocation", testItemUpdateLocation},
		{"ItemDeleteCascades", testItemDeleteCascades},
		{"ItemDeleteMissing", testItemDeleteMissing},
		{"ChatEmpty", testChatEmpty},
		{"ChatRecentOrder", testChatRecentOrder},
		{"ChatDefaultLimit", testChatDefaultLimit},
		{"ChatVerbatimText", testChatVerbatimText},
		{"ThreadCreateAndFind", testThreadCreateAndFind},
		{"ThreadUnknownItem", testThreadUnknownItem},
		{"ThreadScopedToItem", testThreadScopedToItem},
		{"ThreadLimit", testThreadLimit},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func createUser(t *testing.T, s store.Store, id string, isAdmin bool) {
	t.Helper()
	_, err := s.Users().Create(context.Background(), id, "Name "+id, "hash-"+id, isAdmin)
	require.NoError(t, err)
}

func createItem(t *testing.T, s store.Store, title string) *model.Item {
	t.Helper()
	item, err := s.Items().Create(context.Background(), model.NewItem{
		Title: title,
		Lat:   37.2829,
		Lng:   127.0435,
	})
	require.NoError(t, err)
	return item
}

func testUserCreateAndFind(t *testing.T, s store.Store) {
	ctx := context.Background()

	created, err := s.Users().Create(ctx, "admin1", "Admin 1", "bcrypt-hash", true)
	require.NoError(t, err)
	assert.Equal(t, "admin1", created.ID)
	assert.Equal(t, "Admin 1", created.Name)
	assert.True(t, created.IsAdmin)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.Users().FindByID(ctx, "admin1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bcrypt-hash", got.PasswordHash)
	assert.True(t, got.IsAdmin)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
}

func testUserFindMissing(t *testing.T, s store.Store) {
	got, err := s.Users().FindByID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testUserFindAll(t *testing.T, s store.Store) {
	ctx := context.Background()

	users, err := s.Users().FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	createUser(t, s, "student1", false)
	createUser(t, s, "admin1", true)

	users, err = s.Users().FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.UserSummary{
		{ID: "admin1", Name: "Name admin1", IsAdmin: true},
		{ID: "student1", Name: "Name student1", IsAdmin: false},
	}, users)
}

func testUserDuplicateID(t *testing.T, s store.Store) {
	createUser(t, s, "student1", false)

	_, err := s.Users().Create(context.Background(), "student1", "Again", "x", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConstraint)
}

func testUserUpdateName(t *testing.T, s store.Store) {
	ctx := context.Background()
	createUser(t, s, "student1", false)

	require.NoError(t, s.Users().UpdateName(ctx, "student1", "Student 1"))

	got, err := s.Users().FindByID(ctx, "student1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Student 1", got.Name)
}

func testItemCreateDefaults(t *testing.T, s store.Store) {
	item := createItem(t, s, "Umbrella")

	assert.Positive(t, item.ID)
	assert.Equal(t, "Umbrella", item.Title)
	assert.Equal(t, model.ItemStatusPending, item.Status)
	assert.Zero(t, item.Radius)
	assert.Empty(t, item.Description)
	assert.Nil(t, item.StoragePlace)
	assert.Nil(t, item.CreatedBy)
	assert.False(t, item.CreatedAt.IsZero())
}

func testItemCreateAllFields(t *testing.T, s store.Store) {
	ctx := context.Background()
	createUser(t, s, "student1", false)

	item, err := s.Items().Create(ctx, model.NewItem{
		Title:        "Wallet",
		Description:  "Black leather",
		Category:     "wallet",
		ImgData:      "data:image/gif;base64,R0lGODlhAQABAAAAACw=",
		Lat:          37.2831,
		Lng:          127.0448,
		Radius:       25.5,
		Status:       model.ItemStatusApproved,
		StoragePlace: ptr("Student center desk"),
		CreatedBy:    ptr("student1"),
	})
	require.NoError(t, err)

	got, err := s.Items().FindByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Black leather", got.Description)
	assert.Equal(t, "wallet", got.Category)
	assert.Equal(t, "data:image/gif;base64,R0lGODlhAQABAAAAACw=", got.ImgData)
	assert.InDelta(t, 37.2831, got.Lat, 1e-9)
	assert.InDelta(t, 127.0448, got.Lng, 1e-9)
	assert.InDelta(t, 25.5, got.Radius, 1e-9)
	assert.Equal(t, model.ItemStatusApproved, got.Status)
	require.NotNil(t, got.StoragePlace)
	assert.Equal(t, "Student center desk", *got.StoragePlace)
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, "student1", *got.CreatedBy)
}

func testItemCreateUnknownCreator(t *testing.T, s store.Store) {
	_, err := s.Items().Create(context.Background(), model.NewItem{
		Title:     "Keys",
		CreatedBy: ptr("ghost"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConstraint)
}

func testItemFindMissing(t *testing.T, s store.Store) {
	got, err := s.Items().FindByID(context.Background(), 999999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testItemFindAllOrderAndFilter(t *testing.T, s store.Store) {
	ctx := context.Background()

	items, err := s.Items().FindAll(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	first := createItem(t, s, "first")
	second := createItem(t, s, "second")
	third := createItem(t, s, "third")
	_, err = s.Items().Update(ctx, second.ID, model.ItemUpdate{Status: ptr(model.ItemStatusApproved)})
	require.NoError(t, err)

	items, err = s.Items().FindAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{third.ID, second.ID, first.ID}, itemIDs(items))
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt), "created_at must be non-increasing")
	}

	approved, err := s.Items().FindAll(ctx, model.ItemStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, []int64{second.ID}, itemIDs(approved))

	pending, err := s.Items().FindAll(ctx, model.ItemStatusPending)
	require.NoError(t, err)
	assert.Equal(t, []int64{third.ID, first.ID}, itemIDs(pending))
}

func itemIDs(items []model.Item) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func testItemUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	item := createItem(t, s, "Laptop")

	updated, err := s.Items().Update(ctx, item.ID, model.ItemUpdate{Status: ptr(model.ItemStatusApproved)})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, model.ItemStatusApproved, updated.Status)
	assert.Nil(t, updated.StoragePlace)

	updated, err = s.Items().Update(ctx, item.ID, model.ItemUpdate{StoragePlace: ptr("Library front desk")})
	require.NoError(t, err)
	require.NotNil(t, updated.StoragePlace)
	assert.Equal(t, "Library front desk", *updated.StoragePlace)
	assert.Equal(t, model.ItemStatusApproved, updated.Status, "status must be untouched")

	// Status is an open string at the storage layer.
	updated, err = s.Items().Update(ctx, item.ID, model.ItemUpdate{Status: ptr("returned")})
	require.NoError(t, err)
	assert.Equal(t, "returned", updated.Status)

	// An empty storage place clears it.
	updated, err = s.Items().Update(ctx, item.ID, model.ItemUpdate{StoragePlace: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.StoragePlace)
}

func testItemUpdateEmpty(t *testing.T, s store.Store) {
	item := createItem(t, s, "Laptop")

	updated, err := s.Items().Update(context.Background(), item.ID, model.ItemUpdate{})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func testItemUpdateMissing(t *testing.T, s store.Store) {
	_, err := s.Items().Update(context.Background(), 999999, model.ItemUpdate{Status: ptr("approved")})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testItemUpdateLocation(t *testing.T, s store.Store) {
	ctx := context.Background()
	item := createItem(t, s, "Bottle")

	require.NoError(t, s.Items().UpdateLocation(ctx, item.ID, 37.2845, 127.0442))

	got, err := s.Items().FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.InDelta(t, 37.2845, got.Lat, 1e-9)
	assert.InDelta(t, 127.0442, got.Lng, 1e-9)
}

func testItemDeleteCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	item := createItem(t, s, "Card")
	other := createItem(t, s, "Other")

	_, err := s.Threads().Create(ctx, item.ID, "a", "is this mine?")
	require.NoError(t, err)
	_, err = s.Threads().Create(ctx, other.ID, "b", "unrelated")
	require.NoError(t, err)

	require.NoError(t, s.Items().Delete(ctx, item.ID))

	got, err := s.Items().FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	msgs, err := s.Threads().FindByItemID(ctx, item.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = s.Threads().FindByItemID(ctx, other.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func testItemDeleteMissing(t *testing.T, s store.Store) {
	err := s.Items().Delete(context.Background(), 999999)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testChatEmpty(t *testing.T, s store.Store) {
	msgs, err := s.Chat().FindRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func testChatRecentOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := range 5 {
		_, err := s.Chat().Create(ctx, "nick", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	msgs, err := s.Chat().FindRecent(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3", "m4"}, chatTexts(msgs))
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt), "ts must be non-decreasing")
	}
}

func testChatDefaultLimit(t *testing.T, s store.Store) {
	ctx := context.Background()
	total := store.DefaultHistoryLimit + 5
	for i := range total {
		_, err := s.Chat().Create(ctx, "nick", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	msgs, err := s.Chat().FindRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, store.DefaultHistoryLimit)
	assert.Equal(t, "m5", msgs[0].Text)
	assert.Equal(t, fmt.Sprintf("m%d", total-1), msgs[len(msgs)-1].Text)
}

func testChatVerbatimText(t *testing.T, s store.Store) {
	ctx := context.Background()
	text := "  <b>분실물</b> 'quoted' \"double\" ; DROP TABLE users; --  "

	created, err := s.Chat().Create(ctx, "닉네임", text)
	require.NoError(t, err)
	assert.Equal(t, text, created.Text)
	assert.Equal(t, "닉네임", created.Nick)
	assert.Positive(t, created.ID)

	msgs, err := s.Chat().FindRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, text, msgs[0].Text)
}

func chatTexts(msgs []model.ChatMessage) []string {
	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Text
	}
	return texts
}

func testThreadCreateAndFind(t *testing.T, s store.Store) {
	ctx := context.Background()
	item := createItem(t, s, "Phone")

	created, err := s.Threads().Create(ctx, item.ID, "finder", "found near the gate")
	require.NoError(t, err)
	assert.Equal(t, item.ID, created.ItemID)
	assert.Equal(t, "finder", created.Nick)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = s.Threads().Create(ctx, item.ID, "owner", "that's mine")
	require.NoError(t, err)

	msgs, err := s.Threads().FindByItemID(ctx, item.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "found near the gate", msgs[0].Text)
	assert.Equal(t, "that's mine", msgs[1].Text)
}

func testThreadUnknownItem(t *testing.T, s store.Store) {
	_, err := s.Threads().Create(context.Background(), 999999, "nick", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConstraint)
}

func testThreadScopedToItem(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := createItem(t, s, "a")
	b := createItem(t, s, "b")

	_, err := s.Threads().Create(ctx, a.ID, "x", "for a")
	require.NoError(t, err)

	msgs, err := s.Threads().FindByItemID(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func testThreadLimit(t *testing.T, s store.Store) {
	ctx := context.Background()
	item := createItem(t, s, "Book")
	for i := range 4 {
		_, err := s.Threads().Create(ctx, item.ID, "nick", fmt.Sprintf("t%d", i))
		require.NoError(t, err)
	}

	msgs, err := s.Threads().FindByItemID(ctx, item.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "t0", msgs[0].Text)
	assert.Equal(t, "t1", msgs[1].Text)
}

func testPing(t *testing.T, s store.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}
