package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore()
	s.now = clock.Now
	return s, clock
}

func TestStore_RegisterAndLogin(t *testing.T) {
	s, clock := newTestStore()

	user, code, err := s.Register("k1", RegisterRequest{UserName: "Alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, code)
	assert.Equal(t, []string{"Authenticated"}, user.Roles)

	_, _, err = s.Register("k1", RegisterRequest{UserName: "alice", Password: "other"})
	assert.ErrorIs(t, err, ErrConflict)

	_, _, err = s.Register("k1", RegisterRequest{UserName: "bob"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// accounts are per API key
	_, err = s.Login("k2", "alice", "pw", time.Hour)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = s.Login("k1", "alice", "wrong", time.Hour)
	assert.ErrorIs(t, err, ErrUnauthorized)

	token, err := s.Login("k1", "ALICE", "pw", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, 3600, token.ExpiresIn)
	assert.Equal(t, 1, s.SessionCount())

	current, err := s.Authenticate("k1", token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)

	clock.now = clock.now.Add(time.Hour)
	_, err = s.Authenticate("k1", token.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, s.SessionCount())
}

func TestStore_Logout(t *testing.T) {
	s, _ := newTestStore()
	_, _, err := s.Register("k1", RegisterRequest{UserName: "alice", Password: "pw"})
	require.NoError(t, err)

	token, err := s.Login("k1", "alice", "pw", time.Hour)
	require.NoError(t, err)

	assert.True(t, s.Logout("k1", token.AccessToken))
	assert.False(t, s.Logout("k1", token.AccessToken))

	_, err = s.Authenticate("k1", token.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestStore_ActivationAndRecovery(t *testing.T) {
	s, _ := newTestStore()
	user, code, err := s.Register("k1", RegisterRequest{UserName: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Activate("k1", "bogus"), ErrNotFound)
	require.NoError(t, s.Activate("k1", code))
	assert.ErrorIs(t, s.Activate("k1", code), ErrNotFound)

	item, err := s.GetItem("k1", usersCollection, user.ID)
	require.NoError(t, err)
	assert.Equal(t, true, item["isActivated"])

	_, err = s.RequestRecovery("k1", "", "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	recovery, err := s.RequestRecovery("k1", "", "ALICE@example.com")
	require.NoError(t, err)

	require.NoError(t, s.ResetPassword("k1", recovery, "new-pw"))
	assert.ErrorIs(t, s.ResetPassword("k1", recovery, "again"), ErrNotFound)

	_, err = s.Login("k1", "alice", "pw", time.Hour)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = s.Login("k1", "alice", "new-pw", time.Hour)
	assert.NoError(t, err)

	require.NoError(t, s.ChangePassword("k1", user.ID, "third"))
	_, err = s.Login("k1", "alice", "third", time.Hour)
	assert.NoError(t, err)
}

func TestStore_LockedUserCannotLogin(t *testing.T) {
	s, _ := newTestStore()
	user, _, err := s.Register("k1", RegisterRequest{UserName: "alice", Password: "pw"})
	require.NoError(t, err)

	_, err = s.Apply("k1", usersCollection, user.ID, "lock", nil)
	require.NoError(t, err)

	_, err = s.Login("k1", "alice", "pw", time.Hour)
	assert.ErrorIs(t, err, ErrLocked)

	_, err = s.Apply("k1", usersCollection, user.ID, "unlock", nil)
	require.NoError(t, err)

	_, err = s.Login("k1", "alice", "pw", time.Hour)
	assert.NoError(t, err)
}

func TestStore_Collections(t *testing.T) {
	s, _ := newTestStore()

	titles := []string{"Gamma", "alpha", "Beta", "delta", "Alphabet"}
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		item, err := s.Create("k1", "articles", Item{"title": title})
		require.NoError(t, err)
		ids = append(ids, item["id"].(string))
	}
	assert.True(t, s.HasCollection("k1", "articles"))
	assert.False(t, s.HasCollection("k2", "articles"))

	_, err := s.Create("k1", "articles", Item{"id": ids[0]})
	assert.ErrorIs(t, err, ErrConflict)

	t.Run("paging", func(t *testing.T) {
		page, err := s.List("k1", "articles", ListQuery{Page: 2, RecordsPerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, page.TotalRecords)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "Beta", page.Items[0]["title"])

		page, err = s.List("k1", "articles", ListQuery{Page: 9, RecordsPerPage: 2})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("search", func(t *testing.T) {
		page, err := s.List("k1", "articles", ListQuery{SearchQuery: "ALPHA"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.TotalRecords)
		assert.Equal(t, "ALPHA", page.SearchQuery)
	})

	t.Run("sort and fields", func(t *testing.T) {
		page, err := s.List("k1", "articles", ListQuery{Sort: "-title", Fields: []string{"title"}})
		require.NoError(t, err)
		require.Len(t, page.Items, 5)
		assert.Equal(t, "delta", page.Items[0]["title"])
		assert.Len(t, page.Items[0], 2)

		page, err = s.List("k1", "articles", ListQuery{Sort: "title|desc"})
		require.NoError(t, err)
		assert.Equal(t, "delta", page.Items[0]["title"])

		page, err = s.List("k1", "articles", ListQuery{Sort: "title"})
		require.NoError(t, err)
		assert.Equal(t, "Alphabet", page.Items[0]["title"])
	})

	t.Run("update and actions", func(t *testing.T) {
		item, err := s.Update("k1", "articles", ids[1], Item{"title": "Alpha", "id": "ignored"})
		require.NoError(t, err)
		assert.Equal(t, "Alpha", item["title"])
		assert.Equal(t, ids[1], item["id"])

		item, err = s.Apply("k1", "articles", ids[1], "publish", Item{"publishDate": "2024-06-01"})
		require.NoError(t, err)
		assert.Equal(t, true, item["isPublished"])
		assert.Equal(t, "2024-06-01", item["publishDate"])
		assert.Equal(t, []interface{}{"publish"}, item["actions"])

		_, err = s.Apply("k1", "articles", "missing", "publish", nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteItem("k1", "articles", ids[0]))
		assert.ErrorIs(t, s.DeleteItem("k1", "articles", ids[0]), ErrNotFound)

		page, err := s.List("k1", "articles", ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, 4, page.TotalRecords)

		require.NoError(t, s.ClearCollection("k1", "articles"))
		page, err = s.List("k1", "articles", ListQuery{})
		require.NoError(t, err)
		assert.Zero(t, page.TotalRecords)
	})
}

func TestStore_Documents(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.GetDocument("k1", "article-settings")
	assert.ErrorIs(t, err, ErrNotFound)

	s.PutDocument("k1", "article-settings", Item{"allowComments": true})
	doc, err := s.GetDocument("k1", "article-settings")
	require.NoError(t, err)
	assert.Equal(t, Item{"allowComments": true}, doc)
}

func TestStore_ExpiredSessions(t *testing.T) {
	s, clock := newTestStore()
	_, _, err := s.Register("k1", RegisterRequest{UserName: "alice", Password: "pw"})
	require.NoError(t, err)

	short, err := s.Login("k1", "alice", "pw", time.Minute)
	require.NoError(t, err)
	_, err = s.Login("k1", "alice", "pw", time.Hour)
	require.NoError(t, err)

	assert.Empty(t, s.ExpiredSessions(clock.now))

	clock.now = clock.now.Add(2 * time.Minute)
	expired := s.ExpiredSessions(clock.now)
	require.Len(t, expired, 1)
	assert.Equal(t, "k1", expired[0].APIKey)
	assert.Equal(t, short.AccessToken, expired[0].Token)
	assert.Equal(t, "alice", expired[0].UserName)
}
