package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"applicant-intake/internal/intake/address"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name                string
		first, middle, last string
	}{
		{"", "", "", ""},
		{"Asha", "Asha", "", ""},
		{"Asha Rao", "Asha", "", "Rao"},
		{"Asha Devi Rao", "Asha", "Devi", "Rao"},
		{"  Asha  Devi Kumari   Rao ", "Asha", "Devi Kumari", "Rao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, middle, last := SplitName(tt.name)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.middle, middle)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestHydrate_NoRows(t *testing.T) {
	h := Hydrate(nil)
	require.Equal(t, 1, h.Roster.Len())
	p, ok := h.Roster.Primary()
	require.True(t, ok)
	assert.Equal(t, models.PrimaryLabel, p.Label)
	assert.Equal(t, address.New(), h.Address)
	assert.Empty(t, h.PersistedIDs)
}

func TestHydrate_Rows(t *testing.T) {
	rows := []models.StoredApplicant{
		{Applicant: models.StoredPerson{ID: "rec-2", Name: "Vikram Rao", DateOfBirth: "1988-02-03T00:00:00Z"}},
		{IsPrimary: true, Applicant: models.StoredPerson{
			ID:              "rec-1",
			Name:            "Asha Devi Rao",
			PANNo:           "abcde1234f",
			AnniversaryDate: "2015-11-20 00:00:00",
			CurrentAddress:  models.StoredAddress{Street: "12 MG Road", City: "Pune", StateCode: "MH", PostalCode: "411001"},
			PermanentAddress: models.StoredAddress{
				Street: "4 Lake View", City: "Nagpur", StateCode: "MH", PostalCode: "440001", CountryCode: "IN",
			},
		}},
	}

	h := Hydrate(rows)
	applicants := h.Roster.Applicants()
	require.Len(t, applicants, 2)

	primary := applicants[0]
	assert.True(t, primary.IsPrimary)
	assert.Equal(t, "applicant-1", primary.ID)
	assert.Equal(t, models.PrimaryLabel, primary.Label)
	assert.Equal(t, "Asha", primary.FirstName)
	assert.Equal(t, "Devi", primary.MiddleName)
	assert.Equal(t, "Rao", primary.LastName)
	assert.Equal(t, "Asha Devi Rao", primary.FullName)
	assert.Equal(t, "ABCDE1234F", primary.PAN)
	assert.Equal(t, "2015-11-20", primary.AnniversaryDate)
	assert.Equal(t, models.NoneValue, primary.Gender)
	assert.Equal(t, models.DefaultMobileCode, primary.MobileCountryCode)

	co := applicants[1]
	assert.False(t, co.IsPrimary)
	assert.Equal(t, "Co-Applicant 1", co.Label)
	assert.Equal(t, "1988-02-03", co.DateOfBirth)

	assert.Equal(t, map[string]string{"applicant-1": "rec-1", "applicant-2": "rec-2"}, h.PersistedIDs)

	// the address comes from the first row, which carries none
	assert.Equal(t, models.DefaultCountry, h.Address.Correspondence.Country)
	assert.Empty(t, h.Address.Correspondence.City)
	assert.False(t, h.Address.SameAsPermanent)

	// new applicants continue after the loaded ones
	_, id, err := h.Roster.AddApplicant(false)
	require.NoError(t, err)
	assert.Equal(t, "applicant-3", id)
}

func TestHydrate_AddressFromFirstRow(t *testing.T) {
	h := Hydrate([]models.StoredApplicant{{IsPrimary: true, Applicant: models.StoredPerson{
		Name:             "Asha Rao",
		CurrentAddress:   models.StoredAddress{Street: "12 MG Road", City: "Pune", StateCode: "MH", PostalCode: "411001"},
		PermanentAddress: models.StoredAddress{City: "Nagpur", CountryCode: "US"},
	}}})

	assert.Equal(t, address.Group{Address: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001", Country: "IN"}, h.Address.Correspondence)
	assert.Equal(t, address.Group{City: "Nagpur", Country: "US"}, h.Address.Permanent)
}

func TestHydrate_NoPrimaryRow(t *testing.T) {
	h := Hydrate([]models.StoredApplicant{{Applicant: models.StoredPerson{Name: "Vikram Rao"}}})
	require.Equal(t, 2, h.Roster.Len())
	p, ok := h.Roster.Primary()
	require.True(t, ok)
	assert.Equal(t, "applicant-2", p.ID)
	assert.Equal(t, "Vikram", h.Roster.CoApplicants()[0].FirstName)
}

func TestNewUnseeded(t *testing.T) {
	s := NewUnseeded("BK-1")
	assert.False(t, s.Roster.Seeded())
	assert.Equal(t, 0, s.Roster.Len())
	assert.Equal(t, address.New(), s.Address)
}

func earlyRoster(t *testing.T, names ...string) roster.Roster {
	t.Helper()
	r := roster.New()
	for _, name := range names {
		next, id, err := r.AddApplicant(false)
		require.NoError(t, err)
		next, err = next.UpdateField(id, models.FieldFirstName, name)
		require.NoError(t, err)
		r = next
	}
	return r
}

func TestAdopt(t *testing.T) {
	early := earlyRoster(t, "Meera", "Kiran")
	earlyAddr := address.New()
	earlyAddr.Correspondence.City = "Delhi"

	tests := []struct {
		name      string
		rows      []models.StoredApplicant
		wantFirst []string
		wantCity  string
		wantIDs   map[string]string
	}{
		{
			name:      "no stored rows keeps the early roster",
			wantFirst: []string{"", "Meera", "Kiran"},
			wantCity:  "Delhi",
			wantIDs:   map[string]string{},
		},
		{
			name: "stored rows come first",
			rows: []models.StoredApplicant{
				{IsPrimary: true, Applicant: models.StoredPerson{ID: "rec-1", Name: "Asha Rao",
					CurrentAddress: models.StoredAddress{City: "Pune"}}},
			},
			wantFirst: []string{"Asha", "Meera", "Kiran"},
			wantCity:  "Pune",
			wantIDs:   map[string]string{"applicant-1": "rec-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Adopt(Hydrate(tt.rows), early, earlyAddr, len(tt.rows) > 0)

			require.True(t, h.Roster.Seeded())
			applicants := h.Roster.Applicants()
			require.Len(t, applicants, len(tt.wantFirst))
			seen := map[string]bool{}
			for i, a := range applicants {
				assert.Equal(t, tt.wantFirst[i], a.FirstName)
				assert.Equal(t, i == 0, a.IsPrimary)
				assert.False(t, seen[a.ID], "ids stay unique")
				seen[a.ID] = true
			}
			assert.Equal(t, "Co-Applicant 2", applicants[2].Label)
			assert.Equal(t, tt.wantCity, h.Address.Correspondence.City)
			assert.Equal(t, tt.wantIDs, h.PersistedIDs)
		})
	}
}

func setupStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewStore(client, "intake", time.Hour)
}

func TestStore_GetPut(t *testing.T) {
	ctx := context.Background()
	mr, store := setupStore(t)

	_, err := store.Get(ctx, "BK-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess := New("BK-1")
	sess.Files = sess.Files.With(sess.Roster.Applicants()[0].ID, models.CategoryPAN, "doc-1")
	_, err = store.Put(ctx, sess)
	require.NoError(t, err)
	assert.True(t, mr.Exists("intake:session:BK-1"))
	assert.Equal(t, time.Hour, mr.TTL("intake:session:BK-1"))

	got, err := store.Get(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, sess.Roster.Applicants(), got.Roster.Applicants())
	assert.Equal(t, sess.Roster.Open(), got.Roster.Open())
	assert.Equal(t, sess.Wizard, got.Wizard)
	assert.Equal(t, []string{"doc-1"}, got.Files.For(sess.Roster.Applicants()[0].ID)[models.CategoryPAN])
	assert.False(t, got.UpdatedAt.IsZero())

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "BK-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	_, store := setupStore(t)

	_, err := store.Update(ctx, "BK-1", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Put(ctx, New("BK-1"))
	require.NoError(t, err)

	updated, err := store.Update(ctx, "BK-1", func(s *Session) error {
		next, _, err := s.Roster.AddApplicant(false)
		s.Roster = next
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Roster.Len())

	boom := errors.New("boom")
	_, err = store.Update(ctx, "BK-1", func(s *Session) error {
		s.BookingEmail = "lost@example.com"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Roster.Len())
	assert.Empty(t, got.BookingEmail)
}

func TestStore_ConcurrentUpdatesKeepEveryWrite(t *testing.T) {
	ctx := context.Background()
	_, store := setupStore(t)
	_, err := store.Put(ctx, New("BK-1"))
	require.NoError(t, err)

	const writers = 4
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Update(ctx, "BK-1", func(s *Session) error {
				next, _, err := s.Roster.AddApplicant(false)
				s.Roster = next
				return err
			})
		}(i)
	}
	wg.Wait()

	added := 0
	for _, err := range errs {
		if err == nil {
			added++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	got, err := store.Get(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, 1+added, got.Roster.Len())
}
