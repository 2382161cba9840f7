package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortCards(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t1.Add(2 * time.Hour)

	cards := []Card{
		{ID: "c", OpenCount: 3, CreatedAt: t3},
		{ID: "a", OpenCount: 5, CreatedAt: t1},
		{ID: "b", OpenCount: 5, CreatedAt: t2},
	}
	SortCards(cards)
	assert.Equal(t, []string{"b", "a", "c"}, ids(cards))

	cards[2].OpenCount = 6
	SortCards(cards)
	assert.Equal(t, []string{"c", "b", "a"}, ids(cards))
}

func TestSortCardsOrderInvariant(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var cards []Card
	for i := 0; i < 40; i++ {
		cards = append(cards, Card{
			ID:        string(rune('A' + i)),
			OpenCount: (i * 7) % 5,
			CreatedAt: base.Add(time.Duration((i*13)%11) * time.Minute),
		})
	}
	SortCards(cards)
	for i := 1; i < len(cards); i++ {
		a, b := cards[i-1], cards[i]
		ok := a.OpenCount > b.OpenCount ||
			(a.OpenCount == b.OpenCount && !b.CreatedAt.After(a.CreatedAt))
		require.Truef(t, ok, "%s listed before %s", a.ID, b.ID)
	}
}

func TestCloneCards(t *testing.T) {
	assert.NotNil(t, CloneCards(nil))
	assert.Empty(t, CloneCards(nil))

	in := []Card{{ID: "a"}}
	out := CloneCards(in)
	out[0].ID = "b"
	assert.Equal(t, "a", in[0].ID)
}

func TestIndexOf(t *testing.T) {
	cards := []Card{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, 1, IndexOf(cards, "b"))
	assert.Equal(t, -1, IndexOf(cards, "zz"))
}

func TestNormalize(t *testing.T) {
	empty := ""
	tests := []struct {
		name string
		in   NewCard
		err  error
	}{
		{"ok barcode", NewCard{Name: "Shop", Number: "12345"}, nil},
		{"missing name", NewCard{Name: "  ", Number: "1"}, ErrNameRequired},
		{"missing number", NewCard{Name: "Shop", Number: " "}, ErrNumberRequired},
		{"non ascii barcode", NewCard{Name: "Shop", Number: "näh"}, ErrNumberNotASCII},
		{"non ascii qr", NewCard{Name: "Shop", Number: "näh", IsQRCode: true}, nil},
		{"empty image", NewCard{Name: "Shop", Number: "1", ImageURL: &empty}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			err := in.Normalize()
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, in.Color)
			assert.Nil(t, in.ImageURL)
		})
	}
}

func TestNormalizeKeepsColor(t *testing.T) {
	in := NewCard{Name: "Shop", Number: "1", Color: "not-a-color"}
	require.NoError(t, in.Normalize())
	assert.Equal(t, "not-a-color", in.Color)
}

func ids(cards []Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}
