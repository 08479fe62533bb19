package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"auctiond/internal/domain"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	assert.Nil(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalogAbsoluteWindows(t *testing.T) {
	path := writeCatalog(t, `{
		"auctions": [
			{
				"id": "auction_01",
				"description": "vintage guitar",
				"minimum_price": 100,
				"start_time": "2026-09-01T10:00:00Z",
				"end_time": "2026-09-01T11:00:00Z"
			},
			{
				"id": "auction_02",
				"description": "rare vinyl",
				"minimum_price": 50,
				"start_time": "2026-09-01T10:30:00Z",
				"end_time": "2026-09-01T12:00:00Z"
			}
		]
	}`)

	auctions, err := NewCatalogSource(path).LoadCatalog(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 2, len(auctions))

	check.Equal(t, "auction_01", auctions[0].ID)
	check.Equal(t, "vintage guitar", auctions[0].Description)
	check.Equal(t, 100.0, auctions[0].MinimumPrice)
	check.Equal(t, domain.AuctionPending, auctions[0].Status)
	check.True(t, auctions[0].EndTime.After(auctions[0].StartTime))
}

func TestLoadCatalogRelativeWindows(t *testing.T) {
	path := writeCatalog(t, `{
		"auctions": [
			{
				"id": "auction_01",
				"description": "vintage guitar",
				"minimum_price": 100,
				"starts_in": "4s",
				"runs_for": "2m"
			}
		]
	}`)

	before := time.Now()
	auctions, err := NewCatalogSource(path).LoadCatalog(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 1, len(auctions))

	a := auctions[0]
	check.True(t, !a.StartTime.Before(before.Add(4*time.Second)))
	check.Equal(t, 2*time.Minute, a.EndTime.Sub(a.StartTime))
}

func TestLoadCatalogRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"empty":          `{"auctions": []}`,
		"missing id":     `{"auctions": [{"description": "x", "starts_in": "1s", "runs_for": "1m"}]}`,
		"missing window": `{"auctions": [{"id": "a", "description": "x"}]}`,
		"inverted window": `{"auctions": [{"id": "a", "description": "x",
			"start_time": "2026-09-01T11:00:00Z", "end_time": "2026-09-01T10:00:00Z"}]}`,
		"not json": `nope`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeCatalog(t, content)
			_, err := NewCatalogSource(path).LoadCatalog(context.Background())
			check.NotNil(t, err)
		})
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := NewCatalogSource("/does/not/exist.json").LoadCatalog(context.Background())
	check.True(t, errors.Is(err, os.ErrNotExist))
}
