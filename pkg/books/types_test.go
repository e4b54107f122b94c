package books

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookUpdate_IsEmpty(t *testing.T) {
	assert.True(t, BookUpdate{}.IsEmpty())

	title := "Dune"
	assert.False(t, BookUpdate{Title: &title}.IsEmpty())

	year := 1965
	assert.False(t, BookUpdate{Year: &year}.IsEmpty())
}

func TestBookFilter_IsEmpty(t *testing.T) {
	assert.True(t, BookFilter{}.IsEmpty())

	author := "Herbert"
	assert.False(t, BookFilter{Author: &author}.IsEmpty())
}

func TestHealthStatus_Healthy(t *testing.T) {
	assert.True(t, HealthStatus{Status: StatusHealthy}.Healthy())
	assert.False(t, HealthStatus{Status: StatusUnhealthy}.Healthy())
}

func TestBook_JSONShape(t *testing.T) {
	createdOn := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	book := Book{
		ID:        "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		Title:     "Dune",
		Author:    "Frank Herbert",
		Year:      1965,
		CreatedOn: &createdOn,
	}

	data, err := json.Marshal(book)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		"title": "Dune",
		"author": "Frank Herbert",
		"year": 1965,
		"created_on": "2024-03-01T12:00:00Z"
	}`, string(data))

	// created_on is null, not omitted, when unset
	data, err = json.Marshal(Book{ID: "x", Title: "T", Author: "A", Year: 2000})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"created_on":null`)
}

func TestBookUpdate_JSONOmittedIsNotCleared(t *testing.T) {
	var upd BookUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Dune Messiah"}`), &upd))

	require.NotNil(t, upd.Title)
	assert.Equal(t, "Dune Messiah", *upd.Title)
	assert.Nil(t, upd.Author)
	assert.Nil(t, upd.Year)
}
