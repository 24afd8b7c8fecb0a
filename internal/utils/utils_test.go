package utils

import (
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Home":                "home",
		"Getting Started!":    "getting-started",
		"  Café   Setup  ":    "cafe-setup",
		"Ünïcödé/Straße 2024": "unicode-straße-2024",
		"---":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestSlugify_TruncatesLongTitles(t *testing.T) {
	slug := Slugify(strings.Repeat("word ", 100))
	assert.LessOrEqual(t, len(slug), maxSlugLength)
	assert.False(t, strings.HasSuffix(slug, "-"))
}

func TestUniqueSlug(t *testing.T) {
	assert.Equal(t, "setup", UniqueSlug("setup", "page", nil))
	assert.Equal(t, "setup-2", UniqueSlug("setup", "page", []string{"setup"}))
	assert.Equal(t, "setup-4", UniqueSlug("setup", "page", []string{"setup", "setup-2", "setup-3"}))
	assert.Equal(t, "page", UniqueSlug("", "page", []string{"other"}))
}

func TestGenerateInviteCode(t *testing.T) {
	code, err := GenerateInviteCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}$`), code)

	secret, err := RandomHex(32)
	require.NoError(t, err)
	assert.Len(t, secret, 64)
}

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query      string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"", 1, 20, 0},
		{"?page=3&limit=10", 3, 10, 20},
		{"?page=0&limit=1000", 1, 20, 0},
		{"?page=abc", 1, 20, 0},
		{"?page=2&page_size=5", 2, 5, 5},
		{"?page=2&page_size=5&limit=50", 2, 5, 5},
		{"?page=-4&page_size=0", 1, 20, 0},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/tasks"+tt.query, nil)

		p := GetPaginationParams(c)
		assert.Equal(t, tt.wantPage, p.Page, tt.query)
		assert.Equal(t, tt.wantLimit, p.Limit, tt.query)
		assert.Equal(t, tt.wantOffset, p.Offset, tt.query)
	}
}
