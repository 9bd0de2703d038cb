package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url    string
		want   ID
		wantOK bool
	}{
		{"https://www.amazon.fr/dp/B000", Amazon, true},
		{"https://WWW.AMAZON.de/dp/B000", Amazon, true},
		{"https://www.cdiscount.com/f-123.html", Cdiscount, true},
		{"https://cdiscount.com/f-123.html", "", false},
		{"https://www.fnac.com/a1", "", false},
		{"::not a url", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			got, ok := Detect(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanURL(t *testing.T) {
	t.Parallel()

	got, err := CleanURL("https://www.amazon.fr/dp/B000?ref=abc&tag=x#reviews")
	require.NoError(t, err)
	assert.Equal(t, "https://www.amazon.fr/dp/B000", got)

	got, err = CleanURL("http://localhost:8080/p/1?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/p/1", got)

	_, err = CleanURL("/relative/path")
	assert.Error(t, err)
}
