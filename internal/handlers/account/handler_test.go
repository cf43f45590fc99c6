package account

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantOffset int
		wantLimit  int
	}{
		{
			name:       "defaults",
			query:      url.Values{},
			wantOffset: 0,
			wantLimit:  defaultPerPage,
		},
		{
			name:       "explicit page and per_page",
			query:      url.Values{"page": {"2"}, "per_page": {"10"}},
			wantOffset: 2,
			wantLimit:  10,
		},
		{
			name:       "per_page clamped to max",
			query:      url.Values{"per_page": {"500"}},
			wantOffset: 0,
			wantLimit:  maxPerPage,
		},
		{
			name:       "invalid values fall back to defaults",
			query:      url.Values{"page": {"not-a-number"}, "per_page": {"-5"}},
			wantOffset: 0,
			wantLimit:  defaultPerPage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{URL: &url.URL{RawQuery: tt.query.Encode()}}

			offset, limit := parsePagination(r)

			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
