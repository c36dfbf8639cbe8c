package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		query     string
		wantSkip  int
		wantLimit int
		wantOK    bool
	}{
		{"", 0, 10, true},
		{"?skip=5&limit=20", 5, 20, true},
		{"?limit=0", 0, 0, true},
		{"?limit=500", 0, 50, true},
		{"?skip=-1", 0, 0, false},
		{"?limit=abc", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)

			skip, limit, ok := parsePage(c, 10, 50)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantSkip, skip)
				assert.Equal(t, tt.wantLimit, limit)
			} else {
				assert.Equal(t, http.StatusBadRequest, rr.Code)
			}
		})
	}
}

func TestParseIDParam(t *testing.T) {
	for raw, want := range map[string]bool{"7": true, "0": false, "-3": false, "abc": false} {
		rr := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rr)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		id, ok := parseIDParam(c, "id")
		assert.Equal(t, want, ok, raw)
		if want {
			assert.Equal(t, uint(7), id)
		}
	}
}
