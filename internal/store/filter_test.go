package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type role string

func (r role) String() string { return string(r) }

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		params map[string]interface{}
		want   string
	}{
		{"no params", "type = 'buyer'", nil, "type = 'buyer'"},
		{"string", "type = {:type}", map[string]interface{}{"type": "buyer"}, "type = 'buyer'"},
		{"injection is quoted", "type = {:type}", map[string]interface{}{"type": `buyer' || type != '`}, `type = 'buyer\' || type != \''`},
		{"backslash", "title = {:t}", map[string]interface{}{"t": `a\b`}, `title = 'a\\b'`},
		{"stringer", "type = {:r}", map[string]interface{}{"r": role("seller")}, "type = 'seller'"},
		{"bool and number", "isCompleted = {:c} && duration > {:d}", map[string]interface{}{"c": true, "d": 7}, "isCompleted = true && duration > 7"},
		{"nil", "field = {:f}", map[string]interface{}{"f": nil}, "field = null"},
		{"time", "created > {:t}", map[string]interface{}{"t": time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)}, "created > '2025-05-06 10:00:00.000Z'"},
		{"unknown placeholder kept", "a = {:a} && b = {:b}", map[string]interface{}{"a": "x"}, "a = 'x' && b = {:b}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filter(tt.expr, tt.params))
		})
	}
}
