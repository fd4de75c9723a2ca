package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Filter substitutes {:name} placeholders in expr with the quoted, escaped
// form of params[name]. Placeholders without a matching param are left as-is.
//
//	Filter("type = {:type}", map[string]interface{}{"type": "buyer"}) // type = 'buyer'
func Filter(expr string, params map[string]interface{}) string {
	if len(params) == 0 {
		return expr
	}
	pairs := make([]string, 0, len(params)*2)
	for name, value := range params {
		pairs = append(pairs, "{:"+name+"}", filterLiteral(value))
	}
	return strings.NewReplacer(pairs...).Replace(expr)
}

func filterLiteral(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quote(v)
	case time.Time:
		return quote(v.UTC().Format("2006-01-02 15:04:05.000Z"))
	case fmt.Stringer:
		return quote(v.String())
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return quote(fmt.Sprint(v))
		}
		return quote(string(raw))
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
