package session

import (
	"strings"

	"github.com/tidwall/gjson"
)

func historyID(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	doc := gjson.ParseBytes(body)
	for _, k := range HistoryIDKeys {
		v := doc.Get(k)
		switch v.Type {
		case gjson.String:
			if s := strings.TrimSpace(v.Str); s != "" {
				return s
			}
		case gjson.Number:
			return v.Raw
		}
	}
	return ""
}
