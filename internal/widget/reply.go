package widget

import (
	"strings"

	"github.com/tidwall/gjson"
)

// replyFields is the order in which known reply fields are probed on a
// response body. The nested json.message path matches public echo services,
// which mirror the request body under a "json" key.
var replyFields = []string{"reply", "response", "answer", "message", "text", "json.message"}

// extractReply pulls the assistant reply out of a response body. Fields
// holding objects, arrays, or null are skipped; bodies that are not JSON, or
// that carry no scalar reply field, degrade to the raw body string.
func extractReply(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, field := range replyFields {
			res := gjson.GetBytes(body, field)
			if !res.Exists() || res.Type == gjson.Null || res.IsObject() || res.IsArray() {
				continue
			}
			return res.String()
		}
	}
	return strings.TrimSpace(string(body))
}
