package prompt

import (
	"strings"

	"github.com/tidwall/gjson"

	"gemini-session-client/internal/gemini"
)

// Decode reads a loosely typed JSON prompt:
//
//	"just text"
//	["text", {"type":"text","text":"..."},
//	 {"type":"file","path":"..."},
//	 {"type":"file","base64":"...","mimeType":"image/png"},
//	 {"type":"file","url":"https://..."}]
//
// Elements that match none of these shapes are dropped; skipped reports how
// many were.
func Decode(raw []byte) (items []Item, skipped int, err error) {
	if !gjson.ValidBytes(raw) {
		return nil, 0, gemini.InvalidInput("prompt is not valid JSON")
	}

	doc := gjson.ParseBytes(raw)
	switch {
	case doc.Type == gjson.String:
		return []Item{Text{Text: doc.String()}}, 0, nil
	case doc.IsArray():
	default:
		return nil, 0, gemini.InvalidInput("prompt must be a string or an array")
	}

	doc.ForEach(func(_, el gjson.Result) bool {
		if item, ok := decodeItem(el); ok {
			items = append(items, item)
		} else {
			skipped++
		}
		return true
	})
	return items, skipped, nil
}

func decodeItem(el gjson.Result) (Item, bool) {
	if el.Type == gjson.String {
		return Text{Text: el.String()}, true
	}
	if !el.IsObject() {
		return nil, false
	}

	switch strings.ToLower(el.Get("type").String()) {
	case "text":
		text := el.Get("text")
		if text.Type != gjson.String {
			return nil, false
		}
		return Text{Text: text.String()}, true
	case "file":
		if path := el.Get("path"); path.Type == gjson.String {
			return FileByPath{Path: path.String()}, true
		}
		if data := el.Get("base64"); data.Type == gjson.String {
			return FileByBase64{Data: data.String(), MimeType: el.Get("mimeType").String()}, true
		}
		if u := el.Get("url"); u.Type == gjson.String {
			return FileByURL{URL: u.String()}, true
		}
	}
	return nil, false
}
