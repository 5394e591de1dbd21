// Package prompt turns caller prompt items into request parts: text passes
// through, files are read, decoded or downloaded, MIME-checked and inlined
// as base64.
package prompt

// Item is a sealed interface; only the types in this package implement it.
type Item interface {
	isItem()
}

type Text struct {
	Text string
}

// FileByPath is a local file, read at normalization time.
type FileByPath struct {
	Path string
}

// FileByBase64 is base64 data, optionally prefixed with a data URL header
// ("data:image/png;base64,"). MimeType, when set, wins over the header.
type FileByBase64 struct {
	Data     string
	MimeType string
}

// FileByURL is downloaded at normalization time.
type FileByURL struct {
	URL string
}

func (Text) isItem()         {}
func (FileByPath) isItem()   {}
func (FileByBase64) isItem() {}
func (FileByURL) isItem()    {}

// Texts wraps plain strings as Text items.
func Texts(texts ...string) []Item {
	items := make([]Item, 0, len(texts))
	for _, t := range texts {
		items = append(items, Text{Text: t})
	}
	return items
}
