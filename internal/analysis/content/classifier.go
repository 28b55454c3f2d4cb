package content

import (
	"strings"

	"github.com/chating-app/chating/client/internal/model/chat"
)

// 扩展名集合，按优先级排列：图片先于视频匹配。
var buckets = []struct {
	kind       chat.Kind
	extensions []string
}{
	{kind: chat.KindImage, extensions: []string{"jpg", "jpeg", "png", "gif", "webp"}},
	{kind: chat.KindVideo, extensions: []string{"mp4", "mov", "webm"}},
}

// Classify maps a URL or filename to a content kind by its suffix. It is
// total: anything that is not recognised media yields fallback, and a
// fallback that is not a known kind is treated as text.
func Classify(s string, fallback chat.Kind) chat.Kind {
	if !fallback.Valid() {
		fallback = chat.KindText
	}

	ext := extension(s)
	if ext == "" {
		return fallback
	}

	for _, bucket := range buckets {
		for _, candidate := range bucket.extensions {
			if ext == candidate {
				return bucket.kind
			}
		}
	}
	return fallback
}

// ForText classifies typed message content.
func ForText(s string) chat.Kind {
	return Classify(s, chat.KindText)
}

// ForFile classifies an uploaded file by its name.
func ForFile(name string) chat.Kind {
	return Classify(name, chat.KindFile)
}

// ForLegacyMedia resolves records that only carry an "is image" flag.
func ForLegacyMedia(s string) chat.Kind {
	if Classify(s, chat.KindImage) == chat.KindVideo {
		return chat.KindVideo
	}
	return chat.KindImage
}

func extension(s string) string {
	s = strings.TrimSpace(s)
	idx := strings.LastIndexByte(s, '.')
	if idx < 0 || idx == len(s)-1 {
		return ""
	}
	ext := s[idx+1:]
	if strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.ToLower(ext)
}
