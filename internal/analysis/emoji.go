package analysis

import (
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"
	"mvdan.cc/xurls/v2"
)

// mediaOmittedMarker is the placeholder chat exports substitute for attached
// media that was not exported.
const mediaOmittedMarker = "<media omitted>"

var (
	linkRE = xurls.Strict()

	// fileExtRE matches bare attachment names such as "IMG-4021.jpg (file
	// attached)" that carry no URL.
	fileExtRE = regexp.MustCompile(`(?i)\b[\w\-]+\.([a-z0-9]{2,5})\b`)
)

// extension -> category lookup for both URLs and bare attachment names.
var mediaExtensions = map[string]MediaType{
	"jpg": MediaImage, "jpeg": MediaImage, "png": MediaImage,
	"gif": MediaImage, "webp": MediaImage, "bmp": MediaImage,
	"mp4": MediaVideo, "avi": MediaVideo, "mov": MediaVideo,
	"mkv": MediaVideo, "webm": MediaVideo,
	"mp3": MediaAudio, "wav": MediaAudio, "m4a": MediaAudio,
	"flac": MediaAudio, "aac": MediaAudio,
	"pdf": MediaDoc, "doc": MediaDoc, "docx": MediaDoc,
	"xls": MediaDoc, "xlsx": MediaDoc, "ppt": MediaDoc, "pptx": MediaDoc,
}

// mediaFlagOrder fixes the order flags are reported in, for determinism.
var mediaFlagOrder = []MediaType{MediaImage, MediaVideo, MediaAudio, MediaDoc, MediaLink, MediaGeneric}

// EmojiMediaResult holds everything the emoji/media detector finds in one
// message body.
type EmojiMediaResult struct {
	// Emojis lists distinct emoji characters in first-occurrence order.
	Emojis []string
	// MediaFlags lists detected media categories, deduplicated.
	MediaFlags []MediaType
}

// DetectEmojiMedia scans body for emoji code points and media indicators.
// Duplicate emoji are deduplicated here; the aggregator recovers raw counts
// from the body when tallying the conversation.
func DetectEmojiMedia(body string) EmojiMediaResult {
	var res EmojiMediaResult
	if body == "" {
		return res
	}

	seen := make(map[string]struct{})
	for _, e := range gomoji.FindAll(body) {
		if _, dup := seen[e.Character]; dup {
			continue
		}
		seen[e.Character] = struct{}{}
		res.Emojis = append(res.Emojis, e.Character)
	}

	flags := make(map[MediaType]struct{})

	if strings.Contains(strings.ToLower(body), mediaOmittedMarker) {
		flags[MediaGeneric] = struct{}{}
	}

	for _, u := range linkRE.FindAllString(body, -1) {
		if mt, ok := mediaExtensions[urlExtension(u)]; ok {
			flags[mt] = struct{}{}
			continue
		}
		flags[MediaLink] = struct{}{}
	}

	// Bare attachment names outside URLs.
	withoutLinks := linkRE.ReplaceAllString(body, " ")
	for _, m := range fileExtRE.FindAllStringSubmatch(withoutLinks, -1) {
		if mt, ok := mediaExtensions[strings.ToLower(m[1])]; ok {
			flags[mt] = struct{}{}
		}
	}

	for _, mt := range mediaFlagOrder {
		if _, ok := flags[mt]; ok {
			res.MediaFlags = append(res.MediaFlags, mt)
		}
	}

	return res
}

// urlExtension extracts a lowercase file extension from a URL, ignoring any
// query string or fragment.
func urlExtension(u string) string {
	if idx := strings.IndexAny(u, "?#"); idx != -1 {
		u = u[:idx]
	}
	slash := strings.LastIndex(u, "/")
	dot := strings.LastIndex(u, ".")
	if dot == -1 || dot < slash {
		return ""
	}
	return strings.ToLower(u[dot+1:])
}
