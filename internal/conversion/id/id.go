// Package id provides unique identifier and file name generation for conversions.
package id

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxBaseLen = 64

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Generate creates a new unique conversion ID.
// Format: conv-<unix-seconds>-<uuid prefix>
// Example: conv-1701432000-a1b2c3d4
func Generate() string {
	return fmt.Sprintf("conv-%d-%s", time.Now().Unix(), short())
}

// IncomingName builds the on-disk name for an uploaded file.
// Format: <unix-millis>-<uuid>-<sanitized base><ext>
func IncomingName(original string, now time.Time) string {
	base, ext := split(original)
	return fmt.Sprintf("%d-%s-%s%s", now.UnixMilli(), uuid.NewString(), base, ext)
}

// OutputName builds the name of a conversion result. Results are always MP4.
// Format: converted-<unix-millis>-<uuid prefix>-<sanitized base>.mp4
func OutputName(original string, now time.Time) string {
	base, _ := split(original)
	return fmt.Sprintf("converted-%d-%s-%s.mp4", now.UnixMilli(), short(), base)
}

// Sanitize reduces name to characters that are safe in a path segment and a URL.
func Sanitize(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	s = strings.Trim(s, "._")
	if len(s) > maxBaseLen {
		s = s[:maxBaseLen]
	}
	if s == "" {
		return "video"
	}
	return s
}

func split(original string) (base, ext string) {
	name := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	ext = strings.ToLower(filepath.Ext(name))
	if ext != "" && Sanitize(ext[1:]) != ext[1:] {
		ext = ""
	}
	return Sanitize(strings.TrimSuffix(name, filepath.Ext(name))), ext
}

func short() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
