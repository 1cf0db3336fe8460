package keypath

import (
	"errors"
	"strings"
)

// MarkerName is the reserved base name of folder marker objects.
//
// A folder with no files is kept visible by a zero-byte object named
// "<folder-key>/.keep". Markers never show up as files and never count
// toward byte totals, but their parent chain still creates folders.
const MarkerName = ".keep"

// MarkerContentType is the content type written with marker objects.
const MarkerContentType = "text/plain"

// ErrInvalidFolderName indicates a folder name that is empty after sanitizing.
var ErrInvalidFolderName = errors.New("invalid folder name")

// IsMarker reports whether key is a folder marker.
func IsMarker(key string) bool {
	return Base(key) == MarkerName
}

// MarkerKey returns the marker key for a logical folder path.
// The root marker is ".keep".
func MarkerKey(folderPath string) (string, error) {
	key, err := ToKey(folderPath)
	if err != nil {
		return "", err
	}
	return JoinKey(key, MarkerName), nil
}

var folderNameReplacer = strings.NewReplacer(
	"/", "_",
	`\`, "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFolderName replaces characters that are hostile to filesystems and
// key paths with "_" and trims surrounding whitespace.
//
// Names that end up empty, or that are "." or "..", are rejected with
// ErrInvalidFolderName.
func SanitizeFolderName(name string) (string, error) {
	clean := strings.TrimSpace(folderNameReplacer.Replace(name))
	if clean == "" || clean == "." || clean == ".." {
		return "", ErrInvalidFolderName
	}
	return clean, nil
}
