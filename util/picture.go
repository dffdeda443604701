package util

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// PictureType sniffs the MIME type of a profile picture.
func PictureType(data []byte) string {
	return mimetype.Detect(data).String()
}

func IsImage(data []byte) bool {
	return strings.HasPrefix(PictureType(data), "image/")
}

// PictureSummary describes a picture for terminals that can't show it.
func PictureSummary(data []byte) string {
	if len(data) == 0 {
		return "no picture"
	}
	mime := mimetype.Detect(data)
	return fmt.Sprintf("%s picture (%s, %s)", strings.TrimPrefix(mime.Extension(), "."), mime.String(), humanize.Bytes(uint64(len(data))))
}
