// Package media validates local video files before submission.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vidtrack/internal/model"
)

// ErrUnsupportedType is returned for files outside the accepted containers.
var ErrUnsupportedType = errors.New("invalid file type: select a video file (.mp4, .mov, .avi)")

// DetectContentType maps a file name to one of the accepted video MIME types.
func DetectContentType(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4":
		return "video/mp4", nil
	case ".mov", ".qt":
		return "video/quicktime", nil
	case ".avi":
		return "video/x-msvideo", nil
	default:
		return "", ErrUnsupportedType
	}
}

// Inspect stats path and returns a VideoInput for it.
func Inspect(path string) (model.VideoInput, error) {
	if path == "" {
		return model.VideoInput{}, errors.New("no file selected for upload")
	}
	ct, err := DetectContentType(path)
	if err != nil {
		return model.VideoInput{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return model.VideoInput{}, fmt.Errorf("cannot read %q: %w", path, err)
	}
	if fi.IsDir() {
		return model.VideoInput{}, fmt.Errorf("%q is a directory", path)
	}
	return model.VideoInput{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: ct,
		Size:        fi.Size(),
	}, nil
}
