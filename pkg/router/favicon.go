package router

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// FaviconPath is the path the favicon route is installed at.
const FaviconPath = "/favicon.ico"

var faviconTypes = map[string]string{
	".ico":  "image/x-icon",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// FaviconType returns the Content-Type served for a favicon at file.
// Extensions are matched exactly, so icon.ICO is rejected.
func FaviconType(file string) (string, error) {
	ext := filepath.Ext(file)

	mimeType, ok := faviconTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFavicon, ext)
	}
	return mimeType, nil
}

// SetFavicon installs a GET /favicon.ico route streaming file. Files with
// an extension other than .ico, .png, .jpg or .jpeg are rejected and no
// route is installed.
func (a *App) SetFavicon(file string) error {
	mimeType, err := FaviconType(file)
	if err != nil {
		return err
	}

	route := NewRoute(FaviconPath).Get(func(w http.ResponseWriter, r *http.Request) (Result, error) {
		f, err := os.Open(file)
		if err != nil {
			return Result{}, err
		}
		defer f.Close()

		w.Header().Set("Content-Type", mimeType)
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, f); err != nil {
			return Result{}, err
		}
		return Written(), nil
	})

	a.mutex.Lock()
	a.faviconFile = file
	a.mutex.Unlock()

	a.AddRoute(route)
	return nil
}

// Favicon is the file served at /favicon.ico, or "" when none is set.
func (a *App) Favicon() string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.faviconFile
}
